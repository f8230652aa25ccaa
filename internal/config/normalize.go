package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizeConditions()
	c.normalizeMAT()
	c.normalizeTDMS()
	c.normalizeReport()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.DatasetDir = strings.TrimSpace(c.Paths.DatasetDir)
	if c.Paths.DatasetDir == "" {
		if value, ok := os.LookupEnv("HARVEST_DATASET_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.DatasetDir = strings.TrimSpace(value)
		} else {
			c.Paths.DatasetDir = defaultDatasetDir
		}
	}
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	c.Paths.OutputPath = strings.TrimSpace(c.Paths.OutputPath)
	if c.Paths.OutputPath == "" {
		if value, ok := os.LookupEnv("HARVEST_OUTPUT"); ok && strings.TrimSpace(value) != "" {
			c.Paths.OutputPath = strings.TrimSpace(value)
		} else {
			c.Paths.OutputPath = defaultOutputPath
		}
	}
	if c.Paths.OutputPath, err = expandPath(c.Paths.OutputPath); err != nil {
		return fmt.Errorf("paths.output_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	if len(c.Discovery.ArchiveExtensions) == 0 {
		c.Discovery.ArchiveExtensions = cloneStrings(defaultArchiveExtensions)
	}
	exts := make([]string, 0, len(c.Discovery.ArchiveExtensions))
	seen := make(map[string]struct{}, len(c.Discovery.ArchiveExtensions))
	for _, ext := range c.Discovery.ArchiveExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Discovery.ArchiveExtensions = exts

	if len(c.Discovery.Modalities) == 0 {
		c.Discovery.Modalities = defaultModalities()
	}
	modalities := make(map[string]string, len(c.Discovery.Modalities))
	for dir, tag := range c.Discovery.Modalities {
		dir = strings.ToLower(strings.TrimSpace(dir))
		if dir == "" {
			continue
		}
		modalities[dir] = strings.TrimSpace(tag)
	}
	c.Discovery.Modalities = modalities
}

func (c *Config) normalizeConditions() {
	if len(c.Conditions) == 0 {
		c.Conditions = defaultConditions()
	}
	conditions := make(map[string][]string, len(c.Conditions))
	for canonical, aliases := range c.Conditions {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		out := make([]string, 0, len(aliases)+1)
		seen := make(map[string]struct{}, len(aliases)+1)
		for _, alias := range append([]string{canonical}, aliases...) {
			normalized := strings.ToLower(strings.TrimSpace(alias))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, normalized)
		}
		conditions[canonical] = out
	}
	c.Conditions = conditions
}

func (c *Config) normalizeMAT() {
	keys := make([]string, 0, len(c.MAT.ContainerKeys))
	for _, key := range c.MAT.ContainerKeys {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		keys = cloneStrings(defaultMATContainerKeys)
	}
	c.MAT.ContainerKeys = keys
}

func (c *Config) normalizeTDMS() {
	c.TDMS.Group = strings.TrimSpace(c.TDMS.Group)
	if c.TDMS.Group == "" {
		c.TDMS.Group = defaultTDMSGroup
	}
	channels := make([]string, 0, len(c.TDMS.Channels))
	for _, ch := range c.TDMS.Channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}
	c.TDMS.Channels = channels
}

func (c *Config) normalizeReport() {
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))
	if c.Report.Format == "" {
		c.Report.Format = defaultReportFormat
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile == "" {
		return nil
	}
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
