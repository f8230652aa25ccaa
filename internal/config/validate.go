package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateConditions(); err != nil {
		return err
	}
	if err := c.validateFormats(); err != nil {
		return err
	}
	if err := c.validateReport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputPath) == "" {
		return errors.New("paths.output_path must be set")
	}
	if strings.TrimSpace(c.Paths.DatasetDir) != "" && c.Paths.DatasetDir == c.Paths.OutputPath {
		return errors.New("paths.output_path must differ from paths.dataset_dir")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	for _, ext := range c.Discovery.ArchiveExtensions {
		switch strings.ToLower(ext) {
		case ".mat", ".tdms":
			return fmt.Errorf("discovery.archive_extensions must not contain data extension %q", ext)
		}
	}
	dirs := make([]string, 0, len(c.Discovery.Modalities))
	for dir := range c.Discovery.Modalities {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if strings.TrimSpace(c.Discovery.Modalities[dir]) == "" {
			return fmt.Errorf("discovery.modalities.%q must name a modality tag", dir)
		}
	}
	return nil
}

// validateConditions rejects alias tables where one spelling would resolve to
// two canonical classes; the descriptor parser needs a function, not a relation.
func (c *Config) validateConditions() error {
	owner := make(map[string]string)
	for _, row := range c.ConditionAliases() {
		if strings.ContainsAny(row.Canonical, "_. ") {
			return fmt.Errorf("conditions: canonical name %q must not contain '_', '.', or spaces", row.Canonical)
		}
		for _, alias := range row.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if prev, exists := owner[key]; exists && prev != row.Canonical {
				return fmt.Errorf("conditions: alias %q maps to both %q and %q", alias, prev, row.Canonical)
			}
			owner[key] = row.Canonical
		}
	}
	return nil
}

func (c *Config) validateFormats() error {
	if len(c.MAT.ContainerKeys) == 0 {
		return errors.New("mat.container_keys must list at least one variable name")
	}
	if strings.TrimSpace(c.TDMS.Group) == "" {
		return errors.New("tdms.group must be set")
	}
	return nil
}

func (c *Config) validateReport() error {
	switch c.Report.Format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("report.format: unsupported value %q (want text, json, or yaml)", c.Report.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
