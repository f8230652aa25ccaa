package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the dataset root and artifact locations.
type Paths struct {
	DatasetDir string `toml:"dataset_dir"`
	OutputPath string `toml:"output_path"`
	LogDir     string `toml:"log_dir"`
}

// Discovery controls which filesystem entries become extraction candidates.
type Discovery struct {
	ArchiveExtensions []string `toml:"archive_extensions"`
	// Modalities maps a directory name (case-insensitive) to the modality tag
	// recorded for every file beneath it.
	Modalities map[string]string `toml:"modalities"`
}

// MAT contains settings for the MATLAB Level 5 reader.
type MAT struct {
	// ContainerKeys lists the root variable names holding the signal record,
	// tried in order.
	ContainerKeys []string `toml:"container_keys"`
}

// TDMS contains settings for the TDMS reader.
type TDMS struct {
	Group string `toml:"group"`
	// Channels lists the raw channel names to read. Empty means every channel
	// in the group.
	Channels []string `toml:"channels"`
}

// Report contains settings for the end-of-run summary.
type Report struct {
	Format string `toml:"format"`
}

// Metrics contains settings for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for harvest.
//
// Configuration sections by subsystem:
//   - Paths: dataset root, output store, log directory
//   - Discovery: archive extensions and the modality directory table
//   - Conditions: canonical condition class -> accepted filename spellings
//   - MAT: container variable names for Format A files
//   - TDMS: group and channel selection for Format B files
//   - Report: summary output format
//   - Metrics: optional Prometheus textfile path
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths               `toml:"paths"`
	Discovery  Discovery           `toml:"discovery"`
	Conditions map[string][]string `toml:"conditions"`
	MAT        MAT                 `toml:"mat"`
	TDMS       TDMS                `toml:"tdms"`
	Report     Report              `toml:"report"`
	Metrics    Metrics             `toml:"metrics"`
	Logging    Logging             `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/harvest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Tables in the file replace the defaults wholesale rather than merging
		// key by key, so a user-supplied alias table is exactly what is used.
		cfg.Conditions = nil
		cfg.Discovery.Modalities = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/harvest/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("harvest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and the parent of the output store.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.OutputPath) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.OutputPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ConditionAliases returns the alias table as (canonical, aliases) pairs in
// canonical-name order.
func (c *Config) ConditionAliases() []ConditionAlias {
	names := make([]string, 0, len(c.Conditions))
	for name := range c.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ConditionAlias, 0, len(names))
	for _, name := range names {
		aliases := make([]string, len(c.Conditions[name]))
		copy(aliases, c.Conditions[name])
		out = append(out, ConditionAlias{Canonical: name, Aliases: aliases})
	}
	return out
}

// ConditionAlias is one row of the condition canonicalization table.
type ConditionAlias struct {
	Canonical string
	Aliases   []string
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
