package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, parses, and validates the YAML configuration file.
// Defaults are applied before validation.
func LoadConfig(filename string) (*Config, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(fileBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Input.Reader == "" {
		cfg.Input.Reader = DefaultReader
	}
	if cfg.Input.FileType == "" {
		cfg.Input.FileType = DefaultFileType
	}
	if cfg.Input.Options != nil && cfg.Input.Options.BatchRows <= 0 {
		cfg.Input.Options.BatchRows = DefaultBatchRows
	}
	if cfg.Output.Writer == "" {
		cfg.Output.Writer = DefaultWriter
	}
	if cfg.Output.Adjuster == "" {
		cfg.Output.Adjuster = DefaultAdjuster
	}
	if kt := cfg.Output.Metadata.KnowledgeTime; kt != nil {
		if kt.TZ == "" {
			kt.TZ = DefaultTZ
		}
		if kt.HeaderLine <= 0 {
			kt.HeaderLine = DefaultHeaderLine
		}
	}
	for name, ev := range cfg.ExtractVars {
		if ev.Type == "" {
			ev.Type = ExtractVarTypeString
			cfg.ExtractVars[name] = ev
		}
	}
}

// GetTableConfig returns the configuration for the named table, or an error
// listing the available table names.
func (c *Config) GetTableConfig(tableName string) (TableConfig, error) {
	table, ok := c.Tables[tableName]
	if !ok {
		available := make([]string, 0, len(c.Tables))
		for name := range c.Tables {
			available = append(available, name)
		}
		return TableConfig{}, fmt.Errorf("table '%s' not found in configuration (available: %v)", tableName, available)
	}
	return table, nil
}
