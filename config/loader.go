package config

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"
)

// LoadConfig loads configuration with priority:
// CLI flags > environment (including .env) > config file > defaults
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	return load(fs, nil)
}

func load(fs *pflag.FlagSet, lookup LookupFunc) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. .env only fills variables that are not already set
	if lookup == nil {
		if _, err := LoadDotEnv(); err != nil {
			return nil, err
		}
	}

	// 3. Config file: --config wins over the standard locations
	configPath := ""
	if fs != nil && fs.Lookup(FlagConfig) != nil {
		configPath, _ = fs.GetString(FlagConfig)
	}
	if configPath == "" {
		configPath = FindConfigFile()
	}
	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 4. Environment
	if err := cfg.MergeFromEnv(lookup); err != nil {
		return nil, err
	}

	// 5. CLI flags (highest priority, overwrites everything)
	if fs != nil {
		if err := cfg.MergeFromFlags(fs); err != nil {
			return nil, err
		}
	}

	// Auto-detect workers if set to 0
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	// Validate final configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
