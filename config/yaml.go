package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configName = "compositor"

// configHeader is written above a saved configuration.
const configHeader = `# compositor configuration
# Times are rationals ("5/30", "5/30s"), whole seconds ("2") or decimals ("0.5").
# An empty segment.source_gap or segment.target_gap falls back to segment.gap.
`

// LoadConfigFile loads configuration from a YAML file on top of base.
// A nil base starts from the defaults. Unknown keys are rejected so a
// misspelt setting does not silently fall back to its default.
func LoadConfigFile(path string, base *Config) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	if base != nil {
		cfg = base.Copy()
	}

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigLocations lists where FindConfigFile looks, in order.
func ConfigLocations() []string {
	locations := []string{"./" + configName + ".yaml", "./" + configName + ".yml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, "."+configName, "config.yaml"),
			filepath.Join(home, "."+configName, "config.yml"),
		)
	}
	return append(locations,
		filepath.Join("/etc", configName, "config.yaml"),
		filepath.Join("/etc", configName, "config.yml"),
	)
}

// FindConfigFile searches for config file in standard locations
// Returns empty string if not found (non-fatal)
func FindConfigFile() string {
	for _, path := range ConfigLocations() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// EncodeConfig writes cfg as commented YAML. Per-run switches (dry_run,
// verbose) are left out.
func EncodeConfig(w io.Writer, cfg *Config) error {
	out := cfg.Copy()
	out.DryRun = false
	out.Verbose = false

	if _, err := io.WriteString(w, configHeader); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

// SaveConfigFile validates cfg and writes it to path, replacing any
// existing file only once the new one is complete.
func SaveConfigFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeConfig(tmp, cfg); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
