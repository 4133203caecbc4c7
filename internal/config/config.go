// Package config loads and saves the operator configuration at
// ~/.convctl/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persisted operator configuration. Everything is
// optional; the zero value runs workflows with the builtin defaults.
type Config struct {
	// DefaultAdapter is used when a workflow declares no ADAPTER.
	DefaultAdapter string `json:"defaultAdapter,omitempty"`

	// DefaultModel is used when a workflow declares no MODEL.
	DefaultModel string `json:"defaultModel,omitempty"`

	// CheckpointDir overrides ~/.convctl/checkpoints.
	CheckpointDir string `json:"checkpointDir,omitempty"`

	// ModelOverrides points at a YAML file extending the model
	// capability registry.
	ModelOverrides string `json:"modelOverrides,omitempty"`

	// CustomDirectives lists directive keywords to register as custom
	// types before parsing, so shared workflow files using extension
	// directives validate without per-run flags.
	CustomDirectives []string `json:"customDirectives,omitempty"`

	// Vars provides default template variable bindings, overridden by
	// per-run --var flags.
	Vars map[string]string `json:"vars,omitempty"`
}

// ConfigPath is the config file location, overridable for tests.
var ConfigPath string

func init() {
	pwd, _ := os.Getwd()
	projectConfig := filepath.Join(pwd, "convctl.json")
	if _, err := os.Stat(projectConfig); err == nil {
		ConfigPath = projectConfig
	} else {
		homeDir, _ := os.UserHomeDir()
		ConfigPath = filepath.Join(homeDir, ".convctl", "config.json")
	}
}

// Load reads the configuration. A missing file is not an error and
// yields the zero config.
func Load() (*Config, error) {
	data, err := os.ReadFile(ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration, creating the directory if needed.
func Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(ConfigPath)
	os.MkdirAll(dir, 0755)
	return os.WriteFile(ConfigPath, data, 0644)
}
