package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overridesFile is the shape of an operator model configuration:
//
//	models:
//	  claude-sonnet-4:
//	    context: 200000
//	    tier: standard
//	    speed: standard
//	    capability: general
//	    vendor: anthropic
//	    family: claude
type overridesFile struct {
	Models map[string]Capabilities `yaml:"models"`
}

// LoadOverrides merges operator model definitions from a YAML file
// into the registry. New names extend the registry, existing names
// are replaced.
func (g *Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model overrides: %w", err)
	}
	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse model overrides: %w", err)
	}
	for name, caps := range file.Models {
		g.Set(name, caps)
	}
	return nil
}
