package commands

import (
	"fmt"

	"convctl/internal/models"
	"convctl/internal/output"
	"convctl/internal/ui"
)

// modelRegistry returns the capability registry with operator
// overrides applied when configured.
func modelRegistry() *models.Registry {
	reg := models.NewRegistry()
	cfg := loadConfig()
	if cfg.ModelOverrides != "" {
		if err := reg.LoadOverrides(cfg.ModelOverrides); err != nil {
			ui.ShowWarning("model overrides: %v", err)
		}
	}
	return reg
}

// RunModelsList prints the capability registry.
func RunModelsList() error {
	reg := modelRegistry()
	names := reg.Names()

	type entry struct {
		Name string              `json:"name"`
		Caps models.Capabilities `json:"capabilities"`
	}
	entries := make([]entry, 0, len(names))
	for _, name := range names {
		caps, _ := reg.Get(name)
		entries = append(entries, entry{Name: name, Caps: caps})
	}

	output.Print(entries, func() {
		for _, e := range entries {
			fmt.Printf("  %-18s %7d ctx  %-8s %-10s %-9s %s/%s\n",
				e.Name, e.Caps.Context, e.Caps.Tier, e.Caps.Speed, e.Caps.Capability,
				e.Caps.Vendor, e.Caps.Family)
		}
	})
	return nil
}

// RunModelsResolve resolves requirement flags to a concrete model.
func RunModelsResolve(requires, prefers []string, policy, fallback string) error {
	var rs models.Requirements
	for _, spec := range requires {
		if err := rs.AddRequirement(spec); err != nil {
			return err
		}
	}
	for _, spec := range prefers {
		if err := rs.AddPreference(spec); err != nil {
			return err
		}
	}
	if policy != "" {
		if err := rs.SetPolicy(policy); err != nil {
			return err
		}
	}

	resolved := modelRegistry().Resolve(&rs, nil, fallback)
	if resolved == "" {
		return fmt.Errorf("no model satisfies %s", rs.String())
	}

	output.Print(map[string]string{"model": resolved}, func() {
		ui.ShowSuccess("%s (%s)", resolved, rs.String())
	})
	return nil
}
