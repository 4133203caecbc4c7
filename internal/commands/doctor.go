package commands

import (
	"os"
	"os/exec"

	"convctl/internal/adapter"
	"convctl/internal/config"
	"convctl/internal/ui"
)

// RunDoctor checks the environment pieces a run depends on.
func RunDoctor() {
	ui.ShowHeader("convctl diagnostics")

	// operator config
	if cfg, err := config.Load(); err != nil {
		ui.ShowError("config unreadable", err)
	} else {
		ui.ShowSuccess("config ok (%s)", config.ConfigPath)
		if cfg.DefaultAdapter != "" {
			if _, found := adapter.Lookup(cfg.DefaultAdapter); !found {
				ui.ShowWarning("default adapter %q is not registered", cfg.DefaultAdapter)
			}
		}
		if cfg.ModelOverrides != "" {
			if _, err := os.Stat(cfg.ModelOverrides); err != nil {
				ui.ShowWarning("model overrides file missing: %s", cfg.ModelOverrides)
			}
		}
	}

	// adapters
	for _, name := range adapter.List() {
		switch name {
		case "claude":
			if _, err := exec.LookPath("claude"); err != nil {
				ui.ShowWarning("adapter claude: CLI not found in PATH")
			} else {
				ui.ShowSuccess("adapter claude: CLI found")
			}
		case "ws":
			if os.Getenv("CONVCTL_WS_URL") == "" {
				ui.ShowWarning("adapter ws: CONVCTL_WS_URL not set")
			} else {
				ui.ShowSuccess("adapter ws: endpoint configured")
			}
		default:
			ui.ShowSuccess("adapter %s: available", name)
		}
	}

	// checkpoint storage
	store := checkpointStore()
	if err := os.MkdirAll(store.Dir, 0755); err != nil {
		ui.ShowError("checkpoint directory not writable", err)
	} else if !ui.CanWriteTo(store.Dir) {
		ui.ShowError("checkpoint directory not writable: "+store.Dir, nil)
	} else {
		cps, _ := store.List()
		ui.ShowSuccess("checkpoint store ok (%d saved)", len(cps))
	}

	// git (used for checkpoint commits, optional)
	if _, err := exec.LookPath("git"); err != nil {
		ui.ShowWarning("git not found, checkpoint commits disabled")
	} else {
		ui.ShowSuccess("git found")
	}
}
