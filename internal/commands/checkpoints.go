package commands

import (
	"fmt"

	"convctl/internal/output"
	"convctl/internal/tui"
	"convctl/internal/ui"
)

// RunCheckpointList prints all saved checkpoints, newest first.
func RunCheckpointList() error {
	cps, err := checkpointStore().List()
	if err != nil {
		return err
	}
	output.Print(cps, func() {
		if len(cps) == 0 {
			ui.ShowInfo("no checkpoints saved")
			return
		}
		for _, cp := range cps {
			status := cp.State.Status.String()
			fmt.Printf("  %-24s %-10s step %d  %s\n", cp.Name, status, cp.State.StepIndex, cp.CreatedAt)
			if cp.PauseMessage != "" {
				fmt.Printf("    pause: %s\n", cp.PauseMessage)
			}
		}
	})
	return nil
}

// RunCheckpointShow prints one checkpoint in detail.
func RunCheckpointShow(name string) error {
	cp, err := checkpointStore().Load(name)
	if err != nil {
		return err
	}
	output.Print(cp, func() {
		ui.ShowHeader("Checkpoint " + cp.Name)
		ui.ShowInfo("created: %s", cp.CreatedAt)
		ui.ShowInfo("status: %s", cp.State.Status)
		ui.ShowInfo("next step: %d", cp.State.StepIndex)
		if cp.State.CycleNumber > 1 {
			ui.ShowInfo("cycle: %d", cp.State.CycleNumber)
		}
		if cp.PauseMessage != "" {
			ui.ShowInfo("pause message: %s", cp.PauseMessage)
		}
		if cp.Source != "" {
			ui.ShowInfo("source: %s", cp.Source)
		}
		fmt.Printf("  %d messages in history\n", len(cp.State.Messages))
		if cp.Conversation != nil && cp.Conversation.Title != "" {
			ui.ShowInfo("workflow: %s", cp.Conversation.Title)
		}
	})
	return nil
}

// RunCheckpointDelete removes one checkpoint.
func RunCheckpointDelete(name string) error {
	if err := checkpointStore().Delete(name); err != nil {
		return err
	}
	ui.ShowSuccess("deleted checkpoint %q", name)
	return nil
}

// RunCheckpointBrowse opens the interactive checkpoint browser.
func RunCheckpointBrowse() error {
	return tui.Run(checkpointStore())
}
