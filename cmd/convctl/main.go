package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"convctl/internal/commands"
	"convctl/internal/output"
)

var jsonFlag bool

var rootCmd = &cobra.Command{
	Use:   "convctl",
	Short: "Run multi-turn assistant workflows from directive files",
	Long:  "convctl parses line-oriented workflow files and drives multi-turn assistant conversations: prompts, pauses, checkpoints, compaction, and verification",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CycleCmd)
	rootCmd.AddCommand(commands.ResumeCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.RenderCmd)
	rootCmd.AddCommand(commands.CheckpointsCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.AdaptersCmd)
	rootCmd.AddCommand(commands.ModelsCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.CompletionCmd)

	// With no subcommand: open the checkpoint browser on a TTY,
	// otherwise print usage.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if jsonFlag {
			return commands.RunCheckpointList()
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return commands.RunCheckpointBrowse()
		}
		return cmd.Help()
	}
}

func main() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.JSONMode = jsonFlag
	}

	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err)
		os.Exit(1)
	}
}
