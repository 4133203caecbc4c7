package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "convctl/internal/mcp"
)

// RunCmd executes a workflow file from the beginning.
var RunCmd = &cobra.Command{
	Use:   "run <file.conv>",
	Short: "Run a workflow file",
	Long:  "Parse a workflow file and execute its steps against the configured adapter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptionsFromFlags(cmd)
		return RunRun(args[0], opts)
	},
}

// CycleCmd replays a workflow for multiple cycles.
var CycleCmd = &cobra.Command{
	Use:   "cycle <file.conv>",
	Short: "Run a workflow repeatedly",
	Long:  "Run a workflow in cycle mode, replaying the step list up to MAX-CYCLES times with {{CYCLE}} bound each iteration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptionsFromFlags(cmd)
		opts.Cycles, _ = cmd.Flags().GetInt("cycles")
		return RunRun(args[0], opts)
	},
}

// ResumeCmd continues a paused run from its checkpoint.
var ResumeCmd = &cobra.Command{
	Use:               "resume <checkpoint>",
	Short:             "Resume a paused workflow",
	Long:              "Load a checkpoint written by a PAUSE or CHECKPOINT step and continue execution from the recorded position",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCheckpointNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptionsFromFlags(cmd)
		return RunResume(args[0], opts)
	},
}

// ValidateCmd checks workflow files without executing them.
var ValidateCmd = &cobra.Command{
	Use:   "validate <file.conv>...",
	Short: "Validate workflow files",
	Long:  "Parse workflow files and report syntax errors without executing anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		directives, _ := cmd.Flags().GetStringArray("directive")
		return RunValidate(args, directives)
	},
}

// RenderCmd prints the expanded step plan of a workflow.
var RenderCmd = &cobra.Command{
	Use:   "render <file.conv>",
	Short: "Show the expanded step plan",
	Long:  "Parse a workflow file, expand template variables, and print the resulting step plan without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, _ := cmd.Flags().GetStringArray("var")
		directives, _ := cmd.Flags().GetStringArray("directive")
		return RunRender(args[0], vars, directives)
	},
}

// CheckpointsCmd is the parent command for checkpoint management.
var CheckpointsCmd = &cobra.Command{
	Use:     "checkpoints",
	Aliases: []string{"cp"},
	Short:   "Manage workflow checkpoints",
	Long:    "List, inspect, browse, and delete saved workflow checkpoints",
}

// CheckpointListCmd lists saved checkpoints.
var CheckpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCheckpointList()
	},
}

// CheckpointShowCmd shows one checkpoint in detail.
var CheckpointShowCmd = &cobra.Command{
	Use:               "show <name>",
	Short:             "Show checkpoint details",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCheckpointNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCheckpointShow(args[0])
	},
}

// CheckpointDeleteCmd removes a checkpoint.
var CheckpointDeleteCmd = &cobra.Command{
	Use:               "delete <name>",
	Short:             "Delete a checkpoint",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCheckpointNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCheckpointDelete(args[0])
	},
}

// CheckpointBrowseCmd opens the interactive checkpoint browser.
var CheckpointBrowseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"tui"},
	Short:   "Browse checkpoints interactively",
	Long:    "Open a terminal UI to browse saved checkpoints and inspect their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCheckpointBrowse()
	},
}

// VerifyCmd runs one workspace verifier directly.
var VerifyCmd = &cobra.Command{
	Use:   "verify <type>",
	Short: "Run a workspace verifier",
	Long:  "Run one verifier (refs, links, terminology, traceability, assertions) against a workspace and print its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workspace, _ := cmd.Flags().GetString("workspace")
		return RunVerify(args[0], workspace)
	},
}

// AdaptersCmd lists registered adapters.
var AdaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List available adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunAdapters()
	},
}

// ModelsCmd is the parent command for the model registry.
var ModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model capability registry",
}

// ModelsListCmd lists known models and their capabilities.
var ModelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunModelsList()
	},
}

// ModelsResolveCmd resolves capability requirements to a model name.
var ModelsResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve requirements to a concrete model",
	Long:  "Resolve capability requirements (e.g. --require context:50k --require tier:economy) to a concrete model name",
	RunE: func(cmd *cobra.Command, args []string) error {
		requires, _ := cmd.Flags().GetStringArray("require")
		prefers, _ := cmd.Flags().GetStringArray("prefer")
		policy, _ := cmd.Flags().GetString("policy")
		fallback, _ := cmd.Flags().GetString("fallback")
		return RunModelsResolve(requires, prefers, policy, fallback)
	},
}

// ServeCmd starts the MCP server over stdio.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server mode",
	Long:  "Expose workflow execution, validation, and checkpoint inspection as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.RunServer()
	},
}

// VersionCmd shows version information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show convctl version",
	Run: func(cmd *cobra.Command, args []string) {
		RunVersion()
	},
}

// DoctorCmd checks the environment.
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run environment diagnostics",
	Long:  "Check adapter availability, configuration validity, and checkpoint storage",
	Run: func(cmd *cobra.Command, args []string) {
		RunDoctor()
	},
}

// CompletionCmd generates shell completion scripts.
var CompletionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion script",
	Hidden:    true,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return fmt.Errorf("unsupported shell: %s", args[0])
	},
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("adapter", "a", "", "Adapter to use (overrides the ADAPTER directive)")
	cmd.Flags().StringP("model", "m", "", "Model to use (overrides the MODEL directive)")
	cmd.Flags().StringArrayP("var", "v", nil, "Template variable binding NAME=value (repeatable)")
	cmd.Flags().StringArray("allow-files", nil, "Allowed file pattern, replaces file-level allow list (repeatable)")
	cmd.Flags().StringArray("deny-files", nil, "Denied file pattern, appended to file-level deny list (repeatable)")
	cmd.Flags().StringArray("allow-dir", nil, "Allowed directory, expanded to dir/** (repeatable)")
	cmd.Flags().StringArray("deny-dir", nil, "Denied directory, expanded to dir/** (repeatable)")
	cmd.Flags().StringArrayP("directive", "d", nil, "Custom directive keyword to accept (repeatable)")
	cmd.Flags().StringP("output", "o", "", "Transcript output file (overrides the OUTPUT directive)")
	cmd.Flags().String("vars-file", "", "YAML file of template variable bindings")
	cmd.Flags().Bool("stream", false, "Stream responses as they arrive")
}

func init() {
	addRunFlags(RunCmd)
	addRunFlags(CycleCmd)
	CycleCmd.Flags().IntP("cycles", "n", 0, "Number of cycles (0 = MAX-CYCLES from the file)")
	addRunFlags(ResumeCmd)

	ValidateCmd.Flags().StringArrayP("directive", "d", nil, "Custom directive keyword to accept (repeatable)")
	RenderCmd.Flags().StringArrayP("var", "v", nil, "Template variable binding NAME=value (repeatable)")
	RenderCmd.Flags().StringArrayP("directive", "d", nil, "Custom directive keyword to accept (repeatable)")

	VerifyCmd.Flags().StringP("workspace", "w", ".", "Workspace directory to verify")

	ModelsResolveCmd.Flags().StringArray("require", nil, "Hard requirement dimension:value (repeatable)")
	ModelsResolveCmd.Flags().StringArray("prefer", nil, "Soft preference dimension:value (repeatable)")
	ModelsResolveCmd.Flags().String("policy", "", "Resolution policy (cheapest, fastest, best-fit, operator-default)")
	ModelsResolveCmd.Flags().String("fallback", "", "Model to return when nothing matches")

	CheckpointsCmd.AddCommand(CheckpointListCmd)
	CheckpointsCmd.AddCommand(CheckpointShowCmd)
	CheckpointsCmd.AddCommand(CheckpointDeleteCmd)
	CheckpointsCmd.AddCommand(CheckpointBrowseCmd)

	ModelsCmd.AddCommand(ModelsListCmd)
	ModelsCmd.AddCommand(ModelsResolveCmd)
}

func runOptionsFromFlags(cmd *cobra.Command) RunOptions {
	var opts RunOptions
	opts.Adapter, _ = cmd.Flags().GetString("adapter")
	opts.Model, _ = cmd.Flags().GetString("model")
	opts.Vars, _ = cmd.Flags().GetStringArray("var")
	opts.AllowFiles, _ = cmd.Flags().GetStringArray("allow-files")
	opts.DenyFiles, _ = cmd.Flags().GetStringArray("deny-files")
	opts.AllowDirs, _ = cmd.Flags().GetStringArray("allow-dir")
	opts.DenyDirs, _ = cmd.Flags().GetStringArray("deny-dir")
	opts.Directives, _ = cmd.Flags().GetStringArray("directive")
	opts.Output, _ = cmd.Flags().GetString("output")
	opts.VarsFile, _ = cmd.Flags().GetString("vars-file")
	opts.Stream, _ = cmd.Flags().GetBool("stream")
	return opts
}

// completeCheckpointNames provides dynamic completion for checkpoint names.
func completeCheckpointNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cps, err := checkpointStore().List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, cp := range cps {
		names = append(names, cp.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
