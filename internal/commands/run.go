package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"convctl/internal/adapter"
	"convctl/internal/config"
	"convctl/internal/conversation"
	"convctl/internal/models"
	"convctl/internal/session"
	"convctl/internal/ui"
)

// RunOptions carries the shared flags of run, cycle, and resume.
type RunOptions struct {
	Adapter    string
	Model      string
	Vars       []string
	AllowFiles []string
	DenyFiles  []string
	AllowDirs  []string
	DenyDirs   []string
	Directives []string
	Output     string
	VarsFile   string
	Stream     bool
	Cycles     int
}

// RunRun parses and executes one workflow file.
func RunRun(path string, opts RunOptions) error {
	cfg := loadConfig()

	conv, err := conversation.ParseFile(path, typeRegistry(cfg, opts.Directives))
	if err != nil {
		return err
	}
	applyOverrides(conv, cfg, opts)

	runner, cancel, err := newRunner(conv, cfg, opts)
	if err != nil {
		return err
	}
	defer cancel()

	ctx := signalContext()
	var res *session.RunResult
	if opts.Cycles != 0 || conv.MaxCycles > 0 {
		res, err = runner.RunCycles(ctx, opts.Cycles)
	} else {
		res, err = runner.Run(ctx)
	}
	if err != nil {
		return err
	}
	reportResult(res)
	return nil
}

// RunResume loads a checkpoint and continues the paused run.
func RunResume(name string, opts RunOptions) error {
	cfg := loadConfig()
	store := checkpointStore()

	cp, err := store.Load(name)
	if err != nil {
		return err
	}
	conv := cp.Conversation
	if conv == nil {
		return fmt.Errorf("checkpoint %s has no embedded workflow", name)
	}
	applyOverrides(conv, cfg, opts)

	runner, cancel, err := newRunner(conv, cfg, opts)
	if err != nil {
		return err
	}
	defer cancel()

	if cp.PauseMessage != "" {
		ui.ShowInfo("resuming after pause: %s", cp.PauseMessage)
	}
	res, err := runner.Resume(signalContext(), cp)
	if err != nil {
		return err
	}
	reportResult(res)
	return nil
}

// loadConfig reads the operator config, degrading to defaults on error.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowWarning("config unreadable, using defaults: %v", err)
		return &config.Config{}
	}
	return cfg
}

// typeRegistry builds the custom directive registry from config plus
// per-run flags.
func typeRegistry(cfg *config.Config, extra []string) *conversation.TypeRegistry {
	reg := conversation.NewTypeRegistry()
	for _, name := range cfg.CustomDirectives {
		reg.Register(name, nil)
	}
	for _, name := range extra {
		reg.Register(name, nil)
	}
	return reg
}

// applyOverrides layers CLI flags and operator defaults onto the
// parsed workflow. CLI wins over the file, the file wins over config.
func applyOverrides(conv *conversation.ConversationFile, cfg *config.Config, opts RunOptions) {
	if opts.Model != "" {
		conv.Model = opts.Model
	} else if conv.Model == "" {
		conv.Model = cfg.DefaultModel
	}
	if opts.Adapter != "" {
		conv.Adapter = opts.Adapter
	} else if conv.Adapter == "" {
		conv.Adapter = cfg.DefaultAdapter
	}
	if opts.Output != "" {
		conv.OutputFile = opts.Output
	}
	allow := append(append([]string(nil), opts.AllowFiles...), conversation.ExpandDirPatterns(opts.AllowDirs)...)
	deny := append(append([]string(nil), opts.DenyFiles...), conversation.ExpandDirPatterns(opts.DenyDirs)...)
	conv.Restrictions = conv.Restrictions.MergeWithCLI(allow, deny)
}

// newRunner wires a runner from the workflow and options. The
// returned cancel releases nothing today but keeps the shutdown path
// in one place.
func newRunner(conv *conversation.ConversationFile, cfg *config.Config, opts RunOptions) (*session.Runner, func(), error) {
	backend, found := adapter.Lookup(conv.Adapter)
	if conv.Adapter != "" && !found {
		ui.ShowWarning("adapter %q not registered, using mock", conv.Adapter)
	}

	model, err := resolveModel(conv.Model, cfg)
	if err != nil {
		return nil, nil, err
	}
	conv.Model = model

	defaults, err := mergeVarsFile(cfg.Vars, opts.VarsFile)
	if err != nil {
		return nil, nil, err
	}
	vars, err := parseVarBindings(defaults, opts.Vars)
	if err != nil {
		return nil, nil, err
	}

	workspace, _ := os.Getwd()
	store := checkpointStore()

	runner := &session.Runner{
		Adapter:    backend,
		Conv:       conv,
		Workspace:  workspace,
		Vars:       vars,
		Store:      store,
		Transcript: os.Stdout,
		Streaming:  opts.Stream,
	}
	if opts.Stream {
		runner.Transcript = nil // chunks already go to the terminal
		runner.OnChunk = func(chunk string) { fmt.Print(chunk) }
	}
	return runner, func() {}, nil
}

// resolveModel maps a "requires ..." MODEL value onto a concrete
// model name via the capability registry. Concrete names pass through
// untouched. Tokens are dimension:value specs; "prefers" switches to
// soft preferences and policy:NAME selects the tie-break policy.
func resolveModel(value string, cfg *config.Config) (string, error) {
	if !strings.HasPrefix(value, "requires ") {
		return value, nil
	}

	var rs models.Requirements
	mode := "requires"
	for _, tok := range strings.Fields(value)[1:] {
		if tok == "requires" || tok == "prefers" {
			mode = tok
			continue
		}
		if pol, ok := strings.CutPrefix(tok, "policy:"); ok {
			if err := rs.SetPolicy(pol); err != nil {
				return "", err
			}
			continue
		}
		var err error
		if mode == "prefers" {
			err = rs.AddPreference(tok)
		} else {
			err = rs.AddRequirement(tok)
		}
		if err != nil {
			return "", err
		}
	}

	resolved := modelRegistry().Resolve(&rs, nil, cfg.DefaultModel)
	if resolved == "" {
		return "", fmt.Errorf("no model satisfies %s", rs.String())
	}
	return resolved, nil
}

// mergeVarsFile layers a YAML bindings file over config defaults.
func mergeVarsFile(defaults map[string]string, path string) (map[string]string, error) {
	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	if path == "" {
		return merged, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vars file: %w", err)
	}
	var fileVars map[string]string
	if err := yaml.Unmarshal(data, &fileVars); err != nil {
		return nil, fmt.Errorf("vars file %s: %w", path, err)
	}
	for k, v := range fileVars {
		merged[k] = v
	}
	return merged, nil
}

// parseVarBindings merges config defaults with NAME=value flags.
func parseVarBindings(defaults map[string]string, flags []string) (map[string]string, error) {
	vars := make(map[string]string, len(defaults)+len(flags))
	for k, v := range defaults {
		vars[k] = v
	}
	for _, binding := range flags {
		name, value, ok := strings.Cut(binding, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable binding %q, expected NAME=value", binding)
		}
		vars[name] = value
	}
	return vars, nil
}

// checkpointStore returns the configured checkpoint store.
func checkpointStore() *session.Store {
	cfg, err := config.Load()
	if err == nil && cfg.CheckpointDir != "" {
		return &session.Store{Dir: cfg.CheckpointDir}
	}
	return session.DefaultStore()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func reportResult(res *session.RunResult) {
	switch res.Status {
	case session.StatusPaused:
		ui.ShowInfo("paused, checkpoint saved as %q", res.Checkpoint)
		ui.ShowInfo("resume with: convctl resume %s", res.Checkpoint)
	case session.StatusCompleted:
		if res.Cycles > 1 {
			ui.ShowSuccess("completed after %d cycles", res.Cycles)
		} else {
			ui.ShowSuccess("completed, %d messages exchanged", len(res.Messages))
		}
	default:
		ui.ShowWarning("finished with status %s", res.Status)
	}
}
