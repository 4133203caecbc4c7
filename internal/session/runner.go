package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"convctl/internal/adapter"
	"convctl/internal/conversation"
	"convctl/internal/hooks"
	"convctl/internal/verify"
)

// defaultContextTokens is the assumed model window when CONTEXT-LIMIT
// is declared without an explicit budget. Token estimation is the
// usual four-characters-per-token approximation.
const defaultContextTokens = 200_000

// Runner executes one parsed workflow against an adapter.
type Runner struct {
	Adapter   adapter.Adapter
	Conv      *conversation.ConversationFile
	Workspace string

	// Vars binds {{NAME}} template variables at step-build time.
	Vars map[string]string

	// Hooks resolves custom directive execution. Nil means custom
	// steps fail with the missing-hook error.
	Hooks *hooks.Registry

	// Store receives pause and checkpoint snapshots. Nil disables
	// persistence (useful in tests and validate-only flows).
	Store *Store

	// Transcript, when non-nil, receives each turn as it happens.
	Transcript io.Writer

	// Streaming requests streamed responses; OnChunk receives the
	// fragments when the adapter supports it.
	Streaming bool
	OnChunk   adapter.ChunkFunc

	// ContextTokens overrides the assumed model window for
	// CONTEXT-LIMIT estimation.
	ContextTokens int
}

// RunResult reports how a run ended.
type RunResult struct {
	Status     Status
	Checkpoint string // checkpoint name when Status is StatusPaused
	Messages   []Message
	FinalReply string
	Cycles     int
}

// Run executes the workflow from the beginning.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	state := &State{Status: StatusRunning, CycleNumber: 1}
	return r.run(ctx, state, 0, true)
}

// Resume continues a paused run from its checkpoint. The conversation
// embedded in the checkpoint takes precedence over r.Conv so resume
// works even if the source file changed.
func (r *Runner) Resume(ctx context.Context, cp *Checkpoint) (*RunResult, error) {
	if cp.Conversation != nil {
		r.Conv = cp.Conversation
	}
	state := &State{
		Status:      StatusRunning,
		StepIndex:   cp.State.StepIndex,
		CycleNumber: cp.State.CycleNumber,
		Messages:    append([]Message(nil), cp.State.Messages...),
	}
	if state.CycleNumber == 0 {
		state.CycleNumber = 1
	}
	return r.run(ctx, state, cp.State.StepIndex, false)
}

// RunCycles replays the workflow up to cycles times, carrying
// conversation history across iterations. MAX-CYCLES in the file caps
// the count when cycles is zero or larger than the declared maximum.
func (r *Runner) RunCycles(ctx context.Context, cycles int) (*RunResult, error) {
	max := cycles
	if r.Conv.MaxCycles > 0 && (max == 0 || max > r.Conv.MaxCycles) {
		max = r.Conv.MaxCycles
	}
	if max <= 0 {
		max = 1
	}

	state := &State{Status: StatusRunning, CycleNumber: 1}
	var last *RunResult
	for cycle := 1; cycle <= max; cycle++ {
		state.CycleNumber = cycle
		state.Status = StatusRunning
		if r.Vars == nil {
			r.Vars = map[string]string{}
		}
		r.Vars["CYCLE"] = fmt.Sprintf("%d", cycle)

		res, err := r.run(ctx, state, 0, cycle == 1)
		if err != nil {
			return res, err
		}
		last = res
		last.Cycles = cycle
		if res.Status != StatusCompleted {
			return last, nil
		}
		state.Messages = res.Messages
	}
	return last, nil
}

// run is the step loop shared by Run, Resume and RunCycles. startStep
// is the index of the first step to execute; firstPrompt controls
// whether the context block is injected ahead of the next prompt.
func (r *Runner) run(ctx context.Context, state *State, startStep int, firstPrompt bool) (*RunResult, error) {
	steps := r.Conv.BuildSteps(r.Vars)

	if err := r.Adapter.Start(ctx); err != nil {
		return r.fail(state, fmt.Errorf("start adapter: %w", err))
	}
	defer r.Adapter.Stop(context.WithoutCancel(ctx))

	sess, err := r.Adapter.CreateSession(ctx, adapter.Config{Model: r.Conv.Model, Streaming: r.Streaming})
	if err != nil {
		return r.fail(state, fmt.Errorf("create session: %w", err))
	}
	sessionOpen := true
	defer func() {
		if sessionOpen {
			r.Adapter.DestroySession(context.WithoutCancel(ctx), sess)
		}
	}()

	// promptIdx counts prompt steps for pause-point lookup: it must
	// match the parser's numbering even when resuming mid-file.
	promptIdx := 0
	for i := 0; i < startStep && i < len(steps); i++ {
		if steps[i].Type == conversation.StepPrompt {
			promptIdx++
		}
	}

	var pendingInjections []string
	checkpointSeq := 0
	finalReply := ""

	for i := startStep; i < len(steps); i++ {
		if err := ctx.Err(); err != nil {
			return r.fail(state, err)
		}
		step := steps[i]
		state.StepIndex = i

		switch step.Type {
		case conversation.StepPrompt:
			prompt := step.Content
			if len(pendingInjections) > 0 {
				prompt = strings.Join(pendingInjections, "\n\n") + "\n\n" + prompt
				pendingInjections = nil
			}
			if firstPrompt {
				contextBlock, err := LoadContext(r.Conv, r.baseDir())
				if err != nil {
					return r.fail(state, err)
				}
				if contextBlock != "" {
					prompt = contextBlock + "\n\n" + prompt
				}
				firstPrompt = false
			}

			reply, err := r.Adapter.Send(ctx, sess, prompt, r.OnChunk)
			if err != nil {
				return r.fail(state, fmt.Errorf("send prompt (line %d): %w", step.Line, err))
			}
			state.Append("user", prompt)
			state.Append("assistant", reply)
			finalReply = reply
			r.transcript("user", prompt)
			r.transcript("assistant", reply)

			if msg, ok := r.Conv.PausePoints[promptIdx]; ok {
				name := fmt.Sprintf("pause-%d", promptIdx+1)
				if err := r.pause(state, i+1, name, msg); err != nil {
					return r.fail(state, err)
				}
				r.Adapter.DestroySession(context.WithoutCancel(ctx), sess)
				sessionOpen = false
				log.Printf("[runner] paused: %s", msg)
				return &RunResult{
					Status:     StatusPaused,
					Checkpoint: name,
					Messages:   state.Messages,
					FinalReply: finalReply,
				}, nil
			}
			promptIdx++

			if action := r.contextLimitAction(state); action != "" {
				done, err := r.handleContextLimit(ctx, state, sess, action)
				if err != nil {
					return r.fail(state, err)
				}
				if done {
					state.Status = StatusCompleted
					return &RunResult{Status: StatusCompleted, Messages: state.Messages, FinalReply: finalReply}, nil
				}
				if action == "new-conversation" {
					newSess, err := r.resetSession(ctx, sess)
					if err != nil {
						return r.fail(state, err)
					}
					sess = newSess
					firstPrompt = true
				}
			}

		case conversation.StepCheckpoint:
			checkpointSeq++
			name := step.Content
			if name == "" {
				name = fmt.Sprintf("checkpoint-%d", checkpointSeq)
			}
			if err := r.saveCheckpoint(state, i+1, name, ""); err != nil {
				return r.fail(state, err)
			}
			r.writeOutput(state)
			if err := CommitCheckpoint(r.Workspace, name); err != nil {
				log.Printf("[runner] checkpoint commit failed: %v", err)
			}

		case conversation.StepCompact:
			if err := r.compact(ctx, sess, state, step.Preserve); err != nil {
				return r.fail(state, err)
			}

		case conversation.StepNewConversation:
			newSess, err := r.resetSession(ctx, sess)
			if err != nil {
				return r.fail(state, err)
			}
			sess = newSess
			state.Messages = nil
			firstPrompt = true

		case conversation.StepVerify:
			res, err := verify.Run(step.VerifyType, r.Workspace)
			if err != nil {
				return r.fail(state, fmt.Errorf("verify %s: %w", step.VerifyType, err))
			}
			if r.Conv.VerifyOutput == "always" || (r.Conv.VerifyOutput == "on-error" && !res.Passed) {
				r.transcript("system", res.Markdown())
			}
			if !res.Passed {
				if r.Conv.VerifyOnError == "abort" {
					return r.fail(state, fmt.Errorf("verification %s failed: %s", step.VerifyType, res.Summary))
				}
				pendingInjections = append(pendingInjections, res.Markdown())
			}

		case conversation.StepCustom:
			result := r.hookRegistry().Execute(step.Directive, step.Content, r.Workspace,
				hooks.WithSession(sess.ID(), state.CycleNumber),
				hooks.WithLine(step.Line))
			if !result.Success {
				if r.Conv.VerifyOnError == "abort" {
					return r.fail(state, fmt.Errorf("directive %s failed: %s", step.Directive, strings.Join(result.Errors, "; ")))
				}
				log.Printf("[runner] directive %s failed: %s", step.Directive, strings.Join(result.Errors, "; "))
			}
			if result.InjectIntoPrompt && result.Output != "" {
				pendingInjections = append(pendingInjections, result.Output)
			}

		default:
			return r.fail(state, fmt.Errorf("unknown step type %q at line %d", step.Type, step.Line))
		}
	}

	state.StepIndex = len(steps)
	state.Status = StatusCompleted
	r.writeOutput(state)
	return &RunResult{Status: StatusCompleted, Messages: state.Messages, FinalReply: finalReply}, nil
}

// pause serializes the session and records the resume point. The
// caller halts the process after this returns.
func (r *Runner) pause(state *State, nextStep int, name, msg string) error {
	if err := r.saveCheckpoint(state, nextStep, name, msg); err != nil {
		return err
	}
	r.writeOutput(state)
	if err := CommitCheckpoint(r.Workspace, name); err != nil {
		log.Printf("[runner] pause commit failed: %v", err)
	}
	state.Status = StatusPaused
	return nil
}

func (r *Runner) saveCheckpoint(state *State, nextStep int, name, pauseMsg string) error {
	if r.Store == nil {
		return nil
	}
	snapshot := *state
	snapshot.StepIndex = nextStep
	if pauseMsg != "" {
		snapshot.Status = StatusPaused
	}
	snapshot.Messages = append([]Message(nil), state.Messages...)
	return r.Store.Save(&Checkpoint{
		Name:         name,
		PauseMessage: pauseMsg,
		Source:       r.Conv.Source,
		State:        snapshot,
		Conversation: r.Conv,
	})
}

// compact asks the backend to summarize the conversation, then
// replaces the history with the summary.
func (r *Runner) compact(ctx context.Context, sess adapter.Session, state *State, preserve []string) error {
	prompt := "Summarize the conversation so far into a compact context brief."
	if len(preserve) > 0 {
		prompt += " Preserve these items: " + strings.Join(preserve, ", ")
	}
	summary, err := r.Adapter.Send(ctx, sess, prompt, nil)
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	state.Messages = []Message{{Role: "system", Content: "[Compaction summary]\n" + summary}}
	r.transcript("system", "[Compaction summary]\n"+summary)
	return nil
}

func (r *Runner) resetSession(ctx context.Context, old adapter.Session) (adapter.Session, error) {
	if err := r.Adapter.DestroySession(ctx, old); err != nil {
		return nil, fmt.Errorf("destroy session: %w", err)
	}
	sess, err := r.Adapter.CreateSession(ctx, adapter.Config{Model: r.Conv.Model, Streaming: r.Streaming})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// contextLimitAction returns the configured action when the estimated
// context usage crosses the declared threshold, else "".
func (r *Runner) contextLimitAction(state *State) string {
	if r.Conv.ContextLimit <= 0 {
		return ""
	}
	budget := r.ContextTokens
	if budget <= 0 {
		budget = defaultContextTokens
	}
	estimated := state.ContextChars() / 4
	if float64(estimated) < r.Conv.ContextLimit*float64(budget) {
		return ""
	}
	action := r.Conv.OnContextLimit
	if action == "" {
		action = "compact"
	}
	return action
}

// handleContextLimit performs the ON-CONTEXT-LIMIT action. It returns
// true when the run should stop.
func (r *Runner) handleContextLimit(ctx context.Context, state *State, sess adapter.Session, action string) (bool, error) {
	log.Printf("[runner] context limit reached, action=%s", action)
	switch action {
	case "compact":
		return false, r.compact(ctx, sess, state, nil)
	case "new-conversation":
		state.Messages = nil
		return false, nil
	case "halt":
		return true, nil
	default:
		return false, fmt.Errorf("unknown on-context-limit action %q", action)
	}
}

func (r *Runner) hookRegistry() *hooks.Registry {
	if r.Hooks != nil {
		return r.Hooks
	}
	return hooks.NewRegistry()
}

func (r *Runner) baseDir() string {
	if r.Conv.Source != "" {
		return filepath.Dir(r.Conv.Source)
	}
	if r.Workspace != "" {
		return r.Workspace
	}
	return "."
}

func (r *Runner) fail(state *State, err error) (*RunResult, error) {
	state.Status = StatusFailed
	return &RunResult{Status: StatusFailed, Messages: state.Messages}, err
}

func (r *Runner) transcript(role, content string) {
	if r.Transcript == nil {
		return
	}
	fmt.Fprintf(r.Transcript, "### %s\n\n%s\n\n", role, content)
}

// writeOutput renders the transcript to the declared OUTPUT file.
// Best-effort: a failed write logs and continues.
func (r *Runner) writeOutput(state *State) {
	if r.Conv.OutputFile == "" {
		return
	}
	path := r.Conv.OutputFile
	if r.Conv.OutputDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.Conv.OutputDir, path)
	}
	if !filepath.IsAbs(path) && r.Workspace != "" {
		path = filepath.Join(r.Workspace, path)
	}

	var b strings.Builder
	if r.Conv.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", r.Conv.Title)
	}
	for _, m := range state.Messages {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", m.Role, m.Content)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("[runner] output dir: %v", err)
		return
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		log.Printf("[runner] write output: %v", err)
	}
}
