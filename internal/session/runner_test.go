package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"convctl/internal/adapter"
	"convctl/internal/conversation"
	"convctl/internal/hooks"
)

func mockRunner(t *testing.T, content string) *Runner {
	t.Helper()
	conv, err := conversation.Parse(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mock, _ := adapter.Lookup("mock")
	return &Runner{
		Adapter:   mock,
		Conv:      conv,
		Workspace: t.TempDir(),
		Store:     &Store{Dir: t.TempDir()},
	}
}

func TestRunCompletesSimpleWorkflow(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT step one\nPROMPT step two\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", res.Status)
	}
	if len(res.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(res.Messages))
	}
	if !strings.Contains(res.FinalReply, "step two") {
		t.Errorf("final reply = %q", res.FinalReply)
	}
}

func TestPauseHaltsAndSerializes(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT step one\nPAUSE review before continuing\nPROMPT step two\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusPaused {
		t.Fatalf("status = %v, want paused", res.Status)
	}
	if res.Checkpoint != "pause-1" {
		t.Errorf("checkpoint = %q", res.Checkpoint)
	}
	// second prompt must not have been sent
	if len(res.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(res.Messages))
	}

	cp, err := r.Store.Load("pause-1")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp.PauseMessage != "review before continuing" {
		t.Errorf("pause message = %q", cp.PauseMessage)
	}
	if cp.State.Status != StatusPaused {
		t.Errorf("checkpoint status = %v", cp.State.Status)
	}
	if cp.State.StepIndex != 1 {
		t.Errorf("resume index = %d, want 1", cp.State.StepIndex)
	}
	if cp.Conversation == nil {
		t.Error("checkpoint lacks embedded conversation")
	}
}

func TestResumeFinishesPausedRun(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT step one\nPAUSE wait\nPROMPT step two\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	cp, err := r.Store.Load(res.Checkpoint)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	resumed, err := r.Resume(context.Background(), cp)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", resumed.Status)
	}
	if len(resumed.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(resumed.Messages))
	}
	if resumed.Messages[2].Content != "step two" {
		t.Errorf("resumed prompt = %q, want %q", resumed.Messages[2].Content, "step two")
	}
	if !strings.Contains(resumed.FinalReply, "step two") {
		t.Errorf("final reply = %q", resumed.FinalReply)
	}
}

func TestFirstPromptInjectsContext(t *testing.T) {
	r := mockRunner(t, "# Demo\nCONTEXT notes.md\nPROMPT first\nPROMPT second\n")
	if err := os.WriteFile(filepath.Join(r.Workspace, "notes.md"), []byte("background facts\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	first := res.Messages[0].Content
	if !strings.Contains(first, "## File: notes.md") || !strings.Contains(first, "background facts") {
		t.Errorf("first prompt missing context: %q", first)
	}
	if !strings.HasSuffix(first, "first") {
		t.Errorf("prompt text should come last: %q", first)
	}
	// only the first prompt carries the context block
	if strings.Contains(res.Messages[2].Content, "## File:") {
		t.Errorf("second prompt should not repeat context: %q", res.Messages[2].Content)
	}
}

func TestCheckpointStepAutoNameAndOutput(t *testing.T) {
	r := mockRunner(t, "# Demo\nOUTPUT report.md\nPROMPT work\nCHECKPOINT\nPROMPT more\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %v", res.Status)
	}

	cp, err := r.Store.Load("checkpoint-1")
	if err != nil {
		t.Fatalf("auto-named checkpoint missing: %v", err)
	}
	if cp.State.StepIndex != 2 {
		t.Errorf("resume index = %d, want 2", cp.State.StepIndex)
	}
	if cp.PauseMessage != "" {
		t.Errorf("checkpoint step must not set a pause message: %q", cp.PauseMessage)
	}

	data, err := os.ReadFile(filepath.Join(r.Workspace, "report.md"))
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if !strings.Contains(string(data), "# Demo") {
		t.Errorf("output missing title: %q", data)
	}
}

func TestNamedCheckpoint(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT work\nCHECKPOINT phase-done\n")
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := r.Store.Load("phase-done"); err != nil {
		t.Errorf("named checkpoint missing: %v", err)
	}
}

func TestCompactReplacesHistory(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT step one\nCOMPACT key decisions, open bugs\nPROMPT step two\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Messages) != 3 {
		t.Fatalf("messages = %d, want 3 (summary + one exchange)", len(res.Messages))
	}
	sys := res.Messages[0]
	if sys.Role != "system" || !strings.HasPrefix(sys.Content, "[Compaction summary]") {
		t.Errorf("summary message = %+v", sys)
	}
}

// promptRecorder wraps an adapter and records every prompt sent.
type promptRecorder struct {
	adapter.Adapter
	prompts []string
}

func (p *promptRecorder) Send(ctx context.Context, sess adapter.Session, prompt string, onChunk adapter.ChunkFunc) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.Adapter.Send(ctx, sess, prompt, onChunk)
}

func TestCompactPromptCarriesPreserveList(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT step one\nCOMPACT key decisions, open bugs\n")
	rec := &promptRecorder{Adapter: r.Adapter}
	r.Adapter = rec

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.prompts) != 2 {
		t.Fatalf("prompts sent = %d, want 2", len(rec.prompts))
	}
	for _, item := range []string{"key decisions", "open bugs"} {
		if !strings.Contains(rec.prompts[1], item) {
			t.Errorf("compact prompt %q missing preserved item %q", rec.prompts[1], item)
		}
	}
}

func TestNewConversationResets(t *testing.T) {
	r := mockRunner(t, "# Demo\nCONTEXT notes.md\nPROMPT before\nNEW-CONVERSATION\nPROMPT after\n")
	if err := os.WriteFile(filepath.Join(r.Workspace, "notes.md"), []byte("facts\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("messages = %d, want 2 after reset", len(res.Messages))
	}
	// context re-injects on the first prompt of the new conversation
	if !strings.Contains(res.Messages[0].Content, "## File: notes.md") {
		t.Errorf("reset prompt missing context: %q", res.Messages[0].Content)
	}
	// fresh backend session restarts its turn counter
	if !strings.Contains(res.Messages[1].Content, "[mock turn 1]") {
		t.Errorf("expected fresh session turn count: %q", res.Messages[1].Content)
	}
}

func TestVerifyAbortOnFailure(t *testing.T) {
	r := mockRunner(t, "# Demo\nVERIFY-ON-ERROR abort\nPROMPT work\nVERIFY refs\n")
	if err := os.WriteFile(filepath.Join(r.Workspace, "doc.md"), []byte("see @missing.txt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from aborting verify")
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %v, want failed", res.Status)
	}
}

func TestVerifyContinueInjectsReport(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT work\nVERIFY refs\nPROMPT fix the findings\n")
	if err := os.WriteFile(filepath.Join(r.Workspace, "doc.md"), []byte("see @missing.txt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %v", res.Status)
	}
	next := res.Messages[2].Content
	if !strings.Contains(next, "refs") || !strings.Contains(next, "missing.txt") {
		t.Errorf("verify report not injected into next prompt: %q", next)
	}
	if !strings.HasSuffix(next, "fix the findings") {
		t.Errorf("prompt text should come last: %q", next)
	}
}

func TestVerifyPassNoInjection(t *testing.T) {
	r := mockRunner(t, "# Demo\nPROMPT work\nVERIFY refs\nPROMPT next\n")
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Messages[2].Content != "next" {
		t.Errorf("passing verify must not inject: %q", res.Messages[2].Content)
	}
}

func TestCustomDirectiveHookInjection(t *testing.T) {
	types := conversation.NewTypeRegistry()
	types.Register("SNAPSHOT", map[string]string{"description": "capture workspace state"})
	conv, err := conversation.ParseWith("# Demo\nPROMPT work\nSNAPSHOT db tables\nPROMPT continue\n", types)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var gotValue, gotSession string
	var gotCycle int
	reg := hooks.NewRegistry()
	reg.Register("SNAPSHOT", func(c *hooks.ExecutionContext) (*hooks.ExecutionResult, error) {
		gotValue = c.DirectiveValue
		gotSession = c.SessionID
		gotCycle = c.CycleNumber
		return hooks.OK("snapshot saved: 3 tables"), nil
	})

	mock, _ := adapter.Lookup("mock")
	r := &Runner{
		Adapter:   mock,
		Conv:      conv,
		Workspace: t.TempDir(),
		Hooks:     reg,
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotValue != "db tables" {
		t.Errorf("hook value = %q", gotValue)
	}
	if gotSession == "" || gotCycle != 1 {
		t.Errorf("hook session/cycle = %q/%d", gotSession, gotCycle)
	}
	next := res.Messages[2].Content
	if !strings.HasPrefix(next, "snapshot saved: 3 tables") {
		t.Errorf("hook output not injected: %q", next)
	}
}

func TestCustomDirectiveMissingHookContinues(t *testing.T) {
	types := conversation.NewTypeRegistry()
	types.Register("SNAPSHOT", nil)
	conv, err := conversation.ParseWith("# Demo\nPROMPT work\nSNAPSHOT x\nPROMPT done\n", types)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	mock, _ := adapter.Lookup("mock")
	r := &Runner{Adapter: mock, Conv: conv, Workspace: t.TempDir()}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v, want completed despite missing hook", res.Status)
	}
}

func TestContextLimitHalt(t *testing.T) {
	r := mockRunner(t, "# Demo\nCONTEXT-LIMIT 50%\nON-CONTEXT-LIMIT halt\nPROMPT step one\nPROMPT step two\n")
	r.ContextTokens = 4 // threshold of 2 tokens, crossed immediately
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v", res.Status)
	}
	if len(res.Messages) != 2 {
		t.Errorf("messages = %d, want 2 (halted after first prompt)", len(res.Messages))
	}
}

func TestContextLimitCompact(t *testing.T) {
	r := mockRunner(t, "# Demo\nCONTEXT-LIMIT 50%\nON-CONTEXT-LIMIT compact\nPROMPT step one\nPROMPT step two\n")
	r.ContextTokens = 4
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v", res.Status)
	}
	if res.Messages[0].Role != "system" {
		t.Errorf("expected compaction summary first, got %+v", res.Messages[0])
	}
}

func TestRunCyclesExpandsCycleVar(t *testing.T) {
	r := mockRunner(t, "# Demo\nMAX-CYCLES 2\nPROMPT cycle {{CYCLE}}\n")
	res, err := r.RunCycles(context.Background(), 0)
	if err != nil {
		t.Fatalf("run cycles: %v", err)
	}
	if res.Cycles != 2 {
		t.Errorf("cycles = %d, want 2", res.Cycles)
	}
	if len(res.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(res.Messages))
	}
	if res.Messages[0].Content != "cycle 1" || res.Messages[2].Content != "cycle 2" {
		t.Errorf("cycle prompts = %q, %q", res.Messages[0].Content, res.Messages[2].Content)
	}
}

func TestRunCyclesExplicitCountCappedByFile(t *testing.T) {
	r := mockRunner(t, "# Demo\nMAX-CYCLES 2\nPROMPT go\n")
	res, err := r.RunCycles(context.Background(), 5)
	if err != nil {
		t.Fatalf("run cycles: %v", err)
	}
	if res.Cycles != 2 {
		t.Errorf("cycles = %d, want 2 (file cap)", res.Cycles)
	}
}

func TestPauseResumeTranscriptEquivalence(t *testing.T) {
	straight := mockRunner(t, "# Demo\nPROMPT alpha\nPROMPT beta\n")
	full, err := straight.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	paused := mockRunner(t, "# Demo\nPROMPT alpha\nPAUSE break\nPROMPT beta\n")
	first, err := paused.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	cp, err := paused.Store.Load(first.Checkpoint)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resumed, err := paused.Resume(context.Background(), cp)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if len(resumed.Messages) != len(full.Messages) {
		t.Fatalf("message count %d != %d", len(resumed.Messages), len(full.Messages))
	}
	for i := range full.Messages {
		if resumed.Messages[i].Role != full.Messages[i].Role {
			t.Errorf("message %d role %q != %q", i, resumed.Messages[i].Role, full.Messages[i].Role)
		}
	}
	// the same prompts flow through both runs
	if resumed.Messages[0].Content != "alpha" || resumed.Messages[2].Content != "beta" {
		t.Errorf("resumed prompts = %q, %q", resumed.Messages[0].Content, resumed.Messages[2].Content)
	}
}
