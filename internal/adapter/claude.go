package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ClaudeAdapter drives the Claude CLI as a subprocess, one invocation
// per prompt, chaining turns through the CLI's session resume support.
type ClaudeAdapter struct {
	mu      sync.Mutex
	counter int
}

func init() {
	Register(&ClaudeAdapter{})
}

// claudeSession carries the model plus the backend session id returned
// by the first invocation, used to resume subsequent turns.
type claudeSession struct {
	id        string
	cfg       Config
	backendID string
}

func (s *claudeSession) ID() string { return s.id }

// Name returns "claude".
func (a *ClaudeAdapter) Name() string { return "claude" }

// Start verifies the claude CLI is installed.
func (a *ClaudeAdapter) Start(ctx context.Context) error {
	if _, err := exec.LookPath("claude"); err != nil {
		return fmt.Errorf("claude CLI not found in PATH: %w", err)
	}
	return nil
}

// Stop is a no-op: each turn is its own subprocess.
func (a *ClaudeAdapter) Stop(ctx context.Context) error { return nil }

// CreateSession allocates a handle; the backend session is created
// lazily by the first Send.
func (a *ClaudeAdapter) CreateSession(ctx context.Context, cfg Config) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counter++
	return &claudeSession{id: fmt.Sprintf("claude-%d", a.counter), cfg: cfg}, nil
}

// claudeJSONOutput matches `claude --output-format json`.
type claudeJSONOutput struct {
	Type      string `json:"type"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
	IsError   bool   `json:"is_error"`
}

// Send runs one claude CLI invocation and returns the response text.
func (a *ClaudeAdapter) Send(ctx context.Context, sess Session, prompt string, onChunk ChunkFunc) (string, error) {
	cs, ok := sess.(*claudeSession)
	if !ok {
		return "", fmt.Errorf("claude adapter: foreign session %T", sess)
	}

	args := []string{"-p", prompt, "--output-format", "json"}
	if cs.cfg.Model != "" {
		args = append(args, "--model", cs.cfg.Model)
	}
	if cs.backendID != "" {
		args = append(args, "--resume", "--session-id", cs.backendID, "--fork-session")
	}

	cmd := exec.CommandContext(ctx, "claude", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = err.Error()
		}
		return "", fmt.Errorf("claude send: %s", errText)
	}

	result, err := parseClaudeOutput(stdout.Bytes())
	if err != nil {
		return "", fmt.Errorf("claude send: %w", err)
	}
	if result.IsError {
		return "", fmt.Errorf("claude send: %s", result.Result)
	}
	if result.SessionID != "" {
		cs.backendID = result.SessionID
	}
	if onChunk != nil && cs.cfg.Streaming {
		onChunk(result.Result)
	}
	return result.Result, nil
}

// DestroySession drops the resume linkage.
func (a *ClaudeAdapter) DestroySession(ctx context.Context, sess Session) error {
	cs, ok := sess.(*claudeSession)
	if !ok {
		return fmt.Errorf("claude adapter: foreign session %T", sess)
	}
	cs.backendID = ""
	return nil
}

// parseClaudeOutput handles both a single JSON object and
// newline-delimited JSON, taking the last "result" message.
func parseClaudeOutput(data []byte) (*claudeJSONOutput, error) {
	var out claudeJSONOutput
	if err := json.Unmarshal(data, &out); err == nil {
		return &out, nil
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			continue
		}
		if out.Type == "result" || out.Result != "" {
			return &out, nil
		}
	}
	return nil, fmt.Errorf("no result found in claude output")
}
