package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockAdapter is a deterministic in-process backend used for dry runs,
// scripting, and tests. Responses depend only on the prompt sequence,
// so two identical runs produce identical transcripts.
type MockAdapter struct {
	mu      sync.Mutex
	counter int
}

func init() {
	Register(&MockAdapter{})
}

// mockSession tracks the per-conversation turn count.
type mockSession struct {
	id    string
	cfg   Config
	turns int
}

func (s *mockSession) ID() string { return s.id }

// Name returns "mock".
func (a *MockAdapter) Name() string { return "mock" }

// Start is a no-op; the mock backend has nothing to bring up.
func (a *MockAdapter) Start(ctx context.Context) error { return nil }

// Stop is a no-op.
func (a *MockAdapter) Stop(ctx context.Context) error { return nil }

// CreateSession opens a new mock conversation.
func (a *MockAdapter) CreateSession(ctx context.Context, cfg Config) (Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counter++
	return &mockSession{id: fmt.Sprintf("mock-%d", a.counter), cfg: cfg}, nil
}

// Send echoes the first line of the prompt back in a canned response.
func (a *MockAdapter) Send(ctx context.Context, sess Session, prompt string, onChunk ChunkFunc) (string, error) {
	ms, ok := sess.(*mockSession)
	if !ok {
		return "", fmt.Errorf("mock adapter: foreign session %T", sess)
	}
	ms.turns++

	head := prompt
	if idx := strings.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}
	if len(head) > 80 {
		head = head[:80]
	}

	response := fmt.Sprintf("[mock turn %d] %s", ms.turns, head)
	if ms.cfg.Streaming && onChunk != nil {
		for _, word := range strings.SplitAfter(response, " ") {
			onChunk(word)
		}
	}
	return response, nil
}

// DestroySession is a no-op beyond type checking.
func (a *MockAdapter) DestroySession(ctx context.Context, sess Session) error {
	if _, ok := sess.(*mockSession); !ok {
		return fmt.Errorf("mock adapter: foreign session %T", sess)
	}
	return nil
}
