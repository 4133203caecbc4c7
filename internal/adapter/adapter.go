// Package adapter defines the assistant backend contract consumed by
// the session runner, and a process-wide registry of implementations.
// The engine only ever sees the five-call lifecycle below; everything
// behind it (process, network, nothing at all) is the adapter's business.
package adapter

import (
	"context"
	"sort"
	"sync"
)

// Config selects the model and delivery mode for a new adapter session.
type Config struct {
	Model     string
	Streaming bool
}

// ChunkFunc receives streamed response fragments as they arrive. It is
// invoked synchronously and must not block for unbounded time.
type ChunkFunc func(chunk string)

// Session is an opaque handle to one backend conversation.
type Session interface {
	ID() string
}

// Adapter drives one assistant backend. All methods are suspension
// points: the runner awaits each to completion before proceeding.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "mock", "claude").
	Name() string

	// Start brings up the backend. Called once per run.
	Start(ctx context.Context) error

	// CreateSession opens a fresh conversation with the backend.
	CreateSession(ctx context.Context, cfg Config) (Session, error)

	// Send submits a prompt and returns the complete response text.
	// When onChunk is non-nil and the session is streaming, fragments
	// are delivered through it before Send returns.
	Send(ctx context.Context, sess Session, prompt string, onChunk ChunkFunc) (string, error)

	// DestroySession releases one conversation.
	DestroySession(ctx context.Context, sess Session) error

	// Stop tears down the backend. Called on every exit path.
	Stop(ctx context.Context) error
}

var (
	mu       sync.RWMutex
	adapters = make(map[string]Adapter)
)

// Register registers an adapter under its name. Typically called from
// init() in the adapter implementation files.
func Register(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	adapters[a.Name()] = a
}

// Lookup returns the adapter registered under name. Unknown names fall
// back to the deterministic mock adapter so dry-run and scripting flows
// keep working; the second return value reports whether the requested
// adapter was found.
func Lookup(name string) (Adapter, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if a, ok := adapters[name]; ok {
		return a, true
	}
	return adapters["mock"], false
}

// List returns the names of all registered adapters, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
