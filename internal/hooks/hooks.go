// Package hooks provides the execution seam for custom workflow
// directives: external code registers a Hook per directive name, and
// the step runner delegates custom steps here.
package hooks

import (
	"fmt"
	"strings"
	"sync"
)

// ExecutionContext carries everything a hook may inspect about the
// directive being executed, plus accumulation helpers for output and
// errors.
type ExecutionContext struct {
	WorkspaceRoot  string
	DirectiveName  string
	DirectiveValue string
	LineNumber     int

	// Session linkage, set when the directive runs inside a session.
	SessionID   string
	CycleNumber int

	outputLines []string
	errorLines  []string
}

// Emit appends a line to the hook's output buffer.
func (c *ExecutionContext) Emit(line string) {
	c.outputLines = append(c.outputLines, line)
}

// Errorf records an error line without aborting the hook.
func (c *ExecutionContext) Errorf(format string, args ...any) {
	c.errorLines = append(c.errorLines, fmt.Sprintf(format, args...))
}

// Output returns the emitted lines joined by newlines.
func (c *ExecutionContext) Output() string {
	return strings.Join(c.outputLines, "\n")
}

// Errors returns the recorded error lines.
func (c *ExecutionContext) Errors() []string {
	return c.errorLines
}

// HasErrors reports whether any error line was recorded.
func (c *ExecutionContext) HasErrors() bool {
	return len(c.errorLines) > 0
}

// ExecutionResult is the outcome of one custom directive execution.
type ExecutionResult struct {
	Success          bool
	Output           string
	InjectIntoPrompt bool
	Errors           []string
}

// OK builds a successful result whose output is spliced into the next
// prompt by default.
func OK(output string) *ExecutionResult {
	return &ExecutionResult{Success: true, Output: output, InjectIntoPrompt: true}
}

// OKNoInject builds a successful result that is not injected into the
// next prompt.
func OKNoInject(output string) *ExecutionResult {
	return &ExecutionResult{Success: true, Output: output}
}

// Fail builds a failed result carrying the given error strings.
func Fail(errs ...string) *ExecutionResult {
	return &ExecutionResult{Errors: errs}
}

// Hook executes one custom directive. Returning an error (or panicking)
// marks the step failed without crashing the session.
type Hook func(ctx *ExecutionContext) (*ExecutionResult, error)

// Registry maps directive names to hooks. Names are case-insensitive.
// Like the type registry, it is caller-owned rather than global, so
// tests and multi-tenant hosts get isolation for free.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry returns an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register adds (or overwrites) the hook for a directive name.
func (r *Registry) Register(name string, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[strings.ToUpper(name)] = hook
}

// Unregister removes the hook for a directive name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, strings.ToUpper(name))
}

// Get returns the registered hook for name, or nil.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[strings.ToUpper(name)]
}

// Has reports whether a hook is registered for name.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// Clear removes all hooks.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make(map[string]Hook)
}

// ExecuteOption tweaks the execution context.
type ExecuteOption func(*ExecutionContext)

// WithSession links the execution to a session and cycle.
func WithSession(sessionID string, cycleNumber int) ExecuteOption {
	return func(c *ExecutionContext) {
		c.SessionID = sessionID
		c.CycleNumber = cycleNumber
	}
}

// WithLine records the source line number of the directive.
func WithLine(line int) ExecuteOption {
	return func(c *ExecutionContext) {
		c.LineNumber = line
	}
}

// Execute runs the hook registered for name. A missing hook is a
// recoverable configuration error, not a fatal one; a hook error or
// panic is converted into a failed result embedding the fault text.
// Execute never propagates a hook failure as a Go error or panic.
func (r *Registry) Execute(name, value, workspaceRoot string, opts ...ExecuteOption) (result *ExecutionResult) {
	hook := r.Get(name)
	if hook == nil {
		return Fail(fmt.Sprintf("no execution hook registered for directive %q", name))
	}

	ctx := &ExecutionContext{
		WorkspaceRoot:  workspaceRoot,
		DirectiveName:  strings.ToUpper(name),
		DirectiveValue: value,
		CycleNumber:    1,
	}
	for _, opt := range opts {
		opt(ctx)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = Fail(fmt.Sprintf("hook execution error: %v", rec))
		}
	}()

	res, err := hook(ctx)
	if err != nil {
		return Fail(fmt.Sprintf("hook execution error: %v", err))
	}
	if res == nil {
		return Fail("hook execution error: hook returned no result")
	}
	return res
}
