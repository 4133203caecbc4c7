package conversation

import (
	"strings"
	"sync"
)

// DirectiveType identifies a directive keyword. Built-in types are the
// exported constants below; anything else is a custom type that must be
// registered in a TypeRegistry before the parser will accept it.
type DirectiveType string

const (
	DirectiveModel           DirectiveType = "MODEL"
	DirectiveAdapter         DirectiveType = "ADAPTER"
	DirectivePrompt          DirectiveType = "PROMPT"
	DirectivePause           DirectiveType = "PAUSE"
	DirectiveCheckpoint      DirectiveType = "CHECKPOINT"
	DirectiveCompact         DirectiveType = "COMPACT"
	DirectiveNewConversation DirectiveType = "NEW-CONVERSATION"
	DirectiveContext         DirectiveType = "CONTEXT"
	DirectiveContextFile     DirectiveType = "CONTEXT-FILE"
	DirectiveOutput          DirectiveType = "OUTPUT"
	DirectiveOutputDir       DirectiveType = "OUTPUT-DIR"
	DirectiveMaxCycles       DirectiveType = "MAX-CYCLES"
	DirectiveContextLimit    DirectiveType = "CONTEXT-LIMIT"
	DirectiveOnContextLimit  DirectiveType = "ON-CONTEXT-LIMIT"
	DirectiveVerify          DirectiveType = "VERIFY"
	DirectiveVerifyOnError   DirectiveType = "VERIFY-ON-ERROR"
	DirectiveVerifyOutput    DirectiveType = "VERIFY-OUTPUT"
	DirectiveAllowFiles      DirectiveType = "ALLOW-FILES"
	DirectiveDenyFiles       DirectiveType = "DENY-FILES"
	DirectiveRefcat          DirectiveType = "REFCAT"
)

// builtinTypes is the closed set of directive keywords the parser knows
// how to execute natively.
var builtinTypes = map[DirectiveType]bool{
	DirectiveModel:           true,
	DirectiveAdapter:         true,
	DirectivePrompt:          true,
	DirectivePause:           true,
	DirectiveCheckpoint:      true,
	DirectiveCompact:         true,
	DirectiveNewConversation: true,
	DirectiveContext:         true,
	DirectiveContextFile:     true,
	DirectiveOutput:          true,
	DirectiveOutputDir:       true,
	DirectiveMaxCycles:       true,
	DirectiveContextLimit:    true,
	DirectiveOnContextLimit:  true,
	DirectiveVerify:          true,
	DirectiveVerifyOnError:   true,
	DirectiveVerifyOutput:    true,
	DirectiveAllowFiles:      true,
	DirectiveDenyFiles:       true,
	DirectiveRefcat:          true,
}

// IsBuiltin reports whether t is one of the built-in directive types.
func (t DirectiveType) IsBuiltin() bool {
	return builtinTypes[t]
}

// Directive is one parsed instruction line from a workflow file.
// Immutable once constructed.
type Directive struct {
	Type       DirectiveType
	Value      string
	LineNumber int
	RawLine    string
}

// TypeName returns the canonical upper-case keyword for the directive.
func (d Directive) TypeName() string {
	return string(d.Type)
}

// IsCustom reports whether the directive uses a non-built-in type.
func (d Directive) IsCustom() bool {
	return !d.Type.IsBuiltin()
}

// TypeRegistry tracks custom directive types registered by extensions.
// It is caller-owned: create one, populate it, hand it to the parser.
// Keys are normalized to upper case, so lookups are case-insensitive.
type TypeRegistry struct {
	mu     sync.RWMutex
	custom map[string]map[string]string
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{custom: make(map[string]map[string]string)}
}

// Register adds (or overwrites) a custom directive type. A nil metadata
// map is stored as an empty one.
func (r *TypeRegistry) Register(name string, metadata map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if metadata == nil {
		metadata = map[string]string{}
	}
	r.custom[strings.ToUpper(name)] = metadata
}

// Unregister removes a custom directive type. Removing an unknown name
// is a no-op.
func (r *TypeRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.custom, strings.ToUpper(name))
}

// IsCustom reports whether name is a registered custom type. Built-in
// keywords and unknown names both return false.
func (r *TypeRegistry) IsCustom(name string) bool {
	key := strings.ToUpper(name)
	if builtinTypes[DirectiveType(key)] {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.custom[key]
	return ok
}

// Metadata returns the metadata registered for name, or nil.
func (r *TypeRegistry) Metadata(name string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.custom[strings.ToUpper(name)]
}

// Custom returns a copy of all registered custom types.
func (r *TypeRegistry) Custom() map[string]map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]string, len(r.custom))
	for name, meta := range r.custom {
		out[name] = meta
	}
	return out
}

// Clear empties the registry. Used for test isolation and reloads.
func (r *TypeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom = make(map[string]map[string]string)
}
