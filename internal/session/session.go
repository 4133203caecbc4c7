// Package session drives a parsed conversation workflow against a
// backend adapter: the step loop, durable checkpoints, and resume.
package session

import (
	"encoding/json"
	"fmt"
)

// Status represents the state of a workflow session.
type Status int

const (
	StatusIdle      Status = iota // not started
	StatusRunning                 // steps are executing
	StatusPaused                  // serialized to a checkpoint and stopped
	StatusCompleted               // all steps ran
	StatusFailed                  // aborted on error
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON stores the status as its string form so checkpoint
// files stay readable.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = StatusIdle
	case "running":
		*s = StatusRunning
	case "paused":
		*s = StatusPaused
	case "completed":
		*s = StatusCompleted
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// Message is one turn in the conversation history.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// State is the serializable core of a session: enough to resume a
// paused run in a fresh process.
type State struct {
	Status      Status    `json:"status"`
	StepIndex   int       `json:"stepIndex"`   // next step to execute
	CycleNumber int       `json:"cycleNumber"` // 1-based, cycle mode only
	Messages    []Message `json:"messages,omitempty"`
}

// Append records a turn in the history.
func (st *State) Append(role, content string) {
	st.Messages = append(st.Messages, Message{Role: role, Content: content})
}

// ContextChars returns the total character count of the history, the
// input to context-limit estimation.
func (st *State) ContextChars() int {
	n := 0
	for _, m := range st.Messages {
		n += len(m.Content)
	}
	return n
}
