package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"convctl/internal/conversation"
)

// Checkpoint is a durable snapshot of a session, written when a PAUSE
// or CHECKPOINT step fires. It carries everything resume needs,
// including the parsed conversation, so the source file may change or
// disappear between runs.
type Checkpoint struct {
	Name         string                         `json:"name"`
	CreatedAt    string                         `json:"createdAt"`
	PauseMessage string                         `json:"pauseMessage,omitempty"`
	Source       string                         `json:"source,omitempty"`
	State        State                          `json:"state"`
	Conversation *conversation.ConversationFile `json:"conversation"`
}

// Store persists checkpoints as JSON files in a directory.
type Store struct {
	Dir string
}

// DefaultStore returns the store rooted at ~/.convctl/checkpoints.
func DefaultStore() *Store {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Store{Dir: filepath.Join(".", ".convctl", "checkpoints")}
	}
	return &Store{Dir: filepath.Join(home, ".convctl", "checkpoints")}
}

// Save writes the checkpoint, stamping CreatedAt if unset.
func (s *Store) Save(cp *Checkpoint) error {
	if cp.Name == "" {
		return fmt.Errorf("checkpoint has no name")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	if cp.CreatedAt == "" {
		cp.CreatedAt = time.Now().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	filename := filepath.Join(s.Dir, sanitizeName(cp.Name)+".json")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint file: %w", err)
	}
	return nil
}

// Load reads a checkpoint by name.
func (s *Store) Load(name string) (*Checkpoint, error) {
	filename := filepath.Join(s.Dir, sanitizeName(name)+".json")
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// List returns all checkpoints sorted newest first.
func (s *Store) List() ([]*Checkpoint, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Checkpoint{}, nil
		}
		return nil, fmt.Errorf("read checkpoint directory: %w", err)
	}

	var cps []*Checkpoint
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		cp, err := s.Load(name)
		if err != nil {
			continue // skip corrupted files
		}
		cps = append(cps, cp)
	}

	sort.Slice(cps, func(i, j int) bool {
		return cps[i].CreatedAt > cps[j].CreatedAt
	})
	return cps, nil
}

// Delete removes a checkpoint by name.
func (s *Store) Delete(name string) error {
	return os.Remove(filepath.Join(s.Dir, sanitizeName(name)+".json"))
}

// sanitizeName keeps checkpoint names usable as file names.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}
