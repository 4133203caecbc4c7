package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"convctl/internal/conversation"
	"convctl/internal/refcat"
)

// LoadContext assembles the context block injected ahead of the first
// prompt: CONTEXT files in declaration order, then REFCAT extracts.
// Relative paths resolve against baseDir.
func LoadContext(conv *conversation.ConversationFile, baseDir string) (string, error) {
	var parts []string

	for _, path := range conv.ContextFiles {
		resolved := path
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, resolved)
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("context file %s: %w", path, err)
		}
		parts = append(parts, fmt.Sprintf("## File: %s\n\n%s", path, strings.TrimRight(string(data), "\n")))
	}

	if len(conv.RefcatSpecs) > 0 {
		extracts, err := refcat.FormatAll(conv.RefcatSpecs, baseDir)
		if err != nil {
			return "", fmt.Errorf("refcat: %w", err)
		}
		parts = append(parts, extracts)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n\n"), nil
}
