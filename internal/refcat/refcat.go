// Package refcat turns file and file:line references into fenced text
// blocks suitable for splicing into prompts.
package refcat

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ref is one parsed reference spec.
type Ref struct {
	Path      string
	StartLine int // 1-based, 0 means whole file
	EndLine   int // inclusive, 0 means through end
}

// ParseSpec parses a reference spec. Accepted forms:
//
//	@notes.md            whole file
//	engine.go:42         single line
//	engine.go:10-40      line range
func ParseSpec(spec string) (Ref, error) {
	spec = strings.TrimSpace(strings.TrimPrefix(spec, "@"))
	if spec == "" {
		return Ref{}, fmt.Errorf("empty reference spec")
	}

	path, lines, found := cutLastColon(spec)
	if !found {
		return Ref{Path: spec}, nil
	}

	start, end, ok := parseLineRange(lines)
	if !ok {
		// A colon that is not a line range (e.g. windows path) keeps
		// the whole spec as the path.
		return Ref{Path: spec}, nil
	}
	return Ref{Path: path, StartLine: start, EndLine: end}, nil
}

// Extract resolves the spec relative to baseDir and returns its text.
func Extract(spec, baseDir string) (string, error) {
	ref, err := ParseSpec(spec)
	if err != nil {
		return "", err
	}

	path := ref.Path
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read reference %s: %w", ref.Path, err)
	}

	if ref.StartLine == 0 {
		return string(raw), nil
	}

	lines := strings.Split(string(raw), "\n")
	start := ref.StartLine
	end := ref.EndLine
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start < 1 || start > len(lines) {
		return "", fmt.Errorf("reference %s: line %d out of range (file has %d lines)", spec, start, len(lines))
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// Format extracts the spec and wraps it in a fenced block labelled with
// the reference, ready for prompt injection.
func Format(spec, baseDir string) (string, error) {
	text, err := Extract(spec, baseDir)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("### %s\n```\n%s\n```", strings.TrimPrefix(spec, "@"), strings.TrimRight(text, "\n")), nil
}

// FormatAll formats every spec, concatenated with blank lines. The
// first failing spec aborts, so callers can surface it with its spec.
func FormatAll(specs []string, baseDir string) (string, error) {
	var blocks []string
	for _, spec := range specs {
		block, err := Format(spec, baseDir)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), nil
}

// cutLastColon splits around the last colon so paths with directories
// containing colons still parse.
func cutLastColon(s string) (before, after string, found bool) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// parseLineRange parses "42" or "10-40".
func parseLineRange(s string) (start, end int, ok bool) {
	if from, to, found := strings.Cut(s, "-"); found {
		a, err1 := strconv.Atoi(from)
		b, err2 := strconv.Atoi(to)
		if err1 != nil || err2 != nil || a < 1 || b < a {
			return 0, 0, false
		}
		return a, b, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return n, n, true
}
