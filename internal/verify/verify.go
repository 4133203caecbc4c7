// Package verify holds the stateless workspace verifiers a workflow
// can invoke through VERIFY steps. Each verifier scans the workspace
// independently and reports a structured result; nothing here touches
// session state.
package verify

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Error is one finding, pinned to a file and line.
type Error struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
	FixHint string `json:"fixHint,omitempty"`
}

// Result is the outcome of one verifier pass.
type Result struct {
	Verifier string         `json:"verifier"`
	Passed   bool           `json:"passed"`
	Errors   []Error        `json:"errors,omitempty"`
	Warnings []Error        `json:"warnings,omitempty"`
	Summary  string         `json:"summary"`
	Details  map[string]int `json:"details,omitempty"`
}

// Markdown renders the result for injection into prompts or console
// output.
func (r *Result) Markdown() string {
	var b strings.Builder
	if r.Passed {
		fmt.Fprintf(&b, "## %s: ✅ Passed\n", r.Verifier)
	} else {
		fmt.Fprintf(&b, "## %s: ❌ Failed\n", r.Verifier)
	}
	fmt.Fprintf(&b, "%s\n", r.Summary)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "- %s:%d %s\n", e.File, e.Line, e.Message)
		if e.FixHint != "" {
			fmt.Fprintf(&b, "  hint: %s\n", e.FixHint)
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "- warning: %s:%d %s\n", w.File, w.Line, w.Message)
	}
	return b.String()
}

// Verifier checks one property of a workspace.
type Verifier interface {
	Name() string
	Verify(root string) (*Result, error)
}

// verifiers is the closed registry of known verifier types.
var verifiers = map[string]Verifier{
	"refs":         &RefsVerifier{},
	"links":        &LinksVerifier{},
	"terminology":  &TerminologyVerifier{},
	"traceability": &TraceabilityVerifier{},
	"assertions":   &AssertionsVerifier{},
}

// Lookup returns the verifier registered under name.
func Lookup(name string) (Verifier, bool) {
	v, ok := verifiers[name]
	return v, ok
}

// Names returns all verifier names, sorted.
func Names() []string {
	names := make([]string, 0, len(verifiers))
	for name := range verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named verifier against root.
func Run(name, root string) (*Result, error) {
	v, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown verifier %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return v.Verify(root)
}

// markdownFiles walks root collecting .md files, relative to root.
// Hidden directories and common vendor trees are skipped.
func markdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".md") {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// finish fills in the pass flag and summary shared by all verifiers.
func finish(r *Result) *Result {
	r.Passed = len(r.Errors) == 0
	r.Summary = fmt.Sprintf("%d errors, %d warnings", len(r.Errors), len(r.Warnings))
	return r
}
