package verify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// idPattern matches requirement identifiers like REQ-12 or API-301.
var idPattern = regexp.MustCompile(`\b([A-Z]{2,}-\d+)\b`)

// TraceabilityVerifier checks that every requirement ID referenced in
// markdown prose is defined somewhere, where a definition is an ID
// appearing in a heading line.
type TraceabilityVerifier struct{}

func (v *TraceabilityVerifier) Name() string { return "traceability" }

type idRef struct {
	file string
	line int
}

func (v *TraceabilityVerifier) Verify(root string) (*Result, error) {
	res := &Result{
		Verifier: v.Name(),
		Details: map[string]int{
			"files_scanned":  0,
			"ids_defined":    0,
			"ids_referenced": 0,
			"ids_unresolved": 0,
		},
	}
	files, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}

	defined := map[string]bool{}
	referenced := map[string]idRef{}
	for _, rel := range files {
		if err := collectIDs(filepath.Join(root, rel), rel, defined, referenced); err != nil {
			return nil, err
		}
		res.Details["files_scanned"]++
	}
	res.Details["ids_defined"] = len(defined)
	res.Details["ids_referenced"] = len(referenced)

	var unresolved []string
	for id := range referenced {
		if !defined[id] {
			unresolved = append(unresolved, id)
		}
	}
	sort.Strings(unresolved)
	res.Details["ids_unresolved"] = len(unresolved)
	for _, id := range unresolved {
		ref := referenced[id]
		res.Errors = append(res.Errors, Error{
			File:    ref.file,
			Line:    ref.line,
			Message: fmt.Sprintf("reference to undefined ID %s", id),
			FixHint: "add a heading defining " + id,
		})
	}
	return finish(res), nil
}

func collectIDs(path, rel string, defined map[string]bool, referenced map[string]idRef) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	inFence := false
	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		heading := strings.HasPrefix(line, "#")
		for _, m := range idPattern.FindAllStringSubmatch(line, -1) {
			id := m[1]
			if heading {
				defined[id] = true
			} else if _, seen := referenced[id]; !seen {
				referenced[id] = idRef{file: rel, line: lineNo}
			}
		}
	}
	return scanner.Err()
}
