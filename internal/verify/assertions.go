package verify

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// assertPattern matches assertion comments embedded in markdown:
//
//	<!-- ASSERT exists path/to/file -->
//	<!-- ASSERT contains path/to/file "needle" -->
var assertPattern = regexp.MustCompile(`<!--\s*ASSERT\s+(exists|contains)\s+(\S+)(?:\s+"([^"]*)")?\s*-->`)

// AssertionsVerifier evaluates ASSERT comments in markdown files.
// Paths resolve against the workspace root so assertions stay valid
// when documents move.
type AssertionsVerifier struct{}

func (v *AssertionsVerifier) Name() string { return "assertions" }

func (v *AssertionsVerifier) Verify(root string) (*Result, error) {
	res := &Result{
		Verifier: v.Name(),
		Details: map[string]int{
			"files_scanned":     0,
			"assertions_found":  0,
			"assertions_passed": 0,
			"assertions_failed": 0,
		},
	}
	files, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if err := v.scanFile(root, rel, res); err != nil {
			return nil, err
		}
		res.Details["files_scanned"]++
	}
	return finish(res), nil
}

func (v *AssertionsVerifier) scanFile(root, rel string, res *Result) error {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	defer f.Close()

	lineNo := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		for _, m := range assertPattern.FindAllStringSubmatch(scanner.Text(), -1) {
			res.Details["assertions_found"]++
			op, target, needle := m[1], m[2], m[3]
			if msg := checkAssertion(root, op, target, needle); msg != "" {
				res.Details["assertions_failed"]++
				res.Errors = append(res.Errors, Error{
					File:    rel,
					Line:    lineNo,
					Message: msg,
				})
			} else {
				res.Details["assertions_passed"]++
			}
		}
	}
	return scanner.Err()
}

// checkAssertion returns an empty string on success, else the failure
// message.
func checkAssertion(root, op, target, needle string) string {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	switch op {
	case "exists":
		if _, err := os.Stat(path); err != nil {
			return "assertion failed: " + target + " does not exist"
		}
	case "contains":
		data, err := os.ReadFile(path)
		if err != nil {
			return "assertion failed: cannot read " + target
		}
		if !strings.Contains(string(data), needle) {
			return "assertion failed: " + target + " does not contain \"" + needle + "\""
		}
	}
	return ""
}
