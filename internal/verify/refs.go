package verify

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// refPattern matches @file references like @README.md or @./docs/api.md.
// The required dot or slash keeps JSDoc-style annotations (@param,
// @returns, @deprecated) from matching.
var refPattern = regexp.MustCompile(`@([\w.~/-]*[./][\w.~/-]*)`)

// RefsVerifier checks that every @file reference in markdown files
// points at a file that exists. Relative references resolve against
// the directory of the file containing them.
type RefsVerifier struct{}

func (v *RefsVerifier) Name() string { return "refs" }

func (v *RefsVerifier) Verify(root string) (*Result, error) {
	res := &Result{
		Verifier: v.Name(),
		Details: map[string]int{
			"files_scanned": 0,
			"refs_found":    0,
			"refs_valid":    0,
			"refs_broken":   0,
		},
	}
	files, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		path := filepath.Join(root, rel)
		if err := v.scanFile(root, rel, path, res); err != nil {
			return nil, err
		}
		res.Details["files_scanned"]++
	}
	return finish(res), nil
}

func (v *RefsVerifier) scanFile(root, rel, path string, res *Result) error {
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
		for _, m := range refPattern.FindAllStringSubmatch(line, -1) {
			target := strings.TrimRight(m[1], ".,;:")
			if target == "" {
				continue
			}
			res.Details["refs_found"]++
			resolved := target
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(filepath.Dir(path), resolved)
			}
			if _, statErr := os.Stat(resolved); statErr == nil {
				res.Details["refs_valid"]++
			} else {
				res.Details["refs_broken"]++
				res.Errors = append(res.Errors, Error{
					File:    rel,
					Line:    lineNo,
					Message: "broken reference @" + target,
					FixHint: "create " + target + " or fix the reference",
				})
			}
		}
	}
	return scanner.Err()
}
