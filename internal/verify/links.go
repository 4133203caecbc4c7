package verify

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// LinksVerifier checks markdown links. External links (http, https,
// mailto) are skipped and counted separately. Anchor-only links are
// accepted as-is; file#anchor links are valid when the file exists.
type LinksVerifier struct{}

func (v *LinksVerifier) Name() string { return "links" }

func (v *LinksVerifier) Verify(root string) (*Result, error) {
	res := &Result{
		Verifier: v.Name(),
		Details: map[string]int{
			"files_scanned":  0,
			"links_found":    0,
			"links_valid":    0,
			"links_broken":   0,
			"links_external": 0,
		},
	}
	files, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		path := filepath.Join(root, rel)
		if err := v.scanFile(rel, path, res); err != nil {
			return nil, err
		}
		res.Details["files_scanned"]++
	}
	return finish(res), nil
}

func isExternal(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "mailto:")
}

func (v *LinksVerifier) scanFile(rel, path string, res *Result) error {
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
		for _, m := range linkPattern.FindAllStringSubmatch(line, -1) {
			target := m[2]
			res.Details["links_found"]++
			if isExternal(target) {
				res.Details["links_external"]++
				continue
			}
			// Same-document anchors cannot be validated without
			// parsing headings, accept them.
			if strings.HasPrefix(target, "#") {
				res.Details["links_valid"]++
				continue
			}
			file, _, _ := strings.Cut(target, "#")
			resolved := file
			if !filepath.IsAbs(resolved) {
				resolved = filepath.Join(filepath.Dir(path), resolved)
			}
			if _, statErr := os.Stat(resolved); statErr == nil {
				res.Details["links_valid"]++
			} else {
				res.Details["links_broken"]++
				res.Errors = append(res.Errors, Error{
					File:    rel,
					Line:    lineNo,
					Message: "broken link " + target,
					FixHint: "fix the path or remove the link",
				})
			}
		}
	}
	return scanner.Err()
}
