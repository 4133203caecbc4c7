package verify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TerminologyRule forbids one term in favor of another.
type TerminologyRule struct {
	Avoid  string `yaml:"avoid"`
	Prefer string `yaml:"prefer"`
	Reason string `yaml:"reason,omitempty"`
}

type terminologyConfig struct {
	Rules []TerminologyRule `yaml:"rules"`
}

// TerminologyVerifier enforces term rules loaded from
// terminology.yml at the workspace root. A workspace without a rules
// file passes trivially.
type TerminologyVerifier struct{}

func (v *TerminologyVerifier) Name() string { return "terminology" }

func (v *TerminologyVerifier) Verify(root string) (*Result, error) {
	res := &Result{
		Verifier: v.Name(),
		Details: map[string]int{
			"files_scanned": 0,
			"rules_loaded":  0,
			"violations":    0,
		},
	}
	rules, err := loadTerminologyRules(root)
	if err != nil {
		return nil, err
	}
	res.Details["rules_loaded"] = len(rules)
	if len(rules) == 0 {
		return finish(res), nil
	}

	files, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if err := v.scanFile(root, rel, rules, res); err != nil {
			return nil, err
		}
		res.Details["files_scanned"]++
	}
	return finish(res), nil
}

func loadTerminologyRules(root string) ([]TerminologyRule, error) {
	for _, name := range []string{"terminology.yml", "terminology.yaml"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg terminologyConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return cfg.Rules, nil
	}
	return nil, nil
}

func (v *TerminologyVerifier) scanFile(root, rel string, rules []TerminologyRule, res *Result) error {
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
		lower := strings.ToLower(scanner.Text())
		for _, rule := range rules {
			if rule.Avoid == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(rule.Avoid)) {
				res.Details["violations"]++
				hint := "use " + rule.Prefer
				if rule.Reason != "" {
					hint += " (" + rule.Reason + ")"
				}
				res.Errors = append(res.Errors, Error{
					File:    rel,
					Line:    lineNo,
					Message: fmt.Sprintf("avoid term %q", rule.Avoid),
					FixHint: hint,
				})
			}
		}
	}
	return scanner.Err()
}
