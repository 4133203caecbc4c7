package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"convctl/internal/conversation"
	"convctl/internal/output"
	"convctl/internal/refcat"
	"convctl/internal/ui"
)

// RunValidate parses each file and reports its structure or errors.
// Any failing file makes the command fail after all are checked.
func RunValidate(paths, directives []string) error {
	cfg := loadConfig()
	reg := typeRegistry(cfg, directives)

	type fileReport struct {
		Path    string `json:"path"`
		Valid   bool   `json:"valid"`
		Error   string `json:"error,omitempty"`
		Title   string `json:"title,omitempty"`
		Steps   int    `json:"steps,omitempty"`
		Prompts int    `json:"prompts,omitempty"`
		Pauses  int    `json:"pauses,omitempty"`
	}

	var reports []fileReport
	failed := 0
	for _, path := range paths {
		conv, err := conversation.ParseFile(path, reg)
		if err != nil {
			reports = append(reports, fileReport{Path: path, Error: err.Error()})
			failed++
			continue
		}
		if problems := checkReferences(conv, filepath.Dir(path)); len(problems) > 0 {
			reports = append(reports, fileReport{Path: path, Error: strings.Join(problems, "; ")})
			failed++
			continue
		}
		reports = append(reports, fileReport{
			Path:    path,
			Valid:   true,
			Title:   conv.Title,
			Steps:   len(conv.Steps),
			Prompts: len(conv.Prompts),
			Pauses:  len(conv.PausePoints),
		})
	}

	output.Print(reports, func() {
		for _, r := range reports {
			if r.Valid {
				ui.ShowSuccess("%s: %d steps, %d prompts, %d pause points", r.Path, r.Steps, r.Prompts, r.Pauses)
			} else {
				ui.ShowError(r.Path, fmt.Errorf("%s", r.Error))
			}
		}
	})

	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(paths))
	}
	return nil
}

// checkReferences verifies that declared CONTEXT files and REFCAT
// references resolve relative to the workflow file.
func checkReferences(conv *conversation.ConversationFile, baseDir string) []string {
	var problems []string
	for _, f := range conv.ContextFiles {
		resolved := f
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(baseDir, resolved)
		}
		if _, err := os.Stat(resolved); err != nil {
			problems = append(problems, fmt.Sprintf("context file %s not found", f))
		}
	}
	for _, spec := range conv.RefcatSpecs {
		if _, err := refcat.Extract(spec, baseDir); err != nil {
			problems = append(problems, fmt.Sprintf("refcat %v", err))
		}
	}
	return problems
}

// RunRender prints the expanded step plan with variables bound.
func RunRender(path string, varFlags, directives []string) error {
	cfg := loadConfig()
	conv, err := conversation.ParseFile(path, typeRegistry(cfg, directives))
	if err != nil {
		return err
	}
	vars, err := parseVarBindings(cfg.Vars, varFlags)
	if err != nil {
		return err
	}

	steps := conv.BuildSteps(vars)
	output.Print(steps, func() {
		if conv.Title != "" {
			ui.ShowHeader(conv.Title)
		}
		if conv.Model != "" {
			ui.ShowInfo("model: %s", conv.Model)
		}
		if conv.Adapter != "" {
			ui.ShowInfo("adapter: %s", conv.Adapter)
		}
		for i, step := range steps {
			label := string(step.Type)
			if step.Type == conversation.StepCustom {
				label = step.Directive
			}
			detail := step.Content
			if step.Type == conversation.StepVerify {
				detail = step.VerifyType
			}
			if idx := strings.IndexByte(detail, '\n'); idx >= 0 {
				detail = detail[:idx] + " ..."
			}
			fmt.Printf("  %2d. [%s] %s\n", i+1, label, detail)
		}
	})
	return nil
}
