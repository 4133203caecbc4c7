package conversation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConversationFile is the parsed form of a .conv workflow file: the
// raw directive list, the derived step plan, and the workflow-level
// configuration the directives set.
type ConversationFile struct {
	Title   string
	Model   string
	Adapter string

	Directives []Directive
	Steps      []Step
	Prompts    []string

	// PausePoints maps a prompt index to the halt message declared
	// after that prompt. Duplicate PAUSE lines on the same index keep
	// the last one.
	PausePoints map[int]string

	ContextFiles []string
	RefcatSpecs  []string
	OutputFile   string
	OutputDir    string

	MaxCycles      int
	ContextLimit   float64
	OnContextLimit string
	VerifyOnError  string
	VerifyOutput   string

	Restrictions FileRestrictions

	// Source is the path the file was loaded from, used to resolve
	// relative context and refcat references. Empty for inline parses.
	Source string
}

// ParseError is a fatal workflow syntax error. No partial plan is
// executed when parsing fails.
type ParseError struct {
	Line    int
	RawLine string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.RawLine)
}

// Parse parses workflow text with no custom directive types registered.
func Parse(content string) (*ConversationFile, error) {
	return ParseWith(content, nil)
}

// ParseFile loads and parses a workflow file, recording its path for
// relative reference resolution.
func ParseFile(path string, reg *TypeRegistry) (*ConversationFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	conv, err := ParseWith(string(raw), reg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	conv.Source = path
	return conv, nil
}

// ParseWith parses workflow text, accepting custom directive keywords
// registered in reg. A nil registry accepts built-ins only.
//
// The format is line-oriented: each non-blank line is either a
// "KEYWORD value" directive, a "#" comment, or continuation text for
// an open multi-line PROMPT block. Parsing is deterministic: the same
// text always yields the same ordered step list.
func ParseWith(content string, reg *TypeRegistry) (*ConversationFile, error) {
	conv := &ConversationFile{
		PausePoints:   make(map[int]string),
		VerifyOnError: "continue",
		VerifyOutput:  "on-error",
	}

	var promptOpen bool
	var promptLines []string
	var promptLine int
	promptCount := 0

	closePrompt := func() {
		if !promptOpen {
			return
		}
		text := strings.Join(promptLines, "\n")
		conv.Prompts = append(conv.Prompts, text)
		conv.Steps = append(conv.Steps, Step{Type: StepPrompt, Content: text, Line: promptLine})
		promptOpen = false
		promptLines = nil
		promptCount++
	}

	for i, rawLine := range strings.Split(content, "\n") {
		lineNo := i + 1
		line := strings.TrimRight(rawLine, " \t\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			closePrompt()
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			closePrompt()
			if conv.Title == "" {
				conv.Title = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			}
			continue
		}

		keyword, value, _ := strings.Cut(trimmed, " ")
		value = strings.TrimSpace(value)
		kind := DirectiveType(strings.ToUpper(keyword))

		switch {
		case kind.IsBuiltin() && keyword == string(kind):
			closePrompt()
			conv.Directives = append(conv.Directives, Directive{
				Type: kind, Value: value, LineNumber: lineNo, RawLine: trimmed,
			})
			if err := conv.applyDirective(kind, value, lineNo, trimmed, &promptCount); err != nil {
				return nil, err
			}
			if kind == DirectivePrompt {
				promptOpen = true
				promptLine = lineNo
				promptLines = nil
				if value != "" {
					promptLines = []string{value}
				}
			}

		case reg != nil && reg.IsCustom(keyword):
			closePrompt()
			conv.Directives = append(conv.Directives, Directive{
				Type: DirectiveType(strings.ToUpper(keyword)), Value: value,
				LineNumber: lineNo, RawLine: trimmed,
			})
			conv.Steps = append(conv.Steps, Step{
				Type:      StepCustom,
				Directive: strings.ToUpper(keyword),
				Content:   value,
				Line:      lineNo,
			})

		case promptOpen:
			promptLines = append(promptLines, trimmed)

		default:
			return nil, &ParseError{Line: lineNo, RawLine: trimmed, Reason: fmt.Sprintf("unknown directive %q", keyword)}
		}
	}
	closePrompt()

	return conv, nil
}

// applyDirective folds one built-in directive into the workflow
// configuration and step plan. promptCount is the number of completed
// prompt steps, used to anchor PAUSE points.
func (c *ConversationFile) applyDirective(kind DirectiveType, value string, lineNo int, raw string, promptCount *int) error {
	fail := func(reason string) error {
		return &ParseError{Line: lineNo, RawLine: raw, Reason: reason}
	}

	switch kind {
	case DirectiveModel:
		c.Model = value
	case DirectiveAdapter:
		c.Adapter = value
	case DirectivePrompt:
		// Accumulated by the caller's continuation handling.
	case DirectivePause:
		if *promptCount == 0 {
			return fail("PAUSE requires a preceding PROMPT")
		}
		c.PausePoints[*promptCount-1] = value
	case DirectiveCheckpoint:
		c.Steps = append(c.Steps, Step{Type: StepCheckpoint, Content: value, Line: lineNo})
	case DirectiveCompact:
		step := Step{Type: StepCompact, Line: lineNo}
		if value != "" {
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					step.Preserve = append(step.Preserve, item)
				}
			}
		}
		c.Steps = append(c.Steps, step)
	case DirectiveNewConversation:
		c.Steps = append(c.Steps, Step{Type: StepNewConversation, Line: lineNo})
	case DirectiveContext, DirectiveContextFile:
		if value == "" {
			return fail("CONTEXT requires a file reference")
		}
		c.ContextFiles = append(c.ContextFiles, value)
	case DirectiveRefcat:
		if value == "" {
			return fail("REFCAT requires a reference spec")
		}
		c.RefcatSpecs = append(c.RefcatSpecs, value)
	case DirectiveOutput:
		c.OutputFile = value
	case DirectiveOutputDir:
		c.OutputDir = value
	case DirectiveMaxCycles:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fail("MAX-CYCLES requires a positive integer")
		}
		c.MaxCycles = n
	case DirectiveContextLimit:
		ratio, err := parseContextLimit(value)
		if err != nil {
			return fail(err.Error())
		}
		c.ContextLimit = ratio
	case DirectiveOnContextLimit:
		switch value {
		case "compact", "new-conversation", "halt":
			c.OnContextLimit = value
		default:
			return fail("ON-CONTEXT-LIMIT must be compact, new-conversation, or halt")
		}
	case DirectiveVerify:
		if value == "" {
			return fail("VERIFY requires a verifier name")
		}
		name, _, _ := strings.Cut(value, " ")
		c.Steps = append(c.Steps, Step{Type: StepVerify, Content: value, VerifyType: name, Line: lineNo})
	case DirectiveVerifyOnError:
		switch value {
		case "continue", "abort":
			c.VerifyOnError = value
		default:
			return fail("VERIFY-ON-ERROR must be continue or abort")
		}
	case DirectiveVerifyOutput:
		switch value {
		case "always", "on-error", "never":
			c.VerifyOutput = value
		default:
			return fail("VERIFY-OUTPUT must be always, on-error, or never")
		}
	case DirectiveAllowFiles:
		if value == "" {
			return fail("ALLOW-FILES requires a glob pattern")
		}
		c.Restrictions.AllowPatterns = append(c.Restrictions.AllowPatterns, value)
	case DirectiveDenyFiles:
		if value == "" {
			return fail("DENY-FILES requires a glob pattern")
		}
		c.Restrictions.DenyPatterns = append(c.Restrictions.DenyPatterns, value)
	}
	return nil
}

// parseContextLimit parses "75%" or "0.75" into a 0..1 ratio.
func parseContextLimit(value string) (float64, error) {
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || n <= 0 || n > 100 {
			return 0, fmt.Errorf("CONTEXT-LIMIT percentage must be in (0, 100]")
		}
		return n / 100, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n <= 0 || n > 1 {
		return 0, fmt.Errorf("CONTEXT-LIMIT ratio must be in (0, 1]")
	}
	return n, nil
}

// PromptCount returns the number of prompt steps in the plan.
func (c *ConversationFile) PromptCount() int {
	count := 0
	for _, s := range c.Steps {
		if s.Type == StepPrompt {
			count++
		}
	}
	return count
}
