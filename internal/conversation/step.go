package conversation

// StepType classifies one executable unit of a workflow.
type StepType string

const (
	StepPrompt          StepType = "prompt"
	StepCheckpoint      StepType = "checkpoint"
	StepCompact         StepType = "compact"
	StepNewConversation StepType = "new_conversation"
	StepVerify          StepType = "verify"
	StepCustom          StepType = "custom"
)

// Step is one executable unit derived from one or more directives.
// Content holds the prompt text, checkpoint name, or verify target
// depending on Type. For custom steps Directive names the registered
// custom directive to execute.
type Step struct {
	Type       StepType `json:"type"`
	Content    string   `json:"content,omitempty"`
	VerifyType string   `json:"verifyType,omitempty"`
	Preserve   []string `json:"preserve,omitempty"`
	Directive  string   `json:"directive,omitempty"`
	Line       int      `json:"line,omitempty"`
}

// BuildSteps returns the step list with {{NAME}} template variables
// expanded from vars. Expansion happens here rather than at parse time
// so one parsed workflow can be replayed per component or per cycle
// with different bindings.
func (c *ConversationFile) BuildSteps(vars map[string]string) []Step {
	steps := make([]Step, len(c.Steps))
	for i, step := range c.Steps {
		step.Content = ExpandVars(step.Content, vars)
		steps[i] = step
	}
	return steps
}
