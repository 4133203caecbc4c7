package mcpserver

import (
	"context"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"convctl/internal/adapter"
	"convctl/internal/conversation"
	"convctl/internal/session"
)

// -- workflow_validate --

type workflowValidateInput struct {
	Path       string   `json:"path" jsonschema:"Workflow file path"`
	Directives []string `json:"directives,omitempty" jsonschema:"Custom directive keywords to accept"`
}

type workflowValidateOutput struct {
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Title   string `json:"title,omitempty"`
	Steps   int    `json:"steps"`
	Prompts int    `json:"prompts"`
	Pauses  int    `json:"pauses"`
}

func workflowValidateHandler(ctx context.Context, req *mcpsdk.CallToolRequest, input workflowValidateInput) (*mcpsdk.CallToolResult, workflowValidateOutput, error) {
	if input.Path == "" {
		return nil, workflowValidateOutput{}, fmt.Errorf("path is required")
	}
	reg := conversation.NewTypeRegistry()
	for _, name := range input.Directives {
		reg.Register(name, nil)
	}
	conv, err := conversation.ParseFile(input.Path, reg)
	if err != nil {
		return nil, workflowValidateOutput{Error: err.Error()}, nil
	}
	return nil, workflowValidateOutput{
		Valid:   true,
		Title:   conv.Title,
		Steps:   len(conv.Steps),
		Prompts: len(conv.Prompts),
		Pauses:  len(conv.PausePoints),
	}, nil
}

// -- workflow_run --

type workflowRunInput struct {
	Path       string            `json:"path" jsonschema:"Workflow file path"`
	WorkDir    string            `json:"workDir,omitempty" jsonschema:"Working directory (default: current directory)"`
	Adapter    string            `json:"adapter,omitempty" jsonschema:"Adapter name (default: ADAPTER directive or mock)"`
	Model      string            `json:"model,omitempty" jsonschema:"Model to use"`
	Vars       map[string]string `json:"vars,omitempty" jsonschema:"Template variable bindings"`
	Directives []string          `json:"directives,omitempty" jsonschema:"Custom directive keywords to accept"`
}

type workflowRunOutput struct {
	Status     string            `json:"status"`
	Checkpoint string            `json:"checkpoint,omitempty"`
	FinalReply string            `json:"finalReply,omitempty"`
	Messages   []session.Message `json:"messages,omitempty"`
}

func workflowRunHandler(ctx context.Context, req *mcpsdk.CallToolRequest, input workflowRunInput) (*mcpsdk.CallToolResult, workflowRunOutput, error) {
	if input.Path == "" {
		return nil, workflowRunOutput{}, fmt.Errorf("path is required")
	}
	reg := conversation.NewTypeRegistry()
	for _, name := range input.Directives {
		reg.Register(name, nil)
	}
	conv, err := conversation.ParseFile(input.Path, reg)
	if err != nil {
		return nil, workflowRunOutput{}, err
	}
	if input.Model != "" {
		conv.Model = input.Model
	}
	if input.Adapter != "" {
		conv.Adapter = input.Adapter
	}

	workDir := input.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	backend, _ := adapter.Lookup(conv.Adapter)

	runner := &session.Runner{
		Adapter:   backend,
		Conv:      conv,
		Workspace: workDir,
		Vars:      input.Vars,
		Store:     session.DefaultStore(),
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return nil, workflowRunOutput{}, err
	}
	return nil, workflowRunOutput{
		Status:     res.Status.String(),
		Checkpoint: res.Checkpoint,
		FinalReply: res.FinalReply,
		Messages:   res.Messages,
	}, nil
}

// registerWorkflowTools registers workflow-related MCP tools.
func registerWorkflowTools(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "workflow_validate",
		Description: "Parse a workflow file and report its structure or syntax errors without executing it",
	}, workflowValidateHandler)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "workflow_run",
		Description: "Execute a workflow file, running all steps sequentially; pauses produce a resumable checkpoint",
	}, workflowRunHandler)
}
