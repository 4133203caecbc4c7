package mcpserver

import (
	"context"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"convctl/internal/verify"
)

// -- verify_workspace --

type verifyInput struct {
	Verifier  string `json:"verifier" jsonschema:"Verifier name (refs, links, terminology, traceability, assertions)"`
	Workspace string `json:"workspace,omitempty" jsonschema:"Workspace directory (default: current directory)"`
}

type verifyOutput struct {
	Result *verify.Result `json:"result"`
}

func verifyHandler(ctx context.Context, req *mcpsdk.CallToolRequest, input verifyInput) (*mcpsdk.CallToolResult, verifyOutput, error) {
	if input.Verifier == "" {
		return nil, verifyOutput{}, fmt.Errorf("verifier is required")
	}
	workspace := input.Workspace
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	res, err := verify.Run(input.Verifier, workspace)
	if err != nil {
		return nil, verifyOutput{}, err
	}
	return nil, verifyOutput{Result: res}, nil
}

// registerVerifyTools registers the workspace verification tool.
func registerVerifyTools(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "verify_workspace",
		Description: "Run a workspace verifier and return its structured report",
	}, verifyHandler)
}
