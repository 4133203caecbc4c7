package mcpserver

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"convctl/internal/session"
)

// -- checkpoint_list --

type checkpointListInput struct{}

type checkpointSummary struct {
	Name         string `json:"name"`
	CreatedAt    string `json:"createdAt"`
	Status       string `json:"status"`
	StepIndex    int    `json:"stepIndex"`
	PauseMessage string `json:"pauseMessage,omitempty"`
	Source       string `json:"source,omitempty"`
}

type checkpointListOutput struct {
	Checkpoints []checkpointSummary `json:"checkpoints"`
}

func checkpointListHandler(ctx context.Context, req *mcpsdk.CallToolRequest, input checkpointListInput) (*mcpsdk.CallToolResult, checkpointListOutput, error) {
	cps, err := session.DefaultStore().List()
	if err != nil {
		return nil, checkpointListOutput{}, err
	}
	summaries := make([]checkpointSummary, 0, len(cps))
	for _, cp := range cps {
		summaries = append(summaries, checkpointSummary{
			Name:         cp.Name,
			CreatedAt:    cp.CreatedAt,
			Status:       cp.State.Status.String(),
			StepIndex:    cp.State.StepIndex,
			PauseMessage: cp.PauseMessage,
			Source:       cp.Source,
		})
	}
	return nil, checkpointListOutput{Checkpoints: summaries}, nil
}

// -- checkpoint_show --

type checkpointShowInput struct {
	Name string `json:"name" jsonschema:"Checkpoint name"`
}

type checkpointShowOutput struct {
	Checkpoint *session.Checkpoint `json:"checkpoint"`
}

func checkpointShowHandler(ctx context.Context, req *mcpsdk.CallToolRequest, input checkpointShowInput) (*mcpsdk.CallToolResult, checkpointShowOutput, error) {
	if input.Name == "" {
		return nil, checkpointShowOutput{}, fmt.Errorf("name is required")
	}
	cp, err := session.DefaultStore().Load(input.Name)
	if err != nil {
		return nil, checkpointShowOutput{}, err
	}
	return nil, checkpointShowOutput{Checkpoint: cp}, nil
}

// registerCheckpointTools registers checkpoint-related MCP tools.
func registerCheckpointTools(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "checkpoint_list",
		Description: "List saved workflow checkpoints with their status and resume position",
	}, checkpointListHandler)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "checkpoint_show",
		Description: "Get one checkpoint in full, including the embedded workflow and message history",
	}, checkpointShowHandler)
}
