// Package mcpserver exposes workflow execution, validation, and
// checkpoint inspection as MCP tools over stdio.
package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunServer starts the MCP server over stdio transport.
func RunServer() error {
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "convctl",
			Version: "1.0.0",
		},
		nil,
	)

	registerWorkflowTools(server)
	registerCheckpointTools(server)
	registerVerifyTools(server)

	return server.Run(context.Background(), &mcpsdk.StdioTransport{})
}
