package worker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolCaller abstracts the MCP operations the dataeng worker performs.
// Results are opaque text; failures are reported, not retried.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// MCPToolCaller runs tools over a stdio MCP session to an external server
// process, typically a database tool server.
type MCPToolCaller struct {
	session *mcp.ClientSession
}

// ConnectMCP spawns the server command and performs the MCP handshake.
func ConnectMCP(ctx context.Context, command string, args ...string) (*MCPToolCaller, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "crewd", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: exec.Command(command, args...)}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting mcp server: %w", err)
	}
	return &MCPToolCaller{session: session}, nil
}

// CallTool invokes one tool and flattens its text content.
func (c *MCPToolCaller) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("calling tool %s: %w", name, err)
	}

	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	out := strings.Join(parts, "\n")

	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, out)
	}
	return out, nil
}

// Close tears down the session and the server process.
func (c *MCPToolCaller) Close() error {
	return c.session.Close()
}
