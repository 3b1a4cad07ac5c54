package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"go.uber.org/zap"
)

// MCPManageTool lets the agent manage MCP stdio servers at runtime: add,
// remove, list, refresh — without a process restart.
type MCPManageTool struct {
	manager *MCPManager
	logger  *zap.Logger
}

func NewMCPManageTool(manager *MCPManager, logger *zap.Logger) *MCPManageTool {
	return &MCPManageTool{manager: manager, logger: logger}
}

var _ domaintool.Tool = (*MCPManageTool)(nil)

func (t *MCPManageTool) Name() string          { return "mcp_manage" }
func (t *MCPManageTool) Kind() domaintool.Kind { return domaintool.KindFetch }

func (t *MCPManageTool) Description() string {
	return "Manage MCP (Model Context Protocol) stdio servers. " +
		"Actions: add, remove, list, refresh. Hot-added servers persist to ~/.jimi/mcp.json."
}

func (t *MCPManageTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"add", "remove", "list", "refresh"},
				"description": "The action to perform",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "MCP server name (required for add/remove/refresh)",
			},
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command that starts the server (required for add, e.g. 'npx -y some-mcp-server')",
			},
		},
		"required": []string{"action"},
	}
}

func (t *MCPManageTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	action, _ := args["action"].(string)
	name, _ := args["name"].(string)
	command, _ := args["command"].(string)

	switch strings.ToLower(action) {
	case "add":
		return t.executeAdd(name, command)
	case "remove":
		return t.executeRemove(name)
	case "list":
		return t.executeList()
	case "refresh":
		return t.executeRefresh(name)
	default:
		return &domaintool.Result{
			Output: fmt.Sprintf("unknown action %q. valid: add, remove, list, refresh", action),
		}, nil
	}
}

func (t *MCPManageTool) executeAdd(name, command string) (*domaintool.Result, error) {
	if name == "" || command == "" {
		return &domaintool.Result{Output: "both 'name' and 'command' are required for add"}, nil
	}
	if err := t.manager.AddServer(name, strings.Fields(command)); err != nil {
		return &domaintool.Result{Output: fmt.Sprintf("failed to add %q: %s", name, err), Error: err.Error()}, nil
	}

	var toolCount int
	for _, s := range t.manager.ListServers() {
		if s.Name == name {
			toolCount = s.ToolCount
			break
		}
	}
	return &domaintool.Result{
		Output: fmt.Sprintf("mcp server %q added. tools discovered: %d. saved to ~/.jimi/mcp.json", name, toolCount),
		Success: true,
	}, nil
}

func (t *MCPManageTool) executeRemove(name string) (*domaintool.Result, error) {
	if name == "" {
		return &domaintool.Result{Output: "'name' is required for remove"}, nil
	}
	if err := t.manager.RemoveServer(name); err != nil {
		return &domaintool.Result{Output: fmt.Sprintf("failed to remove %q: %s", name, err), Error: err.Error()}, nil
	}
	return &domaintool.Result{Output: fmt.Sprintf("mcp server %q removed", name), Success: true}, nil
}

func (t *MCPManageTool) executeList() (*domaintool.Result, error) {
	servers := t.manager.ListServers()
	if len(servers) == 0 {
		return &domaintool.Result{Output: "no mcp servers configured", Success: true}, nil
	}
	data, _ := json.MarshalIndent(servers, "", "  ")
	return &domaintool.Result{Output: string(data), Success: true}, nil
}

func (t *MCPManageTool) executeRefresh(name string) (*domaintool.Result, error) {
	if name == "" {
		return &domaintool.Result{Output: "'name' is required for refresh"}, nil
	}
	if err := t.manager.RefreshServer(name); err != nil {
		return &domaintool.Result{Output: fmt.Sprintf("failed to refresh %q: %s", name, err), Error: err.Error()}, nil
	}
	return &domaintool.Result{Output: fmt.Sprintf("mcp server %q refreshed", name), Success: true}, nil
}
