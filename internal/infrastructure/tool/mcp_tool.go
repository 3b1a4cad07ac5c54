package tool

import (
	"context"
	"fmt"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"go.uber.org/zap"
)

// MCPTool adapts one MCP-discovered tool to domaintool.Tool so it can sit
// in the same registry as builtin tools.
type MCPTool struct {
	adapter *MCPAdapter
	toolDef MCPToolDef
	logger  *zap.Logger
}

func NewMCPTool(adapter *MCPAdapter, def MCPToolDef, logger *zap.Logger) *MCPTool {
	return &MCPTool{adapter: adapter, toolDef: def, logger: logger}
}

var _ domaintool.Tool = (*MCPTool)(nil)

// Name prefixes with the server name to avoid collisions across servers.
func (t *MCPTool) Name() string { return fmt.Sprintf("%s_%s", t.adapter.Name(), t.toolDef.Name) }

func (t *MCPTool) Description() string {
	return fmt.Sprintf("[mcp:%s] %s", t.adapter.Name(), t.toolDef.Description)
}

func (t *MCPTool) Kind() domaintool.Kind { return domaintool.KindFetch }

func (t *MCPTool) Schema() map[string]interface{} {
	if t.toolDef.InputSchema != nil {
		return t.toolDef.InputSchema
	}
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *MCPTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	t.logger.Info("executing mcp tool", zap.String("server", t.adapter.Name()), zap.String("tool", t.toolDef.Name))

	output, err := t.adapter.CallTool(ctx, t.toolDef.Name, args)
	if err != nil {
		return &domaintool.Result{Output: err.Error(), Success: false, Error: err.Error()}, nil
	}
	return &domaintool.Result{Output: output, Success: true}, nil
}

// RegisterMCPTools discovers an MCP server's tools and registers each one.
func RegisterMCPTools(ctx context.Context, adapter *MCPAdapter, registry domaintool.Registry, logger *zap.Logger) (int, error) {
	defs, err := adapter.DiscoverTools(ctx)
	if err != nil {
		return 0, fmt.Errorf("mcp discovery failed for %s: %w", adapter.Name(), err)
	}

	registered := 0
	for _, def := range defs {
		mt := NewMCPTool(adapter, def, logger)
		if err := registry.Register(mt); err != nil {
			logger.Warn("failed to register mcp tool",
				zap.String("server", adapter.Name()), zap.String("tool", def.Name), zap.Error(err))
			continue
		}
		registered++
	}
	return registered, nil
}
