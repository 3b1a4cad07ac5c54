package tool

import (
	"context"
	"testing"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"go.uber.org/zap"
)

func newTestMCPManageTool() *MCPManageTool {
	registry := domaintool.NewInMemoryRegistry()
	manager := NewMCPManager(registry, zap.NewNop())
	return NewMCPManageTool(manager, zap.NewNop())
}

func TestMCPManageTool_ListEmpty(t *testing.T) {
	tool := newTestMCPManageTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"action": "list"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Output != "no mcp servers configured" {
		t.Fatalf("unexpected output: %q", result.Output)
	}
	if !result.Success {
		t.Fatal("expected Success true for an empty list")
	}
}

func TestMCPManageTool_AddRequiresNameAndCommand(t *testing.T) {
	tool := newTestMCPManageTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"action": "add", "name": "foo"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure when command is missing")
	}
}

func TestMCPManageTool_RemoveRequiresName(t *testing.T) {
	tool := newTestMCPManageTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"action": "remove"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Output != "'name' is required for remove" {
		t.Fatalf("unexpected output: %q", result.Output)
	}
}

func TestMCPManageTool_UnknownAction(t *testing.T) {
	tool := newTestMCPManageTool()
	result, err := tool.Execute(context.Background(), map[string]interface{}{"action": "bogus"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected an unknown action to not report success")
	}
}
