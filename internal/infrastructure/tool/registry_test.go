package tool

import (
	"testing"

	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

func newTestSandbox(t *testing.T) *sandbox.ProcessSandbox {
	t.Helper()
	cfg := sandbox.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	cfg.TempDir = t.TempDir()
	sb, err := sandbox.NewProcessSandbox(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProcessSandbox: %v", err)
	}
	return sb
}

func TestRegisterAllTools_BuiltinsOnly(t *testing.T) {
	registry := domaintool.NewInMemoryRegistry()
	count := RegisterAllTools(RegistryDeps{
		Registry: registry,
		Logger:   zap.NewNop(),
		Sandbox:  newTestSandbox(t),
	})

	if count != 5 {
		t.Fatalf("expected 5 builtin tools registered, got %d", count)
	}
	if len(registry.List()) != 5 {
		t.Fatalf("expected registry to hold 5 tools, got %d", len(registry.List()))
	}
}

func TestRegisterAllTools_SkipsTaskToolWhenSubAgentNil(t *testing.T) {
	registry := domaintool.NewInMemoryRegistry()
	RegisterAllTools(RegistryDeps{
		Registry: registry,
		Logger:   zap.NewNop(),
		Sandbox:  newTestSandbox(t),
		SubAgent: nil,
	})

	if _, ok := registry.Get("task"); ok {
		t.Fatal("expected no \"task\" tool registered when SubAgent deps are nil")
	}
}

func TestRegisterAllTools_RegistersMCPManageToolWhenMCPSet(t *testing.T) {
	registry := domaintool.NewInMemoryRegistry()
	mgr := NewMCPManager(registry, zap.NewNop())

	count := RegisterAllTools(RegistryDeps{
		Registry: registry,
		Logger:   zap.NewNop(),
		Sandbox:  newTestSandbox(t),
		MCP:      mgr,
	})

	if count != 6 {
		t.Fatalf("expected 5 builtins + 1 mcp_manage tool, got %d", count)
	}
	if _, ok := registry.Get("mcp_manage"); !ok {
		t.Fatal("expected \"mcp_manage\" tool to be registered")
	}
}
