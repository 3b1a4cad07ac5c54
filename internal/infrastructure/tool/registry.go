package tool

import (
	"time"

	"github.com/jimi-run/jimi-core/internal/domain/service"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
	"github.com/jimi-run/jimi-core/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// RegistryDeps bundles everything RegisterAllTools needs to assemble a
// fully-populated tool registry: the builtin set, the sub-agent dispatcher,
// and the MCP bridge.
type RegistryDeps struct {
	Registry domaintool.Registry
	Logger   *zap.Logger
	Sandbox  *sandbox.ProcessSandbox

	MCP *MCPManager

	// SubAgent wires the synchronous half of the Sub-Agent Dispatcher (C9).
	// Nil skips registering the "task" tool (e.g. inside a sub-agent's own
	// registry, where recursion is already bounded by ParentStack.maxDepth).
	SubAgent *SubAgentDeps
}

// SubAgentDeps configures the "task" tool's freshly spawned Engine.
type SubAgentDeps struct {
	LLM          service.LLMClient
	Tools        service.ToolExecutor
	DefaultModel string
	MaxSteps     int
	Timeout      time.Duration
	Parents      *session.ParentStack
}

// RegisterAllTools wires the builtin tools, the sub-agent dispatcher, and
// any MCP-discovered tools into deps.Registry. Returns the count registered.
func RegisterAllTools(deps RegistryDeps) int {
	count := 0

	builtins := []domaintool.Tool{
		NewExecuteCommandTool(deps.Sandbox, deps.Logger),
		NewReadFileTool(deps.Sandbox, deps.Logger),
		NewWriteFileTool(deps.Sandbox, deps.Logger),
		NewListDirTool(deps.Sandbox, deps.Logger),
		NewSearchTool(deps.Sandbox, deps.Logger),
	}
	for _, t := range builtins {
		if err := deps.Registry.Register(t); err != nil {
			deps.Logger.Warn("failed to register builtin tool", zap.String("tool", t.Name()), zap.Error(err))
			continue
		}
		count++
	}

	if deps.SubAgent != nil {
		task := NewTaskTool(
			deps.SubAgent.LLM,
			deps.SubAgent.Tools,
			deps.SubAgent.DefaultModel,
			deps.SubAgent.MaxSteps,
			deps.SubAgent.Timeout,
			deps.SubAgent.Parents,
			deps.Logger,
		)
		if err := deps.Registry.Register(task); err != nil {
			deps.Logger.Warn("failed to register task tool", zap.Error(err))
		} else {
			count++
		}
	}

	if deps.MCP != nil {
		manageTool := NewMCPManageTool(deps.MCP, deps.Logger)
		if err := deps.Registry.Register(manageTool); err != nil {
			deps.Logger.Warn("failed to register mcp_manage tool", zap.Error(err))
		} else {
			count++
		}
	}

	deps.Logger.Info("tool registry assembled", zap.Int("count", count))
	return count
}

// NewSandboxFromConfig builds a ProcessSandbox rooted at the configured
// workspace, falling back to DefaultConfig's real-HOME root when unset.
func NewSandboxFromConfig(workspace string, timeout time.Duration, logger *zap.Logger) (*sandbox.ProcessSandbox, error) {
	cfg := sandbox.DefaultConfig()
	if workspace != "" {
		cfg.WorkDir = workspace
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return sandbox.NewProcessSandbox(cfg, logger)
}

// NewMCPManagerFromConfig builds an MCPManager and starts every enabled
// server from both config.yaml's static list and the ~/.jimi/mcp.json sidecar.
func NewMCPManagerFromConfig(mcpCfg config.MCPConfig, registry domaintool.Registry, logger *zap.Logger) *MCPManager {
	manager := NewMCPManager(registry, logger)
	manager.InitFromStatic(mcpCfg.Servers)
	manager.InitFromSidecar()
	return manager
}
