// Package app assembles the Engine: config, logger, Wire, Approval
// Arbiter, Hook Dispatcher, tool registry, and the LLM provider router into
// one long-lived object that the REPL and the HTTP/websocket interfaces
// both drive.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jimi-run/jimi-core/internal/domain/approval"
	"github.com/jimi-run/jimi-core/internal/domain/hookdispatch"
	"github.com/jimi-run/jimi-core/internal/domain/service"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/domain/wire"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
	"github.com/jimi-run/jimi-core/internal/infrastructure/llm"
	_ "github.com/jimi-run/jimi-core/internal/infrastructure/llm/openai"
	"github.com/jimi-run/jimi-core/internal/infrastructure/persistence"
	"github.com/jimi-run/jimi-core/internal/infrastructure/sandbox"
	infratool "github.com/jimi-run/jimi-core/internal/infrastructure/tool"
	"github.com/jimi-run/jimi-core/pkg/safego"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds every long-lived component the Engine needs, wired once at
// startup and shared across REPL turns and HTTP/websocket requests.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Wire     *wire.Wire
	Arbiter  *approval.Arbiter
	Hooks    *hookdispatch.Dispatcher
	Watcher  *hookdispatch.Watcher
	Registry domaintool.Registry
	Sandbox  *sandbox.ProcessSandbox
	MCP      *infratool.MCPManager
	LLM      service.LLMClient
	Tools    service.ToolExecutor
	Parents  *session.ParentStack
	DB       *gorm.DB
	Sessions *persistence.SessionRepository

	watcherStop chan struct{}
}

// New assembles an App from a loaded Config. It starts MCP servers and the
// hook file watcher as side effects; callers should defer Close.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	w := wire.New(logger, 256)

	mode := approval.Interactive
	if cfg.Agent.Security.ApprovalMode != "" {
		mode = approval.Mode(cfg.Agent.Security.ApprovalMode)
	}
	arbiter := approval.New(mode, w, logger)

	hooks := hookdispatch.New(logger)
	hookSpecs, err := hookdispatch.Load(nil, cfg.Agent.Hooks.ProjectDir)
	if err != nil {
		logger.Warn("failed to load hooks", zap.Error(err))
	}
	hooks.SetHooks(hookSpecs)

	var watcherStop chan struct{}
	watcher, err := hookdispatch.NewWatcher(hooks, nil, cfg.Agent.Hooks.ProjectDir, logger)
	if err != nil {
		logger.Warn("failed to start hook watcher", zap.Error(err))
	} else {
		watcherStop = make(chan struct{})
		safego.Go(logger, "hook-watcher", func() { watcher.Run(watcherStop) })
	}

	sb, err := infratool.NewSandboxFromConfig(cfg.Agent.Workspace, cfg.Agent.Runtime.ToolTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}

	registry := domaintool.NewInMemoryRegistry()
	mcpManager := infratool.NewMCPManagerFromConfig(cfg.Agent.MCP, registry, logger)

	parentStack := session.NewParentStack(cfg.Agent.Runtime.SubAgentMaxDepth)

	router := buildLLMRouter(cfg, logger)

	policy := toolPolicyFromConfig(cfg.Agent.Tools)
	toolExec := service.NewToolExecutorAdapter(registry, policy, logger)

	subAgentTimeout := cfg.Agent.Runtime.SubAgentTimeout
	if subAgentTimeout <= 0 {
		subAgentTimeout = 5 * time.Minute
	}
	infratool.RegisterAllTools(infratool.RegistryDeps{
		Registry: registry,
		Logger:   logger,
		Sandbox:  sb,
		MCP:      mcpManager,
		SubAgent: &infratool.SubAgentDeps{
			LLM:          router,
			Tools:        toolExec,
			DefaultModel: cfg.Agent.DefaultModel,
			MaxSteps:     cfg.Agent.Runtime.SubAgentMaxSteps,
			Timeout:      subAgentTimeout,
			Parents:      parentStack,
		},
	})

	db, err := persistence.NewDBConnection(cfg.Storage)
	if err != nil {
		logger.Warn("session persistence unavailable", zap.Error(err))
	}
	var sessions *persistence.SessionRepository
	if db != nil {
		sessions = persistence.NewSessionRepository(db)
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Wire:        w,
		Arbiter:     arbiter,
		Hooks:       hooks,
		Watcher:     watcher,
		Registry:    registry,
		Sandbox:     sb,
		MCP:         mcpManager,
		LLM:         router,
		Tools:       toolExec,
		Parents:     parentStack,
		DB:          db,
		Sessions:    sessions,
		watcherStop: watcherStop,
	}, nil
}

// buildLLMRouter wires every configured provider into a Router, in config
// order (the Router tries each in order, so earlier entries act as the
// primary and later ones as fallback).
func buildLLMRouter(cfg *config.Config, logger *zap.Logger) *llm.Router {
	router := llm.NewRouter(logger)
	for _, p := range cfg.Agent.Providers {
		provider, err := llm.CreateProvider(llm.ProviderConfig{
			Name:    p.Name,
			Type:    "openai",
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Models:  p.Models,
		}, logger)
		if err != nil {
			logger.Error("failed to create LLM provider", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		router.AddProvider(provider)
	}
	return router
}

func toolPolicyFromConfig(cfg config.ToolsConfig) *domaintool.Policy {
	policy := &domaintool.Policy{Profile: "full"}
	for _, reg := range cfg.Registry {
		if !reg.Enabled {
			policy.DenyList = append(policy.DenyList, reg.Name)
		}
	}
	return policy
}

// NewAgentLoop builds a fresh AgentLoop wired to the app's Wire, Arbiter,
// and Hook Dispatcher, applying the runtime and guardrail overrides from
// the app's config on top of DefaultAgentLoopConfig.
func (a *App) NewAgentLoop() *service.AgentLoop {
	rt := a.Config.Agent.Runtime
	loopCfg := service.DefaultAgentLoopConfig()
	loopCfg.Model = a.Config.Agent.DefaultModel
	if rt.MaxSteps > 0 {
		loopCfg.MaxSteps = rt.MaxSteps
	}
	if rt.MaxTokenBudget > 0 {
		loopCfg.MaxTokenBudget = rt.MaxTokenBudget
	}
	if rt.ToolTimeout > 0 {
		loopCfg.ToolTimeout = rt.ToolTimeout
	}
	if rt.MaxRetries > 0 {
		loopCfg.MaxRetries = rt.MaxRetries
	}
	if rt.RetryBaseWait > 0 {
		loopCfg.RetryBaseWait = rt.RetryBaseWait
	}
	loopCfg.MaxParallelTools = boolToParallelism(rt.ConcurrentTools)

	gr := a.Config.Agent.Guardrails
	if gr.ContextMaxTokens > 0 {
		loopCfg.ContextMaxTokens = gr.ContextMaxTokens
	}
	if gr.ContextWarnRatio > 0 {
		loopCfg.ContextWarnRatio = gr.ContextWarnRatio
	}
	if gr.ContextHardRatio > 0 {
		loopCfg.ContextHardRatio = gr.ContextHardRatio
	}
	if gr.LoopDetectWindow > 0 {
		loopCfg.LoopWindowSize = gr.LoopDetectWindow
	}
	if gr.LoopDetectThreshold > 0 {
		loopCfg.LoopDetectThreshold = gr.LoopDetectThreshold
	}
	if gr.LoopNameThreshold > 0 {
		loopCfg.LoopNameThreshold = gr.LoopNameThreshold
	}

	loop := service.NewAgentLoop(a.LLM, a.Tools, loopCfg, a.Logger.Named("agent-loop"))
	loop.SetWire(a.Wire)
	loop.SetArbiter(a.Arbiter)
	loop.SetHookDispatcher(a.Hooks)
	return loop
}

func boolToParallelism(concurrent bool) int {
	if concurrent {
		return 4
	}
	return 1
}

// Close stops the hook watcher, every MCP server process, and the
// storage connection.
func (a *App) Close(ctx context.Context) error {
	if a.watcherStop != nil {
		close(a.watcherStop)
	}
	for _, s := range a.MCP.ListServers() {
		_ = a.MCP.RemoveServer(s.Name)
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return nil
}
