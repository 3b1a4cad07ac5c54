package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jimi-run/jimi-core/internal/domain/promptctx"
	"github.com/jimi-run/jimi-core/internal/domain/service"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"go.uber.org/zap"
)

// subAgentPromptTokenBudget bounds the Active-Prompt Builder's output for a
// sub-agent's system prompt, estimated via promptctx's chars/4 heuristic.
const subAgentPromptTokenBudget = 2000

// TaskTool delegates a sub-task to a freshly spawned Engine instance,
// running synchronously to completion and returning its final content.
// This is the only sub-agent mode in the repository: there is no
// asynchronous launch that returns a task handle, and the sub-agent's
// events are consumed here rather than published to the Wire.
type TaskTool struct {
	llm             service.LLMClient
	tools           service.ToolExecutor
	defaultModel    string
	defaultMaxSteps int
	timeout         time.Duration
	parents         *session.ParentStack
	logger          *zap.Logger
}

func NewTaskTool(llm service.LLMClient, tools service.ToolExecutor, defaultModel string, maxSteps int, timeout time.Duration, parents *session.ParentStack, logger *zap.Logger) *TaskTool {
	if maxSteps <= 0 {
		maxSteps = 40
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &TaskTool{
		llm:             llm,
		tools:           tools,
		defaultModel:    defaultModel,
		defaultMaxSteps: maxSteps,
		timeout:         timeout,
		parents:         parents,
		logger:          logger,
	}
}

func (t *TaskTool) Name() string          { return "task" }
func (t *TaskTool) Kind() domaintool.Kind { return domaintool.KindExecute }

func (t *TaskTool) Description() string {
	return "Delegate a sub-task to an independent agent with the same tools, running to completion " +
		"and returning its final answer. Use this for focused, self-contained work that benefits " +
		"from its own reasoning loop (codebase audits, multi-step research, isolated procedures)."
}

func (t *TaskTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "A clear, self-contained description of the sub-task",
			},
			"system_prompt": map[string]interface{}{
				"type":        "string",
				"description": "Optional system prompt giving the sub-agent a specific role",
			},
			"max_steps": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Step budget for the sub-agent (default %d)", t.defaultMaxSteps),
			},
			"agent_name": map[string]interface{}{
				"type":        "string",
				"description": "Optional role name for this sub-agent, used by agent_name-scoped hooks",
			},
		},
		"required": []string{"task"},
	}
}

func (t *TaskTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	task, ok := args["task"].(string)
	if !ok || task == "" {
		return &domaintool.Result{Success: false, Error: "task is required"}, nil
	}

	pc, err := t.parents.Push("", "", task)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error()}, nil
	}
	defer t.parents.Pop()

	roleDefinition, _ := args["system_prompt"].(string)
	if roleDefinition == "" {
		roleDefinition = "You are a focused sub-agent. Complete the assigned task and report back a concise, self-contained result."
	}
	builder := promptctx.New(roleDefinition, task)
	systemPrompt := builder.Build(pc.Depth, subAgentPromptTokenBudget)

	maxSteps := t.defaultMaxSteps
	if ms, ok := args["max_steps"].(float64); ok && ms > 0 {
		maxSteps = int(ms)
		if cap := t.defaultMaxSteps * 2; maxSteps > cap {
			maxSteps = cap
		}
	}

	t.logger.Info("spawning sub-agent",
		zap.String("task_preview", truncateStr(task, 100)),
		zap.Int("max_steps", maxSteps),
		zap.Int("depth", pc.Depth),
	)

	agentName, _ := args["agent_name"].(string)

	cfg := service.AgentLoopConfig{
		DoomLoopThreshold: 3,
		MaxOutputChars:    32000,
		Temperature:       0.7,
		Model:             t.defaultModel,
		MaxSteps:          maxSteps,
		AgentName:         agentName,
	}

	subAgent := service.NewAgentLoop(t.llm, t.tools, cfg, t.logger.Named("sub-agent"))

	subCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, eventCh := subAgent.Run(subCtx, systemPrompt, task, nil, "")

	var toolsUsed []string
	for ev := range eventCh {
		if ev.ToolCall != nil {
			toolsUsed = append(toolsUsed, ev.ToolCall.Name)
		}
	}

	t.logger.Info("sub-agent completed",
		zap.Int("steps", result.TotalSteps),
		zap.Int("tokens", result.TotalTokens),
		zap.String("model", result.ModelUsed),
	)

	var sb strings.Builder
	sb.WriteString(result.FinalContent)
	sb.WriteString("\n\n--- sub-agent summary ---\n")
	fmt.Fprintf(&sb, "steps: %d | tokens: %d | model: %s\n", result.TotalSteps, result.TotalTokens, result.ModelUsed)
	if len(toolsUsed) > 0 {
		sb.WriteString("tools used: " + strings.Join(uniqueStrings(toolsUsed), ", ") + "\n")
	}

	return &domaintool.Result{
		Output:  sb.String(),
		Success: true,
		Metadata: map[string]interface{}{
			"steps":      result.TotalSteps,
			"tokens":     result.TotalTokens,
			"model":      result.ModelUsed,
			"tools_used": toolsUsed,
		},
	}, nil
}

func uniqueStrings(ss []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
