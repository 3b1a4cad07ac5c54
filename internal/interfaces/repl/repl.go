package repl

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jimi-run/jimi-core/internal/app"
	"github.com/jimi-run/jimi-core/internal/domain/approval"
	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"github.com/jimi-run/jimi-core/internal/domain/promptctx"
	"github.com/jimi-run/jimi-core/internal/domain/service"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	"go.uber.org/zap"
)

// replRoleDefinition is the persona handed to the Active-Prompt Builder for
// every top-level (depth 0) REPL turn.
const replRoleDefinition = "You are Jimi, an autonomous coding and operations agent with access to " +
	"shell, filesystem, search, and sub-agent delegation tools. Work step by step, use tools when " +
	"they help, and give a direct final answer."

// replPromptTokenBudget bounds the Active-Prompt Builder's output for a
// REPL turn's system prompt.
const replPromptTokenBudget = 4000

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// REPL drives the Engine's AgentLoop from an interactive terminal session,
// printing streamed Wire events and prompting for approval decisions inline.
type REPL struct {
	app          *app.App
	logger       *zap.Logger
	currentModel string
	userName     string
	history      []service.LLMMessage
	session      *session.Session
}

// Config configures the REPL's starting state.
type Config struct {
	DefaultModel string
	UserName     string
}

// New creates a REPL bound to an assembled App.
func New(a *app.App, logger *zap.Logger, cfg Config) *REPL {
	model := cfg.DefaultModel
	if model == "" {
		model = "default"
	}
	userName := cfg.UserName
	if userName == "" {
		userName = "user"
	}
	return &REPL{
		app:          a,
		logger:       logger,
		currentModel: model,
		userName:     userName,
		session:      session.New(a.Config.Agent.Workspace),
	}
}

// Run starts the read-eval-print loop until EOF, /exit, or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	r.printBanner()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("%s%s> %s", colorGreen, r.userName, colorReset)

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if handled, shouldExit := r.handleCommand(input); handled {
			if shouldExit {
				return nil
			}
			continue
		}

		if err := r.processMessage(ctx, input); err != nil {
			fmt.Printf("%sError: %v%s\n", colorYellow, err, colorReset)
			r.logger.Error("repl turn failed", zap.Error(err))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	fmt.Println("\nGoodbye!")
	return nil
}

// handleCommand processes built-in REPL commands. Returns (handled, shouldExit).
func (r *REPL) handleCommand(input string) (bool, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, false
	}

	switch strings.ToLower(parts[0]) {
	case "/exit", "/quit", "/q":
		fmt.Println("Goodbye!")
		return true, true

	case "/new":
		r.history = nil
		fmt.Printf("%s✓ New conversation started%s\n", colorCyan, colorReset)
		return true, false

	case "/model":
		if len(parts) > 1 {
			r.currentModel = parts[1]
			fmt.Printf("%s✓ Model switched to: %s%s\n", colorCyan, r.currentModel, colorReset)
		} else {
			fmt.Printf("%sCurrent model: %s%s\n", colorCyan, r.currentModel, colorReset)
		}
		return true, false

	case "/yolo":
		r.app.Arbiter.SetMode(approval.YOLO)
		fmt.Printf("%s✓ Approval mode: yolo (every tool call auto-allowed)%s\n", colorCyan, colorReset)
		return true, false

	case "/ask":
		r.app.Arbiter.SetMode(approval.Interactive)
		fmt.Printf("%s✓ Approval mode: interactive%s\n", colorCyan, colorReset)
		return true, false

	case "/status":
		fmt.Printf("%s── Status ──%s\n", colorCyan, colorReset)
		fmt.Printf("  Model:   %s\n", r.currentModel)
		fmt.Printf("  User:    %s\n", r.userName)
		fmt.Printf("  History: %d messages\n", len(r.history))
		fmt.Printf("  Session: %s (step %d)\n", r.session.ID, r.session.Step())
		return true, false

	case "/help":
		r.printHelp()
		return true, false

	default:
		return false, false
	}
}

// processMessage runs one turn of the AgentLoop, streaming its events to
// the terminal, and appends the exchange to the REPL's running history.
func (r *REPL) processMessage(ctx context.Context, input string) error {
	loop := r.app.NewAgentLoop()

	builder := promptctx.New(replRoleDefinition, input)
	systemPrompt := builder.Build(0, replPromptTokenBudget)

	r.session.NextStep()
	startTime := time.Now()
	result, eventCh := loop.Run(ctx, systemPrompt, input, r.history, r.currentModel)

	fmt.Printf("\n%s%s🤖 Assistant%s\n", colorBold, colorCyan, colorReset)
	for ev := range eventCh {
		r.printEvent(ev)
	}
	elapsed := time.Since(startTime)

	if result == nil {
		fmt.Printf("%s(no result)%s\n", colorGray, colorReset)
		return nil
	}

	r.history = append(r.history,
		service.LLMMessage{Role: "user", Content: input},
		service.LLMMessage{Role: "assistant", Content: result.FinalContent},
	)

	fmt.Printf("%s(%s | %d steps | %d tokens | %s)%s\n\n",
		colorGray, elapsed.Round(time.Millisecond), result.TotalSteps, result.TotalTokens, result.ModelUsed, colorReset)

	if r.app.Sessions != nil {
		if err := r.app.Sessions.Save(ctx, r.session); err != nil {
			r.logger.Warn("failed to persist session snapshot", zap.Error(err))
		}
	}
	return nil
}

func (r *REPL) printEvent(ev entity.AgentEvent) {
	switch ev.Type {
	case entity.EventTextDelta:
		fmt.Print(ev.Content)
	case entity.EventToolCall:
		if ev.ToolCall != nil {
			fmt.Printf("\n%s▸ %s%s\n", colorGray, ev.ToolCall.Name, colorReset)
		}
	case entity.EventToolResult:
		if ev.ToolCall != nil {
			display := ev.ToolCall.Display
			if display == "" {
				display = ev.ToolCall.Output
			}
			if display != "" {
				fmt.Printf("%s%s%s\n", colorGray, display, colorReset)
			}
		}
	case entity.EventApprovalRequired:
		if ev.Approval != nil {
			r.promptApproval(ev.Approval)
		}
	case entity.EventError:
		fmt.Printf("\n%s✗ %s%s\n", colorYellow, ev.Error, colorReset)
	case entity.EventCompactionBegin:
		fmt.Printf("%s(compacting context...)%s\n", colorGray, colorReset)
	}
}

func (r *REPL) promptApproval(ask *entity.ApprovalAsk) {
	fmt.Printf("\n%s── Approval requested ──%s\n", colorYellow, colorReset)
	fmt.Printf("  %s\n", ask.Action)
	if ask.Description != "" {
		fmt.Printf("  %s\n", ask.Description)
	}
	fmt.Printf("%s[y]es / [n]o / [a]lways for this kind: %s", colorYellow, colorReset)

	scanner := bufio.NewScanner(os.Stdin)
	decision := approval.Deny
	if scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			decision = approval.Allow
		case "a", "always":
			decision = approval.AllowAlways
		default:
			decision = approval.Deny
		}
	}
	if err := r.app.Arbiter.Decide(ask.ID, decision); err != nil {
		r.logger.Warn("failed to deliver approval decision", zap.Error(err))
	}
}

func (r *REPL) printBanner() {
	fmt.Printf("\n%s%s╔════════════════════════════════╗%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s║          Jimi REPL v0.1          ║%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%s%s╚════════════════════════════════╝%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%sModel: %s | Type /help for commands%s\n\n", colorGray, r.currentModel, colorReset)
}

func (r *REPL) printHelp() {
	fmt.Printf("\n%s── Commands ──%s\n", colorCyan, colorReset)
	fmt.Println("  /new          Start a new conversation")
	fmt.Println("  /model [name] Show or switch current model")
	fmt.Println("  /yolo         Auto-allow every tool call this session")
	fmt.Println("  /ask          Return to interactive approval")
	fmt.Println("  /status       Show current session status")
	fmt.Println("  /help         Show this help")
	fmt.Println("  /exit         Exit REPL")
	fmt.Println()
}
