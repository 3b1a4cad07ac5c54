// Package promptctx implements the Active-Prompt Builder (C5): it
// assembles the system prompt handed to the LLM each step, adapting its
// shape to the Runtime's depth so that nested sub-agents get a compact
// role slice instead of the full top-level prompt.
package promptctx

import (
	"fmt"
	"strings"
)

const (
	// roleSlicePrefixChars bounds how much of a role definition survives
	// at depth > 0 — enough to convey persona and constraints, not the
	// worked examples that belong to the top-level conversation only.
	roleSlicePrefixChars = 500

	// defaultInsightWindow is how many of the most recent key insights
	// stay in the rolling window before the oldest is evicted.
	defaultInsightWindow = 10

	elisionMarker = "\n…[truncated]…\n"
)

// Builder assembles the active prompt for one step.
type Builder struct {
	// RoleDefinition is the full persona/system text configured for the
	// running AgentSpec.
	RoleDefinition string
	// HighLevelIntent is the verbatim task heading carried unchanged at
	// every depth — it is what keeps a sub-agent's output relevant to
	// the user's original ask.
	HighLevelIntent string
	// InsightWindow bounds how many recent key insights are retained;
	// 0 uses defaultInsightWindow.
	InsightWindow int

	insights []string
}

// New creates a Builder for one AgentSpec invocation.
func New(roleDefinition, highLevelIntent string) *Builder {
	return &Builder{RoleDefinition: roleDefinition, HighLevelIntent: highLevelIntent}
}

// AddInsight records a new key insight, evicting the oldest once the
// window is full.
func (b *Builder) AddInsight(s string) {
	window := b.InsightWindow
	if window <= 0 {
		window = defaultInsightWindow
	}
	b.insights = append(b.insights, s)
	if len(b.insights) > window {
		b.insights = b.insights[len(b.insights)-window:]
	}
}

// Build assembles the prompt for a Runtime at the given depth and token
// budget (in tokens, estimated from character count via EstimateTokens).
// A maxTokens of 0 disables truncation. At depth 0 the
// full role definition and any examples are included; at depth > 0 the
// role definition is sliced to roleSlicePrefixChars and examples are
// omitted entirely, since a sub-agent needs persona and constraints, not
// the parent's worked examples.
func (b *Builder) Build(depth int, maxTokens int) string {
	var sb strings.Builder

	sb.WriteString("# Task\n")
	sb.WriteString(b.HighLevelIntent)
	sb.WriteString("\n\n# Role\n")

	role := b.RoleDefinition
	if depth > 0 {
		role = sliceRole(role)
		sb.WriteString(role)
		sb.WriteString("\n\n(examples omitted at depth > 0)\n")
	} else {
		sb.WriteString(role)
		sb.WriteString("\n")
	}

	if len(b.insights) > 0 {
		sb.WriteString("\n# Key Insights\n")
		for _, ins := range b.insights {
			sb.WriteString("- ")
			sb.WriteString(ins)
			sb.WriteString("\n")
		}
	}

	out := sb.String()
	if maxTokens > 0 && EstimateTokens(out) > maxTokens {
		out = truncateToBudget(out, b.HighLevelIntent, maxTokens)
	}
	return out
}

// sliceRole returns at most the first roleSlicePrefixChars runes of role.
func sliceRole(role string) string {
	r := []rune(role)
	if len(r) <= roleSlicePrefixChars {
		return role
	}
	return string(r[:roleSlicePrefixChars])
}

// EstimateTokens is the Active-Prompt Builder's own token heuristic,
// deliberately distinct from ContextGuard.estimateTokens and
// context.SimpleTokenizer — each serves a different component and a
// shared estimate would blur their independent budgets.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	return (n + 3) / 4
}

// truncateToBudget keeps the intent header intact always, then
// proportionally truncates the remainder: roughly the first third and
// the last two thirds of what's left survive, joined by an elision
// marker, until the whole thing fits maxTokens.
func truncateToBudget(full, intent string, maxTokens int) string {
	budgetChars := maxTokens * 4
	intentBlock := fmt.Sprintf("# Task\n%s\n\n", intent)
	if len([]rune(intentBlock)) >= budgetChars {
		return intentBlock
	}
	remaining := budgetChars - len([]rune(intentBlock))

	rest := strings.TrimPrefix(full, intentBlock)
	r := []rune(rest)
	if len(r) <= remaining {
		return full
	}

	head := remaining / 3
	tail := remaining - head - len([]rune(elisionMarker))
	if tail < 0 {
		tail = 0
	}
	return intentBlock + string(r[:head]) + elisionMarker + string(r[len(r)-tail:])
}
