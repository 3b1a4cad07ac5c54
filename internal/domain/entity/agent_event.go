package entity

import "time"

// AgentEventType enumerates every message kind the Wire can carry. The set
// is closed: consumers switch on Type and every other field is nil/zero
// unless that branch documents otherwise.
type AgentEventType string

const (
	EventTextDelta       AgentEventType = "text_delta"
	EventToolCall        AgentEventType = "tool_call"
	EventToolResult      AgentEventType = "tool_result"
	EventThinking        AgentEventType = "thinking"
	EventStepDone        AgentEventType = "step_done"
	EventDone            AgentEventType = "done"
	EventError           AgentEventType = "error"
	EventStepBegin       AgentEventType = "step_begin"
	EventStepInterrupted AgentEventType = "step_interrupted"
	EventStatusUpdate    AgentEventType = "status_update"
	EventCompactionBegin AgentEventType = "compaction_begin"
	EventCompactionEnd   AgentEventType = "compaction_end"
	EventTodoUpdate      AgentEventType = "todo_update"
	EventApprovalRequired AgentEventType = "approval_required"
)

// AgentEvent is the WireMessage: a single broadcast unit on the Wire (C1).
// Every run resets the Wire and re-uses this same tagged union; depth-tagged
// messages from a sub-agent carry Depth > 0 so a subscriber can indent or
// filter them.
type AgentEvent struct {
	Type      AgentEventType `json:"type"`
	Content   string         `json:"content,omitempty"`
	ToolCall  *ToolCallEvent `json:"tool_call,omitempty"`
	StepInfo  *StepInfo      `json:"step_info,omitempty"`
	Error     string         `json:"error,omitempty"`
	Depth     int            `json:"depth,omitempty"`
	Status    map[string]any `json:"status,omitempty"`
	Todo      *TodoUpdate    `json:"todo,omitempty"`
	Approval  *ApprovalAsk   `json:"approval,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ToolCallEvent describes a tool invocation within the agent loop.
type ToolCallEvent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Output    string         `json:"output,omitempty"`
	Display   string         `json:"display,omitempty"`
	Success   bool           `json:"success"`
	Rejected  bool           `json:"rejected,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// StepInfo provides metadata about the current agent step.
type StepInfo struct {
	Step       int    `json:"step"`
	TokensUsed int    `json:"tokens_used"`
	ModelUsed  string `json:"model_used"`
	State      string `json:"state,omitempty"`
}

// ToolCallInfo represents a tool call parsed from an LLM response.
type ToolCallInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TodoUpdate carries the full todo list plus a small stats summary,
// published whenever the Session's todo list changes (C7).
type TodoUpdate struct {
	Items []TodoItem     `json:"items"`
	Stats map[string]int `json:"stats"`
}

// TodoItem is a single tracked unit of work within a Session.
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"` // pending | in_progress | completed
	ActiveForm string `json:"active_form,omitempty"`
}

// ApprovalAsk is published on the Wire when the Approval Arbiter (C3)
// needs a human decision before a mutating tool call proceeds.
type ApprovalAsk struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	Description string `json:"description"`
}
