package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Kind classifies a tool's operation, driving automatic approval policy.
type Kind string

const (
	KindRead        Kind = "read"        // read-only operations (read_file, list_dir...)
	KindEdit        Kind = "edit"        // file mutation (write_file, patch...)
	KindExecute     Kind = "execute"     // command execution (shell, run...)
	KindDelete      Kind = "delete"      // deletion
	KindSearch      Kind = "search"      // search (web_search, grep...)
	KindFetch       Kind = "fetch"       // network fetch (fetch_url...)
	KindThink       Kind = "think"       // pure thinking (save_memory, plan...)
	KindCommunicate Kind = "communicate" // interaction (ask_user, notify...)
)

// MutatorKinds require operator confirmation in interactive approval mode.
var MutatorKinds = map[Kind]bool{
	KindEdit:    true,
	KindDelete:  true,
	KindExecute: true,
}

// SafeKinds are auto-allowed regardless of approval mode.
var SafeKinds = map[Kind]bool{
	KindRead:   true,
	KindSearch: true,
	KindThink:  true,
}

// Tool is the abstraction every executable tool implements.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string
	// Description returns the tool's description.
	Description() string
	// Kind returns the tool's operation kind (drives approval policy).
	Kind() Kind
	// Schema returns the JSON Schema for the tool's parameters.
	Schema() map[string]interface{}
	// Execute runs the tool.
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Result is a tool's execution result.
type Result struct {
	Output   string                 // compact result for the LLM
	Display  string                 // rich rendering for the UI (falls back to Output when empty)
	Success  bool                   // whether execution succeeded
	Metadata map[string]interface{} // extra metadata
	Error    string                 // error message, if any
}

// DisplayOrOutput returns Display if set, falling back to Output.
func (r *Result) DisplayOrOutput() string {
	if r.Display != "" {
		return r.Display
	}
	return r.Output
}

// Definition is a tool definition passed to the model.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Registry is the tool registry interface.
type Registry interface {
	// Register adds a tool.
	Register(tool Tool) error
	// Unregister removes a tool.
	Unregister(name string) error
	// Get looks up a tool by name.
	Get(name string) (Tool, bool)
	// List returns the definitions of every registered tool.
	List() []Definition
	// Has reports whether a tool is registered.
	Has(name string) bool
}

// InMemoryRegistry is an in-memory Registry.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewInMemoryRegistry creates an empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool.
func (r *InMemoryRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	return nil
}

// Unregister removes a tool.
func (r *InMemoryRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s not found", name)
	}

	delete(r.tools, name)
	return nil
}

// Get looks up a tool by name.
func (r *InMemoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List returns the definitions of every registered tool.
func (r *InMemoryRegistry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	return defs
}

// Has reports whether a tool is registered.
func (r *InMemoryRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// ExecutionContext identifies where a tool actually runs.
type ExecutionContext int

const (
	ExecContextGateway ExecutionContext = iota // runs directly in the engine process
	ExecContextSandbox                         // runs inside the process sandbox
	ExecContextRemote                          // runs on a remote node
)

// String returns the execution context's label.
func (c ExecutionContext) String() string {
	switch c {
	case ExecContextGateway:
		return "gateway"
	case ExecContextSandbox:
		return "sandbox"
	case ExecContextRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Executor runs a tool within a given execution context.
type Executor interface {
	// Execute runs the tool.
	Execute(ctx context.Context, tool Tool, args map[string]interface{}) (*Result, error)
	// SetContext sets the execution context.
	SetContext(execCtx ExecutionContext)
}

// Policy is a tool access policy.
type Policy struct {
	Profile     string   // named preset: minimal, coding, messaging, full
	AllowList   []string // allowed tool names
	DenyList    []string // denied tool names
	AskMode     bool     // whether execution requires operator confirmation
	MaxExecTime int      // max execution time, in seconds
}

// IsAllowed reports whether toolName is allowed by the policy.
func (p *Policy) IsAllowed(toolName string) bool {
	for _, denied := range p.DenyList {
		if denied == toolName {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}

	for _, allowed := range p.AllowList {
		if allowed == toolName {
			return true
		}
	}

	return false
}

// NeedsConfirmation reports whether kind requires operator confirmation
// under this policy's AskMode.
func (p *Policy) NeedsConfirmation(kind Kind) bool {
	if !p.AskMode {
		return false
	}
	if SafeKinds[kind] {
		return false
	}
	return MutatorKinds[kind]
}

// PolicyEnforcer applies a Policy against a Registry.
type PolicyEnforcer struct {
	policy   *Policy
	registry Registry
}

// NewPolicyEnforcer builds a PolicyEnforcer.
func NewPolicyEnforcer(policy *Policy, registry Registry) *PolicyEnforcer {
	return &PolicyEnforcer{
		policy:   policy,
		registry: registry,
	}
}

// FilteredList returns the registry's tool list filtered by policy.
func (e *PolicyEnforcer) FilteredList() []Definition {
	all := e.registry.List()
	filtered := make([]Definition, 0)

	for _, def := range all {
		if e.policy.IsAllowed(def.Name) {
			filtered = append(filtered, def)
		}
	}

	return filtered
}

// CanExecute reports whether toolName may execute under the policy.
func (e *PolicyEnforcer) CanExecute(toolName string) bool {
	return e.policy.IsAllowed(toolName)
}

// NeedsApproval reports whether the policy requires operator approval.
func (e *PolicyEnforcer) NeedsApproval() bool {
	return e.policy.AskMode
}

// MarshalJSON serializes a tool result.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"output":   r.Output,
		"display":  r.Display,
		"success":  r.Success,
		"metadata": r.Metadata,
		"error":    r.Error,
	})
}
