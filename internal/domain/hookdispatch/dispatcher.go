// Package hookdispatch implements the declarative Hook Dispatcher (C4):
// user-configured hooks fire around lifecycle events, matched by glob
// file patterns, ordered by priority, and executed as a shell script, a
// directly exec'd command, or a composite of steps that stops at the first
// failing step unless that step sets continue_on_failure.
package hookdispatch

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind enumerates the points in the Engine's lifecycle a hook can
// bind to.
type EventKind string

const (
	PreUserInput   EventKind = "pre_user_input"
	PostUserInput  EventKind = "post_user_input"
	PreToolCall    EventKind = "pre_tool_call"
	PostToolCall   EventKind = "post_tool_call"
	PreAgentSwitch EventKind = "pre_agent_switch"
	PostAgentSwitch EventKind = "post_agent_switch"
	OnError        EventKind = "on_error"
	OnSessionStart EventKind = "on_session_start"
	OnSessionEnd   EventKind = "on_session_end"
)

// ExecType selects how a HookSpec runs.
type ExecType string

const (
	ExecScript    ExecType = "script"
	ExecCommand   ExecType = "command"
	ExecComposite ExecType = "composite"
)

// HookSpec is one configured hook, as loaded from YAML. The trigger
// predicate is the conjunction of every non-empty field below: Tools,
// FilePatterns, AgentName, and ErrorPattern each independently gate the
// hook, and all of the ones that are set must pass for it to fire.
type HookSpec struct {
	Name     string    `yaml:"name" mapstructure:"name"`
	Event    EventKind `yaml:"event" mapstructure:"event"`
	Priority int       `yaml:"priority" mapstructure:"priority"`

	// Tools restricts the hook to these tool names; empty matches any tool.
	Tools []string `yaml:"tools" mapstructure:"tools"`
	// FilePatterns restricts the hook to firing only when at least one glob
	// here matches at least one of Context.ModifiedFiles; empty matches any.
	FilePatterns []string `yaml:"file_patterns" mapstructure:"file_patterns"`
	// AgentName restricts the hook to a specific sub-agent name; empty matches any.
	AgentName string `yaml:"agent_name" mapstructure:"agent_name"`
	// ErrorPattern is a regex matched against Context.Error's message; empty matches any.
	ErrorPattern string `yaml:"error_pattern" mapstructure:"error_pattern"`

	Type              ExecType      `yaml:"type" mapstructure:"type"`
	Script            string        `yaml:"script" mapstructure:"script"`
	Command           []string      `yaml:"command" mapstructure:"command"`
	Steps             []HookSpec    `yaml:"steps" mapstructure:"steps"` // for ExecComposite
	ContinueOnFailure bool          `yaml:"continue_on_failure" mapstructure:"continue_on_failure"`
	Mandatory         bool          `yaml:"mandatory" mapstructure:"mandatory"` // failure stops the event's remaining hooks; on pre_tool_call it rejects the tool call
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Source            string        `yaml:"-" mapstructure:"-"` // which scope this was loaded from, for override bookkeeping
}

// Context is passed to every matched hook.
type Context struct {
	Event         EventKind
	ToolName      string
	ModifiedFiles []string // paths affected by the tool call, matched against FilePatterns
	AgentName     string   // the sub-agent in scope, matched against AgentName
	Args          map[string]any
	Error         error
	SessionID     string
}

// Dispatcher holds the loaded hook set and fires matched hooks in
// priority-descending, stable order.
type Dispatcher struct {
	mu     sync.RWMutex
	hooks  map[EventKind][]HookSpec
	logger *zap.Logger
}

// New creates an empty Dispatcher; call Load or SetHooks to populate it.
func New(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		hooks:  make(map[EventKind][]HookSpec),
		logger: logger,
	}
}

// SetHooks replaces the full hook set, grouping by event and sorting
// each group by descending priority (stable, so equal-priority hooks
// keep load order).
func (d *Dispatcher) SetHooks(specs []HookSpec) {
	grouped := make(map[EventKind][]HookSpec)
	for _, s := range specs {
		grouped[s.Event] = append(grouped[s.Event], s)
	}
	for ev := range grouped {
		g := grouped[ev]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Priority > g[j].Priority })
		grouped[ev] = g
	}

	d.mu.Lock()
	d.hooks = grouped
	d.mu.Unlock()
}

// Fire runs every hook registered for ctx.Event whose trigger predicate
// matches hc: each of Tools, FilePatterns, AgentName, and ErrorPattern
// that is non-empty on the spec must independently match, and all of
// them are AND-combined — a hook with both `tools` and `file_patterns`
// set only fires when the call is both one of those tools AND touches a
// matching file. A non-mandatory failure is logged and execution
// continues to the next hook; a mandatory failure stops the chain and
// is returned.
func (d *Dispatcher) Fire(ctx context.Context, hc Context) error {
	d.mu.RLock()
	specs := append([]HookSpec(nil), d.hooks[hc.Event]...)
	d.mu.RUnlock()

	for _, spec := range specs {
		matched, matchedFiles, err := matchSpec(spec, hc)
		if err != nil {
			if d.logger != nil {
				d.logger.Warn("hook predicate error",
					zap.String("hook", spec.Name),
					zap.Error(err),
				)
			}
			continue
		}
		if !matched {
			continue
		}

		if err := d.run(ctx, spec, matchedFiles); err != nil {
			if d.logger != nil {
				d.logger.Warn("hook failed",
					zap.String("hook", spec.Name),
					zap.String("event", string(spec.Event)),
					zap.Error(err),
				)
			}
			if spec.Mandatory {
				return err
			}
		}
	}
	return nil
}

// matchSpec evaluates spec's trigger predicate against hc, AND-combining
// every field spec sets. It returns the subset of hc.ModifiedFiles that
// matched spec.FilePatterns (all of hc.ModifiedFiles when FilePatterns is
// empty), for JIMI_MODIFIED_FILES env injection in run.
func matchSpec(spec HookSpec, hc Context) (bool, []string, error) {
	if len(spec.Tools) > 0 && !containsString(spec.Tools, hc.ToolName) {
		return false, nil, nil
	}

	matchedFiles := hc.ModifiedFiles
	if len(spec.FilePatterns) > 0 {
		matchedFiles = nil
		for _, file := range hc.ModifiedFiles {
			for _, pattern := range spec.FilePatterns {
				ok, err := MatchGlob(pattern, file)
				if err != nil {
					return false, nil, err
				}
				if ok {
					matchedFiles = append(matchedFiles, file)
					break
				}
			}
		}
		if len(matchedFiles) == 0 {
			return false, nil, nil
		}
	}

	if spec.AgentName != "" && spec.AgentName != hc.AgentName {
		return false, nil, nil
	}

	if spec.ErrorPattern != "" {
		if hc.Error == nil {
			return false, nil, nil
		}
		re, err := regexp.Compile(spec.ErrorPattern)
		if err != nil {
			return false, nil, err
		}
		if !re.MatchString(hc.Error.Error()) {
			return false, nil, nil
		}
	}

	return true, matchedFiles, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (d *Dispatcher) run(ctx context.Context, spec HookSpec, matchedFiles []string) error {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	env := append(os.Environ(), "JIMI_MODIFIED_FILES="+strings.Join(matchedFiles, " "))

	switch spec.Type {
	case ExecComposite:
		for _, step := range spec.Steps {
			if err := d.run(runCtx, step, matchedFiles); err != nil {
				if !step.ContinueOnFailure {
					return err
				}
			}
		}
		return nil
	case ExecCommand:
		if len(spec.Command) == 0 {
			return nil
		}
		cmd := exec.CommandContext(runCtx, spec.Command[0], spec.Command[1:]...)
		cmd.Env = env
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		return cmd.Run()
	case ExecScript:
		cmd := exec.CommandContext(runCtx, "sh", "-c", spec.Script)
		cmd.Env = env
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		return cmd.Run()
	default:
		return nil
	}
}
