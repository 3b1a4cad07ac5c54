// Package approval implements the Approval Arbiter (C3): the gate that
// decides whether a mutating tool call may proceed, asking a human over
// the Wire when it cannot decide on its own.
package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/domain/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode controls how the Arbiter resolves a request without waiting on a
// human.
type Mode string

const (
	// Interactive asks the human for every action kind not already
	// cached as ALLOW_ALWAYS this session.
	Interactive Mode = "interactive"
	// YOLO allows everything without asking — used for unattended runs
	// that have already been scoped down by tool policy.
	YOLO Mode = "yolo"
	// ReadOnly denies every mutating action kind outright; safe kinds
	// are still allowed without asking.
	ReadOnly Mode = "read_only"
)

// Decision is the human (or policy) response to an approval request.
type Decision string

const (
	Allow       Decision = "allow"
	AllowAlways Decision = "allow_always_this_action"
	Deny        Decision = "deny"
)

// Arbiter gates mutating tool calls behind a decision from the operator.
// AllowAlways is cached by tool.Kind for the arbiter's lifetime (one
// session); Deny is never cached, so the same action kind can be asked
// again later.
type Arbiter struct {
	mode   Mode
	wire   *wire.Wire
	logger *zap.Logger

	mu      sync.Mutex
	cached  map[tool.Kind]bool
	pending map[string]chan Decision
}

// New creates an Arbiter in the given mode, publishing ApprovalRequired
// messages on w when it needs a human decision.
func New(mode Mode, w *wire.Wire, logger *zap.Logger) *Arbiter {
	return &Arbiter{
		mode:    mode,
		wire:    w,
		logger:  logger,
		cached:  make(map[tool.Kind]bool),
		pending: make(map[string]chan Decision),
	}
}

// SetMode changes the arbiter's mode at runtime (e.g. a REPL /yolo command).
func (a *Arbiter) SetMode(m Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = m
}

// Request asks whether a tool call of the given kind may proceed.
// description is a short human-readable summary of the concrete action
// (e.g. "write 40 lines to internal/api/server.go").
// It returns Deny if ctx is cancelled while a human decision is pending.
func (a *Arbiter) Request(ctx context.Context, toolCallID string, kind tool.Kind, action, description string) (Decision, error) {
	a.mu.Lock()
	mode := a.mode
	if _, isMutator := tool.MutatorKinds[kind]; !isMutator {
		a.mu.Unlock()
		return Allow, nil
	}
	if mode == YOLO {
		a.mu.Unlock()
		return Allow, nil
	}
	if mode == ReadOnly {
		a.mu.Unlock()
		return Deny, nil
	}
	if a.cached[kind] {
		a.mu.Unlock()
		return Allow, nil
	}

	ch := make(chan Decision, 1)
	reqID := toolCallID
	if reqID == "" {
		reqID = uuid.New().String()
	}
	a.pending[reqID] = ch
	a.mu.Unlock()

	if a.wire != nil {
		a.wire.Publish(entity.AgentEvent{
			Type: entity.EventApprovalRequired,
			Approval: &entity.ApprovalAsk{
				ID:          reqID,
				Action:      action,
				Description: description,
			},
		})
	}

	select {
	case d := <-ch:
		a.mu.Lock()
		delete(a.pending, reqID)
		if d == AllowAlways {
			a.cached[kind] = true
			d = Allow
		}
		a.mu.Unlock()
		return d, nil
	case <-ctx.Done():
		a.mu.Lock()
		delete(a.pending, reqID)
		a.mu.Unlock()
		if a.logger != nil {
			a.logger.Info("approval wait cancelled, defaulting to deny", zap.String("request_id", reqID))
		}
		return Deny, ctx.Err()
	}
}

// Decide delivers a human decision for a pending request. It is the
// command-channel counterpart to the Wire's ApprovalRequired broadcast.
func (a *Arbiter) Decide(requestID string, decision Decision) error {
	a.mu.Lock()
	ch, ok := a.pending[requestID]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending approval request %s", requestID)
	}
	ch <- decision
	return nil
}
