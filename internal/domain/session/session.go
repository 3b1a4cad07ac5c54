// Package session implements Session State (C7): per-run bookkeeping
// shared by every component in the Engine — the global step counter, the
// cancellation flag, and the todo list.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jimi-run/jimi-core/internal/domain/entity"
)

// Session holds the state that spans every step of one run.
type Session struct {
	ID          string
	WorkDir     string
	HistoryFile string
	CreatedAt   time.Time

	globalStep atomic.Int64
	cancelled  atomic.Bool

	mu    sync.Mutex
	todos []entity.TodoItem
}

// New creates a fresh Session rooted at workDir.
func New(workDir string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		WorkDir:   workDir,
		CreatedAt: time.Now(),
	}
}

// NextStep atomically advances and returns the global step counter.
func (s *Session) NextStep() int64 { return s.globalStep.Add(1) }

// Step returns the current step count without advancing it.
func (s *Session) Step() int64 { return s.globalStep.Load() }

// Cancel marks the session cancelled. Idempotent.
func (s *Session) Cancel() { s.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called since the last reset.
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// ResetCancelled clears the cancellation flag for a new turn.
func (s *Session) ResetCancelled() { s.cancelled.Store(false) }

// MergeTodos applies a differential update: items matching an existing
// ID by position are replaced, new IDs are appended, and the result
// fully replaces the prior list — the merge exists so partial tool
// updates (e.g. marking one item done) don't require resending the
// whole list untouched.
func (s *Session) MergeTodos(items []entity.TodoItem) []entity.TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]entity.TodoItem, len(s.todos))
	order := make([]string, 0, len(s.todos))
	for _, t := range s.todos {
		byID[t.ID] = t
		order = append(order, t.ID)
	}
	for _, t := range items {
		if _, exists := byID[t.ID]; !exists {
			order = append(order, t.ID)
		}
		byID[t.ID] = t
	}
	merged := make([]entity.TodoItem, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	s.todos = merged
	return append([]entity.TodoItem(nil), merged...)
}

// Todos returns a snapshot of the current todo list.
func (s *Session) Todos() []entity.TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.TodoItem(nil), s.todos...)
}

// TodoStats summarizes counts by status for the TodoUpdate wire message.
func TodoStats(items []entity.TodoItem) map[string]int {
	stats := map[string]int{"pending": 0, "in_progress": 0, "completed": 0}
	for _, t := range items {
		stats[t.Status]++
	}
	return stats
}
