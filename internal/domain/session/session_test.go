package session

import (
	"testing"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
)

func TestSession_StepCounter(t *testing.T) {
	s := New("/tmp/work")

	if got := s.Step(); got != 0 {
		t.Fatalf("expected initial step 0, got %d", got)
	}
	if got := s.NextStep(); got != 1 {
		t.Fatalf("expected first NextStep to return 1, got %d", got)
	}
	if got := s.Step(); got != 1 {
		t.Fatalf("expected step 1 after one NextStep, got %d", got)
	}
}

func TestSession_Cancellation(t *testing.T) {
	s := New("/tmp/work")

	if s.Cancelled() {
		t.Fatal("expected fresh session to not be cancelled")
	}
	s.Cancel()
	if !s.Cancelled() {
		t.Fatal("expected Cancel to set cancelled flag")
	}
	s.ResetCancelled()
	if s.Cancelled() {
		t.Fatal("expected ResetCancelled to clear the flag")
	}
}

func TestSession_MergeTodos(t *testing.T) {
	s := New("/tmp/work")

	first := s.MergeTodos([]entity.TodoItem{
		{ID: "1", Content: "write tests", Status: "pending"},
		{ID: "2", Content: "ship it", Status: "pending"},
	})
	if len(first) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(first))
	}

	updated := s.MergeTodos([]entity.TodoItem{
		{ID: "1", Content: "write tests", Status: "completed"},
		{ID: "3", Content: "new item", Status: "pending"},
	})
	if len(updated) != 3 {
		t.Fatalf("expected 3 todos after merge, got %d", len(updated))
	}
	if updated[0].Status != "completed" {
		t.Fatalf("expected item 1 status updated to completed, got %q", updated[0].Status)
	}
	if updated[1].ID != "2" {
		t.Fatalf("expected item 2 to retain its position, got id %q", updated[1].ID)
	}
	if updated[2].ID != "3" {
		t.Fatalf("expected item 3 appended at the end, got id %q", updated[2].ID)
	}
}

func TestTodoStats(t *testing.T) {
	stats := TodoStats([]entity.TodoItem{
		{ID: "1", Status: "pending"},
		{ID: "2", Status: "in_progress"},
		{ID: "3", Status: "completed"},
		{ID: "4", Status: "completed"},
	})
	if stats["pending"] != 1 || stats["in_progress"] != 1 || stats["completed"] != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
