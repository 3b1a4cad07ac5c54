package persistence

import (
	"context"
	"testing"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
)

func newTestDB(t *testing.T) *SessionRepository {
	t.Helper()
	db, err := NewDBConnection(config.StorageConfig{Type: "sqlite", DSN: "file::memory:?cache=shared"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return NewSessionRepository(db)
}

func TestSessionRepository_SaveAndExists(t *testing.T) {
	repo := newTestDB(t)
	s := session.New("/tmp/work")
	s.NextStep()

	ctx := context.Background()
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	exists, err := repo.Exists(ctx, s.ID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected session to exist after save")
	}

	missing, err := repo.Exists(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if missing {
		t.Fatal("expected unknown session id to not exist")
	}
}

func TestSessionRepository_SaveReplacesTodos(t *testing.T) {
	repo := newTestDB(t)
	s := session.New("/tmp/work")
	ctx := context.Background()

	s.MergeTodos([]entity.TodoItem{
		{ID: "1", Content: "first", Status: "pending"},
		{ID: "2", Content: "second", Status: "pending"},
	})
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := repo.LoadTodos(ctx, s.ID)
	if err != nil {
		t.Fatalf("load todos: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(loaded))
	}

	s.MergeTodos([]entity.TodoItem{
		{ID: "1", Content: "first", Status: "completed"},
	})
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err = repo.LoadTodos(ctx, s.ID)
	if err != nil {
		t.Fatalf("load todos: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected todo rows to reflect the session's merged list, got %d", len(loaded))
	}
	if loaded[0].Status != "completed" {
		t.Fatalf("expected persisted status update, got %q", loaded[0].Status)
	}
}

func TestNewDBConnection_RejectsUnknownType(t *testing.T) {
	if _, err := NewDBConnection(config.StorageConfig{Type: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported storage type")
	}
}
