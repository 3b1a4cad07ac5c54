package persistence

import (
	"context"
	"fmt"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"github.com/jimi-run/jimi-core/internal/domain/session"
	"gorm.io/gorm"
)

// SessionRepository persists point-in-time Session snapshots.
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository wraps a connected gorm.DB.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save upserts a snapshot of s, replacing its prior todo rows.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := SessionModel{
			ID:          s.ID,
			WorkDir:     s.WorkDir,
			HistoryFile: s.HistoryFile,
			GlobalStep:  s.Step(),
			Cancelled:   s.Cancelled(),
			CreatedAt:   s.CreatedAt,
		}
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		if err := tx.Where("session_id = ?", s.ID).Delete(&TodoItemModel{}).Error; err != nil {
			return fmt.Errorf("clear session todos: %w", err)
		}

		todos := s.Todos()
		if len(todos) == 0 {
			return nil
		}
		rows := make([]TodoItemModel, len(todos))
		for i, t := range todos {
			rows[i] = TodoItemModel{
				SessionID:  s.ID,
				ItemID:     t.ID,
				Content:    t.Content,
				Status:     t.Status,
				ActiveForm: t.ActiveForm,
				Position:   i,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save session todos: %w", err)
		}
		return nil
	})
}

// LoadTodos returns the persisted todo list for sessionID, ordered by the
// position recorded at save time. Returns an empty slice if none exist.
func (r *SessionRepository) LoadTodos(ctx context.Context, sessionID string) ([]entity.TodoItem, error) {
	var rows []TodoItemModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("position").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load session todos: %w", err)
	}

	todos := make([]entity.TodoItem, len(rows))
	for i, row := range rows {
		todos[i] = entity.TodoItem{
			ID:         row.ItemID,
			Content:    row.Content,
			Status:     row.Status,
			ActiveForm: row.ActiveForm,
		}
	}
	return todos, nil
}

// Exists reports whether a snapshot for sessionID has been saved.
func (r *SessionRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&SessionModel{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check session existence: %w", err)
	}
	return count > 0, nil
}
