package persistence

import "time"

// SessionModel is the gorm row for a Session State (C7) snapshot.
type SessionModel struct {
	ID          string `gorm:"primaryKey"`
	WorkDir     string
	HistoryFile string
	GlobalStep  int64
	Cancelled   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (SessionModel) TableName() string { return "sessions" }

// TodoItemModel is the gorm row for one TodoItem belonging to a session.
type TodoItemModel struct {
	SessionID  string `gorm:"primaryKey"`
	ItemID     string `gorm:"primaryKey"`
	Content    string
	Status     string
	ActiveForm string
	Position   int
}

func (TodoItemModel) TableName() string { return "session_todos" }
