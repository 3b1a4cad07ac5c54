// Package persistence implements Session State's (C7) durable half: a
// gorm-backed store for Session/TodoItem snapshots, so a run survives an
// Engine restart. The in-memory Session remains authoritative during a
// run; this package only persists point-in-time snapshots of it.
package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jimi-run/jimi-core/internal/infrastructure/config"
)

// NewDBConnection opens a gorm.DB for the configured backend and runs the
// auto-migration for the session/todo snapshot tables.
func NewDBConnection(cfg config.StorageConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "jimi.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect storage: %w", err)
	}

	if err := db.AutoMigrate(&SessionModel{}, &TodoItemModel{}); err != nil {
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	return db, nil
}
