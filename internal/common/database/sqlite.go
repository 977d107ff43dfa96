// internal/common/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"versailles-assistant/internal/common/config"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteClient wraps the local conversation database.
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLite opens (and creates if needed) the database file at cfg.Path.
func NewSQLite(cfg config.SQLiteConfig) (*SQLiteClient, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	return &SQLiteClient{DB: db}, nil
}

func (c *SQLiteClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
