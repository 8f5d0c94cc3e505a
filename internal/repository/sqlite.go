package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso / libsql driver
	_ "modernc.org/sqlite"                               // Local SQLite driver
)

type SQLiteDB struct {
	DB *sql.DB
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS links (
		code         TEXT PRIMARY KEY,
		target_url   TEXT NOT NULL,
		clicks       INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		last_clicked TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_links_created_at ON links (created_at DESC);
`

// NewSQLiteDB opens a local SQLite file, or a remote libsql database when path
// is a libsql:// or wss:// URL.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	driverName := "sqlite"
	dsn := path
	if strings.HasPrefix(path, "libsql://") || strings.HasPrefix(path, "wss://") {
		driverName = "libsql"
	} else if !strings.Contains(path, "?") {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite сериализует запись; одно соединение исключает SQLITE_BUSY между транзакциями
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteDB{DB: db}, nil
}

func (db *SQLiteDB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (db *SQLiteDB) Close() error {
	return db.DB.Close()
}
