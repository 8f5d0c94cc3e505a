package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Timestamps are stored as fixed-width ISO-8601 UTC text so that ORDER BY and
// MAX compare them chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

type sqliteLinkRepository struct {
	db *SQLiteDB
}

func NewSQLiteLinkRepository(db *SQLiteDB) LinkRepository {
	return &sqliteLinkRepository{db: db}
}

func (r *sqliteLinkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `INSERT INTO links (code, target_url, clicks, created_at) VALUES (?, ?, 0, ?)`

	createdAt := link.CreatedAt.UTC().Truncate(time.Microsecond)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, link.Code, link.TargetURL, formatTime(createdAt))
		return err
	})
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.Clicks = 0
	link.CreatedAt = createdAt
	link.LastClicked = nil
	return nil
}

func (r *sqliteLinkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT code, target_url, clicks, created_at, last_clicked FROM links WHERE code = ?`

	link, err := scanSQLiteLink(r.db.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *sqliteLinkRepository) Delete(ctx context.Context, code string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM links WHERE code = ?`, code)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

func (r *sqliteLinkRepository) RecordHit(ctx context.Context, code string, at time.Time) (string, error) {
	query := `
		UPDATE links
		SET clicks = clicks + 1,
			last_clicked = MAX(COALESCE(last_clicked, ?), ?)
		WHERE code = ?
		RETURNING target_url
	`

	ts := formatTime(at)
	var targetURL string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query, ts, ts, code).Scan(&targetURL)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("failed to record hit: %w", err)
	}

	return targetURL, nil
}

func (r *sqliteLinkRepository) List(ctx context.Context) ([]models.Link, error) {
	query := `
		SELECT code, target_url, clicks, created_at, last_clicked
		FROM links
		ORDER BY created_at DESC, code ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0)
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *sqliteLinkRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLink(row rowScanner) (*models.Link, error) {
	var (
		link        models.Link
		createdAt   string
		lastClicked sql.NullString
	)

	if err := row.Scan(&link.Code, &link.TargetURL, &link.Clicks, &createdAt, &lastClicked); err != nil {
		return nil, err
	}

	t, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	link.CreatedAt = t

	if lastClicked.Valid {
		t, err := time.Parse(sqliteTimeLayout, lastClicked.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last_clicked %q: %w", lastClicked.String, err)
		}
		link.LastClicked = &t
	}

	return &link, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	// libsql возвращает ошибки сервера текстом
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
