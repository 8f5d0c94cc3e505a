package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// LinkRepository is the durable store for link records. Implementations must be
// safe for concurrent use and run every mutation in a single transaction.
type LinkRepository interface {
	// Create inserts a new record; returns ErrCodeExists if the code is taken.
	Create(ctx context.Context, link *models.Link) error
	GetByCode(ctx context.Context, code string) (*models.Link, error)
	// Delete removes the record. A missing code is not an error.
	Delete(ctx context.Context, code string) error
	// RecordHit increments clicks and bumps last_clicked in place, returning the
	// target URL. Returns ErrLinkNotFound without mutating anything on a miss.
	RecordHit(ctx context.Context, code string, at time.Time) (string, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]models.Link, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (code, target_url, clicks, created_at)
		VALUES ($1, $2, 0, $3)
		RETURNING clicks, created_at
	`

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			link.Code,
			link.TargetURL,
			link.CreatedAt,
		).Scan(&link.Clicks, &link.CreatedAt)
	})

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.CreatedAt = link.CreatedAt.UTC()
	link.LastClicked = nil
	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*models.Link, error) {
	query := `
		SELECT code, target_url, clicks, created_at, last_clicked
		FROM links
		WHERE code = $1
	`

	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *linkRepository) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM links WHERE code = $1`

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, code)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	return nil
}

func (r *linkRepository) RecordHit(ctx context.Context, code string, at time.Time) (string, error) {
	// GREATEST keeps last_clicked monotonic when concurrent hits commit out of order.
	query := `
		UPDATE links
		SET clicks = clicks + 1,
			last_clicked = GREATEST(COALESCE(last_clicked, $2), $2)
		WHERE code = $1
		RETURNING target_url
	`

	var targetURL string
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, code, at.UTC()).Scan(&targetURL)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrLinkNotFound
		}
		return "", fmt.Errorf("failed to record hit: %w", err)
	}

	return targetURL, nil
}

func (r *linkRepository) List(ctx context.Context) ([]models.Link, error) {
	query := `
		SELECT code, target_url, clicks, created_at, last_clicked
		FROM links
		ORDER BY created_at DESC, code ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]models.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
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

func scanLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.Code,
		&link.TargetURL,
		&link.Clicks,
		&link.CreatedAt,
		&link.LastClicked,
	)
	if err != nil {
		return nil, err
	}

	link.CreatedAt = link.CreatedAt.UTC()
	if link.LastClicked != nil {
		t := link.LastClicked.UTC()
		link.LastClicked = &t
	}
	return link, nil
}

// Проверка на нарушение уникальности по коду ошибки Postgres
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
