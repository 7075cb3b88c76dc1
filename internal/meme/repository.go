// Package meme manages the meme collection and its persistence.
package meme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Meme is a captioned image: a title plus the address of its stored binary.
type Meme struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// ErrNotFound is returned when a meme does not exist.
var ErrNotFound = errors.New("meme not found")

// ErrIntegrity is returned when a database constraint rejects a mutation.
// The failed statement is rolled back before this surfaces, so the store
// is left unchanged.
var ErrIntegrity = errors.New("integrity constraint violation")

// Repository handles all meme database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns up to limit memes in insertion order starting at offset,
// plus the total number of memes irrespective of pagination. Validation of
// limit and offset is the caller's responsibility.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Meme, int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, image_url FROM memes ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list memes: %w", err)
	}
	defer rows.Close()

	memes := []Meme{}
	for rows.Next() {
		var m Meme
		if err := rows.Scan(&m.ID, &m.Title, &m.ImageURL); err != nil {
			return nil, 0, fmt.Errorf("scan meme: %w", err)
		}
		memes = append(memes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list memes: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM memes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count memes: %w", err)
	}

	return memes, total, nil
}

// Get fetches a meme by its identifier.
func (r *Repository) Get(ctx context.Context, id int64) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`SELECT id, title, image_url FROM memes WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meme: %w", err)
	}
	return m, nil
}

// Insert persists a new meme and returns it with the assigned identifier.
// Identifiers come from a BIGSERIAL sequence and are never reused.
func (r *Repository) Insert(ctx context.Context, title, imageURL string) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO memes (title, image_url)
		 VALUES ($1, $2)
		 RETURNING id, title, image_url`,
		title, imageURL,
	).Scan(&m.ID, &m.Title, &m.ImageURL)
	if err != nil {
		if isIntegrityViolation(err) {
			return nil, ErrIntegrity
		}
		return nil, fmt.Errorf("insert meme: %w", err)
	}
	return m, nil
}

// Update persists new field values for an existing meme and returns the
// updated record.
func (r *Repository) Update(ctx context.Context, id int64, title, imageURL string) (*Meme, error) {
	m := &Meme{}
	err := r.db.QueryRow(ctx,
		`UPDATE memes SET title = $2, image_url = $3
		 WHERE id = $1
		 RETURNING id, title, image_url`,
		id, title, imageURL,
	).Scan(&m.ID, &m.Title, &m.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isIntegrityViolation(err) {
			return nil, ErrIntegrity
		}
		return nil, fmt.Errorf("update meme: %w", err)
	}
	return m, nil
}

// Delete removes a meme permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM memes WHERE id = $1`, id)
	if err != nil {
		if isIntegrityViolation(err) {
			return ErrIntegrity
		}
		return fmt.Errorf("delete meme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isIntegrityViolation checks whether an error is a PostgreSQL integrity
// constraint violation (SQLSTATE class 23).
func isIntegrityViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}
