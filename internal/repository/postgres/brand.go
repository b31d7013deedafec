package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/deliverability/internal/domain"
)

// ErrBrandNotFound is returned when a brand id resolves to nothing.
var ErrBrandNotFound = errors.New("brand not found")

// BrandRepo reads brand rows for reputation sweeps and owner notifications.
type BrandRepo struct{ db *sql.DB }

// NewBrandRepo creates a Postgres-backed brand repository.
func NewBrandRepo(db *sql.DB) *BrandRepo { return &BrandRepo{db: db} }

func (r *BrandRepo) List(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner_email, created_at FROM deliv_brands ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var out []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerEmail, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BrandRepo) OwnerEmail(ctx context.Context, brandID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_email FROM deliv_brands WHERE id = $1`, brandID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", ErrBrandNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get brand owner: %w", err)
	}
	return email, nil
}
