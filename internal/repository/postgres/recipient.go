package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// RecipientRepo implements the dispatch resolver and the bounce/complaint
// transitions against PostgreSQL. Recipient creation happens at signup,
// outside this repository.
type RecipientRepo struct{ db *sql.DB }

// NewRecipientRepo creates a Postgres-backed recipient repository.
func NewRecipientRepo(db *sql.DB) *RecipientRepo { return &RecipientRepo{db: db} }

func (r *RecipientRepo) CountConfirmed(ctx context.Context, brandID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deliv_recipients WHERE brand_id = $1 AND status = $2`,
		brandID, domain.RecipientConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed recipients: %w", err)
	}
	return n, nil
}

// ListConfirmed pages the confirmed set ordered by id so concurrent pages
// never overlap.
func (r *RecipientRepo) ListConfirmed(ctx context.Context, brandID string, limit, offset int) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, brand_id, email, status, bounce_type, soft_bounce_count,
		       last_bounce_at, created_at, updated_at
		FROM deliv_recipients
		WHERE brand_id = $1 AND status = $2
		ORDER BY id ASC
		LIMIT $3 OFFSET $4
	`, brandID, domain.RecipientConfirmed, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list confirmed recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(
			&rec.ID, &rec.BrandID, &rec.Email, &rec.Status, &rec.BounceType,
			&rec.SoftBounceCount, &rec.LastBounceAt, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkBounced sets the terminal bounced status. Already-terminal recipients
// are left untouched so a late event never clears an earlier terminal state.
func (r *RecipientRepo) MarkBounced(ctx context.Context, id string, t domain.BounceType, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_recipients
		SET status = $2, bounce_type = $3, last_bounce_at = $4, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($5, $6, $7)
	`, id, domain.RecipientBounced, t, at,
		domain.RecipientBounced, domain.RecipientComplained, domain.RecipientUnsubscribed)
	if err != nil {
		return fmt.Errorf("mark recipient bounced: %w", err)
	}
	return nil
}

// IncrementSoftBounce atomically bumps soft_bounce_count and returns the new
// value, so the caller can apply the escalation threshold on a single
// authoritative number.
func (r *RecipientRepo) IncrementSoftBounce(ctx context.Context, id string, at time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE deliv_recipients
		SET soft_bounce_count = soft_bounce_count + 1, last_bounce_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING soft_bounce_count
	`, id, at).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment soft bounce count: %w", err)
	}
	return count, nil
}

func (r *RecipientRepo) MarkComplained(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_recipients
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, id, domain.RecipientComplained, domain.RecipientComplained, domain.RecipientUnsubscribed)
	if err != nil {
		return fmt.Errorf("mark recipient complained: %w", err)
	}
	return nil
}
