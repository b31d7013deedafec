package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/deliverability/internal/domain"
	"github.com/ignite/deliverability/internal/service/warmup"
)

// DedicatedIPRepo persists per-brand dedicated sending identity state plus
// the shared pool inventory.
type DedicatedIPRepo struct{ db *sql.DB }

// NewDedicatedIPRepo creates a Postgres-backed dedicated IP repository.
func NewDedicatedIPRepo(db *sql.DB) *DedicatedIPRepo { return &DedicatedIPRepo{db: db} }

const dedicatedIPColumns = `
	brand_id, ip_address, status, warmup_day, warmup_paused, last_warmup_send_at,
	provisioned_at, warmup_started_at, warmup_completed_at, warmup_day_advanced_at,
	suspended_at, suspension_metrics, updated_at`

func scanDedicatedIP(row interface{ Scan(...interface{}) error }) (*domain.DedicatedIPState, error) {
	st := &domain.DedicatedIPState{}
	err := row.Scan(
		&st.BrandID, &st.IPAddress, &st.Status, &st.WarmupDay, &st.WarmupPaused, &st.LastWarmupSendAt,
		&st.ProvisionedAt, &st.WarmupStartedAt, &st.WarmupCompletedAt, &st.WarmupDayAdvancedAt,
		&st.SuspendedAt, &st.SuspensionMetrics, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *DedicatedIPRepo) GetByBrand(ctx context.Context, brandID string) (*domain.DedicatedIPState, error) {
	st, err := scanDedicatedIP(r.db.QueryRowContext(ctx,
		`SELECT `+dedicatedIPColumns+` FROM deliv_dedicated_ips WHERE brand_id = $1`, brandID))
	if err == sql.ErrNoRows {
		return nil, warmup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dedicated ip state: %w", err)
	}
	return st, nil
}

func (r *DedicatedIPRepo) ListWarming(ctx context.Context) ([]domain.DedicatedIPState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dedicatedIPColumns+` FROM deliv_dedicated_ips WHERE status = $1 ORDER BY brand_id`,
		domain.IPWarming)
	if err != nil {
		return nil, fmt.Errorf("list warming identities: %w", err)
	}
	defer rows.Close()

	var out []domain.DedicatedIPState
	for rows.Next() {
		st, err := scanDedicatedIP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dedicated ip state: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (r *DedicatedIPRepo) SetPaused(ctx context.Context, brandID string, paused bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_dedicated_ips
		SET warmup_paused = $2, updated_at = NOW()
		WHERE brand_id = $1
	`, brandID, paused)
	if err != nil {
		return fmt.Errorf("set warmup paused: %w", err)
	}
	return nil
}

// AdvanceDay writes the new day. GREATEST keeps warmup_day non-decreasing
// even under a racing scheduler.
func (r *DedicatedIPRepo) AdvanceDay(ctx context.Context, brandID string, day int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_dedicated_ips
		SET warmup_day = GREATEST(warmup_day, $2), warmup_day_advanced_at = $3, updated_at = NOW()
		WHERE brand_id = $1
	`, brandID, day, at)
	if err != nil {
		return fmt.Errorf("advance warmup day: %w", err)
	}
	return nil
}

func (r *DedicatedIPRepo) Complete(ctx context.Context, brandID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_dedicated_ips
		SET status = $2, warmup_completed_at = $3, updated_at = NOW()
		WHERE brand_id = $1 AND status = $4
	`, brandID, domain.IPActive, at, domain.IPWarming)
	if err != nil {
		return fmt.Errorf("complete warmup: %w", err)
	}
	return nil
}

func (r *DedicatedIPRepo) Suspend(ctx context.Context, brandID string, metrics []byte, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_dedicated_ips
		SET status = $2, suspension_metrics = $3, suspended_at = $4, updated_at = NOW()
		WHERE brand_id = $1 AND status IN ($5, $6)
	`, brandID, domain.IPSuspended, metrics, at, domain.IPWarming, domain.IPActive)
	if err != nil {
		return fmt.Errorf("suspend dedicated ip: %w", err)
	}
	return nil
}

// PoolCounts returns shared pool occupancy from the inventory table.
func (r *DedicatedIPRepo) PoolCounts(ctx context.Context) (available, assigned int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE assigned_brand_id IS NULL),
			COUNT(*) FILTER (WHERE assigned_brand_id IS NOT NULL)
		FROM deliv_ip_pool
	`).Scan(&available, &assigned)
	if err != nil {
		return 0, 0, fmt.Errorf("count identity pool: %w", err)
	}
	return available, assigned, nil
}
