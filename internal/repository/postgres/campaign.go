// Package postgres implements the service repository contracts against
// PostgreSQL via database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/deliverability/internal/domain"
	"github.com/ignite/deliverability/internal/service/dispatch"
)

// CampaignRepo implements dispatch.CampaignRepository and the campaign
// counter contracts against PostgreSQL. All counter mutations are atomic
// in-place increments; concurrent tasks never read-modify-write.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `
	id, brand_id, name, subject, from_name, from_email, COALESCE(html_content,''),
	status, batch_id, scheduled_at, sent_at,
	total_recipients, sent_count, failed_count,
	opens, unique_opens, clicks, unique_clicks, unsubscribes,
	created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := row.Scan(
		&c.ID, &c.BrandID, &c.Name, &c.Subject, &c.FromName, &c.FromEmail, &c.HTMLContent,
		&c.Status, &c.BatchID, &c.ScheduledAt, &c.SentAt,
		&c.TotalRecipients, &c.SentCount, &c.FailedCount,
		&c.Opens, &c.UniqueOpens, &c.Clicks, &c.UniqueClicks, &c.Unsubscribes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM deliv_campaigns WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM deliv_campaigns
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`, domain.CampaignScheduled, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// MarkSending transitions a campaign to sending, recording the recipient
// total and batch handle. The WHERE clause doubles as the idempotency guard:
// a campaign already sending or sent matches no rows.
func (r *CampaignRepo) MarkSending(ctx context.Context, id string, total int, batchID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE deliv_campaigns
		SET status = $2, total_recipients = $3, batch_id = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ($5, $6)
	`, id, domain.CampaignSending, total, batchID, domain.CampaignDraft, domain.CampaignScheduled)
	if err != nil {
		return fmt.Errorf("mark campaign sending: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark campaign sending: %w", dispatch.ErrNotFound)
	}
	return nil
}

func (r *CampaignRepo) MarkSentEmpty(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_campaigns
		SET status = $2, total_recipients = 0, sent_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, domain.CampaignSent, at)
	if err != nil {
		return fmt.Errorf("mark campaign sent (empty): %w", err)
	}
	return nil
}

func (r *CampaignRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_campaigns
		SET status = $2, sent_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, domain.CampaignSent, at, domain.CampaignSending)
	if err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	return nil
}

func (r *CampaignRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE deliv_campaigns
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($3, $4)
	`, id, domain.CampaignFailed, domain.CampaignSent, domain.CampaignSending)
	if err != nil {
		return fmt.Errorf("mark campaign failed: %w", err)
	}
	return nil
}

func (r *CampaignRepo) IncrementSent(ctx context.Context, id string) error {
	return r.increment(ctx, id, "sent_count = sent_count + 1")
}

func (r *CampaignRepo) IncrementFailed(ctx context.Context, id string) error {
	return r.increment(ctx, id, "failed_count = failed_count + 1")
}

func (r *CampaignRepo) IncrementUnsubscribes(ctx context.Context, id string) error {
	return r.increment(ctx, id, "unsubscribes = unsubscribes + 1")
}

func (r *CampaignRepo) IncrementOpens(ctx context.Context, id string, unique bool) error {
	set := "opens = opens + 1"
	if unique {
		set = "opens = opens + 1, unique_opens = unique_opens + 1"
	}
	return r.increment(ctx, id, set)
}

func (r *CampaignRepo) IncrementClicks(ctx context.Context, id string, unique bool) error {
	set := "clicks = clicks + 1"
	if unique {
		set = "clicks = clicks + 1, unique_clicks = unique_clicks + 1"
	}
	return r.increment(ctx, id, set)
}

func (r *CampaignRepo) increment(ctx context.Context, id, set string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE deliv_campaigns SET "+set+", updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("increment campaign counters: %w", err)
	}
	return nil
}
