package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/deliverability/internal/domain"
)

// EventRepo is the append-only delivery event log. Rows are inserted and
// queried, never updated or deleted.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed delivery event log.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, ev *domain.DeliveryEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.EventAt.IsZero() {
		ev.EventAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliv_delivery_events
			(id, correlation_id, event_type, link_url, recipient_id, campaign_id, brand_id, event_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, ev.ID, ev.CorrelationID, ev.EventType, ev.LinkURL, ev.RecipientID, ev.CampaignID, ev.BrandID, ev.EventAt)
	if err != nil {
		return fmt.Errorf("append delivery event: %w", err)
	}
	return nil
}

// LatestSent resolves a correlation id back to its originating sent event.
// Returns nil, nil when no sent event carries the id.
func (r *EventRepo) LatestSent(ctx context.Context, correlationID string) (*domain.DeliveryEvent, error) {
	ev := &domain.DeliveryEvent{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, correlation_id, event_type, link_url, recipient_id, campaign_id, brand_id, event_at, created_at
		FROM deliv_delivery_events
		WHERE correlation_id = $1 AND event_type = $2
		ORDER BY event_at DESC
		LIMIT 1
	`, correlationID, domain.EventSent).Scan(
		&ev.ID, &ev.CorrelationID, &ev.EventType, &ev.LinkURL,
		&ev.RecipientID, &ev.CampaignID, &ev.BrandID, &ev.EventAt, &ev.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup sent event: %w", err)
	}
	return ev, nil
}

func (r *EventRepo) CountByCorrelationAndType(ctx context.Context, correlationID, eventType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deliv_delivery_events
		WHERE correlation_id = $1 AND event_type = $2
	`, correlationID, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// BrandWindowCounts aggregates one brand's sends, bounces, and complaints
// since the given time in a single pass over the log.
func (r *EventRepo) BrandWindowCounts(ctx context.Context, brandID string, since time.Time) (domain.EventCounts, error) {
	var c domain.EventCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event_type = $3),
			COUNT(*) FILTER (WHERE event_type = $4),
			COUNT(*) FILTER (WHERE event_type = $5)
		FROM deliv_delivery_events
		WHERE brand_id = $1 AND event_at >= $2
	`, brandID, since, domain.EventSent, domain.EventBounce, domain.EventComplaint).
		Scan(&c.Sends, &c.Bounces, &c.Complaints)
	if err != nil {
		return domain.EventCounts{}, fmt.Errorf("aggregate brand events: %w", err)
	}
	return c, nil
}
