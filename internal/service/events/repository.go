package events

import (
	"context"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// EventRepository is the append-only delivery event log.
type EventRepository interface {
	// Append inserts a new event row. Rows are never updated or deleted.
	Append(ctx context.Context, ev *domain.DeliveryEvent) error

	// LatestSent returns the most recent "sent" event sharing the
	// correlation id, or nil when none exists.
	LatestSent(ctx context.Context, correlationID string) (*domain.DeliveryEvent, error)

	// CountByCorrelationAndType counts events of one type for a
	// correlation id, including any row appended in the current call.
	CountByCorrelationAndType(ctx context.Context, correlationID, eventType string) (int, error)

	// BrandWindowCounts aggregates a brand's events since the given time.
	BrandWindowCounts(ctx context.Context, brandID string, since time.Time) (domain.EventCounts, error)
}

// RecipientRepository applies bounce and complaint transitions.
type RecipientRepository interface {
	// MarkBounced sets status=bounced with the given bounce type.
	MarkBounced(ctx context.Context, id string, t domain.BounceType, at time.Time) error

	// IncrementSoftBounce atomically adds one to soft_bounce_count and
	// returns the new value.
	IncrementSoftBounce(ctx context.Context, id string, at time.Time) (int, error)

	// MarkComplained sets status=complained.
	MarkComplained(ctx context.Context, id string) error
}

// CampaignCounters mutates campaign aggregates via atomic increments.
type CampaignCounters interface {
	IncrementFailed(ctx context.Context, id string) error
	IncrementUnsubscribes(ctx context.Context, id string) error

	// IncrementOpens adds one to opens, and to unique_opens when unique.
	IncrementOpens(ctx context.Context, id string, unique bool) error

	// IncrementClicks adds one to clicks, and to unique_clicks when unique.
	IncrementClicks(ctx context.Context, id string, unique bool) error
}
