package dispatch

import (
	"context"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// CampaignRepository is the data access contract for dispatch.
// Implementations must be safe for concurrent use; the increment methods in
// particular are called from many tasks at once and must be atomic in-place
// updates at the storage layer, never read-modify-write.
type CampaignRepository interface {
	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// ListDue returns scheduled campaigns whose scheduled_at is at or before
	// the given time.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error)

	// MarkSending transitions the campaign to sending, recording the total
	// recipient count and the batch handle.
	MarkSending(ctx context.Context, id string, total int, batchID string) error

	// MarkSentEmpty finalizes a campaign that had no eligible recipients.
	MarkSentEmpty(ctx context.Context, id string, at time.Time) error

	// MarkSent finalizes a campaign after its batch has drained.
	MarkSent(ctx context.Context, id string, at time.Time) error

	// MarkFailed records a pre-dispatch failure.
	MarkFailed(ctx context.Context, id string) error

	// IncrementSent atomically adds one to sent_count.
	IncrementSent(ctx context.Context, id string) error

	// IncrementFailed atomically adds one to failed_count.
	IncrementFailed(ctx context.Context, id string) error
}

// RecipientResolver resolves the eligible recipient set for a brand at
// dispatch time.
type RecipientResolver interface {
	// CountConfirmed returns the number of confirmed recipients for a brand.
	CountConfirmed(ctx context.Context, brandID string) (int, error)

	// ListConfirmed returns one page of confirmed recipients, ordered
	// stably so pages never overlap.
	ListConfirmed(ctx context.Context, brandID string, limit, offset int) ([]domain.Recipient, error)
}

// EventAppender appends to the delivery event log.
type EventAppender interface {
	Append(ctx context.Context, ev *domain.DeliveryEvent) error
}

// Sender delivers one message through the provider and returns the provider
// correlation id, which may be empty.
type Sender interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (string, error)
}
