package warmup

import (
	"context"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// Repository is the data access contract for dedicated IP states.
type Repository interface {
	// GetByBrand returns a brand's dedicated IP state. Returns ErrNotFound
	// when the brand has none.
	GetByBrand(ctx context.Context, brandID string) (*domain.DedicatedIPState, error)

	// ListWarming returns every state currently in warming status.
	ListWarming(ctx context.Context) ([]domain.DedicatedIPState, error)

	// SetPaused flips the warmup pause flag.
	SetPaused(ctx context.Context, brandID string, paused bool) error

	// AdvanceDay persists a new warmup day and the advancement timestamp.
	// warmup_day is non-decreasing; implementations must not lower it.
	AdvanceDay(ctx context.Context, brandID string, day int, at time.Time) error

	// Complete transitions the state to active and records completion.
	Complete(ctx context.Context, brandID string, at time.Time) error

	// Suspend transitions the state to suspended, persisting the metrics
	// JSON as the audit entry.
	Suspend(ctx context.Context, brandID string, metrics []byte, at time.Time) error

	// PoolCounts returns the shared pool occupancy: identities still
	// unassigned and identities assigned to brands.
	PoolCounts(ctx context.Context) (available, assigned int, err error)
}

// StatusSource queries the provider for an identity's warmup progress.
type StatusSource interface {
	// WarmupStatus returns the provider-reported status; "DONE" means the
	// provider considers warmup finished.
	WarmupStatus(ctx context.Context, ip string) (string, error)
}

// OwnerSource resolves a brand's account owner for notifications.
type OwnerSource interface {
	OwnerEmail(ctx context.Context, brandID string) (string, error)
}

// Notifier delivers owner and admin notifications.
type Notifier interface {
	NotifyAdmins(subject, body string) error
	NotifyOwner(email, subject, body string) error
}
