package warmup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// providerStatusDone is the provider's terminal warmup status.
const providerStatusDone = "DONE"

// Config holds warmup lifecycle parameters.
type Config struct {
	// InactivityWindow is the no-send window after which warmup pauses.
	InactivityWindow time.Duration
	// MaxDay caps the warmup schedule.
	MaxDay int
	// MinPoolAvailable is the low-water mark for the shared identity pool.
	MinPoolAvailable int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager drives the dedicated IP lifecycle.
type Manager struct {
	repo     Repository
	provider StatusSource
	owners   OwnerSource
	notifier Notifier
	cfg      Config
}

// NewManager creates a dedicated IP lifecycle manager.
func NewManager(repo Repository, provider StatusSource, owners OwnerSource, notifier Notifier, cfg Config) *Manager {
	if cfg.InactivityWindow <= 0 {
		cfg.InactivityWindow = 7 * 24 * time.Hour
	}
	if cfg.MaxDay <= 0 {
		cfg.MaxDay = 20
	}
	if cfg.MinPoolAvailable <= 0 {
		cfg.MinPoolAvailable = 3
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{repo: repo, provider: provider, owners: owners, notifier: notifier, cfg: cfg}
}

// StepAll runs the daily warmup step for every warming brand. Per-brand
// failures are logged and do not stop the sweep.
func (m *Manager) StepAll(ctx context.Context) error {
	states, err := m.repo.ListWarming(ctx)
	if err != nil {
		return fmt.Errorf("list warming identities: %w", err)
	}

	for _, st := range states {
		st := st
		if err := m.Step(ctx, &st); err != nil {
			log.Printf("[Warmup] Brand %s step failed: %v", st.BrandID, err)
		}
	}
	return nil
}

// Step advances one brand through the daily warmup routine: pause on
// inactivity, resume on renewed sending, advance the day, and graduate to
// active once the provider reports warmup done.
func (m *Manager) Step(ctx context.Context, st *domain.DedicatedIPState) error {
	if st.Status != domain.IPWarming {
		return fmt.Errorf("brand %s: %w: step from %s", st.BrandID, ErrInvalidTransition, st.Status)
	}

	now := m.cfg.Now()

	// One advancement per calendar day; the scheduler may fire more often.
	if st.WarmupDayAdvancedAt != nil && sameDay(*st.WarmupDayAdvancedAt, now) {
		return nil
	}

	inactive := st.LastWarmupSendAt == nil || now.Sub(*st.LastWarmupSendAt) >= m.cfg.InactivityWindow

	if inactive && !st.WarmupPaused {
		if err := m.repo.SetPaused(ctx, st.BrandID, true); err != nil {
			return fmt.Errorf("pause warmup: %w", err)
		}
		log.Printf("[Warmup] warmup_paused brand=%s day=%d: no qualifying send within %s",
			st.BrandID, st.WarmupDay, m.cfg.InactivityWindow)
		return nil
	}

	if st.WarmupPaused {
		if inactive {
			return nil
		}
		if err := m.repo.SetPaused(ctx, st.BrandID, false); err != nil {
			return fmt.Errorf("resume warmup: %w", err)
		}
		log.Printf("[Warmup] warmup_resumed brand=%s day=%d", st.BrandID, st.WarmupDay)
	}

	nextDay := st.WarmupDay + 1
	if nextDay > m.cfg.MaxDay {
		nextDay = m.cfg.MaxDay
	}

	if nextDay == m.cfg.MaxDay {
		status, err := m.provider.WarmupStatus(ctx, st.IPAddress)
		if err != nil {
			return fmt.Errorf("query warmup status for %s: %w", st.IPAddress, err)
		}
		if status == providerStatusDone {
			if err := m.repo.Complete(ctx, st.BrandID, now); err != nil {
				return fmt.Errorf("complete warmup: %w", err)
			}
			log.Printf("[Warmup] Brand %s warmup complete, identity active", st.BrandID)
			return nil
		}
	}

	if err := m.repo.AdvanceDay(ctx, st.BrandID, nextDay, now); err != nil {
		return fmt.Errorf("advance warmup day: %w", err)
	}
	log.Printf("[Warmup] warmup_day_incremented brand=%s previous=%d new=%d", st.BrandID, st.WarmupDay, nextDay)
	return nil
}

// Suspend transitions a warming or active identity to suspended, persisting
// the triggering metrics as an audit entry. The suspension commits even when
// the owner notification fails.
func (m *Manager) Suspend(ctx context.Context, brandID string, metrics domain.SuspensionMetrics) error {
	st, err := m.repo.GetByBrand(ctx, brandID)
	if err != nil {
		return err
	}
	if !st.Status.CanTransition(domain.IPSuspended) {
		return fmt.Errorf("brand %s: %w: %s -> suspended", brandID, ErrInvalidTransition, st.Status)
	}

	audit, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("marshal suspension metrics: %w", err)
	}
	if err := m.repo.Suspend(ctx, brandID, audit, m.cfg.Now()); err != nil {
		return fmt.Errorf("suspend brand %s: %w", brandID, err)
	}
	log.Printf("[Warmup] Brand %s suspended: bounce=%.4f complaint=%.4f (%s)",
		brandID, metrics.BounceRate, metrics.ComplaintRate, metrics.TriggeredBy)

	m.notifyOwner(ctx, brandID, metrics)
	return nil
}

func (m *Manager) notifyOwner(ctx context.Context, brandID string, metrics domain.SuspensionMetrics) {
	owner, err := m.owners.OwnerEmail(ctx, brandID)
	if err != nil {
		log.Printf("[Warmup] Owner lookup for brand %s failed: %v", brandID, err)
		return
	}
	body := fmt.Sprintf(
		"Your dedicated sending identity was suspended.\n\n"+
			"Trailing %dh: %d sends, %d bounces (%.2f%%), %d complaints (%.3f%%).\n\n"+
			"Contact support to review reactivation.",
		metrics.WindowHours, metrics.Sends,
		metrics.Bounces, metrics.BounceRate*100,
		metrics.Complaints, metrics.ComplaintRate*100,
	)
	if err := m.notifier.NotifyOwner(owner, "Dedicated sending identity suspended", body); err != nil {
		log.Printf("[Warmup] Owner notification for brand %s failed: %v", brandID, err)
	}
}

// PoolReport is one shared-pool availability sample.
type PoolReport struct {
	Available int  `json:"available"`
	Assigned  int  `json:"assigned"`
	Low       bool `json:"low"`
}

// CheckPool compares available vs assigned identities in the shared pool and
// notifies platform administrators when availability drops below the
// configured minimum. This is an operational check, not a per-brand
// transition.
func (m *Manager) CheckPool(ctx context.Context) (*PoolReport, error) {
	available, assigned, err := m.repo.PoolCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count identity pool: %w", err)
	}

	report := &PoolReport{Available: available, Assigned: assigned, Low: available < m.cfg.MinPoolAvailable}
	if report.Low {
		log.Printf("[Warmup] Identity pool low: %d available, %d assigned (minimum %d)",
			available, assigned, m.cfg.MinPoolAvailable)
		if err := m.notifier.NotifyAdmins(
			"Dedicated identity pool low",
			fmt.Sprintf("%d identities available (%d assigned); minimum is %d.", available, assigned, m.cfg.MinPoolAvailable),
		); err != nil {
			log.Printf("[Warmup] Admin notification failed: %v", err)
		}
	}
	return report, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
