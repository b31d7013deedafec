package reputation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// EventSource aggregates the local delivery event log per brand.
type EventSource interface {
	BrandWindowCounts(ctx context.Context, brandID string, since time.Time) (domain.EventCounts, error)
}

// BrandLister enumerates brands to evaluate.
type BrandLister interface {
	List(ctx context.Context) ([]domain.Brand, error)
}

// Suspender applies the dedicated-identity suspend transition. Implemented
// by the warmup lifecycle manager.
type Suspender interface {
	Suspend(ctx context.Context, brandID string, metrics domain.SuspensionMetrics) error
}

// BrandConfig holds per-brand thresholds, expressed as fractions.
type BrandConfig struct {
	BounceThreshold    float64
	ComplaintThreshold float64
	WindowHours        int
}

// BrandMonitor evaluates each brand's bounce/complaint rates from the local
// event log and suspends the brand's dedicated identity on a breach.
type BrandMonitor struct {
	events    EventSource
	brands    BrandLister
	suspender Suspender
	cfg       BrandConfig
	now       func() time.Time
}

// NewBrandMonitor creates a per-brand reputation monitor.
func NewBrandMonitor(events EventSource, brands BrandLister, suspender Suspender, cfg BrandConfig) *BrandMonitor {
	if cfg.BounceThreshold == 0 {
		cfg.BounceThreshold = 0.05
	}
	if cfg.ComplaintThreshold == 0 {
		cfg.ComplaintThreshold = 0.001
	}
	if cfg.WindowHours == 0 {
		cfg.WindowHours = 24
	}
	return &BrandMonitor{events: events, brands: brands, suspender: suspender, cfg: cfg, now: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (m *BrandMonitor) SetNowFunc(now func() time.Time) { m.now = now }

// CheckAll evaluates every brand. Per-brand failures are logged and do not
// stop the sweep; the count of suspended brands is returned.
func (m *BrandMonitor) CheckAll(ctx context.Context) (int, error) {
	brands, err := m.brands.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list brands: %w", err)
	}

	suspended := 0
	for _, b := range brands {
		hit, err := m.CheckBrand(ctx, b.ID)
		if err != nil {
			log.Printf("[Reputation] Brand %s check failed: %v", b.ID, err)
			continue
		}
		if hit {
			suspended++
		}
	}
	return suspended, nil
}

// CheckBrand evaluates one brand and returns true when a critical breach
// triggered a suspension. Brands with no sends in the window are skipped.
func (m *BrandMonitor) CheckBrand(ctx context.Context, brandID string) (bool, error) {
	since := m.now().Add(-time.Duration(m.cfg.WindowHours) * time.Hour)
	counts, err := m.events.BrandWindowCounts(ctx, brandID, since)
	if err != nil {
		return false, fmt.Errorf("aggregate events for brand %s: %w", brandID, err)
	}

	if counts.Sends == 0 {
		return false, nil
	}

	bounceRate := float64(counts.Bounces) / float64(counts.Sends)
	complaintRate := float64(counts.Complaints) / float64(counts.Sends)

	if bounceRate <= m.cfg.BounceThreshold && complaintRate <= m.cfg.ComplaintThreshold {
		return false, nil
	}

	log.Printf("[Reputation] CRITICAL brand %s: bounce=%.4f complaint=%.4f over %d sends",
		brandID, bounceRate, complaintRate, counts.Sends)

	metrics := domain.SuspensionMetrics{
		Sends:         counts.Sends,
		Bounces:       counts.Bounces,
		Complaints:    counts.Complaints,
		BounceRate:    bounceRate,
		ComplaintRate: complaintRate,
		WindowHours:   m.cfg.WindowHours,
		TriggeredBy:   "brand-reputation-check",
	}
	if err := m.suspender.Suspend(ctx, brandID, metrics); err != nil {
		return false, fmt.Errorf("suspend brand %s: %w", brandID, err)
	}
	return true, nil
}
