package reputation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignite/deliverability/internal/domain"
)

// Severity grades a reputation reading.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Platform-wide thresholds, in percent. These mirror provider policy and are
// deliberately not configurable.
const (
	platformBounceWarningPct     = 3.0
	platformBounceCriticalPct    = 5.0
	platformComplaintWarningPct  = 0.05
	platformComplaintCriticalPct = 0.1
)

// platformWindow is the trailing window for the provider statistics query.
const platformWindow = 24 * time.Hour

// StatsSource provides the provider's own aggregate send statistics.
type StatsSource interface {
	SendStatistics(ctx context.Context, from, to time.Time) ([]domain.SendDataPoint, error)
}

// Notifier delivers operator and owner notifications. Implementations live
// in internal/notify.
type Notifier interface {
	NotifyAdmins(subject, body string) error
	NotifyOwner(email, subject, body string) error
}

// PlatformReport is one platform-wide reputation sample. It is ephemeral and
// never persisted.
type PlatformReport struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	DeliveryAttempts int64     `json:"delivery_attempts"`
	Bounces          int64     `json:"bounces"`
	Complaints       int64     `json:"complaints"`
	Rejects          int64     `json:"rejects"`

	// Rates are percentages, matching provider dashboards.
	BounceRate    float64 `json:"bounce_rate"`
	ComplaintRate float64 `json:"complaint_rate"`

	BounceSeverity    Severity `json:"bounce_severity"`
	ComplaintSeverity Severity `json:"complaint_severity"`
}

// Critical reports whether either rate breached the critical threshold.
func (r *PlatformReport) Critical() bool {
	return r.BounceSeverity == SeverityCritical || r.ComplaintSeverity == SeverityCritical
}

// PlatformMonitor checks account-wide reputation against provider thresholds.
type PlatformMonitor struct {
	stats    StatsSource
	notifier Notifier
	now      func() time.Time
}

// NewPlatformMonitor creates a platform-wide reputation monitor.
func NewPlatformMonitor(stats StatsSource, notifier Notifier) *PlatformMonitor {
	return &PlatformMonitor{stats: stats, notifier: notifier, now: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (m *PlatformMonitor) SetNowFunc(now func() time.Time) { m.now = now }

// Check pulls trailing-24h statistics, grades them, and alerts on critical
// readings. Warnings are logged only. Provider query failures surface to the
// caller with no automatic retry.
func (m *PlatformMonitor) Check(ctx context.Context) (*PlatformReport, error) {
	to := m.now()
	from := to.Add(-platformWindow)

	points, err := m.stats.SendStatistics(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch send statistics: %w", err)
	}

	report := &PlatformReport{From: from, To: to}
	for _, p := range points {
		report.DeliveryAttempts += p.DeliveryAttempts
		report.Bounces += p.Bounces
		report.Complaints += p.Complaints
		report.Rejects += p.Rejects
	}

	if report.DeliveryAttempts > 0 {
		report.BounceRate = float64(report.Bounces) / float64(report.DeliveryAttempts) * 100
		report.ComplaintRate = float64(report.Complaints) / float64(report.DeliveryAttempts) * 100
	}

	report.BounceSeverity = grade(report.BounceRate, platformBounceWarningPct, platformBounceCriticalPct)
	report.ComplaintSeverity = grade(report.ComplaintRate, platformComplaintWarningPct, platformComplaintCriticalPct)

	switch {
	case report.Critical():
		log.Printf("[Reputation] CRITICAL platform reputation: bounce=%.2f%% complaint=%.3f%% over %d attempts",
			report.BounceRate, report.ComplaintRate, report.DeliveryAttempts)
		if err := m.notifier.NotifyAdmins(
			"Critical sending reputation",
			fmt.Sprintf("Trailing 24h: %d delivery attempts, bounce rate %.2f%% (%s), complaint rate %.3f%% (%s).",
				report.DeliveryAttempts, report.BounceRate, report.BounceSeverity,
				report.ComplaintRate, report.ComplaintSeverity),
		); err != nil {
			log.Printf("[Reputation] Admin notification failed: %v", err)
		}
	case report.BounceSeverity == SeverityWarning || report.ComplaintSeverity == SeverityWarning:
		log.Printf("[Reputation] Warning platform reputation: bounce=%.2f%% complaint=%.3f%%",
			report.BounceRate, report.ComplaintRate)
	}

	return report, nil
}

func grade(rate, warning, critical float64) Severity {
	switch {
	case rate > critical:
		return SeverityCritical
	case rate >= warning:
		return SeverityWarning
	default:
		return SeverityOK
	}
}
