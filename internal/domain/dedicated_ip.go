package domain

import "time"

// DedicatedIPStatus enumerates the lifecycle states of a brand's dedicated
// sending identity.
type DedicatedIPStatus string

const (
	IPNone         DedicatedIPStatus = "none"
	IPProvisioning DedicatedIPStatus = "provisioning"
	IPWarming      DedicatedIPStatus = "warming"
	IPActive       DedicatedIPStatus = "active"
	IPSuspended    DedicatedIPStatus = "suspended"
)

// ipTransitions is the dedicated IP state graph. Suspended is terminal within
// this core; reactivation is an administrative action elsewhere.
var ipTransitions = map[DedicatedIPStatus][]DedicatedIPStatus{
	IPNone:         {IPProvisioning},
	IPProvisioning: {IPWarming},
	IPWarming:      {IPActive, IPSuspended},
	IPActive:       {IPSuspended},
	IPSuspended:    {},
}

// CanTransition reports whether moving from s to the given status is legal.
func (s DedicatedIPStatus) CanTransition(to DedicatedIPStatus) bool {
	for _, next := range ipTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// SuspensionMetrics is the evidence recorded when a dedicated sending
// identity is suspended. Rates are fractions (0.05 = 5%).
type SuspensionMetrics struct {
	Sends         int     `json:"sends"`
	Bounces       int     `json:"bounces"`
	Complaints    int     `json:"complaints"`
	BounceRate    float64 `json:"bounce_rate"`
	ComplaintRate float64 `json:"complaint_rate"`
	WindowHours   int     `json:"window_hours"`
	TriggeredBy   string  `json:"triggered_by"`
}

// DedicatedIPState tracks one brand's dedicated sending identity through
// provisioning, warmup, and suspension. warmup_day is non-decreasing while
// unpaused and never exceeds the warmup schedule length.
type DedicatedIPState struct {
	BrandID          string            `json:"brand_id" db:"brand_id"`
	IPAddress        string            `json:"ip_address" db:"ip_address"`
	Status           DedicatedIPStatus `json:"status" db:"status"`
	WarmupDay        int               `json:"warmup_day" db:"warmup_day"`
	WarmupPaused     bool              `json:"warmup_paused" db:"warmup_paused"`
	LastWarmupSendAt *time.Time        `json:"last_warmup_send_at" db:"last_warmup_send_at"`

	ProvisionedAt       *time.Time `json:"provisioned_at" db:"provisioned_at"`
	WarmupStartedAt     *time.Time `json:"warmup_started_at" db:"warmup_started_at"`
	WarmupCompletedAt   *time.Time `json:"warmup_completed_at" db:"warmup_completed_at"`
	WarmupDayAdvancedAt *time.Time `json:"warmup_day_advanced_at" db:"warmup_day_advanced_at"`
	SuspendedAt         *time.Time `json:"suspended_at" db:"suspended_at"`

	// SuspensionMetrics is the JSON audit record of the metrics that
	// triggered a suspension, if any.
	SuspensionMetrics []byte    `json:"suspension_metrics,omitempty" db:"suspension_metrics"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
