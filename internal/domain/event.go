package domain

import "time"

// Known delivery event types. The event log accepts unknown types as-is for
// forward compatibility, so EventType is informative, not exhaustive.
const (
	EventSent      = "sent"
	EventDelivery  = "delivery"
	EventBounce    = "bounce"
	EventComplaint = "complaint"
	EventOpen      = "open"
	EventClick     = "click"
)

// DeliveryEvent is one row of the append-only delivery event log. Rows are
// never mutated or deleted. Recipient/campaign references are resolved after
// the fact via the correlation id and may never resolve (orphan events are
// kept for audit).
type DeliveryEvent struct {
	ID            string     `json:"id" db:"id"`
	CorrelationID string     `json:"correlation_id" db:"correlation_id"`
	EventType     string     `json:"event_type" db:"event_type"`
	LinkURL       *string    `json:"link_url" db:"link_url"`
	RecipientID   *string    `json:"recipient_id" db:"recipient_id"`
	CampaignID    *string    `json:"campaign_id" db:"campaign_id"`
	BrandID       *string    `json:"brand_id" db:"brand_id"`
	EventAt       time.Time  `json:"event_at" db:"event_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// EventCounts aggregates a brand's event log over a trailing window.
type EventCounts struct {
	Sends      int `json:"sends"`
	Bounces    int `json:"bounces"`
	Complaints int `json:"complaints"`
}

// SendDataPoint is one time bucket of the provider's aggregate send
// statistics, used by the platform-wide reputation check.
type SendDataPoint struct {
	Timestamp        time.Time `json:"timestamp"`
	DeliveryAttempts int64     `json:"delivery_attempts"`
	Bounces          int64     `json:"bounces"`
	Complaints       int64     `json:"complaints"`
	Rejects          int64     `json:"rejects"`
}

// OutboundMessage is the fully-resolved message handed to the provider
// sender. Template substitution is complete by the time one is built.
type OutboundMessage struct {
	CampaignID  string `json:"campaign_id"`
	RecipientID string `json:"recipient_id"`
	Email       string `json:"email"`
	FromName    string `json:"from_name"`
	FromEmail   string `json:"from_email"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}
