package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// campaignTransitions is the forward-only status graph. A campaign never
// moves backwards (no sending -> draft). "failed" is reserved for
// pre-dispatch errors; a campaign with per-recipient failures still
// terminates at "sent".
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignSending, CampaignSent, CampaignFailed},
	CampaignScheduled: {CampaignSending, CampaignSent, CampaignFailed},
	CampaignSending:   {CampaignSent},
	CampaignSent:      {},
	CampaignFailed:    {},
}

// CanTransition reports whether moving from s to the given status is legal.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Campaign represents one newsletter send operation bound to content and a
// brand. Aggregate counters are mutated by atomic in-place increments only;
// the struct is a snapshot, never a write-back source.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	BrandID     string         `json:"brand_id" db:"brand_id"`
	Name        string         `json:"name" db:"name"`
	Subject     string         `json:"subject" db:"subject"`
	FromName    string         `json:"from_name" db:"from_name"`
	FromEmail   string         `json:"from_email" db:"from_email"`
	HTMLContent string         `json:"html_content" db:"html_content"`
	Status      CampaignStatus `json:"status" db:"status"`

	// BatchID is the handle of the dispatch batch, set when sending starts.
	BatchID     *string    `json:"batch_id" db:"batch_id"`
	ScheduledAt *time.Time `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at" db:"sent_at"`

	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	SentCount       int `json:"sent_count" db:"sent_count"`
	FailedCount     int `json:"failed_count" db:"failed_count"`
	Opens           int `json:"opens" db:"opens"`
	UniqueOpens     int `json:"unique_opens" db:"unique_opens"`
	Clicks          int `json:"clicks" db:"clicks"`
	UniqueClicks    int `json:"unique_clicks" db:"unique_clicks"`
	Unsubscribes    int `json:"unsubscribes" db:"unsubscribes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}

// Brand is the owning tenant of campaigns, recipients, and a dedicated
// sending identity.
type Brand struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OwnerEmail string    `json:"owner_email" db:"owner_email"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
