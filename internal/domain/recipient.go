package domain

import "time"

// RecipientStatus enumerates the subscription states of a recipient.
type RecipientStatus string

const (
	RecipientPending      RecipientStatus = "pending"
	RecipientConfirmed    RecipientStatus = "confirmed"
	RecipientBounced      RecipientStatus = "bounced"
	RecipientComplained   RecipientStatus = "complained"
	RecipientUnsubscribed RecipientStatus = "unsubscribed"
)

// Terminal reports whether the status disqualifies the recipient from all
// future sends. Terminal states are only ever set, never cleared, by this core.
func (s RecipientStatus) Terminal() bool {
	return s == RecipientBounced || s == RecipientComplained || s == RecipientUnsubscribed
}

// BounceType classifies how a recipient bounced.
type BounceType string

const (
	BounceNone BounceType = "none"
	BounceHard BounceType = "hard"
	BounceSoft BounceType = "soft"
)

// SoftBounceLimit is the number of transient bounces after which a recipient
// is marked bounced with bounce_type=soft.
const SoftBounceLimit = 3

// Recipient is a subscriber of a brand's list. Creation happens at signup,
// outside this core; only bounce/complaint transitions mutate it here.
type Recipient struct {
	ID              string          `json:"id" db:"id"`
	BrandID         string          `json:"brand_id" db:"brand_id"`
	Email           string          `json:"email" db:"email"`
	Status          RecipientStatus `json:"status" db:"status"`
	BounceType      BounceType      `json:"bounce_type" db:"bounce_type"`
	SoftBounceCount int             `json:"soft_bounce_count" db:"soft_bounce_count"`
	LastBounceAt    *time.Time      `json:"last_bounce_at" db:"last_bounce_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
