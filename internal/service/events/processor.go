package events

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ignite/deliverability/internal/domain"
)

// Provider bounce classifications.
const (
	bouncePermanent = "Permanent"
	bounceTransient = "Transient"
)

// InboundEvent is a normalized provider callback.
type InboundEvent struct {
	// Type is the provider event type (Bounce, Complaint, Delivery, Open,
	// Click, ...). Unknown types are accepted and recorded without any
	// state change.
	Type string

	// CorrelationID is the provider message id. Events without one are
	// dropped silently.
	CorrelationID string

	// BounceType is Permanent or Transient, set for bounce events.
	BounceType string

	// LinkURL is the clicked link, set for click events.
	LinkURL string

	// OccurredAt is the provider timestamp of the event.
	OccurredAt time.Time
}

// resolution is a cached correlation lookup result.
type resolution struct {
	recipientID *string
	campaignID  *string
	brandID     *string
}

// Processor consumes provider delivery events one at a time. It never
// retries; failures are returned to the caller and logged.
type Processor struct {
	events     EventRepository
	recipients RecipientRepository
	campaigns  CampaignCounters
	cache      *gocache.Cache
	now        func() time.Time
}

// NewProcessor creates a delivery event processor.
func NewProcessor(events EventRepository, recipients RecipientRepository, campaigns CampaignCounters) *Processor {
	return &Processor{
		events:     events,
		recipients: recipients,
		campaigns:  campaigns,
		cache:      gocache.New(10*time.Minute, 30*time.Minute),
		now:        time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (p *Processor) SetNowFunc(now func() time.Time) { p.now = now }

// Process handles one inbound provider event: append to the log, then apply
// recipient/campaign transitions when the correlation resolves.
func (p *Processor) Process(ctx context.Context, in InboundEvent) error {
	if in.CorrelationID == "" {
		log.Printf("[Events] Dropping %s event without correlation id", in.Type)
		return nil
	}

	res, err := p.resolve(ctx, in.CorrelationID)
	if err != nil {
		return fmt.Errorf("correlate %s: %w", in.CorrelationID, err)
	}

	eventType := strings.ToLower(in.Type)
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = p.now()
	}

	ev := &domain.DeliveryEvent{
		CorrelationID: in.CorrelationID,
		EventType:     eventType,
		EventAt:       occurredAt,
	}
	if in.LinkURL != "" {
		ev.LinkURL = &in.LinkURL
	}
	if res != nil {
		ev.RecipientID = res.recipientID
		ev.CampaignID = res.campaignID
		ev.BrandID = res.brandID
	}

	// Append first. An orphan event is still an audit record.
	if err := p.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s event for %s: %w", eventType, in.CorrelationID, err)
	}

	if res == nil {
		log.Printf("[Events] Orphan %s event for %s recorded, no state change", eventType, in.CorrelationID)
		return nil
	}

	switch eventType {
	case domain.EventBounce:
		return p.applyBounce(ctx, in, res)
	case domain.EventComplaint:
		return p.applyComplaint(ctx, res)
	case domain.EventDelivery:
		// Audit only.
		return nil
	case domain.EventOpen:
		return p.applyEngagement(ctx, in.CorrelationID, domain.EventOpen, res)
	case domain.EventClick:
		return p.applyEngagement(ctx, in.CorrelationID, domain.EventClick, res)
	default:
		// Unknown types are accepted for forward compatibility.
		log.Printf("[Events] Unknown event type %q for %s, recorded only", in.Type, in.CorrelationID)
		return nil
	}
}

// resolve finds the recipient/campaign behind a correlation id via the most
// recent "sent" event. Returns nil when nothing matches (orphan).
func (p *Processor) resolve(ctx context.Context, correlationID string) (*resolution, error) {
	if cached, ok := p.cache.Get(correlationID); ok {
		return cached.(*resolution), nil
	}

	sent, err := p.events.LatestSent(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if sent == nil {
		// Orphans are not cached: the "sent" event may simply not have
		// landed yet.
		return nil, nil
	}

	res := &resolution{
		recipientID: sent.RecipientID,
		campaignID:  sent.CampaignID,
		brandID:     sent.BrandID,
	}
	p.cache.Set(correlationID, res, gocache.DefaultExpiration)
	return res, nil
}

func (p *Processor) applyBounce(ctx context.Context, in InboundEvent, res *resolution) error {
	switch in.BounceType {
	case bounceTransient:
		return p.applySoftBounce(ctx, res)
	case bouncePermanent:
		return p.applyHardBounce(ctx, res)
	default:
		// Providers occasionally report undetermined bounce classes; they
		// stay in the log without escalating anyone.
		log.Printf("[Events] Bounce with unknown type %q for recipient %v, no transition", in.BounceType, res.recipientID)
		return nil
	}
}

func (p *Processor) applyHardBounce(ctx context.Context, res *resolution) error {
	if res.recipientID != nil {
		if err := p.recipients.MarkBounced(ctx, *res.recipientID, domain.BounceHard, p.now()); err != nil {
			return fmt.Errorf("mark recipient %s hard-bounced: %w", *res.recipientID, err)
		}
	}
	if res.campaignID != nil {
		if err := p.campaigns.IncrementFailed(ctx, *res.campaignID); err != nil {
			return fmt.Errorf("increment failed_count for campaign %s: %w", *res.campaignID, err)
		}
	}
	return nil
}

func (p *Processor) applySoftBounce(ctx context.Context, res *resolution) error {
	if res.recipientID == nil {
		return nil
	}
	count, err := p.recipients.IncrementSoftBounce(ctx, *res.recipientID, p.now())
	if err != nil {
		return fmt.Errorf("increment soft bounces for recipient %s: %w", *res.recipientID, err)
	}
	if count >= domain.SoftBounceLimit {
		if err := p.recipients.MarkBounced(ctx, *res.recipientID, domain.BounceSoft, p.now()); err != nil {
			return fmt.Errorf("mark recipient %s soft-bounced: %w", *res.recipientID, err)
		}
		log.Printf("[Events] Recipient %s reached %d soft bounces, marked bounced", *res.recipientID, count)
	}
	return nil
}

func (p *Processor) applyComplaint(ctx context.Context, res *resolution) error {
	if res.recipientID != nil {
		if err := p.recipients.MarkComplained(ctx, *res.recipientID); err != nil {
			return fmt.Errorf("mark recipient %s complained: %w", *res.recipientID, err)
		}
	}
	if res.campaignID != nil {
		if err := p.campaigns.IncrementUnsubscribes(ctx, *res.campaignID); err != nil {
			return fmt.Errorf("increment unsubscribes for campaign %s: %w", *res.campaignID, err)
		}
	}
	return nil
}

// applyEngagement handles open/click accounting. The total counter always
// moves; the unique counter moves only when the row appended by this call is
// the first of its type for the correlation id (query, not a counter).
func (p *Processor) applyEngagement(ctx context.Context, correlationID, eventType string, res *resolution) error {
	if res.campaignID == nil {
		return nil
	}

	count, err := p.events.CountByCorrelationAndType(ctx, correlationID, eventType)
	if err != nil {
		return fmt.Errorf("count %s events for %s: %w", eventType, correlationID, err)
	}
	unique := count <= 1

	switch eventType {
	case domain.EventOpen:
		err = p.campaigns.IncrementOpens(ctx, *res.campaignID, unique)
	case domain.EventClick:
		err = p.campaigns.IncrementClicks(ctx, *res.campaignID, unique)
	}
	if err != nil {
		return fmt.Errorf("increment %s counters for campaign %s: %w", eventType, *res.campaignID, err)
	}
	return nil
}
