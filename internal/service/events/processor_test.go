package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/deliverability/internal/domain"
	"github.com/ignite/deliverability/internal/service/events"
)

// memLog is an in-memory append-only event log.
type memLog struct {
	mu   sync.Mutex
	rows []domain.DeliveryEvent
}

func (l *memLog) Append(_ context.Context, ev *domain.DeliveryEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, *ev)
	return nil
}

func (l *memLog) LatestSent(_ context.Context, correlationID string) (*domain.DeliveryEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.rows) - 1; i >= 0; i-- {
		if l.rows[i].CorrelationID == correlationID && l.rows[i].EventType == domain.EventSent {
			row := l.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (l *memLog) CountByCorrelationAndType(_ context.Context, correlationID, eventType string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, row := range l.rows {
		if row.CorrelationID == correlationID && row.EventType == eventType {
			n++
		}
	}
	return n, nil
}

func (l *memLog) BrandWindowCounts(_ context.Context, brandID string, since time.Time) (domain.EventCounts, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var c domain.EventCounts
	for _, row := range l.rows {
		if row.BrandID == nil || *row.BrandID != brandID || row.EventAt.Before(since) {
			continue
		}
		switch row.EventType {
		case domain.EventSent:
			c.Sends++
		case domain.EventBounce:
			c.Bounces++
		case domain.EventComplaint:
			c.Complaints++
		}
	}
	return c, nil
}

func (l *memLog) byType(t string) []domain.DeliveryEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.DeliveryEvent
	for _, row := range l.rows {
		if row.EventType == t {
			out = append(out, row)
		}
	}
	return out
}

// memRecipients applies transitions to an in-memory recipient set.
type memRecipients struct {
	mu sync.Mutex
	m  map[string]*domain.Recipient
}

func newMemRecipients(rs ...*domain.Recipient) *memRecipients {
	out := &memRecipients{m: make(map[string]*domain.Recipient)}
	for _, r := range rs {
		cp := *r
		out.m[r.ID] = &cp
	}
	return out
}

func (r *memRecipients) MarkBounced(_ context.Context, id string, t domain.BounceType, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.m[id]
	rec.Status = domain.RecipientBounced
	rec.BounceType = t
	rec.LastBounceAt = &at
	return nil
}

func (r *memRecipients) IncrementSoftBounce(_ context.Context, id string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.m[id]
	rec.SoftBounceCount++
	rec.LastBounceAt = &at
	return rec.SoftBounceCount, nil
}

func (r *memRecipients) MarkComplained(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id].Status = domain.RecipientComplained
	return nil
}

func (r *memRecipients) get(id string) domain.Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.m[id]
}

// memCounters records campaign counter increments.
type memCounters struct {
	mu           sync.Mutex
	failed       map[string]int
	unsubscribes map[string]int
	opens        map[string]int
	uniqueOpens  map[string]int
	clicks       map[string]int
	uniqueClicks map[string]int
}

func newMemCounters() *memCounters {
	return &memCounters{
		failed:       map[string]int{},
		unsubscribes: map[string]int{},
		opens:        map[string]int{},
		uniqueOpens:  map[string]int{},
		clicks:       map[string]int{},
		uniqueClicks: map[string]int{},
	}
}

func (c *memCounters) IncrementFailed(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[id]++
	return nil
}

func (c *memCounters) IncrementUnsubscribes(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribes[id]++
	return nil
}

func (c *memCounters) IncrementOpens(_ context.Context, id string, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens[id]++
	if unique {
		c.uniqueOpens[id]++
	}
	return nil
}

func (c *memCounters) IncrementClicks(_ context.Context, id string, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks[id]++
	if unique {
		c.uniqueClicks[id]++
	}
	return nil
}

func strPtr(s string) *string { return &s }

// seedSent plants the correlated "sent" event an executor would have written.
func seedSent(log *memLog, correlationID, recipientID, campaignID, brandID string) {
	log.rows = append(log.rows, domain.DeliveryEvent{
		CorrelationID: correlationID,
		EventType:     domain.EventSent,
		RecipientID:   strPtr(recipientID),
		CampaignID:    strPtr(campaignID),
		BrandID:       strPtr(brandID),
		EventAt:       time.Now().Add(-time.Minute),
	})
}

func newProcessor(t *testing.T) (*events.Processor, *memLog, *memRecipients, *memCounters) {
	t.Helper()
	log := &memLog{}
	recipients := newMemRecipients(&domain.Recipient{
		ID: "rcpt-1", BrandID: "brand-1", Email: "user@example.com",
		Status: domain.RecipientConfirmed, BounceType: domain.BounceNone,
	})
	counters := newMemCounters()
	return events.NewProcessor(log, recipients, counters), log, recipients, counters
}

func TestDropWithoutCorrelationID(t *testing.T) {
	p, log, _, _ := newProcessor(t)

	err := p.Process(context.Background(), events.InboundEvent{Type: "Bounce"})
	require.NoError(t, err)
	assert.Empty(t, log.rows, "nothing recorded without a correlation id")
}

func TestHardBounce(t *testing.T) {
	p, log, recipients, counters := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	err := p.Process(context.Background(), events.InboundEvent{
		Type: "Bounce", CorrelationID: "msg-1", BounceType: "Permanent",
	})
	require.NoError(t, err)

	rec := recipients.get("rcpt-1")
	assert.Equal(t, domain.RecipientBounced, rec.Status)
	assert.Equal(t, domain.BounceHard, rec.BounceType)
	assert.NotNil(t, rec.LastBounceAt)
	assert.Equal(t, 1, counters.failed["camp-1"])
	assert.Len(t, log.byType(domain.EventBounce), 1)
}

func TestSoftBounceEscalation(t *testing.T) {
	p, log, recipients, _ := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	transient := events.InboundEvent{Type: "Bounce", CorrelationID: "msg-1", BounceType: "Transient"}

	// Two soft bounces: recipient stays confirmed.
	require.NoError(t, p.Process(context.Background(), transient))
	require.NoError(t, p.Process(context.Background(), transient))
	rec := recipients.get("rcpt-1")
	assert.Equal(t, domain.RecipientConfirmed, rec.Status)
	assert.Equal(t, 2, rec.SoftBounceCount)

	// The third crosses the limit.
	require.NoError(t, p.Process(context.Background(), transient))
	rec = recipients.get("rcpt-1")
	assert.Equal(t, domain.RecipientBounced, rec.Status)
	assert.Equal(t, domain.BounceSoft, rec.BounceType)
	assert.Equal(t, 3, rec.SoftBounceCount)
}

func TestComplaint(t *testing.T) {
	p, log, recipients, counters := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	err := p.Process(context.Background(), events.InboundEvent{Type: "Complaint", CorrelationID: "msg-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.RecipientComplained, recipients.get("rcpt-1").Status)
	assert.Equal(t, 1, counters.unsubscribes["camp-1"])
}

func TestDeliveryIsAuditOnly(t *testing.T) {
	p, log, recipients, counters := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	err := p.Process(context.Background(), events.InboundEvent{Type: "Delivery", CorrelationID: "msg-1"})
	require.NoError(t, err)

	assert.Len(t, log.byType(domain.EventDelivery), 1)
	assert.Equal(t, domain.RecipientConfirmed, recipients.get("rcpt-1").Status)
	assert.Empty(t, counters.failed)
}

func TestOpensUniqueVsTotal(t *testing.T) {
	p, log, _, counters := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Process(context.Background(), events.InboundEvent{Type: "Open", CorrelationID: "msg-1"}))
	}

	assert.Equal(t, 4, counters.opens["camp-1"])
	assert.Equal(t, 1, counters.uniqueOpens["camp-1"])
}

func TestClicksPersistLink(t *testing.T) {
	p, log, _, counters := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	click := events.InboundEvent{Type: "Click", CorrelationID: "msg-1", LinkURL: "https://example.com/offer"}
	require.NoError(t, p.Process(context.Background(), click))
	require.NoError(t, p.Process(context.Background(), click))

	assert.Equal(t, 2, counters.clicks["camp-1"])
	assert.Equal(t, 1, counters.uniqueClicks["camp-1"])

	clicks := log.byType(domain.EventClick)
	require.Len(t, clicks, 2)
	require.NotNil(t, clicks[0].LinkURL)
	assert.Equal(t, "https://example.com/offer", *clicks[0].LinkURL)
}

func TestOrphanEventRecordedOnly(t *testing.T) {
	p, log, recipients, counters := newProcessor(t)

	err := p.Process(context.Background(), events.InboundEvent{
		Type: "Bounce", CorrelationID: "never-sent", BounceType: "Permanent",
	})
	require.NoError(t, err)

	rows := log.byType(domain.EventBounce)
	require.Len(t, rows, 1, "orphan event is stored for audit")
	assert.Nil(t, rows[0].RecipientID)
	assert.Nil(t, rows[0].CampaignID)
	assert.Equal(t, domain.RecipientConfirmed, recipients.get("rcpt-1").Status)
	assert.Empty(t, counters.failed)
}

func TestUnknownEventTypeAccepted(t *testing.T) {
	p, log, recipients, _ := newProcessor(t)
	seedSent(log, "msg-1", "rcpt-1", "camp-1", "brand-1")

	err := p.Process(context.Background(), events.InboundEvent{Type: "RenderingFailure", CorrelationID: "msg-1"})
	require.NoError(t, err)

	assert.Len(t, log.byType("renderingfailure"), 1)
	assert.Equal(t, domain.RecipientConfirmed, recipients.get("rcpt-1").Status)
}
