package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/ignite/deliverability/internal/batch"
	"github.com/ignite/deliverability/internal/domain"
)

// Config holds dispatch tuning knobs.
type Config struct {
	// PageSize bounds how many recipients are loaded per query.
	PageSize int
	// MaxWorkers bounds concurrent send tasks per batch.
	MaxWorkers int
	// MaxRetries is the number of retries after the first send attempt.
	MaxRetries int
	// RetryInterval is the fixed backoff between attempts.
	RetryInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service is the batch dispatch orchestrator plus the per-recipient send
// task executor.
type Service struct {
	campaigns  CampaignRepository
	recipients RecipientResolver
	events     EventAppender
	sender     Sender
	batches    *batch.Registry
	cfg        Config

	mu     sync.Mutex
	active map[string]chan struct{} // batch id -> closed after finalization
}

// NewService creates a dispatch service.
func NewService(campaigns CampaignRepository, recipients RecipientResolver, events EventAppender, sender Sender, batches *batch.Registry, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		campaigns:  campaigns,
		recipients: recipients,
		events:     events,
		sender:     sender,
		batches:    batches,
		cfg:        cfg,
		active:     make(map[string]chan struct{}),
	}
}

// Dispatch turns a campaign into a batch of send tasks and returns once they
// are scheduled. Re-dispatching a campaign already sending or sent is a
// no-op and returns the existing batch handle, if any.
//
// A campaign always reaches "sent" even with a nonzero failed_count;
// campaign-level "failed" is reserved for pre-dispatch errors.
func (s *Service) Dispatch(ctx context.Context, campaignID string) (string, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return "", err
	}

	if c.Status == domain.CampaignSending || c.Status == domain.CampaignSent {
		log.Printf("[Dispatch] Campaign %s already %s, skipping re-dispatch", c.ID, c.Status)
		if c.BatchID != nil {
			return *c.BatchID, nil
		}
		return "", nil
	}

	total, err := s.recipients.CountConfirmed(ctx, c.BrandID)
	if err != nil {
		return "", fmt.Errorf("resolve recipients for campaign %s: %w", c.ID, err)
	}

	if total == 0 {
		if err := s.campaigns.MarkSentEmpty(ctx, c.ID, s.cfg.Now()); err != nil {
			return "", fmt.Errorf("finalize empty campaign %s: %w", c.ID, err)
		}
		log.Printf("[Dispatch] Campaign %s has no confirmed recipients, marked sent", c.ID)
		return "", nil
	}

	b := s.batches.New()
	if err := s.campaigns.MarkSending(ctx, c.ID, total, b.ID); err != nil {
		return "", fmt.Errorf("transition campaign %s to sending: %w", c.ID, err)
	}

	s.mu.Lock()
	s.active[b.ID] = make(chan struct{})
	s.mu.Unlock()

	log.Printf("[Dispatch] Campaign %s: dispatching %d recipients (batch %s)", c.ID, total, b.ID)

	// The batch outlives the request that triggered it.
	go s.run(context.WithoutCancel(ctx), b, c, total)

	return b.ID, nil
}

// run schedules every send task and arranges finalization. Recipients are
// loaded in fixed-size pages to bound memory on large lists.
func (s *Service) run(ctx context.Context, b *batch.Batch, c *domain.Campaign, total int) {
	sem := semaphore.NewWeighted(int64(s.cfg.MaxWorkers))

	for offset := 0; offset < total; offset += s.cfg.PageSize {
		page, err := s.recipients.ListConfirmed(ctx, c.BrandID, s.cfg.PageSize, offset)
		if err != nil {
			// The page never became tasks; account for it in the ledger so
			// the failure is visible, then keep going with the rest.
			log.Printf("[Dispatch] Campaign %s: page at offset %d failed: %v", c.ID, offset, err)
			b.RecordFailure(fmt.Errorf("load page at offset %d: %w", offset, err))
			continue
		}
		if len(page) == 0 {
			break
		}
		for _, r := range page {
			r := r
			if err := sem.Acquire(ctx, 1); err != nil {
				b.RecordFailure(fmt.Errorf("acquire worker slot: %w", err))
				continue
			}
			b.Go(func() {
				defer sem.Release(1)
				s.execute(ctx, b, c, r)
			})
		}
	}

	b.OnComplete(func() { s.finalize(ctx, b, c.ID) })
}

// execute is one send task. Failures are recorded in the batch ledger and
// never abort sibling tasks.
func (s *Service) execute(ctx context.Context, b *batch.Batch, c *domain.Campaign, r domain.Recipient) {
	if b.Cancelled(ctx) {
		b.RecordSkip()
		return
	}

	msg := domain.OutboundMessage{
		CampaignID:  c.ID,
		RecipientID: r.ID,
		Email:       r.Email,
		FromName:    c.FromName,
		FromEmail:   c.FromEmail,
		Subject:     c.Subject,
		HTMLContent: c.HTMLContent,
	}

	// Fixed-interval retries; transient and permanent provider errors share
	// the same policy.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.RetryInterval), uint64(s.cfg.MaxRetries)),
		ctx,
	)
	correlationID, err := backoff.RetryWithData(func() (string, error) {
		return s.sender.Send(ctx, msg)
	}, policy)

	if err != nil {
		if incErr := s.campaigns.IncrementFailed(ctx, c.ID); incErr != nil {
			log.Printf("[Dispatch] Campaign %s: failed_count increment error: %v", c.ID, incErr)
		}
		b.RecordFailure(fmt.Errorf("recipient %s: %w", r.ID, err))
		return
	}

	if incErr := s.campaigns.IncrementSent(ctx, c.ID); incErr != nil {
		log.Printf("[Dispatch] Campaign %s: sent_count increment error: %v", c.ID, incErr)
	}

	// No correlation id means no downstream event correlation for this
	// message, but the send still counts.
	if correlationID == "" {
		return
	}

	ev := &domain.DeliveryEvent{
		CorrelationID: correlationID,
		EventType:     domain.EventSent,
		RecipientID:   &r.ID,
		CampaignID:    &c.ID,
		BrandID:       &c.BrandID,
		EventAt:       s.cfg.Now(),
	}
	if err := s.events.Append(ctx, ev); err != nil {
		log.Printf("[Dispatch] Campaign %s: append sent event for %s: %v", c.ID, correlationID, err)
	}
}

// finalize fires once every task of the batch has terminated.
func (s *Service) finalize(ctx context.Context, b *batch.Batch, campaignID string) {
	if err := s.campaigns.MarkSent(ctx, campaignID, s.cfg.Now()); err != nil {
		log.Printf("[Dispatch] Campaign %s: finalize failed: %v", campaignID, err)
	}

	if c, err := s.campaigns.Get(ctx, campaignID); err == nil {
		log.Printf("[Dispatch] Campaign %s complete: total=%d sent=%d failed=%d skipped=%d",
			campaignID, c.TotalRecipients, c.SentCount, c.FailedCount, b.SkippedCount())
	}

	s.mu.Lock()
	if done, ok := s.active[b.ID]; ok {
		close(done)
		delete(s.active, b.ID)
	}
	s.mu.Unlock()
}

// Cancel raises the cancellation flag on a campaign's batch. Tasks already
// in flight complete; the rest skip with no side effects.
func (s *Service) Cancel(ctx context.Context, campaignID string) error {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.BatchID == nil {
		return ErrNoBatch
	}
	if err := s.batches.Cancel(ctx, *c.BatchID); err != nil {
		return err
	}
	log.Printf("[Dispatch] Campaign %s: batch %s cancelled", campaignID, *c.BatchID)
	return nil
}

// DispatchDue dispatches every scheduled campaign whose time has come.
// Per-campaign failures are logged and do not stop the sweep.
func (s *Service) DispatchDue(ctx context.Context, limit int) (int, error) {
	due, err := s.campaigns.ListDue(ctx, s.cfg.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list due campaigns: %w", err)
	}

	dispatched := 0
	for _, c := range due {
		if _, err := s.Dispatch(ctx, c.ID); err != nil {
			log.Printf("[Dispatch] Due campaign %s failed pre-dispatch: %v", c.ID, err)
			if mfErr := s.campaigns.MarkFailed(ctx, c.ID); mfErr != nil {
				log.Printf("[Dispatch] Campaign %s: mark failed error: %v", c.ID, mfErr)
			}
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// WaitBatch blocks until the given batch has drained and the campaign is
// finalized. Returns false if the batch is unknown (already finalized or
// never created here).
func (s *Service) WaitBatch(batchID string) bool {
	s.mu.Lock()
	done, ok := s.active[batchID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	<-done
	return true
}
