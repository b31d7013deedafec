// Package batch tracks cancelable in-flight send batches. Cancellation is
// cooperative: each task checks the flag immediately before sending, and a
// send already in flight is never preempted.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cancelTTL bounds how long a cancellation flag lives in Redis. A batch that
// has not drained within this window is long gone anyway.
const cancelTTL = 24 * time.Hour

// Registry creates batches and answers cancellation checks. When a Redis
// client is configured the flag is shared across hosts; otherwise it is
// process-local.
type Registry struct {
	redis *redis.Client

	mu        sync.Mutex
	cancelled map[string]bool
}

// NewRegistry creates a batch registry. redisClient may be nil.
func NewRegistry(redisClient *redis.Client) *Registry {
	return &Registry{
		redis:     redisClient,
		cancelled: make(map[string]bool),
	}
}

// New creates a batch with a fresh handle.
func (r *Registry) New() *Batch {
	return &Batch{ID: uuid.New().String(), reg: r}
}

// Cancel raises the cancellation flag for a batch. Tasks not yet started
// will skip; tasks in flight complete normally.
func (r *Registry) Cancel(ctx context.Context, batchID string) error {
	r.mu.Lock()
	r.cancelled[batchID] = true
	r.mu.Unlock()

	if r.redis == nil {
		return nil
	}
	if err := r.redis.Set(ctx, cancelKey(batchID), "1", cancelTTL).Err(); err != nil {
		return fmt.Errorf("set cancel flag for batch %s: %w", batchID, err)
	}
	return nil
}

// Cancelled reports whether a batch has been cancelled. A Redis error is
// treated as not-cancelled so a flaky Redis never silently drops sends.
func (r *Registry) Cancelled(ctx context.Context, batchID string) bool {
	r.mu.Lock()
	local := r.cancelled[batchID]
	r.mu.Unlock()
	if local {
		return true
	}

	if r.redis == nil {
		return false
	}
	n, err := r.redis.Exists(ctx, cancelKey(batchID)).Result()
	if err != nil {
		log.Printf("[Batch] cancel flag check failed for %s: %v", batchID, err)
		return false
	}
	return n > 0
}

func cancelKey(batchID string) string {
	return "deliv:batch:cancel:" + batchID
}

// Batch is one dispatch unit: a set of concurrent send tasks with
// allow-partial-failure semantics and a ledger of per-task failures.
type Batch struct {
	ID  string
	reg *Registry

	wg sync.WaitGroup

	mu       sync.Mutex
	failures []error
	skipped  int
}

// Cancelled reports whether this batch's cancellation flag is set.
func (b *Batch) Cancelled(ctx context.Context) bool {
	return b.reg.Cancelled(ctx, b.ID)
}

// Go runs fn as one task of the batch. A task failure never aborts siblings.
func (b *Batch) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// OnComplete invokes fn once every task has terminated. It returns
// immediately; fn runs on its own goroutine.
func (b *Batch) OnComplete(fn func()) {
	go func() {
		b.wg.Wait()
		fn()
	}()
}

// Wait blocks until every task has terminated. Used by tests and by
// synchronous callers that need the final counters.
func (b *Batch) Wait() {
	b.wg.Wait()
}

// RecordFailure appends a task failure to the ledger.
func (b *Batch) RecordFailure(err error) {
	b.mu.Lock()
	b.failures = append(b.failures, err)
	b.mu.Unlock()
}

// RecordSkip notes a task skipped due to cancellation.
func (b *Batch) RecordSkip() {
	b.mu.Lock()
	b.skipped++
	b.mu.Unlock()
}

// FailureCount returns the number of failed tasks so far.
func (b *Batch) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.failures)
}

// Failures returns a copy of the failure ledger.
func (b *Batch) Failures() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]error, len(b.failures))
	copy(out, b.failures)
	return out
}

// SkippedCount returns the number of tasks skipped due to cancellation.
func (b *Batch) SkippedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.skipped
}
