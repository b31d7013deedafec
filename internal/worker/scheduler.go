// Package worker runs the periodic deliverability jobs: due-campaign
// dispatch, reputation sweeps, warmup day steps, and pool checks. Every job
// runs behind a distributed lock so a fleet of workers executes it once per
// tick.
package worker

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/deliverability/internal/pkg/distlock"
)

// Job is one periodic task.
type Job struct {
	// Name keys the distributed lock.
	Name string

	// Interval is the tick period.
	Interval time.Duration

	// LockTTL bounds how long a crashed worker can hold the lock. Defaults
	// to twice the interval.
	LockTTL time.Duration

	// Run executes one tick.
	Run func(ctx context.Context) error
}

// Scheduler drives registered jobs on their intervals.
type Scheduler struct {
	redisClient *redis.Client
	db          *sql.DB
	jobs        []Job

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewScheduler creates a scheduler. The Redis client is optional; without it
// locks fall back to Postgres advisory locks.
func NewScheduler(redisClient *redis.Client, db *sql.DB) *Scheduler {
	return &Scheduler{redisClient: redisClient, db: db}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(j Job) {
	if j.LockTTL <= 0 {
		j.LockTTL = 2 * j.Interval
	}
	s.jobs = append(s.jobs, j)
}

// Start launches one loop per registered job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())

	log.Printf("[Scheduler] Starting %d job(s)", len(s.jobs))
	for _, j := range s.jobs {
		j := j
		s.wg.Add(1)
		go s.loop(j)
	}
}

// Stop cancels all loops and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Printf("[Scheduler] Stopped")
}

func (s *Scheduler) loop(j Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(j)
		}
	}
}

// runOnce executes one tick of a job under its distributed lock. A held lock
// means another worker has this tick; that is not an error.
func (s *Scheduler) runOnce(j Job) {
	ctx, cancel := context.WithTimeout(s.ctx, j.LockTTL)
	defer cancel()

	lock := distlock.New(s.redisClient, s.db, "job:"+j.Name, j.LockTTL)
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		log.Printf("[Scheduler] Job %s: lock error: %v", j.Name, err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[Scheduler] Job %s: release error: %v", j.Name, err)
		}
	}()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		log.Printf("[Scheduler] Job %s failed after %v: %v", j.Name, time.Since(start), err)
		return
	}
	log.Printf("[Scheduler] Job %s completed in %v", j.Name, time.Since(start))
}
