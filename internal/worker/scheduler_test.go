package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/ignite/deliverability/internal/worker"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSchedulerRunsJob(t *testing.T) {
	client := newRedis(t)
	s := worker.NewScheduler(client, nil)

	var runs int64
	s.Register(worker.Job{
		Name:     "test-job",
		Interval: 20 * time.Millisecond,
		LockTTL:  time.Second,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt64(&runs), int64(2))
}

func TestSchedulerSingleHolderAcrossWorkers(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var running, overlaps int64
	job := func(name string) worker.Job {
		return worker.Job{
			Name:     "shared-job",
			Interval: 10 * time.Millisecond,
			LockTTL:  time.Second,
			Run: func(ctx context.Context) error {
				if atomic.AddInt64(&running, 1) > 1 {
					atomic.AddInt64(&overlaps, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&running, -1)
				return nil
			},
		}
	}

	a := worker.NewScheduler(clientA, nil)
	a.Register(job("a"))
	b := worker.NewScheduler(clientB, nil)
	b.Register(job("b"))

	a.Start()
	b.Start()
	time.Sleep(150 * time.Millisecond)
	a.Stop()
	b.Stop()

	assert.Zero(t, atomic.LoadInt64(&overlaps), "lock must serialize the job across workers")
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := worker.NewScheduler(newRedis(t), nil)
	s.Register(worker.Job{
		Name:     "noop",
		Interval: time.Hour,
		Run:      func(ctx context.Context) error { return nil },
	})

	s.Start()
	s.Stop()
	s.Stop()
}
