package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/deliverability/internal/batch"
	"github.com/ignite/deliverability/internal/config"
	"github.com/ignite/deliverability/internal/notify"
	"github.com/ignite/deliverability/internal/repository/postgres"
	"github.com/ignite/deliverability/internal/service/dispatch"
	"github.com/ignite/deliverability/internal/service/reputation"
	"github.com/ignite/deliverability/internal/service/warmup"
	"github.com/ignite/deliverability/internal/ses"
	"github.com/ignite/deliverability/internal/worker"
)

func main() {
	log.Println("Starting deliverability worker...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx := context.Background()
	sesClient, err := ses.NewClient(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to create SES client: %v", err)
	}

	notifier := notify.FromConfig(cfg.Notify)

	campaignRepo := postgres.NewCampaignRepo(db)
	recipientRepo := postgres.NewRecipientRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	ipRepo := postgres.NewDedicatedIPRepo(db)
	brandRepo := postgres.NewBrandRepo(db)

	batches := batch.NewRegistry(redisClient)
	dispatchSvc := dispatch.NewService(campaignRepo, recipientRepo, eventRepo, sesClient, batches, dispatch.Config{
		PageSize:      cfg.Dispatch.PageSize,
		MaxWorkers:    cfg.Dispatch.MaxWorkers,
		MaxRetries:    cfg.Dispatch.MaxRetries,
		RetryInterval: cfg.Dispatch.RetryInterval(),
	})

	platform := reputation.NewPlatformMonitor(sesClient, notifier)
	warmupMgr := warmup.NewManager(ipRepo, sesClient, brandRepo, notifier, warmup.Config{
		InactivityWindow: cfg.Warmup.InactivityWindow(),
		MaxDay:           cfg.Warmup.MaxDay,
		MinPoolAvailable: cfg.Warmup.MinPoolAvailable,
	})
	brandMonitor := reputation.NewBrandMonitor(eventRepo, brandRepo, warmupMgr, reputation.BrandConfig{
		BounceThreshold:    cfg.Reputation.BrandBounceThreshold,
		ComplaintThreshold: cfg.Reputation.BrandComplaintThreshold,
		WindowHours:        cfg.Reputation.WindowHours,
	})

	scheduler := worker.NewScheduler(redisClient, db)
	scheduler.Register(worker.Job{
		Name:     "dispatch-due-campaigns",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			n, err := dispatchSvc.DispatchDue(ctx, 50)
			if n > 0 {
				log.Printf("Dispatched %d due campaign(s)", n)
			}
			return err
		},
	})
	scheduler.Register(worker.Job{
		Name:     "check-platform-reputation",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			_, err := platform.Check(ctx)
			return err
		},
	})
	scheduler.Register(worker.Job{
		Name:     "check-brand-reputation",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			suspended, err := brandMonitor.CheckAll(ctx)
			if suspended > 0 {
				log.Printf("Suspended %d brand(s) for reputation breaches", suspended)
			}
			return err
		},
	})
	scheduler.Register(worker.Job{
		Name:     "process-warmup-day-step",
		Interval: time.Hour,
		Run:      warmupMgr.StepAll,
	})
	scheduler.Register(worker.Job{
		Name:     "check-pool-availability",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			_, err := warmupMgr.CheckPool(ctx)
			return err
		},
	})

	scheduler.Start()
	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	scheduler.Stop()
	log.Println("Worker stopped")
}
