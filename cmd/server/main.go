package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/deliverability/internal/api"
	"github.com/ignite/deliverability/internal/batch"
	"github.com/ignite/deliverability/internal/config"
	"github.com/ignite/deliverability/internal/notify"
	"github.com/ignite/deliverability/internal/repository/postgres"
	"github.com/ignite/deliverability/internal/service/dispatch"
	"github.com/ignite/deliverability/internal/service/events"
	"github.com/ignite/deliverability/internal/service/reputation"
	"github.com/ignite/deliverability/internal/service/warmup"
	"github.com/ignite/deliverability/internal/ses"
	"github.com/ignite/deliverability/internal/storage"
)

func main() {
	log.Println("Starting deliverability API server...")

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
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unavailable (%v), batch cancellation degrades to in-process", err)
		} else {
			log.Println("Connected to Redis")
		}
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

	processor := events.NewProcessor(eventRepo, recipientRepo, campaignRepo)
	platform := reputation.NewPlatformMonitor(sesClient, notifier)
	warmupMgr := warmup.NewManager(ipRepo, sesClient, brandRepo, notifier, warmup.Config{
		InactivityWindow: cfg.Warmup.InactivityWindow(),
		MaxDay:           cfg.Warmup.MaxDay,
		MinPoolAvailable: cfg.Warmup.MinPoolAvailable,
	})

	var archiver api.Archiver
	if cfg.Archive.Enabled {
		a, err := storage.NewArchiver(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to create webhook archiver: %v", err)
		}
		archiver = a
		log.Printf("Webhook archival enabled: s3://%s/%s", cfg.Archive.Bucket, cfg.Archive.Prefix)
	}

	handlers := api.NewHandlers(dispatchSvc, campaignRepo, processor, platform, warmupMgr, archiver)
	server := api.NewServer(cfg.Server, handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("API server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
