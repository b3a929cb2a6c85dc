package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/app"
	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
)

// Periodically moves Approved subscriptions whose coverage has ended to Expired.
func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()
	logg = logg.With("service", "expiry-sweeper")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := app.OpenStorage(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to open storage", "error", err)
	}
	defer storage.Close(context.Background())

	locker, closeLocker, err := app.NewLocker(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to set up record locks", "error", err)
	}
	defer closeLocker()

	audit := services.NewAuditService(storage.Repos.AuditLogs, logg)
	subscriptions := services.NewSubscriptionService(storage.Repos, locker, audit, logg)

	sweep := func() {
		n, err := subscriptions.ExpireDue(ctx, time.Now())
		if err != nil {
			logg.Error("expiry sweep failed", "error", err)
			return
		}
		logg.Info("expiry sweep done", "expired", n)
	}

	sweep()
	if *once {
		return
	}

	if cfg.Expiry.Interval <= 0 {
		logg.Fatal("expiry interval must be positive", "interval", cfg.Expiry.Interval)
	}
	ticker := time.NewTicker(cfg.Expiry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logg.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
