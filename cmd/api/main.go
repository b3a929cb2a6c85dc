package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/api/routes"
	"github.com/ArowuTest/insurance-policy-backend/internal/app"
	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/handlers"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/ArowuTest/insurance-policy-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	storage, err := app.OpenStorage(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to open storage", "error", err)
	}
	defer func() {
		if err := storage.Close(context.Background()); err != nil {
			logg.Error("error closing storage", "error", err)
		}
	}()

	locker, closeLocker, err := app.NewLocker(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to set up record locks", "error", err)
	}
	defer closeLocker()

	issuer := jwt.NewIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)
	repos := storage.Repos

	// Initialize Services
	auditService := services.NewAuditService(repos.AuditLogs, logg)
	accountService := services.NewAccountService(repos, issuer, auditService, logg)
	catalogService := services.NewCatalogService(repos, locker, auditService, logg)
	subscriptionService := services.NewSubscriptionService(repos, locker, auditService, logg)
	paymentService := services.NewPaymentService(repos, locker, logg)
	claimService := services.NewClaimService(repos, locker, auditService, logg)
	reportService := services.NewReportService(repos)

	if err := accountService.BootstrapAdmin(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		logg.Fatal("failed to bootstrap admin", "error", err)
	}

	// Create Handler Dependencies struct
	handlerDeps := routes.HandlerDependencies{
		AuthHandler:         handlers.NewAuthHandler(accountService),
		CatalogHandler:      handlers.NewCatalogHandler(catalogService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subscriptionService),
		PaymentHandler:      handlers.NewPaymentHandler(paymentService),
		ClaimHandler:        handlers.NewClaimHandler(claimService),
		AdminHandler:        handlers.NewAdminHandler(accountService, auditService, reportService),
	}

	router := routes.SetupRouter(cfg, handlerDeps, issuer, logg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info("server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver, "locks", cfg.Locks.Driver)

	// Run server in a goroutine so that it doesn't block
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("listen failed", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}

	logg.Info("server exiting")
}
