package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/ArowuTest/insurance-policy-backend/internal/app"
	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/ArowuTest/insurance-policy-backend/internal/utils"
)

// Imports catalog products from a CSV file on behalf of an admin account.
func main() {
	adminEmail := flag.String("admin", "", "email of the admin performing the import (defaults to the bootstrap admin)")
	flag.Parse()

	// Get CSV file path from command line arguments
	if flag.NArg() < 1 {
		log.Fatal("CSV file path is required as a command line argument")
	}
	csvFilePath := flag.Arg(0)

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()
	storage, err := app.OpenStorage(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to open storage", "error", err)
	}
	defer storage.Close(ctx)
	repos := storage.Repos

	locker, closeLocker, err := app.NewLocker(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to set up record locks", "error", err)
	}
	defer closeLocker()

	email := *adminEmail
	if email == "" {
		email = cfg.Bootstrap.AdminEmail
	}
	admins, err := repos.Accounts.For(models.RoleAdmin)
	if err != nil {
		logg.Fatal("admin store unavailable", "error", err)
	}
	admin, err := admins.FindByEmail(ctx, email)
	if err != nil {
		logg.Fatal("admin account not found", "email", email, "error", err)
	}

	file, err := os.Open(csvFilePath)
	if err != nil {
		logg.Fatal("failed to open CSV file", "path", csvFilePath, "error", err)
	}
	defer file.Close()

	audit := services.NewAuditService(repos.AuditLogs, logg)
	importer := utils.NewProductImporter(services.NewCatalogService(repos, locker, audit, logg), repos.Accounts)
	result, err := importer.Import(ctx, admin.Principal(), file)
	if err != nil {
		logg.Fatal("failed to import products", "error", err)
	}
	for _, msg := range result.Errors {
		logg.Warn("row rejected", "detail", msg)
	}
	logg.Info("products imported",
		"rows", result.TotalRows,
		"created", result.Created,
		"skipped", result.Skipped,
		"assigned", result.Assigned,
		"errors", len(result.Errors),
	)
}
