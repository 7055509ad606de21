// cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"wte-api-server/config"
	"wte-api-server/internal/auth"
	"wte-api-server/internal/database"
	"wte-api-server/internal/reports"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	email := flag.String("email", os.Getenv("SEED_ADMIN_EMAIL"), "admin email (SEED_ADMIN_EMAIL)")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password (SEED_ADMIN_PASSWORD)")
	samples := flag.Bool("samples", false, "create two sample waste reports")
	configPath := flag.String("config", "./config", "directory holding config.yaml")
	flag.Parse()

	if *email != "" && *password == "" {
		log.Fatal("An admin password is required with -email (or SEED_ADMIN_PASSWORD)")
	}

	// Seeding never signs tokens, so JWT_SECRET is not required here.
	cfg, err := config.LoadStorageConfig(*configPath)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	authService := auth.NewService(db, nil)
	reportService := reports.NewService(db, reports.WithPhoneRegion(cfg.Reports.PhoneRegion))

	result, err := database.SeedDemoData(ctx, db, authService, reportService, database.SeedOptions{
		AdminEmail:    *email,
		AdminPassword: *password,
		Samples:       *samples,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println("Database seeded successfully")
	for _, site := range result.Sites {
		fmt.Printf("  site   %d  %s\n", site.ID, site.Name)
	}
	if result.AdminCreated {
		fmt.Printf("  admin  %s\n", *email)
	}
	for _, report := range result.Reports {
		fmt.Printf("  report %d  %s  %s\n", report.ID, report.WasteType, report.Status)
	}
}
