// cmd/api/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"wte-api-server/config"
	"wte-api-server/internal/api/routes"
	"wte-api-server/internal/auth"
	"wte-api-server/internal/database"
	"wte-api-server/internal/reports"
	"wte-api-server/internal/s3"
	"wte-api-server/internal/socket"
)

func main() {
	started := time.Now()

	// 1. Load configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the database
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Services
	tokens, err := auth.NewTokenService([]byte(cfg.JWT.Secret), auth.WithTokenTTL(cfg.JWT.Expiration))
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}
	authService := auth.NewService(db, tokens)

	wsHub := socket.NewHub()
	reportOpts := []reports.Option{
		reports.WithPublisher(wsHub),
		reports.WithPhoneRegion(cfg.Reports.PhoneRegion),
	}
	if cfg.S3.Enabled() {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create S3 uploader: %v", err)
		}
		reportOpts = append(reportOpts, reports.WithPhotoStore(uploader))
		log.Printf("Proof photo uploads enabled (bucket %s)", cfg.S3.Bucket)
	}
	reportService := reports.NewService(db, reportOpts...)

	// 4. Router
	router := routes.SetupRouter(routes.Dependencies{
		Config:  cfg,
		Auth:    authService,
		Tokens:  tokens,
		Reports: reportService,
		Hub:     wsHub,
		DB:      db,
		Started: started,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Start server
	go func() {
		log.Printf("Starting API server on port %s (%s)", cfg.Server.Port, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}
	log.Println("Server stopped")
}
