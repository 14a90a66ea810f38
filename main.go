package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	utils "photoflow/internal"
	"photoflow/internal/auth"
	"photoflow/internal/config"
	"photoflow/internal/jobstore"
	"photoflow/internal/reaper"
	"photoflow/internal/response"
	"photoflow/internal/s3"
	"photoflow/internal/upload"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	uploadConfig, err := config.LoadUploadConfig()
	if err != nil {
		log.Fatalf("Failed to load upload config: %v", err)
	}

	jobs, err := jobstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to job store: %v", err)
	}

	s3Client, err := s3.NewClient(ctx, cfg.S3Region, cfg.S3Bucket, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.S3Endpoint)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	planner := upload.NewPlanner(uploadConfig)
	issuer := upload.NewIssuer(s3Client, uploadConfig.URLTTL())
	uploadService := upload.NewService(planner, issuer, jobs, uploadConfig, logger)
	reconciler := upload.NewReconciler(s3Client, jobs, cfg.CDNDomain, logger)
	uploadHandler := upload.NewHandler(uploadService, reconciler)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	jobReaper := reaper.New(jobs, uploadConfig.ReapInterval(), uploadConfig.StaleTimeout(), logger)
	go jobReaper.Run(reaperCtx)

	apiMux := http.NewServeMux()
	uploadHandler.Register(apiMux)
	protected := auth.APIKeyMiddleware(&auth.Config{APIKey: cfg.APIKey})(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", protected)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Plain("OK").Write(w)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s 🚀", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start 🚨: %v", err)
		}
	}()

	signal.Notify(utils.QuitChan, syscall.SIGINT, syscall.SIGTERM)
	<-utils.QuitChan

	log.Println("Shutting down server... 🛑")
	stopReaper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown 🚨: %v", err)
	}

	log.Println("Server exited")
}
