package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/stopmotion-pipeline/internal/config"
	"github.com/tendant/stopmotion-pipeline/internal/handlers"
	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

// Standalone session server for quick testing
// Configuration comes from .env and STOPMOTION_* variables only
func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("STOPMOTION_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log.Printf("Stop-motion Standalone Server")
	log.Printf("  ffmpeg: %s", cfg.Encoder.FFmpegPath)
	log.Printf("  Work directory: %s", cfg.Encoder.WorkDir)
	log.Printf("  HTTP address: %s", cfg.Server.HTTPAddr)

	reg := prometheus.NewRegistry()
	session, err := runner.New(runner.Config{
		FFmpegPath:       cfg.Encoder.FFmpegPath,
		WorkDir:          cfg.Encoder.WorkDir,
		FrameWorkers:     cfg.Encoder.FrameWorkers,
		DefaultFrameRate: cfg.Session.DefaultFrameRate,
		Logger:           logger,
		Registerer:       reg,
	})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	if err := session.LoadEncoder(context.Background()); err != nil {
		log.Printf("✗ Encoder unavailable: %v (retry with POST /v1/encoder/load)", err)
	} else {
		log.Printf("✓ Encoder ready")
	}

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handlers.NewAPIHandler(session, logger, reg).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("✓ Session server ready on %s", cfg.Server.HTTPAddr)
		log.Printf("")
		log.Printf("Available endpoints:")
		log.Printf("  GET    /health               - Health check")
		log.Printf("  GET    /metrics              - Prometheus metrics")
		log.Printf("  GET    /v1/session           - Full session state")
		log.Printf("  POST   /v1/images            - Upload images (multipart field \"files\")")
		log.Printf("  DELETE /v1/images/{id}       - Remove an image")
		log.Printf("  PUT    /v1/order             - Reorder images")
		log.Printf("  POST   /v1/steps/next        - Advance to finalize")
		log.Printf("  POST   /v1/steps/back        - Go back one step")
		log.Printf("  PUT    /v1/frame-rate        - Set frame rate text")
		log.Printf("  POST   /v1/preview/toggle    - Start or stop the preview")
		log.Printf("  POST   /v1/encoder/load      - Load or retry the encoder")
		log.Printf("  POST   /v1/process           - Start an encode")
		log.Printf("  GET    /v1/runs/{runID}      - Encode run status")
		log.Printf("  GET    /v1/artifact          - Download the latest video")
		log.Printf("  GET    /v1/blobs/{handle}    - Fetch a preview or artifact")
		log.Printf("")
		log.Printf("Quick test:")
		log.Printf("  go run ./examples/trigger frame1.png frame2.png")
		log.Printf("")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
