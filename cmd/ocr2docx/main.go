package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"ocr2docx/internal/config"
	"ocr2docx/internal/http/server"
	"ocr2docx/internal/infra/logging"
	"ocr2docx/internal/infra/scratch"
	"ocr2docx/internal/infra/session"
	"ocr2docx/internal/infra/vision"
)

func main() {
	// A missing .env is fine; the environment may be set by the container.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)

	rdb := session.NewRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	ws := scratch.New(cfg.Storage.UploadDir)
	idleConnsClosed := make(chan struct{})
	go ws.SweepPeriodically(cfg.Storage.SweepInterval, cfg.Storage.Retention, idleConnsClosed)

	app := server.New(server.Deps{
		Config:    cfg,
		Redis:     rdb,
		OCR:       vision.NewClient(cfg.Vision),
		Workspace: ws,
	})

	logging.Info("Starting server", "addr", cfg.Server.Host+cfg.Server.Port, "upload_dir", ws.Root())
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)
	<-sigint

	logging.Warn("Shutdown signal received, closing server...")

	// In-flight conversions may still be polling; give them a few seconds.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
