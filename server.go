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

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"classnotifier/internal/config"
	"classnotifier/internal/notifier"
	"classnotifier/internal/queue"
	"classnotifier/internal/routes"
	"classnotifier/internal/security"
	"classnotifier/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	// Initialize Firebase connection
	if err := config.InitFireStore(); err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer config.CloseFirebaseConnection()

	// Initialize dispatch service
	if err := notifier.InitDispatchService(settings); err != nil {
		log.Fatalf("Failed to initialize dispatch service: %v", err)
	}

	// Initialize task queue
	if err := queue.InitQueue(settings.RedisAddr); err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}
	defer queue.Close()

	// Initialize security features
	security.InitSecurity()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.NewWorker(settings.RedisAddr)
	go func() {
		if err := w.Start(ctx); err != nil {
			slog.Error("Worker failed", "error", err)
			stop()
		}
	}()

	scheduler, err := worker.NewScheduler(settings.RedisAddr, settings.SchedulerTimezone)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			slog.Error("Scheduler failed", "error", err)
			stop()
		}
	}()

	e := echo.New()
	e.HideBanner = true

	api := e.Group("/api")
	routes.SetupRoutes(api)

	go func() {
		if err := e.Start(settings.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down HTTP server", "error", err)
	}
}
