// Command server is the entry point for the MindBridge API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kellia855/mindbridge/internal/bootstrap"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/observability"
	"github.com/Kellia855/mindbridge/internal/server"
)

// @title MindBridge API
// @version 1.0
// @description University wellness platform: counseling bookings with Google Meet provisioning, wellness events, community stories and a resource library.

// @contact.name MindBridge Wellness Team
// @contact.email wellness@alueducation.com

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "mindbridge-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.OTelEnabled,
		Exporter:       cfg.OTelExporter,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SamplerRatio:   1,
	})
	if err != nil {
		log.Fatalf("Failed to initialise tracing: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedLibrary: cfg.Env == "development"})
	if err != nil {
		log.Fatalf("Failed to initialise runtime: %v", err)
	}

	collab, err := bootstrap.BuildCollaborators(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build collaborators: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb, collab.Deps())
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			middleware.Logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := collab.Close(); err != nil {
			middleware.Logger.Error("collaborator shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
