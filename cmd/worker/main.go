// Command worker processes queued emails and booking reminders.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/Kellia855/mindbridge/internal/bootstrap"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/database"
	"github.com/Kellia855/mindbridge/internal/jobs"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/repository"
)

var errNoRedis = errors.New("REDIS_URL is required to run the worker")

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	middleware.ConfigureLogger(cfg.Env, os.Getenv("LOG_LEVEL"))

	if cfg.RedisURL == "" {
		return errNoRedis
	}
	opt, err := jobs.RedisOpt(cfg.RedisURL)
	if err != nil {
		return err
	}
	loc, err := cfg.SessionLocation()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}

	collab, err := bootstrap.BuildCollaborators(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer collab.Close()

	handlers := &jobs.Handlers{
		Sender:   collab.Direct,
		Bookings: repository.NewBookingRepository(db),
		Location: loc,
		Duration: cfg.SessionDuration(),
	}

	middleware.Logger.Info("worker starting")
	// Run blocks until SIGINT or SIGTERM
	return jobs.NewServer(opt, cfg.WorkerConcurrency).Run(handlers.Mux())
}
