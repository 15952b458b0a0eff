package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kellia855/mindbridge/internal/broker"
	"github.com/Kellia855/mindbridge/internal/config"
	"github.com/Kellia855/mindbridge/internal/credentials"
	"github.com/Kellia855/mindbridge/internal/jobs"
	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/server"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Collaborators are the external services the booking workflow talks to.
type Collaborators struct {
	Meetings meeting.Provisioner
	// Mail is what the API uses. With MAIL_ASYNC it queues to the worker.
	Mail mailer.Sender
	// Direct delivers immediately and backs the worker's email task.
	Direct    mailer.Sender
	Reminders *jobs.Client
	Events    broker.EventPublisher

	closers []func() error
}

// Deps adapts the collaborators for server.NewServerWithDeps.
func (c *Collaborators) Deps() server.Deps {
	d := server.Deps{
		Meetings: c.Meetings,
		Mail:     c.Mail,
		Events:   c.Events,
	}
	// Avoid a typed nil inside the interface
	if c.Reminders != nil {
		d.Reminders = c.Reminders
	}
	return d
}

// Close releases queue and broker connections.
func (c *Collaborators) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildCollaborators constructs the providers selected in cfg. Google
// providers share one OAuth client and one rate limiter.
func BuildCollaborators(ctx context.Context, cfg *config.Config) (*Collaborators, error) {
	loc, err := cfg.SessionLocation()
	if err != nil {
		return nil, err
	}
	c := &Collaborators{}
	limiter := newLimiter(cfg.ProviderRatePerSecond)

	var google []option.ClientOption
	if cfg.MeetingProvider == config.ProviderGoogle || cfg.MailProvider == config.ProviderGmail {
		google, err = googleOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.MeetingProvider {
	case config.ProviderGoogle:
		g, err := meeting.NewGoogle(ctx, meeting.GoogleConfig{
			CalendarID: cfg.GoogleCalendarID,
			Location:   loc,
			Duration:   cfg.SessionDuration(),
			Timeout:    cfg.ProviderTimeout(),
			Limiter:    limiter,
		}, google...)
		if err != nil {
			return nil, err
		}
		c.Meetings = g
	default:
		c.Meetings = meeting.Noop{}
	}

	switch cfg.MailProvider {
	case config.ProviderGmail:
		g, err := mailer.NewGmail(ctx, mailer.GmailConfig{
			From:    cfg.MailFrom,
			Timeout: cfg.ProviderTimeout(),
			Limiter: limiter,
		}, google...)
		if err != nil {
			return nil, err
		}
		c.Direct = g
	default:
		c.Direct = mailer.Log{}
	}
	c.Mail = c.Direct

	if cfg.RedisURL != "" {
		opt, err := jobs.RedisOpt(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		client := asynq.NewClient(opt)
		c.closers = append(c.closers, client.Close)
		c.Reminders = jobs.NewClient(client)
		if cfg.MailAsync {
			c.Mail = jobs.QueuedSender{Client: c.Reminders}
		}
	}

	events, closeEvents, err := broker.Connect(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect event broker: %w", err)
	}
	c.Events = events
	c.closers = append(c.closers, closeEvents)

	middleware.Logger.Info("collaborators ready",
		slog.String("meeting_provider", providerName(cfg.MeetingProvider, config.ProviderDisabled)),
		slog.String("mail_provider", providerName(cfg.MailProvider, config.ProviderLog)),
		slog.Bool("mail_async", c.Reminders != nil && cfg.MailAsync),
		slog.Bool("events", cfg.AMQPURL != ""),
	)
	return c, nil
}

func googleOptions(ctx context.Context, cfg *config.Config) ([]option.ClientOption, error) {
	provider, err := credentials.NewProvider(cfg.GoogleClientSecretFile, cfg.GoogleTokenFile)
	if err != nil {
		return nil, err
	}
	if err := provider.Init(); err != nil {
		return nil, err
	}
	client, err := provider.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithHTTPClient(client)}, nil
}

func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

func providerName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
