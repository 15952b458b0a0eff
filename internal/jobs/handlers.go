package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/observability"

	"github.com/hibiken/asynq"
)

// BookingLoader fetches a booking with its owner.
type BookingLoader interface {
	GetByID(ctx context.Context, id uint) (*models.Booking, error)
}

// Handlers processes the tasks defined in this package.
type Handlers struct {
	Sender   mailer.Sender
	Bookings BookingLoader
	Location *time.Location
	Duration time.Duration
}

// Mux routes task types to handlers.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(recordResult)
	mux.HandleFunc(TypeEmailSend, h.HandleEmail)
	mux.HandleFunc(TypeBookingReminder, h.HandleReminder)
	return mux
}

func recordResult(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := next.ProcessTask(ctx, t)
		result := "ok"
		if err != nil {
			result = "error"
			middleware.Logger.ErrorContext(ctx, "task failed",
				slog.String("task", t.Type()),
				slog.String("error", err.Error()),
			)
		}
		observability.JobResults.WithLabelValues(t.Type(), result).Inc()
		return err
	})
}

// HandleEmail delivers a queued message. Malformed payloads are not retried.
func (h *Handlers) HandleEmail(ctx context.Context, t *asynq.Task) error {
	var msg mailer.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("email without recipient: %w", asynq.SkipRetry)
	}
	if err := h.Sender.Send(ctx, msg); err != nil {
		observability.NotificationResults.WithLabelValues(msg.Kind, "error").Inc()
		return err
	}
	observability.NotificationResults.WithLabelValues(msg.Kind, "sent").Inc()
	return nil
}

// HandleReminder sends the session reminder if the booking is still
// approved for the slot the reminder was scheduled for.
func (h *Handlers) HandleReminder(ctx context.Context, t *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	b, err := h.Bookings.GetByID(ctx, p.BookingID)
	if models.IsCode(err, models.CodeNotFound) {
		return fmt.Errorf("booking %d: %v: %w", p.BookingID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	log := middleware.Logger.With(slog.Uint64("booking_id", uint64(b.ID)))
	if b.Status != models.BookingStatusApproved {
		log.InfoContext(ctx, "reminder skipped", slog.String("status", string(b.Status)))
		return nil
	}
	if b.Date != p.Date || b.Time != p.Time {
		log.InfoContext(ctx, "reminder skipped; session was rescheduled")
		return nil
	}

	msg := mailer.Reminder(mailer.Session{Booking: b, Location: h.Location, Duration: h.Duration})
	if err := h.Sender.Send(ctx, msg); err != nil {
		observability.NotificationResults.WithLabelValues(msg.Kind, "error").Inc()
		return err
	}
	observability.NotificationResults.WithLabelValues(msg.Kind, "sent").Inc()
	return nil
}
