// Package jobs defines the background tasks processed by cmd/worker and
// the client the API uses to enqueue them.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeEmailSend       = "email:send"
	TypeBookingReminder = "booking:reminder"
)

// Queues and their weights on the worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// Queues maps queue names to worker priority.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
}

const (
	emailMaxRetry    = 5
	reminderMaxRetry = 3
	// ReminderLead is how long before the session the reminder goes out.
	ReminderLead = 24 * time.Hour
)

// ReminderPayload identifies the booking and the slot the reminder was
// scheduled for. A reminder for a slot that has since moved is dropped.
type ReminderPayload struct {
	BookingID uint   `json:"booking_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Enqueuer is the part of *asynq.Client used here.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues background tasks.
type Client struct {
	q Enqueuer
}

// NewClient wraps an asynq client.
func NewClient(q Enqueuer) *Client {
	return &Client{q: q}
}

// NewEmailTask builds an email:send task.
func NewEmailTask(msg mailer.Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailSend, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(emailMaxRetry)), nil
}

// NewReminderTask builds a booking:reminder task for b's current slot.
func NewReminderTask(b *models.Booking) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderPayload{BookingID: b.ID, Date: b.Date, Time: b.Time})
	if err != nil {
		return nil, fmt.Errorf("encode reminder payload: %w", err)
	}
	return asynq.NewTask(TypeBookingReminder, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(reminderMaxRetry)), nil
}

// EnqueueEmail queues msg for delivery by the worker.
func (c *Client) EnqueueEmail(ctx context.Context, msg mailer.Message) error {
	task, err := NewEmailTask(msg)
	if err != nil {
		return err
	}
	if _, err := c.q.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeEmailSend, err)
	}
	return nil
}

// ScheduleReminder queues a reminder ReminderLead before the session. It
// does nothing when that moment has already passed. Scheduling the same
// booking slot twice is a no-op.
func (c *Client) ScheduleReminder(ctx context.Context, b *models.Booking, loc *time.Location, now time.Time) (bool, error) {
	start, err := b.SlotStart(loc)
	if err != nil {
		return false, err
	}
	at := start.Add(-ReminderLead)
	if !at.After(now) {
		return false, nil
	}

	task, err := NewReminderTask(b)
	if err != nil {
		return false, err
	}
	id := fmt.Sprintf("booking-reminder-%d-%sT%s", b.ID, b.Date, b.Time)
	_, err = c.q.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.TaskID(id))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", TypeBookingReminder, err)
	}
	return true, nil
}

// QueuedSender implements mailer.Sender by handing messages to the worker.
type QueuedSender struct {
	Client *Client
}

func (s QueuedSender) Send(ctx context.Context, msg mailer.Message) error {
	if msg.To == "" {
		return mailer.ErrNoRecipient
	}
	return s.Client.EnqueueEmail(ctx, msg)
}
