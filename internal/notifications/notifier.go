// Package notifications delivers realtime booking updates to connected
// browsers. Events are fanned out through Redis pub/sub so every API
// replica can reach its own websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	// StaffChannel reaches every connected wellness team member.
	StaffChannel = "notifications:staff"
)

// Envelope is the JSON frame written to websocket clients.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Notifier publishes envelopes into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a Notifier. A nil client makes every publish a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (n *Notifier) publish(ctx context.Context, channel string, env Envelope) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishUser sends env to one user's connections.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, env Envelope) error {
	return n.publish(ctx, UserChannel(userID), env)
}

// PublishStaff sends env to all staff connections.
func (n *Notifier) PublishStaff(ctx context.Context, env Envelope) error {
	return n.publish(ctx, StaffChannel, env)
}

// Envelope types pushed to browsers.
const (
	TypeBookingCreated       = "booking_created"
	TypeBookingStatusChanged = "booking_status_changed"
	TypePostApproved         = "post_approved"
)

// NotifyBooking pushes a booking change. New bookings go to staff. Status
// changes go to the owner and to staff.
func (n *Notifier) NotifyBooking(ctx context.Context, evt models.BookingEvent) error {
	if evt.Type == models.BookingEventCreated {
		return n.PublishStaff(ctx, Envelope{Type: TypeBookingCreated, Payload: evt})
	}
	env := Envelope{Type: TypeBookingStatusChanged, Payload: evt}
	if err := n.PublishUser(ctx, evt.StudentID, env); err != nil {
		return err
	}
	return n.PublishStaff(ctx, env)
}

// NotifyPostApproved tells the author their story is live.
func (n *Notifier) NotifyPostApproved(ctx context.Context, post *models.Post) error {
	return n.PublishUser(ctx, post.AuthorID, Envelope{
		Type:    TypePostApproved,
		Payload: map[string]interface{}{"post_id": post.ID, "category": post.Category},
	})
}

// Subscribe listens on every user channel and the staff channel and calls
// onMessage for each message until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", StaffChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// parseUserChannel extracts the user id from a user channel name.
func parseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
