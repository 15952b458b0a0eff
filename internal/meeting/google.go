package meeting

import (
	"context"
	"fmt"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	collaborator      = "google_calendar"
	conferenceType    = "hangoutsMeet"
	requestIDPrefix   = "mindbridge-"
	emailReminderMins = 24 * 60
	popupReminderMins = 30
)

// GoogleConfig configures the Google Calendar provisioner.
type GoogleConfig struct {
	CalendarID string
	Location   *time.Location
	Duration   time.Duration
	Timeout    time.Duration
	// Limiter is shared with the other Google collaborators. Nil disables
	// client-side throttling.
	Limiter *rate.Limiter
}

// Google provisions Meet links through the Calendar API.
type Google struct {
	events *calendar.EventsService
	cfg    GoogleConfig
}

// NewGoogle builds the provisioner. opts carry the credentials, typically
// option.WithHTTPClient with an oauth2 client.
func NewGoogle(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (*Google, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Google{events: svc.Events, cfg: cfg}, nil
}

func (g *Google) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	ctx, span := observability.StartClientSpan(ctx, collaborator, op, attrs...)
	done := observability.ObserveCollaborator(collaborator, op)
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
		cancel()
	}
}

func bookingAttr(b *models.Booking) attribute.KeyValue {
	return attribute.Int64("booking.id", int64(b.ID))
}

func (g *Google) wait(ctx context.Context) error {
	if g.cfg.Limiter == nil {
		return nil
	}
	return g.cfg.Limiter.Wait(ctx)
}

func (g *Google) slot(b *models.Booking) (*calendar.EventDateTime, *calendar.EventDateTime, error) {
	start, err := b.SlotStart(g.cfg.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("parse booking slot: %w", err)
	}
	end := start.Add(g.cfg.Duration)
	tz := g.cfg.Location.String()
	return &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		&calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
		nil
}

// Create inserts the calendar event with a Meet conference and invites
// the booking's effective email.
func (g *Google) Create(ctx context.Context, b *models.Booking) (m *Meeting, err error) {
	ctx, finish := g.begin(ctx, "create", bookingAttr(b))
	defer func() { finish(err) }()

	start, end, err := g.slot(b)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     Summary(b),
		Description: Description(b),
		Start:       start,
		End:         end,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             fmt.Sprintf("%s%d", requestIDPrefix, b.ID),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: conferenceType},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: emailReminderMins},
				{Method: "popup", Minutes: popupReminderMins},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if email := b.EffectiveEmail(); email != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: email}}
	}

	if err = g.wait(ctx); err != nil {
		return nil, err
	}
	created, err := g.events.Insert(g.cfg.CalendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	m = &Meeting{
		JoinLink: created.HangoutLink,
		EventID:  created.Id,
		HTMLLink: created.HtmlLink,
	}
	if created.ConferenceData != nil {
		m.ConferenceID = created.ConferenceData.ConferenceId
		if m.JoinLink == "" {
			for _, ep := range created.ConferenceData.EntryPoints {
				if ep != nil && ep.EntryPointType == "video" {
					m.JoinLink = ep.Uri
					break
				}
			}
		}
	}
	return m, nil
}

// Update moves the stored event to the booking's current slot.
func (g *Google) Update(ctx context.Context, b *models.Booking) (err error) {
	if !b.HasCalendarEvent() {
		return ErrNotProvisioned
	}
	ctx, finish := g.begin(ctx, "update", bookingAttr(b))
	defer func() { finish(err) }()

	start, end, err := g.slot(b)
	if err != nil {
		return err
	}
	if err = g.wait(ctx); err != nil {
		return err
	}
	_, err = g.events.Patch(g.cfg.CalendarID, *b.CalendarEventID, &calendar.Event{
		Start:       start,
		End:         end,
		Description: Description(b),
	}).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("patch calendar event: %w", err)
	}
	return nil
}

// Delete removes the event and notifies attendees.
func (g *Google) Delete(ctx context.Context, eventID string) (err error) {
	if eventID == "" {
		return ErrNotProvisioned
	}
	ctx, finish := g.begin(ctx, "delete", attribute.String("calendar.event_id", eventID))
	defer func() { finish(err) }()

	if err = g.wait(ctx); err != nil {
		return err
	}
	if err = g.events.Delete(g.cfg.CalendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
