package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kellia855/mindbridge/internal/broker"
	"github.com/Kellia855/mindbridge/internal/featureflags"
	"github.com/Kellia855/mindbridge/internal/mailer"
	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/observability"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/validation"
)

// Approval status strings and messages returned to staff.
const (
	ApprovalStatusOK       = "booking approved"
	ApprovalStatusDegraded = "booking approved (Google Meet creation failed)"

	approvalMessageOK       = "Booking approved! Google Meet invitation sent to student email."
	approvalMessageDegraded = "Please create meeting link manually"
	approvalMessageExisting = "Booking was already approved with a meeting link."
)

// ReminderScheduler queues the day-before reminder for an approved session.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, b *models.Booking, loc *time.Location, now time.Time) (bool, error)
}

// BookingNotifier pushes booking changes to connected browsers.
type BookingNotifier interface {
	NotifyBooking(ctx context.Context, evt models.BookingEvent) error
}

// BookingDeps wires a BookingService. Only Bookings and Users are
// required; nil collaborators fall back to no-op implementations.
type BookingDeps struct {
	Bookings  repository.BookingRepository
	Users     repository.UserRepository
	Meetings  meeting.Provisioner
	Mail      mailer.Sender
	Reminders ReminderScheduler
	Realtime  BookingNotifier
	Events    broker.EventPublisher
	Flags     *featureflags.Manager

	Location        *time.Location
	SessionDuration time.Duration
	// ProviderTimeout bounds each collaborator call.
	ProviderTimeout time.Duration
	Now             func() time.Time
}

// BookingService runs the booking lifecycle.
type BookingService struct {
	bookings  repository.BookingRepository
	users     repository.UserRepository
	meetings  meeting.Provisioner
	mail      mailer.Sender
	reminders ReminderScheduler
	realtime  BookingNotifier
	events    broker.EventPublisher
	flags     *featureflags.Manager

	loc      *time.Location
	duration time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewBookingService creates a BookingService.
func NewBookingService(d BookingDeps) *BookingService {
	s := &BookingService{
		bookings:  d.Bookings,
		users:     d.Users,
		meetings:  d.Meetings,
		mail:      d.Mail,
		reminders: d.Reminders,
		realtime:  d.Realtime,
		events:    d.Events,
		flags:     d.Flags,
		loc:       d.Location,
		duration:  d.SessionDuration,
		timeout:   d.ProviderTimeout,
		now:       d.Now,
	}
	if s.meetings == nil {
		s.meetings = meeting.Noop{}
	}
	if s.mail == nil {
		s.mail = mailer.Log{}
	}
	if s.events == nil {
		s.events = broker.Discard{}
	}
	if s.flags == nil {
		s.flags = featureflags.NewManager("")
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.duration <= 0 {
		s.duration = time.Hour
	}
	if s.timeout <= 0 {
		s.timeout = 15 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateBookingInput is the body of POST /api/bookings.
type CreateBookingInput struct {
	Date            string `json:"date" validate:"required,date"`
	Time            string `json:"time" validate:"required,clock"`
	SessionType     string `json:"session_type" validate:"required,session_type"`
	Reason          string `json:"reason" validate:"required,max=5000"`
	AdditionalNotes string `json:"additional_notes" validate:"max=5000"`
	FullName        string `json:"full_name" validate:"max=200"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	PhoneNumber     string `json:"phone_number" validate:"max=20"`
}

// RescheduleInput is the body of POST /api/bookings/:id/reschedule.
type RescheduleInput struct {
	Date string `json:"date" validate:"required,date"`
	Time string `json:"time" validate:"required,clock"`
}

// ApprovalResult tells full success apart from a degraded approval.
type ApprovalResult struct {
	Status   string              `json:"status"`
	MeetLink *string             `json:"meet_link"`
	EventID  *string             `json:"event_id"`
	Outcome  meeting.OutcomeKind `json:"outcome"`
	Message  string              `json:"message"`
	Booking  *models.Booking     `json:"booking"`
}

// CancelResult reports whether the remote calendar event was removed.
type CancelResult struct {
	Booking         *models.Booking `json:"booking"`
	CalendarDeleted bool            `json:"calendar_deleted"`
}

// RescheduleResult reports whether the calendar event was re-synced.
type RescheduleResult struct {
	Booking        *models.Booking `json:"booking"`
	CalendarSynced bool            `json:"calendar_synced"`
}

// SessionTypeOption is one entry of the session type picker.
type SessionTypeOption struct {
	Value models.SessionType `json:"value"`
	Label string             `json:"label"`
}

// SessionTypes lists the bookable session types.
func (s *BookingService) SessionTypes() []SessionTypeOption {
	out := make([]SessionTypeOption, 0, len(models.SessionTypes))
	for _, t := range models.SessionTypes {
		out = append(out, SessionTypeOption{Value: t, Label: t.DisplayName()})
	}
	return out
}

func (s *BookingService) refuse(op, reason string, err error) error {
	observability.BookingRejections.WithLabelValues(op, reason).Inc()
	return err
}

func (s *BookingService) notPast(date string) error {
	if date < today(s.now(), s.loc) {
		return models.NewValidationError("Booking date cannot be in the past")
	}
	return nil
}

// Create submits a pending booking for the actor.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, error) {
	if err := validation.Struct(in); err != nil {
		return nil, s.refuse("create", "validation", err)
	}
	if err := s.notPast(in.Date); err != nil {
		return nil, s.refuse("create", "validation", err)
	}

	owner, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		StudentID:       owner.ID,
		FullName:        in.FullName,
		Email:           in.Email,
		PhoneNumber:     in.PhoneNumber,
		Date:            in.Date,
		Time:            in.Time,
		SessionType:     models.SessionType(in.SessionType),
		Reason:          in.Reason,
		AdditionalNotes: in.AdditionalNotes,
		Status:          models.BookingStatusPending,
	}
	b.BackfillContact(owner)
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	b.Student = owner

	observability.BookingTransitions.WithLabelValues(string(models.BookingStatusPending)).Inc()
	middleware.Logger.InfoContext(ctx, "booking created",
		slog.Uint64("booking_id", uint64(b.ID)),
		slog.String("date", b.Date),
		slog.String("session_type", string(b.SessionType)),
	)
	s.publish(ctx, models.BookingEventCreated, b, actor.ID)
	return b, nil
}

// List returns every booking to staff and the actor's own to students.
func (s *BookingService) List(ctx context.Context, actor Actor, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown status %q", filter.Status))
	}
	if !actor.IsStaff() {
		id := actor.ID
		filter.StudentID = &id
	}
	return s.bookings.List(ctx, filter)
}

// Get returns a booking visible to its owner and to staff.
func (s *BookingService) Get(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && b.StudentID != actor.ID {
		return nil, models.NewForbiddenError("You can only view your own bookings")
	}
	return b, nil
}

// Approve moves a booking to approved and tries to provision the meeting.
// Provisioning runs under the booking's row lock, bounded by the provider
// timeout, so concurrent approvals cannot create two meetings; the status
// and link are committed together. If that commit fails the new calendar
// event is deleted. A provisioning failure still approves the booking.
func (s *BookingService) Approve(ctx context.Context, actor Actor, id uint) (*ApprovalResult, error) {
	if !actor.IsStaff() {
		return nil, s.refuse("approve", "forbidden", models.NewForbiddenError("Only the wellness team can approve bookings"))
	}
	permissive := s.flags.Enabled(featureflags.PermissiveApproval, actor.ID)

	var outcome meeting.Outcome
	b, err := s.bookings.Mutate(ctx, id, func(ctx context.Context, b *models.Booking) error {
		if !b.CanApprove(permissive) {
			return models.NewInvalidTransitionError(b.Status, models.BookingStatusApproved)
		}

		if b.HasCalendarEvent() {
			outcome = meeting.NotApplicable()
		} else {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			outcome = meeting.Attempt(pctx, s.meetings, b)
			cancel()
		}

		b.Status = models.BookingStatusApproved
		if outcome.Kind == meeting.OutcomeProvisioned {
			m := outcome.Meeting
			b.MeetLink = &m.JoinLink
			b.CalendarEventID = &m.EventID
			if m.ConferenceID != "" {
				b.MeetingID = &m.ConferenceID
			}
		}
		return nil
	})
	if err != nil {
		if outcome.Kind == meeting.OutcomeProvisioned {
			// nothing references the event once the approval rolled back
			s.deleteEvent(ctx, outcome.Meeting.EventID)
		}
		if models.IsCode(err, models.CodeInvalidTransition) {
			observability.BookingRejections.WithLabelValues("approve", "invalid_transition").Inc()
		}
		return nil, err
	}

	observability.BookingTransitions.WithLabelValues(string(models.BookingStatusApproved)).Inc()
	observability.ProvisioningOutcomes.WithLabelValues("create", string(outcome.Kind)).Inc()

	log := middleware.Logger.With(slog.Uint64("booking_id", uint64(b.ID)), slog.String("outcome", string(outcome.Kind)))
	result := &ApprovalResult{
		Status:   ApprovalStatusOK,
		MeetLink: b.MeetLink,
		EventID:  b.CalendarEventID,
		Outcome:  outcome.Kind,
		Booking:  b,
	}
	switch outcome.Kind {
	case meeting.OutcomeProvisioned:
		result.Message = approvalMessageOK
		log.InfoContext(ctx, "booking approved")
		s.notify(ctx, mailer.Approval(s.session(b), *b.MeetLink))
	case meeting.OutcomeNotApplicable:
		result.Message = approvalMessageExisting
		log.InfoContext(ctx, "booking re-approved; meeting already provisioned")
	default:
		result.Status = ApprovalStatusDegraded
		result.Message = approvalMessageDegraded
		log.WarnContext(ctx, "booking approved without meeting link", slog.String("error", errString(outcome.Err)))
	}

	s.scheduleReminder(ctx, b)
	s.publish(ctx, models.BookingEventApproved, b, actor.ID)
	return result, nil
}

// Reject declines a booking and stores the staff notes verbatim.
func (s *BookingService) Reject(ctx context.Context, actor Actor, id uint, notes string) (*models.Booking, error) {
	if !actor.IsStaff() {
		return nil, s.refuse("reject", "forbidden", models.NewForbiddenError("Only the wellness team can reject bookings"))
	}
	permissive := s.flags.Enabled(featureflags.PermissiveApproval, actor.ID)

	var staleEvent string
	b, err := s.bookings.Mutate(ctx, id, func(_ context.Context, b *models.Booking) error {
		if !b.CanApprove(permissive) {
			return models.NewInvalidTransitionError(b.Status, models.BookingStatusRejected)
		}
		if b.HasCalendarEvent() {
			staleEvent = *b.CalendarEventID
		}
		b.Status = models.BookingStatusRejected
		b.Notes = notes
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeInvalidTransition) {
			observability.BookingRejections.WithLabelValues("reject", "invalid_transition").Inc()
		}
		return nil, err
	}

	observability.BookingTransitions.WithLabelValues(string(models.BookingStatusRejected)).Inc()
	middleware.Logger.InfoContext(ctx, "booking rejected", slog.Uint64("booking_id", uint64(b.ID)))

	if staleEvent != "" {
		s.deleteEvent(ctx, staleEvent)
	}
	s.notify(ctx, mailer.Rejection(s.session(b)))
	s.publish(ctx, models.BookingEventRejected, b, actor.ID)
	return b, nil
}

// Cancel withdraws a pending or approved booking. Only the owner may
// cancel. A stored calendar event is removed best-effort.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id uint) (*CancelResult, error) {
	b, err := s.bookings.Mutate(ctx, id, func(_ context.Context, b *models.Booking) error {
		if b.StudentID != actor.ID {
			return models.NewForbiddenError("You can only cancel your own bookings")
		}
		if !b.CanCancel() {
			return models.NewInvalidTransitionError(b.Status, models.BookingStatusCancelled)
		}
		b.Status = models.BookingStatusCancelled
		return nil
	})
	switch {
	case models.IsCode(err, models.CodeForbidden):
		return nil, s.refuse("cancel", "forbidden", err)
	case models.IsCode(err, models.CodeInvalidTransition):
		return nil, s.refuse("cancel", "invalid_transition", err)
	case err != nil:
		return nil, err
	}

	observability.BookingTransitions.WithLabelValues(string(models.BookingStatusCancelled)).Inc()
	middleware.Logger.InfoContext(ctx, "booking cancelled", slog.Uint64("booking_id", uint64(b.ID)))

	result := &CancelResult{Booking: b}
	if b.HasCalendarEvent() {
		result.CalendarDeleted = s.deleteEvent(ctx, *b.CalendarEventID)
	}
	s.notify(ctx, mailer.Cancellation(s.session(b)))
	s.publish(ctx, models.BookingEventCancelled, b, actor.ID)
	return result, nil
}

// Reschedule moves a pending or approved booking to a new slot. An
// approved booking's calendar event is re-synced best-effort.
func (s *BookingService) Reschedule(ctx context.Context, actor Actor, id uint, in RescheduleInput) (*RescheduleResult, error) {
	if !actor.IsStaff() {
		return nil, s.refuse("reschedule", "forbidden", models.NewForbiddenError("Only the wellness team can reschedule bookings"))
	}
	if err := validation.Struct(in); err != nil {
		return nil, s.refuse("reschedule", "validation", err)
	}
	if err := s.notPast(in.Date); err != nil {
		return nil, s.refuse("reschedule", "validation", err)
	}

	b, err := s.bookings.Mutate(ctx, id, func(_ context.Context, b *models.Booking) error {
		if !b.CanCancel() {
			return &models.AppError{
				Code:    models.CodeInvalidTransition,
				Message: fmt.Sprintf("cannot reschedule a %s booking", b.Status),
			}
		}
		b.Date = in.Date
		b.Time = in.Time
		return nil
	})
	if err != nil {
		if models.IsCode(err, models.CodeInvalidTransition) {
			observability.BookingRejections.WithLabelValues("reschedule", "invalid_transition").Inc()
		}
		return nil, err
	}

	result := &RescheduleResult{Booking: b}
	if b.Status == models.BookingStatusApproved && b.HasCalendarEvent() {
		pctx, cancel := detached(ctx, s.timeout)
		err := s.meetings.Update(pctx, b)
		cancel()
		result.CalendarSynced = err == nil
		outcome := meeting.OutcomeProvisioned
		if err != nil {
			outcome = meeting.OutcomeFailed
		}
		observability.ProvisioningOutcomes.WithLabelValues("update", string(outcome)).Inc()
		logBestEffort(ctx, "calendar update", err, slog.Uint64("booking_id", uint64(b.ID)))
	}
	if b.Status == models.BookingStatusApproved {
		s.scheduleReminder(ctx, b)
	}
	s.publish(ctx, models.BookingEventRescheduled, b, actor.ID)
	return result, nil
}

// MarkCompleted sets every listed booking to completed regardless of its
// current status.
func (s *BookingService) MarkCompleted(ctx context.Context, actor Actor, ids []uint) ([]models.Booking, error) {
	if !actor.IsStaff() {
		return nil, s.refuse("complete", "forbidden", models.NewForbiddenError("Only the wellness team can complete bookings"))
	}
	if len(ids) == 0 {
		return nil, s.refuse("complete", "validation", models.NewValidationError("booking_ids is required"))
	}

	updated, err := s.bookings.MarkCompleted(ctx, ids)
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues(string(models.BookingStatusCompleted)).Add(float64(len(updated)))
	for i := range updated {
		s.publish(ctx, models.BookingEventCompleted, &updated[i], actor.ID)
	}
	return updated, nil
}

func (s *BookingService) session(b *models.Booking) mailer.Session {
	return mailer.Session{Booking: b, Location: s.loc, Duration: s.duration}
}

// notify sends msg to the booking owner. Failures are logged only.
func (s *BookingService) notify(ctx context.Context, msg mailer.Message) {
	if msg.To == "" {
		observability.NotificationResults.WithLabelValues(msg.Kind, "skipped").Inc()
		middleware.Logger.WarnContext(ctx, "no recipient for notification", slog.String("kind", msg.Kind))
		return
	}

	nctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	fields := map[string]interface{}{"kind": msg.Kind}
	observability.LogAsyncOperationStart(nctx, "notification.send", fields)
	if err := s.mail.Send(nctx, msg); err != nil {
		observability.NotificationResults.WithLabelValues(msg.Kind, "error").Inc()
		observability.LogAsyncOperationError(nctx, "notification.send", err, fields)
		return
	}
	observability.NotificationResults.WithLabelValues(msg.Kind, "dispatched").Inc()
	observability.LogAsyncOperationEnd(nctx, "notification.send", fields)
}

func (s *BookingService) deleteEvent(ctx context.Context, eventID string) bool {
	dctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	err := s.meetings.Delete(dctx, eventID)
	outcome := meeting.OutcomeProvisioned
	if err != nil {
		outcome = meeting.OutcomeFailed
	}
	observability.ProvisioningOutcomes.WithLabelValues("delete", string(outcome)).Inc()
	logBestEffort(ctx, "calendar delete", err, slog.String("event_id", eventID))
	return err == nil
}

func (s *BookingService) scheduleReminder(ctx context.Context, b *models.Booking) {
	if s.reminders == nil || !s.flags.Enabled(featureflags.SessionReminders, b.StudentID) {
		return
	}
	rctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	_, err := s.reminders.ScheduleReminder(rctx, b, s.loc, s.now())
	logBestEffort(ctx, "schedule reminder", err, slog.Uint64("booking_id", uint64(b.ID)))
}

func (s *BookingService) publish(ctx context.Context, typ models.BookingEventType, b *models.Booking, actorID uint) {
	evt := models.NewBookingEvent(typ, b, actorID, s.now().UTC())
	pctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	if s.realtime != nil {
		logBestEffort(ctx, "realtime push", s.realtime.NotifyBooking(pctx, evt), slog.String("event", string(typ)))
	}
	logBestEffort(ctx, "integration event", s.events.PublishBookingEvent(pctx, evt), slog.String("event", string(typ)))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
