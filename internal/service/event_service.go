package service

import (
	"context"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/repository"
	"github.com/Kellia855/mindbridge/internal/validation"
)

type EventService struct {
	eventRepo repository.EventRepository
	loc       *time.Location
	now       func() time.Time
}

func NewEventService(eventRepo repository.EventRepository, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{eventRepo: eventRepo, loc: loc, now: time.Now}
}

// EventInput is the body for creating or replacing an event.
type EventInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description" validate:"max=10000"`
	Date            string `json:"date" validate:"required,date"`
	StartTime       string `json:"start_time" validate:"omitempty,clock"`
	EndTime         string `json:"end_time" validate:"omitempty,clock"`
	Location        string `json:"location" validate:"max=200"`
	MaxParticipants int    `json:"max_participants" validate:"omitempty,min=1"`
	ImageURL        string `json:"image_url" validate:"omitempty,url,max=500"`
	IsActive        *bool  `json:"is_active"`
}

func (in EventInput) validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.StartTime != "" && in.EndTime != "" && in.EndTime <= in.StartTime {
		return models.NewValidationError("end_time must be after start_time")
	}
	return nil
}

func (in EventInput) apply(e *models.Event) {
	e.Title = in.Title
	e.Description = in.Description
	e.Date = in.Date
	e.StartTime = in.StartTime
	e.EndTime = in.EndTime
	e.Location = in.Location
	e.ImageURL = in.ImageURL
	e.MaxParticipants = in.MaxParticipants
	if e.MaxParticipants == 0 {
		e.MaxParticipants = models.DefaultEventCapacity
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
}

func requireStaff(actor Actor, what string) error {
	if !actor.IsStaff() {
		return models.NewForbiddenError("Only the wellness team can " + what)
	}
	return nil
}

// List returns active events in scope, flagging the ones actor joined.
func (s *EventService) List(ctx context.Context, actor Actor, scope models.EventScope) ([]models.Event, error) {
	switch scope {
	case "":
		scope = models.EventScopeUpcoming
	case models.EventScopeUpcoming, models.EventScopePast, models.EventScopeAll:
	default:
		return nil, models.NewValidationError("scope must be upcoming, past or all")
	}
	return s.eventRepo.List(ctx, scope, today(s.now(), s.loc), actor.ID)
}

func (s *EventService) Get(ctx context.Context, actor Actor, id uint) (*models.Event, error) {
	return s.eventRepo.GetByID(ctx, id, actor.ID)
}

func (s *EventService) Create(ctx context.Context, actor Actor, in EventInput) (*models.Event, error) {
	if err := requireStaff(actor, "create events"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	organizer := actor.ID
	event := &models.Event{OrganizerID: &organizer, IsActive: true}
	in.apply(event)
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	event.Resolve()
	return event, nil
}

func (s *EventService) Update(ctx context.Context, actor Actor, id uint, in EventInput) (*models.Event, error) {
	if err := requireStaff(actor, "edit events"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	in.apply(event)
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	return s.eventRepo.GetByID(ctx, id, actor.ID)
}

// Archive hides an event without deleting its registrations.
func (s *EventService) Archive(ctx context.Context, actor Actor, id uint) error {
	if err := requireStaff(actor, "delete events"); err != nil {
		return err
	}
	return s.eventRepo.Archive(ctx, id)
}

func (s *EventService) Register(ctx context.Context, actor Actor, eventID uint) (*models.EventRegistration, error) {
	return s.eventRepo.Register(ctx, eventID, actor.ID)
}

func (s *EventService) Unregister(ctx context.Context, actor Actor, eventID uint) error {
	return s.eventRepo.Unregister(ctx, eventID, actor.ID)
}

func (s *EventService) MyRegistrations(ctx context.Context, actor Actor) ([]models.EventRegistration, error) {
	return s.eventRepo.ListForStudent(ctx, actor.ID)
}

func (s *EventService) Registrations(ctx context.Context, actor Actor, eventID uint) ([]models.EventRegistration, error) {
	if err := requireStaff(actor, "view registrations"); err != nil {
		return nil, err
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID, 0); err != nil {
		return nil, err
	}
	return s.eventRepo.ListRegistrations(ctx, eventID)
}

func (s *EventService) SetAttended(ctx context.Context, actor Actor, registrationID uint, attended bool) (*models.EventRegistration, error) {
	if err := requireStaff(actor, "record attendance"); err != nil {
		return nil, err
	}
	return s.eventRepo.SetAttended(ctx, registrationID, attended)
}
