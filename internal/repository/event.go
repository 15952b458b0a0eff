package repository

import (
	"context"

	"github.com/Kellia855/mindbridge/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const registeredCountSelect = "events.*, (SELECT COUNT(*) FROM event_registrations er WHERE er.event_id = events.id) AS registered_count"

// EventRepository defines persistence operations for events and registrations.
type EventRepository interface {
	List(ctx context.Context, scope models.EventScope, today string, viewerID uint) ([]models.Event, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Archive(ctx context.Context, id uint) error

	Register(ctx context.Context, eventID, studentID uint) (*models.EventRegistration, error)
	Unregister(ctx context.Context, eventID, studentID uint) error
	ListForStudent(ctx context.Context, studentID uint) ([]models.EventRegistration, error)
	ListRegistrations(ctx context.Context, eventID uint) ([]models.EventRegistration, error)
	SetAttended(ctx context.Context, registrationID uint, attended bool) (*models.EventRegistration, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns a new EventRepository implementation.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) withCounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Event{}).Select(registeredCountSelect)
}

func (r *eventRepository) List(ctx context.Context, scope models.EventScope, today string, viewerID uint) ([]models.Event, error) {
	q := r.withCounts(ctx).Where("events.is_active = ?", true)
	switch scope {
	case models.EventScopePast:
		q = q.Where("events.date < ?", today).Order("events.date DESC")
	case models.EventScopeAll:
		q = q.Order("events.date DESC")
	default:
		q = q.Where("events.date >= ?", today).Order("events.date ASC")
	}

	var events []models.Event
	if err := q.Order("events.start_time ASC").Find(&events).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.markRegistered(ctx, events, viewerID); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Event, error) {
	var event models.Event
	if err := r.withCounts(ctx).Where("events.id = ?", id).Take(&event).Error; err != nil {
		return nil, dbError(err, "Event", id)
	}
	events := []models.Event{event}
	if err := r.markRegistered(ctx, events, viewerID); err != nil {
		return nil, err
	}
	return &events[0], nil
}

func (r *eventRepository) markRegistered(ctx context.Context, events []models.Event, viewerID uint) error {
	if viewerID == 0 || len(events) == 0 {
		return nil
	}
	ids := make([]uint, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	var registered []uint
	if err := r.db.WithContext(ctx).Model(&models.EventRegistration{}).
		Where("student_id = ? AND event_id IN ?", viewerID, ids).
		Pluck("event_id", &registered).Error; err != nil {
		return models.NewInternalError(err)
	}
	set := make(map[uint]struct{}, len(registered))
	for _, id := range registered {
		set[id] = struct{}{}
	}
	for i := range events {
		_, events[i].IsRegistered = set[events[i].ID]
	}
	return nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return dbError(r.db.WithContext(ctx).Omit(clause.Associations).Create(event).Error, "Event", event.ID)
}

func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	res := r.db.WithContext(ctx).Model(event).
		Select("title", "description", "date", "start_time", "end_time", "location", "max_participants", "image_url", "is_active").
		Updates(event)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Event", event.ID)
	}
	return nil
}

func (r *eventRepository) Archive(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Event", id)
	}
	return nil
}

// Register locks the event row so concurrent sign-ups cannot overshoot
// the capacity.
func (r *eventRepository) Register(ctx context.Context, eventID, studentID uint) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventID).Error; err != nil {
			return dbError(err, "Event", eventID)
		}
		if !event.IsActive {
			return models.NewValidationError("Event is no longer accepting registrations")
		}

		var existing int64
		if err := tx.Model(&models.EventRegistration{}).
			Where("event_id = ? AND student_id = ?", eventID, studentID).
			Count(&existing).Error; err != nil {
			return models.NewInternalError(err)
		}
		if existing > 0 {
			return models.NewConflictError("Already registered for this event")
		}

		var count int64
		if err := tx.Model(&models.EventRegistration{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		event.RegisteredCount = int(count)
		if event.IsFull() {
			return models.NewValidationError("Event is full")
		}

		reg = models.EventRegistration{EventID: eventID, StudentID: studentID}
		if err := tx.Omit(clause.Associations).Create(&reg).Error; err != nil {
			if isUniqueViolation(err) {
				return models.NewConflictError("Already registered for this event")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *eventRepository) Unregister(ctx context.Context, eventID, studentID uint) error {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND student_id = ?", eventID, studentID).
		Delete(&models.EventRegistration{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Registration for event", eventID)
	}
	return nil
}

func (r *eventRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.EventRegistration, error) {
	var regs []models.EventRegistration
	err := r.db.WithContext(ctx).Preload("Event").
		Where("student_id = ?", studentID).
		Order("registered_at DESC").
		Find(&regs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return regs, nil
}

func (r *eventRepository) ListRegistrations(ctx context.Context, eventID uint) ([]models.EventRegistration, error) {
	var regs []models.EventRegistration
	err := r.db.WithContext(ctx).Preload("Student").
		Where("event_id = ?", eventID).
		Order("registered_at ASC").
		Find(&regs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return regs, nil
}

func (r *eventRepository) SetAttended(ctx context.Context, registrationID uint, attended bool) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	if err := r.db.WithContext(ctx).First(&reg, registrationID).Error; err != nil {
		return nil, dbError(err, "Registration", registrationID)
	}
	if err := r.db.WithContext(ctx).Model(&reg).Update("attended", attended).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	reg.Attended = attended
	return &reg, nil
}
