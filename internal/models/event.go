package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultEventCapacity is used when an event is created without a limit.
const DefaultEventCapacity = 50

// Event is a wellness activity students can register for.
type Event struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Date            string    `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime       string    `gorm:"type:varchar(5)" json:"start_time"`
	EndTime         string    `gorm:"type:varchar(5)" json:"end_time"`
	Location        string    `gorm:"size:200" json:"location"`
	OrganizerID     *uint     `gorm:"index" json:"organizer_id"`
	Organizer       *User     `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	MaxParticipants int       `gorm:"not null;default:50" json:"max_participants"`
	ImageURL        string    `gorm:"size:500" json:"image_url"`
	IsActive        bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Computed at query time
	RegisteredCount int  `gorm:"->;-:migration" json:"registered_count"`
	IsRegistered    bool `gorm:"-" json:"is_registered"`
	Full            bool `gorm:"-" json:"is_full"`
	Remaining       int  `gorm:"-" json:"spots_remaining"`
}

// TableName specifies the table name for GORM.
func (Event) TableName() string {
	return "events"
}

// AfterFind fills the derived capacity fields.
func (e *Event) AfterFind(_ *gorm.DB) error {
	e.Resolve()
	return nil
}

// Resolve recomputes is_full and spots_remaining from RegisteredCount.
func (e *Event) Resolve() {
	e.Full = e.IsFull()
	e.Remaining = e.SpotsRemaining()
}

// IsFull reports whether the event reached capacity.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.MaxParticipants
}

// SpotsRemaining never goes below zero.
func (e *Event) SpotsRemaining() int {
	if remaining := e.MaxParticipants - e.RegisteredCount; remaining > 0 {
		return remaining
	}
	return 0
}

// EventRegistration links a student to an event.
type EventRegistration struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EventID      uint      `gorm:"not null;uniqueIndex:idx_event_registration_pair" json:"event_id"`
	Event        *Event    `gorm:"foreignKey:EventID" json:"event,omitempty"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_event_registration_pair;index" json:"student_id"`
	Student      *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Attended     bool      `gorm:"not null;default:false" json:"attended"`
	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`
}

// TableName specifies the table name for GORM.
func (EventRegistration) TableName() string {
	return "event_registrations"
}

// EventScope selects upcoming, past or all events.
type EventScope string

const (
	EventScopeUpcoming EventScope = "upcoming"
	EventScopePast     EventScope = "past"
	EventScopeAll      EventScope = "all"
)
