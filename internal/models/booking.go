package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Layouts used for the booking slot fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ErrInvalidBookingStatus is returned when a booking is saved with a status
// outside the lifecycle.
var ErrInvalidBookingStatus = errors.New("invalid booking status")

// BookingStatus defines lifecycle states for counseling session bookings.
type BookingStatus string

const (
	// BookingStatusPending indicates the booking awaits staff review.
	BookingStatusPending BookingStatus = "pending"
	// BookingStatusApproved indicates staff accepted the booking.
	BookingStatusApproved BookingStatus = "approved"
	// BookingStatusRejected indicates staff declined the booking.
	BookingStatusRejected BookingStatus = "rejected"
	// BookingStatusCompleted indicates the session took place.
	BookingStatusCompleted BookingStatus = "completed"
	// BookingStatusCancelled indicates the owner withdrew the booking.
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingStatuses lists every lifecycle state.
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusRejected,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// Valid reports whether s is one of the lifecycle states.
func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCompleted || s == BookingStatusCancelled
}

// SessionType is the kind of counseling session requested.
type SessionType string

const (
	SessionTypeIndividual   SessionType = "individual"
	SessionTypeGroup        SessionType = "group"
	SessionTypeCrisis       SessionType = "crisis"
	SessionTypeConsultation SessionType = "consultation"
)

var sessionTypeNames = map[SessionType]string{
	SessionTypeIndividual:   "Individual Counseling",
	SessionTypeGroup:        "Group Therapy",
	SessionTypeCrisis:       "Crisis Support",
	SessionTypeConsultation: "General Consultation",
}

// SessionTypes lists the session types in display order.
var SessionTypes = []SessionType{
	SessionTypeIndividual,
	SessionTypeGroup,
	SessionTypeCrisis,
	SessionTypeConsultation,
}

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	_, ok := sessionTypeNames[t]
	return ok
}

// DisplayName returns the human readable name of the session type.
func (t SessionType) DisplayName() string {
	if name, ok := sessionTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Booking is a student's request for a counseling session.
type Booking struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	StudentID       uint          `gorm:"not null;index" json:"student_id"`
	Student         *User         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	FullName        string        `gorm:"size:200" json:"full_name"`
	Email           string        `gorm:"size:254" json:"email"`
	PhoneNumber     string        `gorm:"size:20" json:"phone_number"`
	Date            string        `gorm:"type:varchar(10);not null;index" json:"date"`
	Time            string        `gorm:"type:varchar(5);not null" json:"time"`
	SessionType     SessionType   `gorm:"type:varchar(20);not null;default:'individual'" json:"session_type"`
	Reason          string        `gorm:"type:text;not null" json:"reason"`
	AdditionalNotes string        `gorm:"type:text" json:"additional_notes"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes           string        `gorm:"type:text" json:"notes"`
	MeetLink        *string       `gorm:"size:500" json:"meet_link"`
	MeetingID       *string       `gorm:"size:100" json:"meeting_id"`
	CalendarEventID *string       `gorm:"size:255" json:"calendar_event_id"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Booking) TableName() string {
	return "bookings"
}

// BeforeSave keeps unknown statuses out of the table. An empty status
// falls back to the column default.
func (b *Booking) BeforeSave(_ *gorm.DB) error {
	if b.Status != "" && !b.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidBookingStatus, b.Status)
	}
	return nil
}

// CanCancel reports whether the owner may still cancel the booking.
func (b *Booking) CanCancel() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusApproved
}

// CanApprove reports whether staff may approve the booking. Strict mode
// only accepts pending bookings; permissive mode accepts any non-terminal
// state.
func (b *Booking) CanApprove(permissive bool) bool {
	if permissive {
		return !b.Status.Terminal()
	}
	return b.Status == BookingStatusPending
}

// HasCalendarEvent reports whether a remote calendar event is recorded.
func (b *Booking) HasCalendarEvent() bool {
	return b.CalendarEventID != nil && *b.CalendarEventID != ""
}

// SlotStart returns the session start in loc.
func (b *Booking) SlotStart(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, b.Date+" "+b.Time, loc)
}

// EffectiveEmail is the address session notices go to: the booking's
// contact email, else the owner's account email.
func (b *Booking) EffectiveEmail() string {
	if b.Email != "" {
		return b.Email
	}
	if b.Student != nil {
		return b.Student.Email
	}
	return ""
}

// EffectiveName is the name used to greet the owner.
func (b *Booking) EffectiveName() string {
	if b.Student != nil && b.Student.FirstName != "" {
		return b.Student.FirstName
	}
	if b.FullName != "" {
		return b.FullName
	}
	if b.Student != nil {
		return b.Student.Username
	}
	return "there"
}

// BackfillContact copies missing contact fields from the owner.
func (b *Booking) BackfillContact(owner *User) {
	if owner == nil {
		return
	}
	if b.FullName == "" {
		b.FullName = owner.FullName()
	}
	if b.Email == "" {
		b.Email = owner.Email
	}
	if b.PhoneNumber == "" {
		b.PhoneNumber = owner.PhoneNumber
	}
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	StudentID *uint
	Status    BookingStatus
	Limit     int
	Offset    int
}
