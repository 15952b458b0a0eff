package models

import "time"

// BookingEventType names a booking lifecycle occurrence published to
// realtime subscribers and the integration exchange.
type BookingEventType string

const (
	BookingEventCreated     BookingEventType = "booking.created"
	BookingEventApproved    BookingEventType = "booking.approved"
	BookingEventRejected    BookingEventType = "booking.rejected"
	BookingEventCancelled   BookingEventType = "booking.cancelled"
	BookingEventCompleted   BookingEventType = "booking.completed"
	BookingEventRescheduled BookingEventType = "booking.rescheduled"
)

// BookingEvent is the payload published when a booking changes.
type BookingEvent struct {
	Type        BookingEventType `json:"type"`
	BookingID   uint             `json:"booking_id"`
	StudentID   uint             `json:"student_id"`
	ActorID     uint             `json:"actor_id"`
	Status      BookingStatus    `json:"status"`
	Date        string           `json:"date"`
	Time        string           `json:"time"`
	SessionType SessionType      `json:"session_type"`
	MeetLink    *string          `json:"meet_link,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// NewBookingEvent snapshots b for publishing.
func NewBookingEvent(eventType BookingEventType, b *Booking, actorID uint, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		StudentID:   b.StudentID,
		ActorID:     actorID,
		Status:      b.Status,
		Date:        b.Date,
		Time:        b.Time,
		SessionType: b.SessionType,
		MeetLink:    b.MeetLink,
		OccurredAt:  at,
	}
}
