// Package meeting provisions the remote calendar event and video link for
// an approved counseling session.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kellia855/mindbridge/internal/models"
)

var (
	// ErrNotProvisioned is returned by Update and Delete when the booking
	// has no stored calendar event.
	ErrNotProvisioned = errors.New("no calendar event recorded")
	// ErrNoLink is returned by Create when the provider answered without
	// a join link.
	ErrNoLink = errors.New("provider returned no join link")
	// ErrDisabled is returned by the no-op provisioner.
	ErrDisabled = errors.New("meeting provisioning disabled")
)

// Meeting is what a successful Create returns.
type Meeting struct {
	JoinLink     string `json:"join_link"`
	EventID      string `json:"event_id"`
	ConferenceID string `json:"conference_id,omitempty"`
	HTMLLink     string `json:"external_link,omitempty"`
}

// Provisioner creates, re-syncs and removes the remote event for a booking.
// Callers treat every failure as non-fatal.
type Provisioner interface {
	Create(ctx context.Context, b *models.Booking) (*Meeting, error)
	Update(ctx context.Context, b *models.Booking) error
	Delete(ctx context.Context, eventID string) error
}

// OutcomeKind tags the result of a provisioning attempt.
type OutcomeKind string

const (
	OutcomeProvisioned   OutcomeKind = "provisioned"
	OutcomeFailed        OutcomeKind = "provisioning_failed"
	OutcomeNotApplicable OutcomeKind = "not_applicable"
)

// Outcome is the tagged result of a provisioning attempt. Meeting is set
// only for OutcomeProvisioned and Err only for OutcomeFailed.
type Outcome struct {
	Kind    OutcomeKind
	Meeting *Meeting
	Err     error
}

func Provisioned(m *Meeting) Outcome { return Outcome{Kind: OutcomeProvisioned, Meeting: m} }
func Failed(err error) Outcome       { return Outcome{Kind: OutcomeFailed, Err: err} }
func NotApplicable() Outcome         { return Outcome{Kind: OutcomeNotApplicable} }

// Attempt runs Create and folds the result into an Outcome. An empty join
// link counts as a failure.
func Attempt(ctx context.Context, p Provisioner, b *models.Booking) Outcome {
	m, err := p.Create(ctx, b)
	if err != nil {
		return Failed(err)
	}
	if m == nil || m.JoinLink == "" {
		return Failed(ErrNoLink)
	}
	return Provisioned(m)
}

// Summary is the calendar event title.
func Summary(b *models.Booking) string {
	return "MindBridge Counseling Session - " + bookingName(b)
}

// Description lists the booking details shown in the calendar event.
func Description(b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString("Counseling session booked through MindBridge.\n\n")
	fmt.Fprintf(&sb, "Student: %s\n", bookingName(b))
	fmt.Fprintf(&sb, "Email: %s\n", b.EffectiveEmail())
	fmt.Fprintf(&sb, "Phone: %s\n", orNotProvided(b.PhoneNumber))
	fmt.Fprintf(&sb, "Session Type: %s\n", b.SessionType.DisplayName())
	fmt.Fprintf(&sb, "Reason: %s\n", b.Reason)
	fmt.Fprintf(&sb, "Additional Notes: %s\n", orNotProvided(b.AdditionalNotes))
	return sb.String()
}

func bookingName(b *models.Booking) string {
	if b.FullName != "" {
		return b.FullName
	}
	if b.Student != nil {
		return b.Student.FullName()
	}
	return "Student"
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not provided"
	}
	return s
}

// Noop is used when MEETING_PROVIDER=disabled. Every approval then asks
// staff to share a link manually.
type Noop struct{}

func (Noop) Create(context.Context, *models.Booking) (*Meeting, error) { return nil, ErrDisabled }

func (Noop) Update(_ context.Context, b *models.Booking) error {
	if !b.HasCalendarEvent() {
		return ErrNotProvisioned
	}
	return ErrDisabled
}

func (Noop) Delete(_ context.Context, eventID string) error {
	if eventID == "" {
		return ErrNotProvisioned
	}
	return ErrDisabled
}
