package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kellia855/mindbridge/internal/models"
)

// Date and time layouts used in email bodies.
const (
	longDateLayout = "January 2, 2006"
	clockLayout    = "03:04 PM"
)

const signature = `Best regards,
The MindBridge Wellness Team
African Leadership University`

// Session describes the booked slot for templates.
type Session struct {
	Booking  *models.Booking
	Location *time.Location
	Duration time.Duration
}

func (s Session) when() (string, string) {
	start, err := s.Booking.SlotStart(s.Location)
	if err != nil {
		return s.Booking.Date, s.Booking.Time
	}
	return start.Format(longDateLayout), start.Format(clockLayout)
}

func (s Session) minutes() int {
	if s.Duration <= 0 {
		return 60
	}
	return int(s.Duration / time.Minute)
}

// Approval is sent when staff approve a booking with a meeting link.
func Approval(s Session, meetLink string) Message {
	date, clock := s.when()
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", s.Booking.EffectiveName())
	body.WriteString("Your counseling session booking has been approved!\n\n")
	fmt.Fprintf(&body, "Date: %s\nTime: %s\nDuration: %d minutes\nType: %s\n\n",
		date, clock, s.minutes(), s.Booking.SessionType.DisplayName())
	fmt.Fprintf(&body, "Join your session using the Google Meet link below:\n%s\n\n", meetLink)
	body.WriteString(`Before your session:
- Test your camera and microphone beforehand
- Use headphones for better audio quality
- Have a glass of water nearby
- Keep your phone on silent

IMPORTANT:
- Save this email for easy access to your meeting link
- You can also find the meeting link in your MindBridge dashboard
- If you need to cancel, please do so at least 24 hours in advance

We're looking forward to supporting you on your wellness journey!

`)
	body.WriteString(signature)

	return Message{
		To:      s.Booking.EffectiveEmail(),
		Subject: "Booking Approved - Your Session is Confirmed!",
		Body:    body.String(),
		Kind:    "approval",
	}
}

// Rejection carries the staff notes verbatim.
func Rejection(s Session) Message {
	date, clock := s.when()
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", s.Booking.EffectiveName())
	fmt.Fprintf(&body, "We were unable to approve your %s request for %s at %s.\n\n",
		s.Booking.SessionType.DisplayName(), date, clock)
	if notes := strings.TrimSpace(s.Booking.Notes); notes != "" {
		fmt.Fprintf(&body, "Note from the wellness team:\n%s\n\n", notes)
	}
	body.WriteString("You are welcome to request another time from your MindBridge dashboard.\n\n")
	body.WriteString(signature)

	return Message{
		To:      s.Booking.EffectiveEmail(),
		Subject: "Booking Update - Session Not Approved",
		Body:    body.String(),
		Kind:    "rejection",
	}
}

// Cancellation confirms an owner's cancellation.
func Cancellation(s Session) Message {
	date, clock := s.when()
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", s.Booking.EffectiveName())
	fmt.Fprintf(&body, "Your %s on %s at %s has been cancelled.\n\n",
		s.Booking.SessionType.DisplayName(), date, clock)
	body.WriteString(signature)

	return Message{
		To:      s.Booking.EffectiveEmail(),
		Subject: "Booking Cancelled",
		Body:    body.String(),
		Kind:    "cancellation",
	}
}

// Reminder is sent a day before an approved session.
func Reminder(s Session) Message {
	date, clock := s.when()
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", s.Booking.EffectiveName())
	fmt.Fprintf(&body, "This is a reminder of your %s tomorrow, %s at %s.\n\n",
		s.Booking.SessionType.DisplayName(), date, clock)
	if s.Booking.MeetLink != nil && *s.Booking.MeetLink != "" {
		fmt.Fprintf(&body, "Join here: %s\n\n", *s.Booking.MeetLink)
	}
	body.WriteString(signature)

	return Message{
		To:      s.Booking.EffectiveEmail(),
		Subject: "Reminder - Your MindBridge Session Is Tomorrow",
		Body:    body.String(),
		Kind:    "reminder",
	}
}
