package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Kellia855/mindbridge/internal/meeting"
	"github.com/Kellia855/mindbridge/internal/models"
	"github.com/Kellia855/mindbridge/internal/service"
	"github.com/Kellia855/mindbridge/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRequest = map[string]any{
	"date":         "2025-06-01",
	"time":         "10:00",
	"session_type": "individual",
	"reason":       "Exam stress",
}

func (e *testEnv) createBooking() models.Booking {
	e.t.Helper()
	status, raw := e.do(http.MethodPost, "/api/bookings", e.student, bookingRequest)
	require.Equal(e.t, http.StatusCreated, status, string(raw))
	return decode[models.Booking](e.t, raw)
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)

	b := env.createBooking()
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, env.student.ID, b.StudentID)
	assert.Equal(t, "amina@alu.edu", b.Email)
	assert.Nil(t, b.MeetLink)
}

func TestCreateBooking_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"past date", map[string]any{"date": "2025-05-19", "time": "10:00", "session_type": "individual", "reason": "x"}},
		{"bad time", map[string]any{"date": "2025-06-01", "time": "25:00", "session_type": "individual", "reason": "x"}},
		{"unknown session type", map[string]any{"date": "2025-06-01", "time": "10:00", "session_type": "yoga", "reason": "x"}},
		{"missing reason", map[string]any{"date": "2025-06-01", "time": "10:00", "session_type": "group"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := env.do(http.MethodPost, "/api/bookings", env.student, tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, raw).Code)
		})
	}
}

func TestCreateBooking_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(http.MethodPost, "/api/bookings", nil, bookingRequest)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestApproveBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/approve", b.ID), env.staff, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	result := decode[service.ApprovalResult](t, raw)
	assert.Equal(t, service.ApprovalStatusOK, result.Status)
	assert.Equal(t, meeting.OutcomeProvisioned, result.Outcome)
	require.NotNil(t, result.MeetLink)
	assert.Equal(t, "https://meet.example/stub", *result.MeetLink)
	require.NotNil(t, result.EventID)
	assert.Equal(t, "evt-stub", *result.EventID)
	assert.Equal(t, models.BookingStatusApproved, result.Booking.Status)

	msgs := env.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "amina@alu.edu", msgs[0].To)
	assert.Contains(t, msgs[0].Body, "https://meet.example/stub")
}

func TestApproveBooking_ProvisioningFailureStillApproves(t *testing.T) {
	env := newTestEnv(t)
	env.meet.CreateFn = func(context.Context, *models.Booking) (*meeting.Meeting, error) {
		return nil, errors.New("calendar quota exceeded")
	}
	b := env.createBooking()

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/approve", b.ID), env.staff, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	result := decode[service.ApprovalResult](t, raw)
	assert.Equal(t, service.ApprovalStatusDegraded, result.Status)
	assert.Equal(t, meeting.OutcomeFailed, result.Outcome)
	assert.Nil(t, result.MeetLink)
	assert.Equal(t, models.BookingStatusApproved, result.Booking.Status)
}

func TestApproveBooking_StudentForbidden(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/approve", b.ID), env.student, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, raw).Code)
	assert.Equal(t, 0, env.meet.Creates())
}

func TestApproveBooking_SecondApprovalConflicts(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()
	path := fmt.Sprintf("/api/bookings/%d/approve", b.ID)

	status, _ := env.do(http.MethodPost, path, env.staff, nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := env.do(http.MethodPost, path, env.staff, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeInvalidTransition, decode[models.ErrorResponse](t, raw).Code)
	assert.Equal(t, 1, env.meet.Creates())
}

func TestApproveBooking_PermissiveReapproval(t *testing.T) {
	env := newTestEnv(t, withFlags("permissive_approval=on"))
	b := env.createBooking()
	path := fmt.Sprintf("/api/bookings/%d/approve", b.ID)

	status, _ := env.do(http.MethodPost, path, env.staff, nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := env.do(http.MethodPost, path, env.staff, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	result := decode[service.ApprovalResult](t, raw)
	assert.Equal(t, meeting.OutcomeNotApplicable, result.Outcome)
	assert.Equal(t, 1, env.meet.Creates())
}

func TestApproveBooking_NotFound(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(http.MethodPost, "/api/bookings/999/approve", env.staff, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRejectBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/reject", b.ID), env.staff,
		map[string]any{"notes": "Please book a group session instead"})
	require.Equal(t, http.StatusOK, status, string(raw))

	got := decode[models.Booking](t, raw)
	assert.Equal(t, models.BookingStatusRejected, got.Status)
	assert.Equal(t, "Please book a group session instead", got.Notes)
	require.Len(t, env.mail.Messages(), 1)
}

func TestRejectBooking_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/reject", b.ID), env.staff, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, models.BookingStatusRejected, decode[models.Booking](t, raw).Status)
}

func TestCancelBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()
	status, _ := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/approve", b.ID), env.staff, nil)
	require.Equal(t, http.StatusOK, status)

	other := testutil.CreateUser(t, env.db, "brian", models.RoleStudent)
	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/cancel", b.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/cancel", b.ID), env.student, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	result := decode[service.CancelResult](t, raw)
	assert.True(t, result.CalendarDeleted)
	assert.Equal(t, models.BookingStatusCancelled, result.Booking.Status)
	assert.Equal(t, []string{"evt-stub"}, env.meet.Deleted())

	status, _ = env.do(http.MethodPost, fmt.Sprintf("/api/bookings/%d/cancel", b.ID), env.student, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRescheduleBooking(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()
	path := fmt.Sprintf("/api/bookings/%d/reschedule", b.ID)
	slot := map[string]any{"date": "2025-06-03", "time": "14:30"}

	status, _ := env.do(http.MethodPost, path, env.student, slot)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := env.do(http.MethodPost, path, env.staff, slot)
	require.Equal(t, http.StatusOK, status, string(raw))
	result := decode[service.RescheduleResult](t, raw)
	assert.Equal(t, "2025-06-03", result.Booking.Date)
	assert.Equal(t, "14:30", result.Booking.Time)
}

func TestListAndGetBookings_Scoping(t *testing.T) {
	env := newTestEnv(t)
	mine := env.createBooking()
	other := testutil.CreateUser(t, env.db, "brian", models.RoleStudent)
	status, _ := env.do(http.MethodPost, "/api/bookings", other, bookingRequest)
	require.Equal(t, http.StatusCreated, status)

	status, raw := env.do(http.MethodGet, "/api/bookings", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	own := decode[[]models.Booking](t, raw)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	status, raw = env.do(http.MethodGet, "/api/bookings?status=pending", env.staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Booking](t, raw), 2)

	status, _ = env.do(http.MethodGet, "/api/bookings?status=lost", env.staff, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(http.MethodGet, fmt.Sprintf("/api/bookings/%d", mine.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(http.MethodGet, fmt.Sprintf("/api/bookings/%d", mine.ID), env.staff, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestGetSessionTypes(t *testing.T) {
	env := newTestEnv(t)

	status, raw := env.do(http.MethodGet, "/api/bookings/session-types", env.student, nil)
	require.Equal(t, http.StatusOK, status)
	types := decode[[]service.SessionTypeOption](t, raw)
	require.Len(t, types, 4)
	assert.Equal(t, "Individual Counseling", types[0].Label)
}

func TestCompleteBookings(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBooking()

	status, _ := env.do(http.MethodPost, "/api/admin/bookings/complete", env.student,
		map[string]any{"booking_ids": []uint{b.ID}})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := env.do(http.MethodPost, "/api/admin/bookings/complete", env.staff,
		map[string]any{"booking_ids": []uint{b.ID}})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, strings.Contains(string(raw), `"completed":1`))

	status, _ = env.do(http.MethodPost, "/api/admin/bookings/complete", env.staff,
		map[string]any{"booking_ids": []uint{}})
	assert.Equal(t, http.StatusBadRequest, status)
}
