package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Valid(t *testing.T) {
	for _, s := range BookingStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, BookingStatus("archived").Valid())
	assert.False(t, BookingStatus("").Valid())
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.False(t, BookingStatusPending.Terminal())
	assert.False(t, BookingStatusApproved.Terminal())
	assert.True(t, BookingStatusRejected.Terminal())
	assert.True(t, BookingStatusCompleted.Terminal())
	assert.True(t, BookingStatusCancelled.Terminal())
}

func TestBooking_CanCancel(t *testing.T) {
	tests := []struct {
		status BookingStatus
		want   bool
	}{
		{BookingStatusPending, true},
		{BookingStatusApproved, true},
		{BookingStatusRejected, false},
		{BookingStatusCompleted, false},
		{BookingStatusCancelled, false},
	}
	for _, tt := range tests {
		b := &Booking{Status: tt.status}
		assert.Equal(t, tt.want, b.CanCancel(), tt.status)
	}
}

func TestBooking_CanApprove(t *testing.T) {
	pending := &Booking{Status: BookingStatusPending}
	approved := &Booking{Status: BookingStatusApproved}
	rejected := &Booking{Status: BookingStatusRejected}

	assert.True(t, pending.CanApprove(false))
	assert.False(t, approved.CanApprove(false))
	assert.True(t, approved.CanApprove(true))
	assert.False(t, rejected.CanApprove(true))
}

func TestBooking_SlotStart(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Kigali")
	require.NoError(t, err)

	b := &Booking{Date: "2025-06-01", Time: "10:00"}
	start, err := b.SlotStart(loc)
	require.NoError(t, err)
	assert.Equal(t, 2025, start.Year())
	assert.Equal(t, time.June, start.Month())
	assert.Equal(t, 10, start.Hour())
	assert.Equal(t, "2025-06-01T10:00:00+02:00", start.Format(time.RFC3339))

	_, err = (&Booking{Date: "2025-13-01", Time: "10:00"}).SlotStart(loc)
	assert.Error(t, err)
}

func TestBooking_EffectiveEmail(t *testing.T) {
	owner := &User{Email: "owner@alustudent.com"}
	assert.Equal(t, "contact@example.com", (&Booking{Email: "contact@example.com", Student: owner}).EffectiveEmail())
	assert.Equal(t, "owner@alustudent.com", (&Booking{Student: owner}).EffectiveEmail())
	assert.Equal(t, "", (&Booking{}).EffectiveEmail())
}

func TestBooking_BackfillContact(t *testing.T) {
	owner := &User{Username: "amani", FirstName: "Amani", LastName: "K", Email: "a@alustudent.com", PhoneNumber: "+250700000000"}
	b := &Booking{Email: "custom@example.com"}
	b.BackfillContact(owner)

	assert.Equal(t, "Amani K", b.FullName)
	assert.Equal(t, "custom@example.com", b.Email)
	assert.Equal(t, "+250700000000", b.PhoneNumber)
}

func TestBooking_BeforeSaveRejectsUnknownStatus(t *testing.T) {
	b := &Booking{Status: "archived"}
	err := b.BeforeSave(nil)
	assert.ErrorIs(t, err, ErrInvalidBookingStatus)

	b.Status = BookingStatusPending
	assert.NoError(t, b.BeforeSave(nil))
}

func TestSessionType_DisplayName(t *testing.T) {
	assert.Equal(t, "Individual Counseling", SessionTypeIndividual.DisplayName())
	assert.Equal(t, "Crisis Support", SessionTypeCrisis.DisplayName())
	assert.False(t, SessionType("yoga").Valid())
}
