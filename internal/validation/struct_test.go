package validation

import (
	"testing"

	"github.com/Kellia855/mindbridge/internal/models"

	"github.com/stretchr/testify/assert"
)

type bookingInput struct {
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,clock"`
	SessionType string `json:"session_type" validate:"required,session_type"`
	Reason      string `json:"reason" validate:"required,max=2000"`
	Email       string `json:"email" validate:"omitempty,email"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(bookingInput{Date: "2025-06-01", Time: "10:00", SessionType: "individual", Reason: "stress"})
	assert.NoError(t, err)
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(bookingInput{Date: "06/01/2025", Time: "25:00", SessionType: "yoga", Email: "nope"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	msg := err.Error()
	assert.Contains(t, msg, "date must use the YYYY-MM-DD format")
	assert.Contains(t, msg, "time must use the HH:MM format")
	assert.Contains(t, msg, `session_type has an unknown value "yoga"`)
	assert.Contains(t, msg, "reason is required")
	assert.Contains(t, msg, "email must be a valid email address")
}

func TestStruct_ShortTimesRejected(t *testing.T) {
	err := Struct(bookingInput{Date: "2025-6-1", Time: "9:00", SessionType: "group", Reason: "x"})
	assert.Error(t, err)
}
