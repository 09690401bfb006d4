package wizard

import (
	"context"
	"testing"

	"kairon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatedSubmitter(t *testing.T) {
	booking := new(mockBookingAPI)
	s := NewAuthenticatedSubmitter(booking, "company-1")

	draft := models.BookingDraft{
		ServiceID:      "s1",
		ProfessionalID: "p1",
		Date:           june10,
		Time:           "09:30",
		ClientName:     "Maria",
		ClientPhone:    "+55",
		ClientEmail:    "maria@example.com",
	}
	want := models.CreateAppointmentRequest{
		CompanyID:      "company-1",
		ProfessionalID: "p1",
		ServiceIDs:     []string{"s1"},
		StartTime:      "2024-06-10T09:30:00",
		ClientName:     "Maria",
		ClientPhone:    "+55",
		ClientEmail:    "maria@example.com",
	}
	booking.On("CreateAppointment", mock.Anything, want).Return(&models.Appointment{ID: "a1"}, nil).Once()

	appt, err := s.Submit(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "a1", appt.ID)
	booking.AssertExpectations(t)

	draft.Time = "bad"
	_, err = s.Submit(context.Background(), draft)
	assert.Error(t, err)
}

func TestValidEmail(t *testing.T) {
	valid := []string{"ana@example.com", "a.b+c@sub.example.org"}
	invalid := []string{"foo", "foo@", "@example.com", "Ana <ana@example.com>", "ana@localhost", "ana @example.com"}

	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	verr := ValidationErrors{FieldTime: "select a time", FieldDate: "select a date"}
	assert.Equal(t, "validation failed: date: select a date; time: select a time", verr.Error())
	assert.True(t, verr.Has(FieldDate))
	assert.False(t, verr.Has(FieldClientName))
}
