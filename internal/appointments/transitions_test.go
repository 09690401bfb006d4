package appointments

import (
	"testing"

	"kairon/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.AppointmentStatus
		valid    bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPending, models.StatusNoShow, true},
		{models.StatusPending, models.StatusCompleted, false},
		{models.StatusConfirmed, models.StatusCompleted, true},
		{models.StatusConfirmed, models.StatusCancelled, true},
		{models.StatusConfirmed, models.StatusNoShow, true},
		{models.StatusConfirmed, models.StatusPending, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusNoShow, models.StatusCompleted, false},
		{"RESCHEDULED", models.StatusConfirmed, false},
	}

	for _, tt := range cases {
		if got := CanTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("CanTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(models.StatusPending))
	assert.False(t, IsTerminal(models.StatusConfirmed))
	assert.True(t, IsTerminal(models.StatusCompleted))
	assert.True(t, IsTerminal(models.StatusCancelled))
	assert.True(t, IsTerminal(models.StatusNoShow))
	assert.False(t, IsTerminal("UNKNOWN"))
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t, []models.AppointmentStatus{models.StatusConfirmed, models.StatusCancelled, models.StatusNoShow}, AvailableActions(models.StatusPending))
	assert.Empty(t, AvailableActions(models.StatusCompleted))
	assert.Empty(t, AvailableActions("UNKNOWN"))

	actions := AvailableActions(models.StatusConfirmed)
	actions[0] = "MUTATED"
	assert.Equal(t, models.StatusCompleted, AvailableActions(models.StatusConfirmed)[0])
}

func TestReasonRequired(t *testing.T) {
	assert.True(t, ReasonRequired(models.StatusCancelled))
	assert.False(t, ReasonRequired(models.StatusNoShow))
	assert.False(t, ReasonRequired(models.StatusConfirmed))
}
