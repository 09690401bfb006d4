package appointments

import (
	"math/rand"
	"testing"
	"time"

	"kairon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestBuildStatsScenario(t *testing.T) {
	appts := []models.Appointment{
		{Status: models.StatusPending, TotalPrice: 100},
		{Status: models.StatusCompleted, ActualPrice: price(80), TotalPrice: 100},
		{Status: models.StatusCancelled, TotalPrice: 50},
	}

	got := BuildStats(appts)
	assert.Equal(t, models.AppointmentStats{
		Total:     3,
		Pending:   1,
		Completed: 1,
		Cancelled: 1,
		Revenue:   230,
	}, got)
}

// Cancelled and no-show prices are included in revenue. Whether that models a
// cancellation fee or is an accident is not settled; this pins current behavior.
func TestBuildStatsRevenueIncludesCancelledAndNoShow(t *testing.T) {
	appts := []models.Appointment{
		{Status: models.StatusCancelled, TotalPrice: 40},
		{Status: models.StatusNoShow, TotalPrice: 60},
	}
	assert.Equal(t, 100.0, BuildStats(appts).Revenue)
}

func TestBuildStatsUnknownStatus(t *testing.T) {
	appts := []models.Appointment{
		{Status: "RESCHEDULED", TotalPrice: 10},
		{Status: "pending", TotalPrice: 10},
		{Status: models.StatusConfirmed, TotalPrice: 10},
	}

	got := BuildStats(appts)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 0, got.Pending, "status match is exact")
	assert.Equal(t, 1, got.Confirmed)
	assert.Equal(t, 30.0, got.Revenue)
}

func TestBuildStatsEmpty(t *testing.T) {
	assert.Equal(t, models.AppointmentStats{}, BuildStats(nil))
}

func TestBuildStatsTotals(t *testing.T) {
	statuses := append([]models.AppointmentStatus{"", "ARCHIVED"}, models.AllStatuses...)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := rng.Intn(30)
		appts := make([]models.Appointment, n)
		unknown := 0
		for j := range appts {
			appts[j].Status = statuses[rng.Intn(len(statuses))]
			if !appts[j].Status.Known() {
				unknown++
			}
		}

		s := BuildStats(appts)
		bucketed := s.Pending + s.Confirmed + s.Completed + s.Cancelled + s.NoShow
		require.Equal(t, n, s.Total)
		require.LessOrEqual(t, bucketed, s.Total)
		require.Equal(t, s.Total-unknown, bucketed)
	}
}

func TestStatsByProfessional(t *testing.T) {
	appts := []models.Appointment{
		{Professional: models.ProfessionalRef{ID: "p2", Name: "Bia"}, Status: models.StatusPending, TotalPrice: 20},
		{Professional: models.ProfessionalRef{ID: "p1", Name: "Ana"}, Status: models.StatusCompleted, TotalPrice: 50},
		{Professional: models.ProfessionalRef{ID: "p1", Name: "Ana"}, Status: models.StatusCompleted, TotalPrice: 30, ActualPrice: price(25)},
	}

	got := StatsByProfessional(appts)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ProfessionalID)
	assert.Equal(t, "Ana", got[0].ProfessionalName)
	assert.Equal(t, 2, got[0].Stats.Completed)
	assert.Equal(t, 75.0, got[0].Stats.Revenue)
	assert.Equal(t, "p2", got[1].ProfessionalID)
	assert.Equal(t, 1, got[1].Stats.Pending)
}

func TestRevenueByDay(t *testing.T) {
	at := func(day, hour int) models.Timestamp {
		return models.Timestamp{Time: time.Date(2024, time.June, day, hour, 0, 0, 0, time.UTC)}
	}
	appts := []models.Appointment{
		{StartTime: at(11, 9), TotalPrice: 40},
		{StartTime: at(10, 15), TotalPrice: 30},
		{StartTime: at(10, 9), TotalPrice: 100, ActualPrice: price(90)},
		{TotalPrice: 999},
	}

	got := RevenueByDay(appts, time.UTC)
	require.Len(t, got, 2)
	assert.Equal(t, DayRevenue{Date: models.NewDate(2024, time.June, 10), Revenue: 120, Count: 2}, got[0])
	assert.Equal(t, DayRevenue{Date: models.NewDate(2024, time.June, 11), Revenue: 40, Count: 1}, got[1])
}

func TestRevenueByDayNearMidnight(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	appts := []models.Appointment{
		{StartTime: models.Timestamp{Time: time.Date(2024, time.June, 10, 1, 0, 0, 0, time.UTC)}, TotalPrice: 50},
		{StartTime: models.Timestamp{Time: time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)}, TotalPrice: 20},
	}

	got := RevenueByDay(appts, saoPaulo)
	require.Len(t, got, 2)
	assert.Equal(t, DayRevenue{Date: models.NewDate(2024, time.June, 9), Revenue: 50, Count: 1}, got[0])
	assert.Equal(t, DayRevenue{Date: models.NewDate(2024, time.June, 10), Revenue: 20, Count: 1}, got[1])
}
