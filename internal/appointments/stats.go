package appointments

import (
	"sort"
	"time"

	"kairon/internal/models"
)

// BuildStats folds the list in one pass. Unknown statuses count toward Total only.
// Revenue sums the charged price of every appointment regardless of status.
func BuildStats(appts []models.Appointment) models.AppointmentStats {
	var stats models.AppointmentStats
	for _, a := range appts {
		stats.Total++
		switch a.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusConfirmed:
			stats.Confirmed++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusCancelled:
			stats.Cancelled++
		case models.StatusNoShow:
			stats.NoShow++
		}
		stats.Revenue += a.ChargedPrice()
	}
	return stats
}

// ProfessionalStats is the stats fold for one professional.
type ProfessionalStats struct {
	ProfessionalID   string                  `json:"professionalId"`
	ProfessionalName string                  `json:"professionalName"`
	Stats            models.AppointmentStats `json:"stats"`
}

// StatsByProfessional groups appointments by professional id, ordered by id.
func StatsByProfessional(appts []models.Appointment) []ProfessionalStats {
	groups := make(map[string][]models.Appointment)
	names := make(map[string]string)
	for _, a := range appts {
		id := a.Professional.ID
		groups[id] = append(groups[id], a)
		if names[id] == "" {
			names[id] = a.Professional.Name
		}
	}

	out := make([]ProfessionalStats, 0, len(groups))
	for id, list := range groups {
		out = append(out, ProfessionalStats{
			ProfessionalID:   id,
			ProfessionalName: names[id],
			Stats:            BuildStats(list),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfessionalID < out[j].ProfessionalID })
	return out
}

// DayRevenue is the charged total of appointments starting on one calendar day.
type DayRevenue struct {
	Date    models.Date `json:"date"`
	Revenue float64     `json:"revenue"`
	Count   int         `json:"count"`
}

// RevenueByDay groups by the start date in loc, ascending. Appointments without a start time are skipped.
func RevenueByDay(appts []models.Appointment, loc *time.Location) []DayRevenue {
	byDay := make(map[models.Date]*DayRevenue)
	for _, a := range appts {
		if a.StartTime.IsZero() {
			continue
		}
		d := models.DateIn(a.StartTime.Time, loc)
		row, ok := byDay[d]
		if !ok {
			row = &DayRevenue{Date: d}
			byDay[d] = row
		}
		row.Revenue += a.ChargedPrice()
		row.Count++
	}

	out := make([]DayRevenue, 0, len(byDay))
	for _, row := range byDay {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
