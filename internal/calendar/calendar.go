// Package calendar computes month grids and per-day annotations for booking screens.
package calendar

import (
	"time"

	"kairon/internal/models"
)

const (
	Columns   = 7
	Rows      = 6
	CellCount = Columns * Rows
)

// MonthGrid lays out the month containing ref as 6 Sunday-first week rows.
// Placeholder cells before the 1st and after the last day are zero Dates.
func MonthGrid(ref time.Time) []models.Date {
	year, month := ref.Year(), ref.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday())
	days := DaysIn(month, year)

	cells := make([]models.Date, CellCount)
	for day := 1; day <= days; day++ {
		cells[offset+day-1] = models.Date{Year: year, Month: month, Day: day}
	}
	return cells
}

// Weeks splits a grid into rows of seven cells.
func Weeks(cells []models.Date) [][]models.Date {
	rows := make([][]models.Date, 0, len(cells)/Columns)
	for i := 0; i+Columns <= len(cells); i += Columns {
		rows = append(rows, cells[i:i+Columns])
	}
	return rows
}

// PreviousMonth returns the first day of the month before ref.
func PreviousMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month()-1, 1, 0, 0, 0, 0, ref.Location())
}

// NextMonth returns the first day of the month after ref.
func NextMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, ref.Location())
}

// AppointmentCountForDate counts appointments starting on the same calendar day as date,
// with start times viewed in loc (the business timezone).
func AppointmentCountForDate(date models.Date, appointments []models.Appointment, loc *time.Location) int {
	if date.IsZero() {
		return 0
	}
	count := 0
	for _, a := range appointments {
		if a.StartTime.IsZero() {
			continue
		}
		if models.DateIn(a.StartTime.Time, loc) == date {
			count++
		}
	}
	return count
}

// CountsByDay annotates every calendar day in loc that has at least one appointment.
func CountsByDay(appointments []models.Appointment, loc *time.Location) map[models.Date]int {
	counts := make(map[models.Date]int)
	for _, a := range appointments {
		if a.StartTime.IsZero() {
			continue
		}
		counts[models.DateIn(a.StartTime.Time, loc)]++
	}
	return counts
}

func IsToday(date models.Date, now time.Time) bool {
	return !date.IsZero() && date == models.DateOf(now)
}

func IsSelected(date, selected models.Date) bool {
	return !date.IsZero() && date == selected
}

func DaysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
