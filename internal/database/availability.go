package database

import (
	"context"
	"fmt"
	"time"

	"kairon/internal/models"
)

// SlotGrid describes the fixed daily slot grid of the mock backend.
type SlotGrid struct {
	Opening string // "HH:MM"
	Closing string // "HH:MM"
	Step    time.Duration
}

type busyRange struct {
	start, end time.Time
}

// Availability lays the grid over the date and marks slots that overlap an active appointment
// of the professional. A slot is offered only if the whole service fits before closing time.
func (db *DB) Availability(ctx context.Context, grid SlotGrid, professionalID string, date models.Date, duration time.Duration) ([]models.TimeSlot, error) {
	open, err := time.Parse(models.SlotTimeLayout, grid.Opening)
	if err != nil {
		return nil, fmt.Errorf("invalid opening time: %w", err)
	}
	closeAt, err := time.Parse(models.SlotTimeLayout, grid.Closing)
	if err != nil {
		return nil, fmt.Errorf("invalid closing time: %w", err)
	}
	if grid.Step <= 0 {
		return nil, fmt.Errorf("invalid slot step %s", grid.Step)
	}
	if duration <= 0 {
		duration = grid.Step
	}

	busy, err := db.busyRanges(ctx, professionalID, date)
	if err != nil {
		return nil, err
	}

	dayOpen := time.Date(date.Year, date.Month, date.Day, open.Hour(), open.Minute(), 0, 0, time.Local)
	dayClose := time.Date(date.Year, date.Month, date.Day, closeAt.Hour(), closeAt.Minute(), 0, 0, time.Local)

	slots := []models.TimeSlot{}
	for at := dayOpen; !at.Add(duration).After(dayClose); at = at.Add(grid.Step) {
		end := at.Add(duration)
		available := true
		for _, b := range busy {
			if at.Before(b.end) && end.After(b.start) {
				available = false
				break
			}
		}
		slots = append(slots, models.TimeSlot{Time: at.Format(models.SlotTimeLayout), Available: available})
	}
	return slots, nil
}

func (db *DB) busyRanges(ctx context.Context, professionalID string, date models.Date) ([]busyRange, error) {
	query := `SELECT start_time, end_time FROM appointments
              WHERE professional_id = ? AND status NOT IN (?, ?) AND start_time < ? AND end_time > ?`
	args := append([]any{professionalID}, inactiveStatuses...)
	args = append(args, date.AddDays(1).String(), date.String())

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy ranges: %w", err)
	}
	defer rows.Close()

	var busy []busyRange
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan busy range: %w", err)
		}
		s, err := models.ParseTimestamp(start, time.Local)
		if err != nil {
			return nil, err
		}
		e, err := models.ParseTimestamp(end, time.Local)
		if err != nil {
			return nil, err
		}
		busy = append(busy, busyRange{start: s, end: e})
	}
	return busy, rows.Err()
}
