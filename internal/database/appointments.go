package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kairon/internal/models"

	"github.com/google/uuid"
)

// NewAppointment is what the mock backend needs to book a visit.
type NewAppointment struct {
	CompanyID      string
	ProfessionalID string
	Client         models.ClientInfo
	Start          time.Time
	Services       []models.Service
	Notes          string
}

func (n NewAppointment) end() time.Time {
	total := 0
	for _, s := range n.Services {
		total += s.DurationMinutes
	}
	return n.Start.Add(time.Duration(total) * time.Minute)
}

func (n NewAppointment) totalPrice() float64 {
	var sum float64
	for _, s := range n.Services {
		sum += s.Price
	}
	return sum
}

// inactiveStatuses do not block a time range.
var inactiveStatuses = []any{string(models.StatusCancelled), string(models.StatusNoShow)}

// CreateAppointmentWithLock checks the professional's time range and inserts the appointment
// in one transaction. Overlapping active appointments yield ErrSlotTaken.
func (db *DB) CreateAppointmentWithLock(ctx context.Context, n NewAppointment) (*models.Appointment, error) {
	if len(n.Services) == 0 {
		return nil, errors.New("appointment needs at least one service")
	}
	start := n.Start.Format(models.LocalISOLayout)
	end := n.end().Format(models.LocalISOLayout)

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Проверяем пересечение внутри транзакции
	var overlapping int
	queryCount := `SELECT COUNT(*) FROM appointments
                   WHERE professional_id = ? AND status NOT IN (?, ?) AND start_time < ? AND end_time > ?`
	args := append([]any{n.ProfessionalID}, inactiveStatuses...)
	args = append(args, end, start)
	if err := tx.QueryRowContext(ctx, queryCount, args...).Scan(&overlapping); err != nil {
		return nil, fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return nil, ErrSlotTaken
	}

	var proName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM professionals WHERE id = ?`, n.ProfessionalID).Scan(&proName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load professional in tx: %w", err)
	}

	// 2. Создаем запись
	id := uuid.NewString()
	now := time.Now()
	queryInsert := `INSERT INTO appointments (
                id, company_id, professional_id, professional_name, client_name, client_phone, client_email,
                start_time, end_time, status, total_price, notes, version, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		id, n.CompanyID, n.ProfessionalID, proName,
		n.Client.Name, n.Client.Phone, n.Client.Email,
		start, end, string(models.StatusPending), n.totalPrice(), n.Notes,
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	for _, s := range n.Services {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO appointment_services (appointment_id, service_id, name, price, duration) VALUES (?, ?, ?, ?, ?)`,
			id, s.ID, s.Name, s.Price, s.DurationMinutes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert appointment service in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit appointment: %w", err)
	}

	db.logger.Debug().Str("appointment_id", id).Str("professional_id", n.ProfessionalID).Str("start", start).Msg("appointment created")
	return db.GetAppointment(ctx, id)
}

const appointmentColumns = `id, professional_id, professional_name, client_name, client_phone, client_email,
        start_time, end_time, status, total_price, actual_price, notes, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, int64, error) {
	var (
		a           models.Appointment
		start, end  string
		status      string
		actualPrice sql.NullFloat64
		version     int64
	)
	err := row.Scan(
		&a.ID, &a.Professional.ID, &a.Professional.Name,
		&a.Client.Name, &a.Client.Phone, &a.Client.Email,
		&start, &end, &status, &a.TotalPrice, &actualPrice, &a.Notes, &version,
	)
	if err != nil {
		return nil, 0, err
	}
	if a.StartTime.Time, err = models.ParseTimestamp(start, time.Local); err != nil {
		return nil, 0, err
	}
	if a.EndTime.Time, err = models.ParseTimestamp(end, time.Local); err != nil {
		return nil, 0, err
	}
	a.Status = models.AppointmentStatus(status)
	if actualPrice.Valid {
		v := actualPrice.Float64
		a.ActualPrice = &v
	}
	return &a, version, nil
}

func (db *DB) loadServices(ctx context.Context, a *models.Appointment) error {
	rows, err := db.QueryContext(ctx,
		`SELECT service_id, name, price, duration FROM appointment_services WHERE appointment_id = ? ORDER BY rowid`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to load appointment services: %w", err)
	}
	defer rows.Close()

	a.Services = []models.AppointmentService{}
	for rows.Next() {
		var s models.AppointmentService
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes); err != nil {
			return fmt.Errorf("failed to scan appointment service: %w", err)
		}
		a.Services = append(a.Services, s)
	}
	return rows.Err()
}

func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, _, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if err := db.loadServices(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAppointments applies the optional filters of GET /appointments, ordered by start time.
func (db *DB) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	var (
		where []string
		args  []any
	)
	if filter.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.ProfessionalID != "" {
		where = append(where, "professional_id = ?")
		args = append(args, filter.ProfessionalID)
	}
	if !filter.Date.IsZero() {
		where = append(where, "start_time >= ? AND start_time < ?")
		args = append(args, filter.Date.String(), filter.Date.AddDays(1).String())
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	var appts []*models.Appointment
	for rows.Next() {
		a, _, err := scanAppointment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Закрываем курсор до вложенных запросов: у :memory: одно соединение
	rows.Close()

	out := make([]models.Appointment, 0, len(appts))
	for _, a := range appts {
		if err := db.loadServices(ctx, a); err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// UpdateStatusWithVersion moves an appointment to status when its version still matches.
// check, if set, sees the current status and may veto the change.
func (db *DB) UpdateStatusWithVersion(ctx context.Context, id string, status models.AppointmentStatus, reason string,
	check func(from models.AppointmentStatus) error,
) (*models.Appointment, error) {
	row := db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	current, version, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if check != nil {
		if err := check(current.Status); err != nil {
			return nil, err
		}
	}

	query := `UPDATE appointments SET status = ?, status_reason = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, string(status), reason, time.Now(), id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}
	return db.GetAppointment(ctx, id)
}

// SetActualPrice records what was actually charged for a visit.
func (db *DB) SetActualPrice(ctx context.Context, id string, price float64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE appointments SET actual_price = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		price, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set actual price: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return nil
}
