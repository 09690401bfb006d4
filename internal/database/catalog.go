package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kairon/internal/models"
)

func (db *DB) UpsertService(ctx context.Context, svc models.Service, sortOrder int) error {
	query := `INSERT INTO services (id, name, description, price, duration, category, online_booking, sort_order)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                name = excluded.name, description = excluded.description, price = excluded.price,
                duration = excluded.duration, category = excluded.category,
                online_booking = excluded.online_booking, sort_order = excluded.sort_order`
	_, err := db.ExecContext(ctx, query,
		svc.ID, svc.Name, svc.Description, svc.Price, svc.DurationMinutes, svc.Category, svc.OnlineBooking, sortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

func (db *DB) UpsertProfessional(ctx context.Context, pro models.Professional) error {
	query := `INSERT INTO professionals (id, name, specialty, avatar_url) VALUES (?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET name = excluded.name, specialty = excluded.specialty, avatar_url = excluded.avatar_url`
	if _, err := db.ExecContext(ctx, query, pro.ID, pro.Name, pro.Specialty, pro.AvatarURL); err != nil {
		return fmt.Errorf("failed to upsert professional: %w", err)
	}
	return nil
}

// AssignService records that a professional performs a service.
func (db *DB) AssignService(ctx context.Context, professionalID, serviceID string) error {
	query := `INSERT OR IGNORE INTO professional_services (professional_id, service_id) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, query, professionalID, serviceID); err != nil {
		return fmt.Errorf("failed to assign service: %w", err)
	}
	return nil
}

// ListServices returns all services, or only those the professional performs.
func (db *DB) ListServices(ctx context.Context, professionalID string) ([]models.Service, error) {
	query := `SELECT id, name, description, price, duration, category, online_booking FROM services ORDER BY sort_order, id`
	args := []any{}
	if professionalID != "" {
		query = `SELECT s.id, s.name, s.description, s.price, s.duration, s.category, s.online_booking
                 FROM services s JOIN professional_services ps ON ps.service_id = s.id
                 WHERE ps.professional_id = ? ORDER BY s.sort_order, s.id`
		args = append(args, professionalID)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := []models.Service{}
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Category, &s.OnlineBooking); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (db *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	var s models.Service
	query := `SELECT id, name, description, price, duration, category, online_booking FROM services WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Category, &s.OnlineBooking)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &s, nil
}

func (db *DB) ListProfessionals(ctx context.Context) ([]models.Professional, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, specialty, avatar_url FROM professionals ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	defer rows.Close()

	pros := []models.Professional{}
	for rows.Next() {
		var p models.Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan professional: %w", err)
		}
		pros = append(pros, p)
	}
	return pros, rows.Err()
}

func (db *DB) GetProfessional(ctx context.Context, id string) (*models.Professional, error) {
	var p models.Professional
	err := db.QueryRowContext(ctx, `SELECT id, name, specialty, avatar_url FROM professionals WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("professional %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return &p, nil
}
