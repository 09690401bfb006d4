package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"kairon/internal/models"
)

// CreateAppointment books on behalf of an authenticated professional.
func (c *Client) CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	if req.CompanyID == "" {
		return nil, errors.New("create appointment: company id is required")
	}
	body, err := c.do(ctx, call{endpoint: "create_appointment", method: http.MethodPost, path: "/appointments", body: req})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	var appt models.Appointment
	if err := decodeInto(body, &appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return &appt, nil
}

// CreatePublicAppointment books through the unauthenticated public endpoint.
func (c *Client) CreatePublicAppointment(ctx context.Context, req models.PublicAppointmentRequest) (*models.Appointment, error) {
	body, err := c.do(ctx, call{endpoint: "create_public_appointment", method: http.MethodPost, path: "/public/appointments", body: req, public: true})
	if err != nil {
		return nil, fmt.Errorf("create public appointment: %w", err)
	}
	var appt models.Appointment
	if err := decodeInto(body, &appt); err != nil {
		return nil, fmt.Errorf("create public appointment: %w", err)
	}
	return &appt, nil
}

func (c *Client) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	q := url.Values{}
	if filter.CompanyID != "" {
		q.Set("companyId", filter.CompanyID)
	}
	if filter.ProfessionalID != "" {
		q.Set("professionalId", filter.ProfessionalID)
	}
	if !filter.Date.IsZero() {
		q.Set("date", filter.Date.String())
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}

	body, err := c.do(ctx, call{endpoint: "list_appointments", method: http.MethodGet, path: "/appointments", query: q})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	appts, err := unwrapCollection[models.Appointment](body)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// UpdateAppointmentStatus sends PUT /appointments/{id}/status and returns the updated appointment.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus, reason string) (*models.Appointment, error) {
	if id == "" {
		return nil, errors.New("update appointment status: id is required")
	}
	path := fmt.Sprintf("/appointments/%s/status", url.PathEscape(id))
	req := models.StatusUpdateRequest{Status: status, Reason: reason}

	body, err := c.do(ctx, call{endpoint: "update_appointment_status", method: http.MethodPut, path: path, body: req})
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	var appt models.Appointment
	if err := decodeInto(body, &appt); err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return &appt, nil
}
