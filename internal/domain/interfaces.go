package domain

import (
	"context"

	"kairon/internal/models"
)

// CatalogAPI lists what can be booked.
type CatalogAPI interface {
	ListServices(ctx context.Context, professionalID string) ([]models.Service, error)
	ListProfessionals(ctx context.Context) ([]models.Professional, error)
}

// AvailabilityAPI asks the backend which slots are bookable. The computation is server-side.
type AvailabilityAPI interface {
	GetAvailability(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error)
}

// BookingAPI creates appointments.
type BookingAPI interface {
	CreatePublicAppointment(ctx context.Context, req models.PublicAppointmentRequest) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, error)
}

// AppointmentAPI reads and mutates existing appointments.
type AppointmentAPI interface {
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus, reason string) (*models.Appointment, error)
}

// DraftRepository keeps wizard drafts between process restarts.
type DraftRepository interface {
	GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	SaveDraft(ctx context.Context, draft *models.BookingDraft) error
	DeleteDraft(ctx context.Context, sessionID string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
