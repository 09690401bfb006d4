// Package slots resolves bookable time slots for a service, professional and date.
package slots

import (
	"context"
	"errors"

	"kairon/internal/domain"
	"kairon/internal/models"
)

var ErrIncompleteQuery = errors.New("service, professional and date are all required")

// Resolver returns the slot candidates for one date. Implementations are interchangeable:
// the wizard only depends on this shape.
type Resolver interface {
	Resolve(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error)
}

// APIResolver asks the backend availability endpoint.
type APIResolver struct {
	api domain.AvailabilityAPI
}

func NewAPIResolver(api domain.AvailabilityAPI) *APIResolver {
	return &APIResolver{api: api}
}

func (r *APIResolver) Resolve(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error) {
	if serviceID == "" || professionalID == "" || date.IsZero() {
		return nil, ErrIncompleteQuery
	}
	return r.api.GetAvailability(ctx, serviceID, professionalID, date)
}

// DefaultMockSlots is the placeholder schedule served when no availability endpoint is wired.
var DefaultMockSlots = []models.TimeSlot{
	{Time: "09:00", Available: true},
	{Time: "10:00", Available: true},
	{Time: "11:00", Available: false},
}

// MockResolver returns the same fixed list for every query.
type MockResolver struct {
	slots []models.TimeSlot
}

// NewMockResolver uses DefaultMockSlots when no slots are given.
func NewMockResolver(slots ...models.TimeSlot) *MockResolver {
	if len(slots) == 0 {
		slots = DefaultMockSlots
	}
	return &MockResolver{slots: slots}
}

func (r *MockResolver) Resolve(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.TimeSlot, len(r.slots))
	copy(out, r.slots)
	return out, nil
}
