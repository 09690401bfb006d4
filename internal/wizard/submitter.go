package wizard

import (
	"context"

	"kairon/internal/domain"
	"kairon/internal/models"
)

// Submitter turns a completed draft into an appointment on the backend.
type Submitter interface {
	Submit(ctx context.Context, draft models.BookingDraft) (*models.Appointment, error)
}

// PublicSubmitter books through the unauthenticated public endpoint.
type PublicSubmitter struct {
	api domain.BookingAPI
}

func NewPublicSubmitter(api domain.BookingAPI) *PublicSubmitter {
	return &PublicSubmitter{api: api}
}

func (s *PublicSubmitter) Submit(ctx context.Context, draft models.BookingDraft) (*models.Appointment, error) {
	return s.api.CreatePublicAppointment(ctx, draft.PublicRequest())
}

// AuthenticatedSubmitter books on behalf of a logged-in professional of companyID.
type AuthenticatedSubmitter struct {
	api       domain.BookingAPI
	companyID string
}

func NewAuthenticatedSubmitter(api domain.BookingAPI, companyID string) *AuthenticatedSubmitter {
	return &AuthenticatedSubmitter{api: api, companyID: companyID}
}

func (s *AuthenticatedSubmitter) Submit(ctx context.Context, draft models.BookingDraft) (*models.Appointment, error) {
	req, err := draft.CreateRequest(s.companyID)
	if err != nil {
		return nil, err
	}
	return s.api.CreateAppointment(ctx, req)
}
