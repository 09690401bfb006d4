package models

// BookingDraft is the booking wizard's accumulated, not yet submitted state.
type BookingDraft struct {
	SessionID      string `json:"sessionId"`
	ServiceID      string `json:"serviceId"`
	ProfessionalID string `json:"professionalId"`
	Date           Date   `json:"date"`
	Time           string `json:"time"`
	ClientName     string `json:"clientName"`
	ClientEmail    string `json:"clientEmail"`
	ClientPhone    string `json:"clientPhone"`
	Notes          string `json:"notes,omitempty"`
	Step           string `json:"step,omitempty"`
}

// PublicAppointmentRequest is the body of POST /public/appointments.
type PublicAppointmentRequest struct {
	ServiceID      string `json:"serviceId"`
	ProfessionalID string `json:"professionalId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	ClientName     string `json:"clientName"`
	ClientEmail    string `json:"clientEmail"`
	ClientPhone    string `json:"clientPhone"`
	Notes          string `json:"notes,omitempty"`
}

// CreateAppointmentRequest is the body of the authenticated POST /appointments.
// StartTime is a naive local ISO timestamp without a timezone suffix.
type CreateAppointmentRequest struct {
	CompanyID      string   `json:"companyId"`
	ProfessionalID string   `json:"professionalId,omitempty"`
	ServiceIDs     []string `json:"serviceIds"`
	StartTime      string   `json:"startTime"`
	ClientName     string   `json:"clientName"`
	ClientPhone    string   `json:"clientPhone"`
	ClientEmail    string   `json:"clientEmail,omitempty"`
}

// PublicRequest maps the draft to the public booking request shape.
func (d BookingDraft) PublicRequest() PublicAppointmentRequest {
	return PublicAppointmentRequest{
		ServiceID:      d.ServiceID,
		ProfessionalID: d.ProfessionalID,
		Date:           d.Date.String(),
		Time:           d.Time,
		ClientName:     d.ClientName,
		ClientEmail:    d.ClientEmail,
		ClientPhone:    d.ClientPhone,
		Notes:          d.Notes,
	}
}

// CreateRequest maps the draft to the authenticated booking request shape.
func (d BookingDraft) CreateRequest(companyID string) (CreateAppointmentRequest, error) {
	start, err := NaiveLocalISO(d.Date, d.Time)
	if err != nil {
		return CreateAppointmentRequest{}, err
	}
	return CreateAppointmentRequest{
		CompanyID:      companyID,
		ProfessionalID: d.ProfessionalID,
		ServiceIDs:     []string{d.ServiceID},
		StartTime:      start,
		ClientName:     d.ClientName,
		ClientPhone:    d.ClientPhone,
		ClientEmail:    d.ClientEmail,
	}, nil
}

// TimeSlot is a bookable time-of-day candidate for one date and offering.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
