package models

// AppointmentStatus is kept as a string type so unknown values from the backend survive decoding.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// AllStatuses lists the recognized statuses in lifecycle order.
var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// Known reports whether s is one of the five recognized statuses.
func (s AppointmentStatus) Known() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type ClientInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type ProfessionalRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type AppointmentService struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price,omitempty"`
	DurationMinutes int     `json:"duration,omitempty"`
}

// Appointment is the backend representation of a booked visit.
type Appointment struct {
	ID           string               `json:"id"`
	StartTime    Timestamp            `json:"startTime"`
	EndTime      Timestamp            `json:"endTime"`
	Status       AppointmentStatus    `json:"status"`
	TotalPrice   float64              `json:"totalPrice"`
	ActualPrice  *float64             `json:"actualPrice,omitempty"`
	Client       ClientInfo           `json:"client"`
	Professional ProfessionalRef      `json:"professional"`
	Services     []AppointmentService `json:"services"`
	Notes        string               `json:"notes,omitempty"`
}

// ChargedPrice is actualPrice when present, totalPrice otherwise.
func (a Appointment) ChargedPrice() float64 {
	if a.ActualPrice != nil {
		return *a.ActualPrice
	}
	return a.TotalPrice
}

// AppointmentStats is a derived fold over an appointment collection. Never persisted.
type AppointmentStats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Confirmed int     `json:"confirmed"`
	Completed int     `json:"completed"`
	Cancelled int     `json:"cancelled"`
	NoShow    int     `json:"noShow"`
	Revenue   float64 `json:"revenue"`
}

// AppointmentFilter holds the optional query parameters of GET /appointments.
type AppointmentFilter struct {
	CompanyID      string
	ProfessionalID string
	Date           Date
	Status         AppointmentStatus
}

// Key identifies the filter set a cached list belongs to.
func (f AppointmentFilter) Key() string {
	return f.CompanyID + "|" + f.ProfessionalID + "|" + f.Date.String() + "|" + string(f.Status)
}

// StatusUpdateRequest is the body of PUT /appointments/{id}/status.
type StatusUpdateRequest struct {
	Status AppointmentStatus `json:"status"`
	Reason string            `json:"reason,omitempty"`
}
