package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kairon/internal/appointments"
	"kairon/internal/database"
	"kairon/internal/models"
	"kairon/internal/session"

	"github.com/go-chi/chi/v5"
)

const defaultTokenTTL = 12 * time.Hour

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	professionalID := strings.TrimSpace(r.URL.Query().Get("professionalId"))
	services, err := s.db.ListServices(r.Context(), professionalID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

// handleListProfessionals answers in the paginated shape to mirror the real backend.
func (s *Server) handleListProfessionals(w http.ResponseWriter, r *http.Request) {
	pros, err := s.db.ListProfessionals(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(pros))
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	professionalID := strings.TrimSpace(q.Get("professionalId"))
	if professionalID == "" {
		writeError(w, http.StatusBadRequest, "professionalId is required")
		return
	}
	dateStr := strings.TrimSpace(q.Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	if _, err := s.db.GetProfessional(r.Context(), professionalID); err != nil {
		s.dbError(w, err)
		return
	}

	duration := s.grid.Step
	if serviceID := strings.TrimSpace(q.Get("serviceId")); serviceID != "" {
		svc, err := s.db.GetService(r.Context(), serviceID)
		if err != nil {
			s.dbError(w, err)
			return
		}
		duration = time.Duration(svc.DurationMinutes) * time.Minute
	}

	slots, err := s.db.Availability(r.Context(), s.grid, professionalID, date, duration)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleCreatePublicAppointment(w http.ResponseWriter, r *http.Request) {
	var req models.PublicAppointmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"serviceId", req.ServiceID},
		{"professionalId", req.ProfessionalID},
		{"date", req.Date},
		{"time", req.Time},
		{"clientName", req.ClientName},
		{"clientPhone", req.ClientPhone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
		return
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	if !models.ValidSlotTime(req.Time) {
		writeError(w, http.StatusBadRequest, "invalid time format; expected HH:MM")
		return
	}

	svc, err := s.db.GetService(r.Context(), req.ServiceID)
	if err != nil {
		s.dbError(w, err)
		return
	}
	if !svc.OnlineBooking {
		writeError(w, http.StatusUnprocessableEntity, "This service cannot be booked online")
		return
	}
	if !s.performs(r, req.ProfessionalID, svc.ID) {
		writeError(w, http.StatusUnprocessableEntity, "The selected professional does not perform this service")
		return
	}

	// Публичная запись возможна только на слот из сетки
	slots, err := s.db.Availability(r.Context(), s.grid, req.ProfessionalID, date, time.Duration(svc.DurationMinutes)*time.Minute)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !slotAvailable(slots, req.Time) {
		writeError(w, http.StatusConflict, "The selected time is no longer available")
		return
	}

	start, err := models.ParseTimestamp(req.Date+"T"+req.Time, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date or time")
		return
	}
	appt, err := s.db.CreateAppointmentWithLock(r.Context(), database.NewAppointment{
		CompanyID:      s.cfg.PublicCompanyID,
		ProfessionalID: req.ProfessionalID,
		Client:         models.ClientInfo{Name: req.ClientName, Phone: req.ClientPhone, Email: req.ClientEmail},
		Start:          start,
		Services:       []models.Service{*svc},
		Notes:          req.Notes,
	})
	if err != nil {
		s.dbError(w, err)
		return
	}
	s.logger.Info().Str("appointment_id", appt.ID).Str("professional_id", req.ProfessionalID).Msg("public appointment created")
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAppointmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.CompanyID) == "" {
		writeError(w, http.StatusBadRequest, "companyId is required")
		return
	}
	if p := principalFrom(r.Context()); p != nil && p.CompanyID != "" && p.CompanyID != req.CompanyID {
		writeError(w, http.StatusForbidden, "Access to this company is denied")
		return
	}
	if strings.TrimSpace(req.ProfessionalID) == "" {
		writeError(w, http.StatusBadRequest, "professionalId is required")
		return
	}
	if len(req.ServiceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "serviceIds must not be empty")
		return
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.ClientPhone) == "" {
		writeError(w, http.StatusBadRequest, "clientName and clientPhone are required")
		return
	}
	start, err := models.ParseTimestamp(req.StartTime, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startTime")
		return
	}
	if _, err := s.db.GetProfessional(r.Context(), req.ProfessionalID); err != nil {
		s.dbError(w, err)
		return
	}

	services := make([]models.Service, 0, len(req.ServiceIDs))
	for _, id := range req.ServiceIDs {
		svc, err := s.db.GetService(r.Context(), id)
		if err != nil {
			s.dbError(w, err)
			return
		}
		services = append(services, *svc)
	}

	appt, err := s.db.CreateAppointmentWithLock(r.Context(), database.NewAppointment{
		CompanyID:      req.CompanyID,
		ProfessionalID: req.ProfessionalID,
		Client:         models.ClientInfo{Name: req.ClientName, Phone: req.ClientPhone, Email: req.ClientEmail},
		Start:          start,
		Services:       services,
	})
	if err != nil {
		s.dbError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AppointmentFilter{
		CompanyID:      strings.TrimSpace(q.Get("companyId")),
		ProfessionalID: strings.TrimSpace(q.Get("professionalId")),
		Status:         models.AppointmentStatus(strings.TrimSpace(q.Get("status"))),
	}
	if p := principalFrom(r.Context()); p != nil && p.CompanyID != "" {
		if filter.CompanyID != "" && filter.CompanyID != p.CompanyID {
			writeError(w, http.StatusForbidden, "Access to this company is denied")
			return
		}
		filter.CompanyID = p.CompanyID
	}
	if filter.Status != "" && !filter.Status.Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	appts, err := s.db.ListAppointments(r.Context(), filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(appts))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.StatusUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Status.Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	appt, err := s.db.UpdateStatusWithVersion(r.Context(), id, req.Status, strings.TrimSpace(req.Reason),
		func(from models.AppointmentStatus) error {
			if !appointments.CanTransition(from, req.Status) {
				return &transitionError{from: from, to: req.Status}
			}
			return nil
		})
	if err != nil {
		var tErr *transitionError
		if errors.As(err, &tErr) {
			writeError(w, http.StatusConflict, tErr.Error())
			return
		}
		s.dbError(w, err)
		return
	}
	s.logger.Info().Str("appointment_id", id).Str("status", string(req.Status)).Msg("appointment status changed")
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.JWTSecret == "" {
		writeError(w, http.StatusNotFound, "token issuing is disabled")
		return
	}
	var req struct {
		CompanyID      string `json:"companyId"`
		ProfessionalID string `json:"professionalId"`
		TTLMinutes     int    `json:"ttlMinutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		writeError(w, http.StatusBadRequest, "companyId is required")
		return
	}
	if p := principalFrom(r.Context()); p != nil && p.CompanyID != "" && p.CompanyID != req.CompanyID {
		writeError(w, http.StatusForbidden, "Access to this company is denied")
		return
	}
	ttl := defaultTokenTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	token, err := session.Issue(s.cfg.JWTSecret, req.CompanyID, req.ProfessionalID, ttl)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": token,
		"tokenType":   "Bearer",
		"expiresIn":   int(ttl.Seconds()),
	})
}

type transitionError struct {
	from, to models.AppointmentStatus
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("Cannot change status from %s to %s", e.from, e.to)
}

func (s *Server) performs(r *http.Request, professionalID, serviceID string) bool {
	services, err := s.db.ListServices(r.Context(), professionalID)
	if err != nil {
		return false
	}
	_, ok := models.FindService(services, serviceID)
	return ok
}

func slotAvailable(slots []models.TimeSlot, at string) bool {
	for _, slot := range slots {
		if slot.Time == at {
			return slot.Available
		}
	}
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) dbError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotTaken):
		writeError(w, http.StatusConflict, "The selected time is no longer available")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "The appointment was changed by someone else, reload and try again")
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
