package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kairon/internal/domain"
	"kairon/internal/events"
	"kairon/internal/logging"
	"kairon/internal/models"

	"github.com/rs/zerolog"
)

var ErrNotInCache = errors.New("appointment is not in the loaded list")

// Store caches the appointment list for one filter set together with its stats.
type Store struct {
	api    domain.AppointmentAPI
	events domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	gen     uint64
	filter  models.AppointmentFilter
	appts   []models.Appointment
	stats   models.AppointmentStats
	loadErr error
}

func NewStore(api domain.AppointmentAPI, publisher domain.EventPublisher, logger *zerolog.Logger) *Store {
	return &Store{
		api:    api,
		events: publisher,
		logger: logging.Component(logger, "appointments"),
		now:    time.Now,
	}
}

// Load replaces the cached list with the backend's list for filter.
// A failed fetch leaves an empty list; the error is kept for LoadErr.
// A response overtaken by a newer Load is dropped.
func (s *Store) Load(ctx context.Context, filter models.AppointmentFilter) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	appts, err := s.api.ListAppointments(ctx, filter)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug().Str("filter", filter.Key()).Msg("discarding stale appointment list")
		return
	}
	s.filter = filter
	s.loadErr = err
	if err != nil {
		s.logger.Error().Err(err).Str("filter", filter.Key()).Msg("failed to load appointments")
		appts = nil
	}
	s.appts = append([]models.Appointment(nil), appts...)
	s.stats = BuildStats(s.appts)
	count := len(s.appts)
	s.mu.Unlock()

	s.publish(events.EventAppointmentsLoaded, events.AppointmentsLoadedPayload{
		FilterKey: filter.Key(),
		Count:     count,
		Failed:    err != nil,
	})
}

// UpdateStatus asks the backend to move appointment id to status. The cached entry
// is replaced with the backend's answer only after it succeeds; on failure the
// error is returned as is and the cache is unchanged.
func (s *Store) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, reason string) (*models.Appointment, error) {
	s.mu.RLock()
	idx := s.indexOf(id)
	var from models.AppointmentStatus
	if idx >= 0 {
		from = s.appts[idx].Status
	}
	s.mu.RUnlock()
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotInCache, id)
	}

	if !CanTransition(from, status) {
		// The backend decides; this is only worth a note in the logs.
		s.logger.Warn().Str("appointment_id", id).Str("from", string(from)).Str("to", string(status)).Msg("requesting a transition the lifecycle does not offer")
	}

	updated, err := s.api.UpdateAppointmentStatus(ctx, id, status, reason)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// The list may have been reloaded while the request was in flight.
	if i := s.indexOf(id); i >= 0 {
		s.appts[i] = *updated
		s.stats = BuildStats(s.appts)
	}
	s.mu.Unlock()

	s.publish(events.EventAppointmentStatusChanged, events.StatusChangePayload{
		AppointmentID: id,
		From:          string(from),
		To:            string(updated.Status),
		Reason:        reason,
		ChangedAt:     s.now(),
	})
	return updated, nil
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.appts {
		if s.appts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Appointments() []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Appointment(nil), s.appts...)
}

func (s *Store) Get(id string) (models.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.appts[i], true
	}
	return models.Appointment{}, false
}

func (s *Store) Stats() models.AppointmentStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) Filter() models.AppointmentFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// LoadErr is the error of the last applied Load, or nil.
func (s *Store) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *Store) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
