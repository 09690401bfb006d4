package slots

import (
	"context"
	"errors"
	"sync"

	"kairon/internal/logging"
	"kairon/internal/metrics"
	"kairon/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrStale is returned to a caller whose resolution was superseded by a newer one.
	ErrStale  = errors.New("slot resolution superseded by a newer request")
	ErrClosed = errors.New("slot tracker closed")
)

// Tracker owns the current slot list of one consumer.
//
// Every Refresh takes a new generation number and cancels the request in flight.
// A response is applied only if its generation is still current and the tracker
// is open, so a slow stale response can never overwrite a newer one.
type Tracker struct {
	resolver Resolver
	logger   *zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	slots    []models.TimeSlot
	closed   bool
	resolved bool
}

func NewTracker(resolver Resolver, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		resolver: resolver,
		logger:   logging.Component(logger, "slot_tracker"),
	}
}

// Refresh resolves slots for the inputs and replaces the list wholesale.
// With any input missing the list is cleared and no request is issued.
// On resolver failure the list becomes empty and the error is returned for reporting.
func (t *Tracker) Refresh(ctx context.Context, serviceID, professionalID string, date models.Date) ([]models.TimeSlot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.gen++
	gen := t.gen
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if serviceID == "" || professionalID == "" || date.IsZero() {
		t.slots = nil
		t.resolved = false
		t.mu.Unlock()
		return []models.TimeSlot{}, nil
	}
	reqCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	slots, err := t.resolver.Resolve(reqCtx, serviceID, professionalID, date)
	cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		metrics.IncSlotResolution("dropped")
		return nil, ErrClosed
	}
	if gen != t.gen {
		metrics.IncSlotResolution("stale")
		t.logger.Debug().Uint64("generation", gen).Uint64("current", t.gen).Msg("discarding stale slot response")
		return nil, ErrStale
	}
	t.cancel = nil
	t.resolved = true

	if err != nil {
		metrics.IncSlotResolution("failed")
		t.logger.Warn().Err(err).
			Str("service_id", serviceID).
			Str("professional_id", professionalID).
			Str("date", date.String()).
			Msg("slot resolution failed, showing no slots")
		t.slots = nil
		return []models.TimeSlot{}, err
	}

	metrics.IncSlotResolution("ok")
	t.slots = make([]models.TimeSlot, len(slots))
	copy(t.slots, slots)
	return t.snapshot(), nil
}

// Slots returns a copy of the current list.
func (t *Tracker) Slots() []models.TimeSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// snapshot must be called with mu held.
func (t *Tracker) snapshot() []models.TimeSlot {
	out := make([]models.TimeSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Resolved reports whether the current list came from a completed resolution.
func (t *Tracker) Resolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved
}

// Contains reports whether the slot is in the current list, available or not.
func (t *Tracker) Contains(slot string) bool {
	_, ok := t.find(slot)
	return ok
}

// IsAvailable reports whether the slot is in the current list and bookable.
func (t *Tracker) IsAvailable(slot string) bool {
	s, ok := t.find(slot)
	return ok && s.Available
}

func (t *Tracker) find(slot string) (models.TimeSlot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slots {
		if s.Time == slot {
			return s, true
		}
	}
	return models.TimeSlot{}, false
}

// Close cancels the request in flight. Results arriving afterwards are dropped.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.slots = nil
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
