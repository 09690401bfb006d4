package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"kairon/internal/domain"
	"kairon/internal/logging"
	"kairon/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverDraftRepository writes to primary and switches to fallback while primary is failing.
// Recovery is probed on reads once recoveryInterval has passed.
type FailoverDraftRepository struct {
	primary  domain.DraftRepository
	fallback domain.DraftRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "draft_failover"),
	}
}

func (r *FailoverDraftRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary draft repository failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverDraftRepository) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > recoveryInterval
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	if !r.isDown.Load() {
		draft, err := r.primary.GetDraft(ctx, sessionID)
		if err == nil {
			return draft, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		draft, err := r.primary.GetDraft(ctx, sessionID)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("primary draft repository recovered")
			if draft != nil {
				return draft, nil
			}
			// Drafts written during the outage live only in the fallback.
			return r.fallback.GetDraft(ctx, sessionID)
		}
		r.markDown(err)
	}

	return r.fallback.GetDraft(ctx, sessionID)
}

func (r *FailoverDraftRepository) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	if !r.isDown.Load() {
		err := r.primary.SaveDraft(ctx, draft)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveDraft(ctx, draft)
}

func (r *FailoverDraftRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	// Always clear the fallback: the draft may have been written there during an outage.
	fallbackErr := r.fallback.DeleteDraft(ctx, sessionID)
	if !r.isDown.Load() {
		if err := r.primary.DeleteDraft(ctx, sessionID); err != nil {
			r.markDown(err)
			return fallbackErr
		}
	}
	return fallbackErr
}
