package repository

import (
	"context"
	"sync"
	"time"

	"kairon/internal/models"
)

type memoryEntry struct {
	draft     models.BookingDraft
	expiresAt time.Time
}

// MemoryDraftRepository keeps drafts in process memory with a TTL.
type MemoryDraftRepository struct {
	drafts sync.Map
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	val, ok := r.drafts.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.drafts.Delete(sessionID)
		return nil, nil
	}
	draft := entry.draft
	return &draft, nil
}

func (r *MemoryDraftRepository) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	if draft == nil || draft.SessionID == "" {
		return ErrMissingSessionID
	}
	entry := memoryEntry{draft: *draft}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.drafts.Store(draft.SessionID, entry)
	return nil
}

func (r *MemoryDraftRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	r.drafts.Delete(sessionID)
	return nil
}
