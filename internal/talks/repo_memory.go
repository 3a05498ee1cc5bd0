package talks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of TalksRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Talk // talkId -> talk
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Talk),
	}
}

// Create stores a new talk.
func (r *MemoryRepo) Create(ctx context.Context, talk Talk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[talk.ID] = talk
	return nil
}

// GetByID returns a talk by id for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userId, talkId string) (Talk, error) {
	if err := ctx.Err(); err != nil {
		return Talk{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	talk, ok := r.data[talkId]
	if !ok || talk.UserID != userId {
		return Talk{}, ErrNotFound
	}
	return talk, nil
}

// GetAny returns a talk by id regardless of owner.
func (r *MemoryRepo) GetAny(ctx context.Context, talkId string) (Talk, error) {
	if err := ctx.Err(); err != nil {
		return Talk{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	talk, ok := r.data[talkId]
	if !ok {
		return Talk{}, ErrNotFound
	}
	return talk, nil
}

// ListByUser returns talks for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Talk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var out []Talk
	for _, talk := range r.data {
		if talk.UserID == userId {
			out = append(out, talk)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []Talk{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// Delete removes a talk owned by the user.
func (r *MemoryRepo) Delete(ctx context.Context, userId, talkId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	talk, ok := r.data[talkId]
	if !ok || talk.UserID != userId {
		return ErrNotFound
	}
	delete(r.data, talkId)
	return nil
}

// SetStatus moves the talk to a new pipeline status.
func (r *MemoryRepo) SetStatus(ctx context.Context, talkId string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	talk, ok := r.data[talkId]
	if !ok {
		return ErrNotFound
	}
	talk.Status = status
	talk.UpdatedAt = time.Now().UTC()
	r.data[talkId] = talk
	return nil
}

// SetTranscript records transcription output. Terminal talks refuse the
// write with ErrConflict.
func (r *MemoryRepo) SetTranscript(ctx context.Context, talkId, transcript string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	talk, ok := r.data[talkId]
	if !ok {
		return ErrNotFound
	}
	if talk.Status.Terminal() {
		return ErrConflict
	}
	talk.Transcript = &transcript
	talk.UpdatedAt = time.Now().UTC()
	r.data[talkId] = talk
	return nil
}

// SetFailure marks a non-terminal talk failed with a detail string.
// Completed and failed talks are left untouched and report ErrConflict.
func (r *MemoryRepo) SetFailure(ctx context.Context, talkId, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	talk, ok := r.data[talkId]
	if !ok {
		return ErrNotFound
	}
	if talk.Status.Terminal() {
		return ErrConflict
	}
	talk.Status = StatusFailed
	talk.ErrorDetail = &detail
	talk.UpdatedAt = time.Now().UTC()
	r.data[talkId] = talk
	return nil
}

var _ TalksRepo = (*MemoryRepo)(nil)
