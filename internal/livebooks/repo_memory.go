package livebooks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]Livebook // livebookId -> livebook
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Livebook),
	}
}

// GetOrCreateForTalk reuses the active livebook for a talk or inserts a
// new one. The repo mutex serializes the check-then-insert.
func (r *MemoryRepo) GetOrCreateForTalk(ctx context.Context, lb Livebook) (Livebook, bool, error) {
	if err := ctx.Err(); err != nil {
		return Livebook{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.data {
		if existing.TalkID == lb.TalkID && !existing.Status.Terminal() {
			return existing, false, nil
		}
	}
	r.data[lb.ID] = lb
	return lb, true, nil
}

// GetByID returns a livebook by id for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userId, livebookId string) (Livebook, error) {
	if err := ctx.Err(); err != nil {
		return Livebook{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lb, ok := r.data[livebookId]
	if !ok || lb.UserID != userId {
		return Livebook{}, ErrNotFound
	}
	return lb, nil
}

// GetAny returns a livebook by id regardless of owner.
func (r *MemoryRepo) GetAny(ctx context.Context, livebookId string) (Livebook, error) {
	if err := ctx.Err(); err != nil {
		return Livebook{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lb, ok := r.data[livebookId]
	if !ok {
		return Livebook{}, ErrNotFound
	}
	return lb, nil
}

// LatestForTalk returns the newest livebook for a talk.
func (r *MemoryRepo) LatestForTalk(ctx context.Context, talkId string) (Livebook, error) {
	if err := ctx.Err(); err != nil {
		return Livebook{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Livebook
	for _, lb := range r.data {
		if lb.TalkID == talkId {
			out = append(out, lb)
		}
	}
	if len(out) == 0 {
		return Livebook{}, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out[0], nil
}

// ListByUser returns livebooks for a user, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Livebook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.Lock()
	var out []Livebook
	for _, lb := range r.data {
		if lb.UserID == userId {
			out = append(out, lb)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []Livebook{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// Delete removes a livebook owned by the user.
func (r *MemoryRepo) Delete(ctx context.Context, userId, livebookId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lb, ok := r.data[livebookId]
	if !ok || lb.UserID != userId {
		return ErrNotFound
	}
	delete(r.data, livebookId)
	return nil
}

// Advance applies a compare-and-set transition.
func (r *MemoryRepo) Advance(ctx context.Context, livebookId string, from, to Status, fields AdvanceFields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lb, ok := r.data[livebookId]
	if !ok {
		return ErrNotFound
	}
	if lb.Status != from || !CanAdvance(from, to) {
		return ErrConflict
	}
	lb.Status = to
	if fields.PDFURL != nil {
		lb.PDFURL = fields.PDFURL
	}
	if fields.TextURL != nil {
		lb.TextURL = fields.TextURL
	}
	if fields.ViewURL != nil {
		lb.ViewURL = fields.ViewURL
	}
	if fields.DurationSeconds != nil {
		lb.DurationSeconds = fields.DurationSeconds
	}
	lb.UpdatedAt = time.Now().UTC()
	r.data[livebookId] = lb
	return nil
}

// Fail moves a non-terminal livebook to failed.
func (r *MemoryRepo) Fail(ctx context.Context, livebookId, errorDetail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	lb, ok := r.data[livebookId]
	if !ok {
		return ErrNotFound
	}
	if lb.Status.Terminal() {
		return ErrConflict
	}
	lb.Status = StatusFailed
	lb.ErrorDetail = &errorDetail
	lb.UpdatedAt = time.Now().UTC()
	r.data[livebookId] = lb
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
