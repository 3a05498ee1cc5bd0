package livebooks

import "context"

// AdvanceFields carries the columns written alongside a status transition.
// Nil pointers leave the stored value untouched.
type AdvanceFields struct {
	PDFURL          *string
	TextURL         *string
	ViewURL         *string
	DurationSeconds *float64
}

// Repo defines persistence operations for livebooks.
type Repo interface {
	// GetOrCreateForTalk returns the active (non-terminal) livebook for the
	// talk when one exists, otherwise inserts the given livebook. The bool
	// reports whether a new record was created. Serialized per talk so two
	// concurrent requests cannot both create.
	GetOrCreateForTalk(ctx context.Context, lb Livebook) (Livebook, bool, error)
	GetByID(ctx context.Context, userId, livebookId string) (Livebook, error)
	// GetAny fetches without a user scope. Internal callers only.
	GetAny(ctx context.Context, livebookId string) (Livebook, error)
	// LatestForTalk returns the newest livebook for a talk.
	LatestForTalk(ctx context.Context, talkId string) (Livebook, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Livebook, error)
	Delete(ctx context.Context, userId, livebookId string) error
	// Advance is a guarded compare-and-set: the transition applies only when
	// the stored status equals from. A lost race returns ErrConflict, never
	// a silent overwrite. Every successful advance bumps updated_at.
	Advance(ctx context.Context, livebookId string, from, to Status, fields AdvanceFields) error
	// Fail moves any non-terminal livebook to failed with an error detail.
	Fail(ctx context.Context, livebookId, errorDetail string) error
}
