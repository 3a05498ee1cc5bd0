package talks

import "context"

// TalksRepo defines persistence operations for talks.
type TalksRepo interface {
	Create(ctx context.Context, talk Talk) error
	GetByID(ctx context.Context, userId, talkId string) (Talk, error)
	// GetAny fetches a talk without a user scope. Internal callers only
	// (transcription callback, worker).
	GetAny(ctx context.Context, talkId string) (Talk, error)
	ListByUser(ctx context.Context, userId string, limit, offset int) ([]Talk, error)
	Delete(ctx context.Context, userId, talkId string) error
	// SetStatus moves the talk to a new pipeline status. Unconditional:
	// the orchestrator uses it to walk the ladder and to reset a
	// completed talk when a regeneration starts.
	SetStatus(ctx context.Context, talkId string, status Status) error
	// SetTranscript records transcription output. Status advancement is
	// the orchestrator's job, not the callback's. Terminal talks refuse
	// the write with ErrConflict.
	SetTranscript(ctx context.Context, talkId, transcript string) error
	// SetFailure marks a non-terminal talk failed with a human-readable
	// detail. Terminal talks are untouched and report ErrConflict.
	SetFailure(ctx context.Context, talkId, detail string) error
}
