package talks

import (
	"context"
	"database/sql"
	"errors"

	"livebook-backend/internal/llm"
)

// PGRepo implements TalksRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const talkColumns = `id, user_id, title, speaker, event_name, audio_key, seniority, verbosity, classification_origin, classification_confidence, status, transcript, error_detail, created_at, updated_at`

// Create inserts a new talk.
func (r *PGRepo) Create(ctx context.Context, talk Talk) error {
	const query = `
INSERT INTO talks (
    id,
    user_id,
    title,
    speaker,
    event_name,
    audio_key,
    seniority,
    verbosity,
    classification_origin,
    classification_confidence,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var speaker, eventName sql.NullString
	if talk.Speaker != "" {
		speaker = sql.NullString{String: talk.Speaker, Valid: true}
	}
	if talk.EventName != "" {
		eventName = sql.NullString{String: talk.EventName, Valid: true}
	}
	var confidence sql.NullFloat64
	if talk.ClassificationConfidence != nil {
		confidence = sql.NullFloat64{Float64: *talk.ClassificationConfidence, Valid: true}
	}
	origin := talk.ClassificationOrigin
	if origin == "" {
		origin = OriginManual
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		talk.ID,
		talk.UserID,
		talk.Title,
		speaker,
		eventName,
		talk.AudioKey,
		string(talk.Seniority),
		string(talk.Verbosity),
		string(origin),
		confidence,
		string(talk.Status),
		talk.CreatedAt,
		talk.UpdatedAt,
	)
	return err
}

func scanTalk(row interface{ Scan(...any) error }) (Talk, error) {
	var talk Talk
	var speaker, eventName, transcript, errorDetail sql.NullString
	var confidence sql.NullFloat64
	var seniority, verbosity, origin, status string
	err := row.Scan(
		&talk.ID,
		&talk.UserID,
		&talk.Title,
		&speaker,
		&eventName,
		&talk.AudioKey,
		&seniority,
		&verbosity,
		&origin,
		&confidence,
		&status,
		&transcript,
		&errorDetail,
		&talk.CreatedAt,
		&talk.UpdatedAt,
	)
	if err != nil {
		return Talk{}, err
	}
	talk.Seniority = llm.Seniority(seniority)
	talk.Verbosity = llm.Verbosity(verbosity)
	talk.ClassificationOrigin = ClassificationOrigin(origin)
	talk.Status = Status(status)
	if speaker.Valid {
		talk.Speaker = speaker.String
	}
	if eventName.Valid {
		talk.EventName = eventName.String
	}
	if confidence.Valid {
		talk.ClassificationConfidence = &confidence.Float64
	}
	if transcript.Valid {
		talk.Transcript = &transcript.String
	}
	if errorDetail.Valid {
		talk.ErrorDetail = &errorDetail.String
	}
	return talk, nil
}

// GetByID fetches a talk by id for a user.
func (r *PGRepo) GetByID(ctx context.Context, userId, talkId string) (Talk, error) {
	const query = `
SELECT ` + talkColumns + `
FROM talks
WHERE user_id = $1 AND id = $2
LIMIT 1`
	talk, err := scanTalk(r.DB.QueryRowContext(ctx, query, userId, talkId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Talk{}, ErrNotFound
		}
		return Talk{}, err
	}
	return talk, nil
}

// GetAny fetches a talk by id without a user scope.
func (r *PGRepo) GetAny(ctx context.Context, talkId string) (Talk, error) {
	const query = `
SELECT ` + talkColumns + `
FROM talks
WHERE id = $1
LIMIT 1`
	talk, err := scanTalk(r.DB.QueryRowContext(ctx, query, talkId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Talk{}, ErrNotFound
		}
		return Talk{}, err
	}
	return talk, nil
}

// ListByUser lists talks ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Talk, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + talkColumns + `
FROM talks
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Talk
	for rows.Next() {
		talk, err := scanTalk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, talk)
	}
	return out, rows.Err()
}

// Delete removes a talk owned by the user. Livebooks cascade in the schema.
func (r *PGRepo) Delete(ctx context.Context, userId, talkId string) error {
	const query = `DELETE FROM talks WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userId, talkId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves the talk to a new pipeline status.
func (r *PGRepo) SetStatus(ctx context.Context, talkId string, status Status) error {
	const query = `UPDATE talks SET status = $1, updated_at = now() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, string(status), talkId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTranscript records transcription output. A talk that already reached
// a terminal status refuses the write with ErrConflict, so a late callback
// cannot touch a finished talk.
func (r *PGRepo) SetTranscript(ctx context.Context, talkId, transcript string) error {
	const query = `
UPDATE talks SET transcript = $1, updated_at = now()
WHERE id = $2 AND status NOT IN ('completed', 'failed')`
	res, err := r.DB.ExecContext(ctx, query, transcript, talkId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// SetFailure marks a non-terminal talk failed with a detail string.
// Completed and failed talks are left untouched and report ErrConflict.
func (r *PGRepo) SetFailure(ctx context.Context, talkId, detail string) error {
	const query = `
UPDATE talks SET status = $1, error_detail = $2, updated_at = now()
WHERE id = $3 AND status NOT IN ('completed', 'failed')`
	res, err := r.DB.ExecContext(ctx, query, string(StatusFailed), detail, talkId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

var _ TalksRepo = (*PGRepo)(nil)
