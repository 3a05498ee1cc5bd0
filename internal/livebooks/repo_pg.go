package livebooks

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const livebookColumns = `id, talk_id, user_id, profile_key, status, pdf_url, text_url, view_url, error_detail, duration_seconds, created_at, updated_at`

// GetOrCreateForTalk reuses the active livebook for a talk or inserts a
// new one, serialized by a row lock on the talk.
func (r *PGRepo) GetOrCreateForTalk(ctx context.Context, lb Livebook) (Livebook, bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Livebook{}, false, err
	}
	defer tx.Rollback()

	// Serialize per talk so two concurrent requests cannot both create.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM talks WHERE id = $1 AND user_id = $2 FOR UPDATE`, lb.TalkID, lb.UserID); err != nil {
		return Livebook{}, false, err
	}

	const activeQuery = `
SELECT ` + livebookColumns + `
FROM livebooks
WHERE talk_id = $1 AND status NOT IN ('completed', 'failed')
ORDER BY created_at DESC
LIMIT 1`
	active, err := scanLivebook(tx.QueryRowContext(ctx, activeQuery, lb.TalkID))
	if err == nil {
		if err := tx.Commit(); err != nil {
			return Livebook{}, false, err
		}
		return active, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Livebook{}, false, err
	}

	const insertQuery = `
INSERT INTO livebooks (id, talk_id, user_id, profile_key, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		lb.ID, lb.TalkID, lb.UserID, lb.ProfileKey, string(lb.Status), lb.CreatedAt, lb.UpdatedAt,
	); err != nil {
		return Livebook{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Livebook{}, false, err
	}
	return lb, true, nil
}

func scanLivebook(row interface{ Scan(...any) error }) (Livebook, error) {
	var lb Livebook
	var status string
	var pdfURL, textURL, viewURL, errorDetail sql.NullString
	var duration sql.NullFloat64
	err := row.Scan(
		&lb.ID,
		&lb.TalkID,
		&lb.UserID,
		&lb.ProfileKey,
		&status,
		&pdfURL,
		&textURL,
		&viewURL,
		&errorDetail,
		&duration,
		&lb.CreatedAt,
		&lb.UpdatedAt,
	)
	if err != nil {
		return Livebook{}, err
	}
	lb.Status = Status(status)
	if pdfURL.Valid {
		lb.PDFURL = &pdfURL.String
	}
	if textURL.Valid {
		lb.TextURL = &textURL.String
	}
	if viewURL.Valid {
		lb.ViewURL = &viewURL.String
	}
	if errorDetail.Valid {
		lb.ErrorDetail = &errorDetail.String
	}
	if duration.Valid {
		lb.DurationSeconds = &duration.Float64
	}
	return lb, nil
}

// GetByID fetches a livebook by id for a user.
func (r *PGRepo) GetByID(ctx context.Context, userId, livebookId string) (Livebook, error) {
	const query = `
SELECT ` + livebookColumns + `
FROM livebooks
WHERE user_id = $1 AND id = $2
LIMIT 1`
	lb, err := scanLivebook(r.DB.QueryRowContext(ctx, query, userId, livebookId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Livebook{}, ErrNotFound
		}
		return Livebook{}, err
	}
	return lb, nil
}

// GetAny fetches a livebook by id without a user scope.
func (r *PGRepo) GetAny(ctx context.Context, livebookId string) (Livebook, error) {
	const query = `
SELECT ` + livebookColumns + `
FROM livebooks
WHERE id = $1
LIMIT 1`
	lb, err := scanLivebook(r.DB.QueryRowContext(ctx, query, livebookId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Livebook{}, ErrNotFound
		}
		return Livebook{}, err
	}
	return lb, nil
}

// LatestForTalk returns the newest livebook for a talk.
func (r *PGRepo) LatestForTalk(ctx context.Context, talkId string) (Livebook, error) {
	const query = `
SELECT ` + livebookColumns + `
FROM livebooks
WHERE talk_id = $1
ORDER BY created_at DESC
LIMIT 1`
	lb, err := scanLivebook(r.DB.QueryRowContext(ctx, query, talkId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Livebook{}, ErrNotFound
		}
		return Livebook{}, err
	}
	return lb, nil
}

// ListByUser lists livebooks ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userId string, limit, offset int) ([]Livebook, error) {
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
SELECT ` + livebookColumns + `
FROM livebooks
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Livebook
	for rows.Next() {
		lb, err := scanLivebook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

// Delete removes a livebook owned by the user.
func (r *PGRepo) Delete(ctx context.Context, userId, livebookId string) error {
	const query = `DELETE FROM livebooks WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userId, livebookId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Advance applies a compare-and-set transition. Zero rows affected means
// the stored status no longer matches from: a lost race, reported as
// ErrConflict.
func (r *PGRepo) Advance(ctx context.Context, livebookId string, from, to Status, fields AdvanceFields) error {
	if !CanAdvance(from, to) {
		return ErrConflict
	}
	const query = `
UPDATE livebooks
SET status = $1,
    pdf_url = COALESCE($2, pdf_url),
    text_url = COALESCE($3, text_url),
    view_url = COALESCE($4, view_url),
    duration_seconds = COALESCE($5, duration_seconds),
    updated_at = now()
WHERE id = $6 AND status = $7`

	res, err := r.DB.ExecContext(ctx, query,
		string(to),
		nullString(fields.PDFURL),
		nullString(fields.TextURL),
		nullString(fields.ViewURL),
		nullFloat(fields.DurationSeconds),
		livebookId,
		string(from),
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// Fail moves a non-terminal livebook to failed.
func (r *PGRepo) Fail(ctx context.Context, livebookId, errorDetail string) error {
	const query = `
UPDATE livebooks
SET status = 'failed', error_detail = $1, updated_at = now()
WHERE id = $2 AND status NOT IN ('completed', 'failed')`
	res, err := r.DB.ExecContext(ctx, query, errorDetail, livebookId)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
