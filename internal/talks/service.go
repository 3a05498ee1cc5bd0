package talks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"livebook-backend/internal/llm"
	"livebook-backend/internal/shared/storage/object"
	"livebook-backend/internal/shared/telemetry"
)

// Service contains business logic for talks.
type Service struct {
	Store object.ObjectStore
	Repo  TalksRepo
}

// CreateInput carries the caller-supplied talk fields. Seniority and
// verbosity may both be empty, in which case the profile is classified
// automatically from the metadata.
type CreateInput struct {
	Title     string
	Speaker   string
	EventName string
	Seniority string
	Verbosity string
}

// Create stores the audio and records the talk in status waiting.
func (s *Service) Create(ctx context.Context, userId string, in CreateInput, fileName string, audio io.Reader) (Talk, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Talk{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if fileName == "" {
		return Talk{}, fmt.Errorf("%w: audio file is required", ErrInvalidInput)
	}

	var (
		seniority  llm.Seniority
		verbosity  llm.Verbosity
		origin     ClassificationOrigin
		confidence *float64
	)
	if in.Seniority == "" && in.Verbosity == "" {
		cls := Classify(in.Title, in.EventName)
		seniority, verbosity = cls.Seniority, cls.Verbosity
		origin = OriginAutomatic
		confidence = &cls.Confidence
	} else {
		var err error
		seniority, err = llm.ParseSeniority(in.Seniority)
		if err != nil {
			return Talk{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		verbosity, err = llm.ParseVerbosity(in.Verbosity)
		if err != nil {
			return Talk{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		origin = OriginManual
	}

	audioKey, size, mimeType, err := s.Store.Save(ctx, userId, fileName, audio)
	if err != nil {
		return Talk{}, fmt.Errorf("store audio: %w", err)
	}

	now := time.Now().UTC()
	talk := Talk{
		ID:                       uuid.NewString(),
		UserID:                   userId,
		Title:                    in.Title,
		Speaker:                  strings.TrimSpace(in.Speaker),
		EventName:                strings.TrimSpace(in.EventName),
		AudioKey:                 audioKey,
		Seniority:                seniority,
		Verbosity:                verbosity,
		ClassificationOrigin:     origin,
		ClassificationConfidence: confidence,
		Status:                   StatusWaiting,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.Repo.Create(ctx, talk); err != nil {
		return Talk{}, err
	}

	telemetry.Info("talk.created", map[string]any{
		"talk_id":    talk.ID,
		"profile":    talk.ProfileKey(),
		"origin":     string(origin),
		"size_bytes": size,
		"mime_type":  mimeType,
	})
	return talk, nil
}

// Get returns a talk owned by the user.
func (s *Service) Get(ctx context.Context, userId, talkId string) (Talk, error) {
	return s.Repo.GetByID(ctx, userId, talkId)
}

// List returns the user's talks, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Talk, error) {
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// Delete removes a talk and, via the schema cascade, its livebooks.
func (s *Service) Delete(ctx context.Context, userId, talkId string) error {
	return s.Repo.Delete(ctx, userId, talkId)
}

// CompleteTranscription records transcript text reported by the external
// transcription collaborator.
func (s *Service) CompleteTranscription(ctx context.Context, talkId, transcript string) error {
	if strings.TrimSpace(transcript) == "" {
		return fmt.Errorf("%w: transcript is empty", ErrInvalidInput)
	}
	if err := s.Repo.SetTranscript(ctx, talkId, transcript); err != nil {
		return err
	}
	telemetry.Info("talk.transcript_received", map[string]any{
		"talk_id": talkId,
		"chars":   len(transcript),
	})
	return nil
}

// FailTranscription records a transcription failure reported by the
// external collaborator.
func (s *Service) FailTranscription(ctx context.Context, talkId, detail string) error {
	if detail == "" {
		detail = "transcription failed"
	}
	if err := s.Repo.SetFailure(ctx, talkId, detail); err != nil {
		return err
	}
	telemetry.Warn("talk.transcription_failed", map[string]any{
		"talk_id": talkId,
		"detail":  detail,
	})
	return nil
}
