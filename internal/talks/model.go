package talks

import (
	"time"

	"livebook-backend/internal/llm"
)

// Status is the processing state of a talk's pipeline.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusTranscribing Status = "transcribing"
	StatusGenerating   Status = "generating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ClassificationOrigin records how the profile was chosen.
type ClassificationOrigin string

const (
	OriginManual    ClassificationOrigin = "manual"
	OriginAutomatic ClassificationOrigin = "automatic"
)

// Talk is one recorded session and its pipeline state.
type Talk struct {
	ID                       string
	UserID                   string
	Title                    string
	Speaker                  string
	EventName                string
	AudioKey                 string
	Seniority                llm.Seniority
	Verbosity                llm.Verbosity
	ClassificationOrigin     ClassificationOrigin
	ClassificationConfidence *float64
	Status                   Status
	Transcript               *string
	ErrorDetail              *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// ProfileKey returns the canonical seniority-verbosity key for this talk.
func (t Talk) ProfileKey() string {
	return llm.ProfileKey(t.Seniority, t.Verbosity)
}
