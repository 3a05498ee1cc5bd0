package livebooks

import "time"

// Status is the lifecycle state of a livebook generation attempt.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusTranscribing Status = "transcribing"
	StatusGenerating   Status = "generating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether the from->to transition is legal. Forward
// progress is strictly ordered; failed is reachable from any non-terminal
// state.
func CanAdvance(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusWaiting:
		return to == StatusTranscribing
	case StatusTranscribing:
		return to == StatusGenerating
	case StatusGenerating:
		return to == StatusCompleted
	default:
		return false
	}
}

// Livebook is one generation attempt for a talk.
type Livebook struct {
	ID              string
	TalkID          string
	UserID          string
	ProfileKey      string
	Status          Status
	PDFURL          *string
	TextURL         *string
	ViewURL         *string
	ErrorDetail     *string
	DurationSeconds *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
