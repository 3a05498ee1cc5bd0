package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout indicates the polling ceiling was reached without observing a
// transcript or a failure. The remote stage may still complete later, so
// this is deliberately distinct from FailureError.
var ErrTimeout = errors.New("transcription polling timed out")

// FailureError carries the failure detail reported by the transcription
// collaborator for a talk already in flight.
type FailureError struct {
	Detail string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Detail)
}

// TalkState is the slice of the talk record the dispatcher polls.
type TalkState struct {
	Transcript  *string
	Failed      bool
	ErrorDetail string
}

// StatusSource reads the current transcription state of a talk.
type StatusSource interface {
	TranscriptionState(ctx context.Context, talkId string) (TalkState, error)
}

// Dispatcher waits for a transcript by polling the status source with a
// bounded counter loop. No backoff and no recursion: the termination
// condition is the counter, cancellation is the context.
type Dispatcher struct {
	Source      StatusSource
	Interval    time.Duration
	MaxAttempts int
}

// Await polls until a transcript or failure appears. With MaxAttempts = n,
// polls run on cycles 1..n and the timeout is raised on cycle n+1.
func (d *Dispatcher) Await(ctx context.Context, talkId string) (string, error) {
	interval := d.Interval
	if interval <= 0 {
		interval = 4 * time.Second
	}

	for attempt := 0; ; attempt++ {
		if attempt >= d.MaxAttempts {
			return "", ErrTimeout
		}

		state, err := d.Source.TranscriptionState(ctx, talkId)
		if err != nil {
			return "", fmt.Errorf("poll transcription state: %w", err)
		}
		// A reported failure wins even when partial transcript text is
		// present on the record.
		if state.Failed {
			return "", &FailureError{Detail: state.ErrorDetail}
		}
		if state.Transcript != nil && *state.Transcript != "" {
			return *state.Transcript, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
