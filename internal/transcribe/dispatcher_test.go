package transcribe

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedSource struct {
	states []TalkState
	calls  int
}

func (s *scriptedSource) TranscriptionState(ctx context.Context, talkId string) (TalkState, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.states) {
		idx = len(s.states) - 1
	}
	return s.states[idx], nil
}

func pending() TalkState { return TalkState{} }

func withTranscript(text string) TalkState {
	return TalkState{Transcript: &text}
}

func TestAwaitTimesOutOnCycleAfterMaxAttempts(t *testing.T) {
	src := &scriptedSource{states: []TalkState{pending()}}
	d := &Dispatcher{Source: src, Interval: time.Millisecond, MaxAttempts: 3}

	_, err := d.Await(context.Background(), "talk-1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// maxAttempts=3 means exactly 3 polls; the timeout fires on the 4th
	// cycle before a 4th poll happens.
	if src.calls != 3 {
		t.Errorf("polls = %d, want 3", src.calls)
	}
}

func TestAwaitReturnsTranscript(t *testing.T) {
	src := &scriptedSource{states: []TalkState{pending(), withTranscript("the transcript")}}
	d := &Dispatcher{Source: src, Interval: time.Millisecond, MaxAttempts: 10}

	got, err := d.Await(context.Background(), "talk-1")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got != "the transcript" {
		t.Errorf("transcript = %q", got)
	}
	if src.calls != 2 {
		t.Errorf("polls = %d, want 2", src.calls)
	}
}

func TestAwaitFailureWinsOverPartialTranscript(t *testing.T) {
	partial := "partial text"
	src := &scriptedSource{states: []TalkState{
		{Transcript: &partial, Failed: true, ErrorDetail: "decoder exploded"},
	}}
	d := &Dispatcher{Source: src, Interval: time.Millisecond, MaxAttempts: 5}

	_, err := d.Await(context.Background(), "talk-1")
	var fe *FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FailureError", err)
	}
	if fe.Detail != "decoder exploded" {
		t.Errorf("detail = %q", fe.Detail)
	}
}

func TestAwaitCancellation(t *testing.T) {
	src := &scriptedSource{states: []TalkState{pending()}}
	d := &Dispatcher{Source: src, Interval: time.Hour, MaxAttempts: 100}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.Await(ctx, "talk-1")
		done <- err
	}()

	// Let the first poll land, then cancel during the sleep.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return after cancellation")
	}
	if src.calls != 1 {
		t.Errorf("polls = %d, want 1 (no polling after cancel)", src.calls)
	}
}

func TestAwaitZeroAttemptsTimesOutImmediately(t *testing.T) {
	src := &scriptedSource{states: []TalkState{withTranscript("ready")}}
	d := &Dispatcher{Source: src, Interval: time.Millisecond, MaxAttempts: 0}

	_, err := d.Await(context.Background(), "talk-1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if src.calls != 0 {
		t.Errorf("polls = %d, want 0", src.calls)
	}
}
