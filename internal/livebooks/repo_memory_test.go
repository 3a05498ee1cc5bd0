package livebooks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func seedLivebook(t *testing.T, repo *MemoryRepo, status Status) Livebook {
	t.Helper()
	now := time.Now().UTC()
	lb := Livebook{
		ID:         "lb-" + string(status),
		TalkID:     "talk-1",
		UserID:     "user-1",
		ProfileKey: "senior-compact",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, isNew, err := repo.GetOrCreateForTalk(context.Background(), lb)
	if err != nil || !isNew {
		t.Fatalf("seed livebook: created=%v err=%v", isNew, err)
	}
	return created
}

func TestAdvanceRaceOneWinnerOneConflict(t *testing.T) {
	repo := NewMemoryRepo()
	lb := seedLivebook(t, repo, StatusWaiting)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.Advance(context.Background(), lb.ID, StatusWaiting, StatusTranscribing, AdvanceFields{})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d, want exactly one of each", wins, conflicts)
	}
}

func TestCompletedAndFailedRaceFromGenerating(t *testing.T) {
	repo := NewMemoryRepo()
	lb := seedLivebook(t, repo, StatusWaiting)
	ctx := context.Background()

	if err := repo.Advance(ctx, lb.ID, StatusWaiting, StatusTranscribing, AdvanceFields{}); err != nil {
		t.Fatalf("to transcribing: %v", err)
	}
	if err := repo.Advance(ctx, lb.ID, StatusTranscribing, StatusGenerating, AdvanceFields{}); err != nil {
		t.Fatalf("to generating: %v", err)
	}

	var wg sync.WaitGroup
	var completeErr, failErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		completeErr = repo.Advance(ctx, lb.ID, StatusGenerating, StatusCompleted, AdvanceFields{})
	}()
	go func() {
		defer wg.Done()
		failErr = repo.Fail(ctx, lb.ID, "backend exploded")
	}()
	wg.Wait()

	got, err := repo.GetAny(ctx, lb.ID)
	if err != nil {
		t.Fatalf("GetAny: %v", err)
	}

	switch {
	case completeErr == nil && errors.Is(failErr, ErrConflict):
		if got.Status != StatusCompleted {
			t.Fatalf("completion won but status = %q", got.Status)
		}
		if got.ErrorDetail != nil {
			t.Fatalf("completion won but errorDetail = %q", *got.ErrorDetail)
		}
	case failErr == nil && errors.Is(completeErr, ErrConflict):
		if got.Status != StatusFailed {
			t.Fatalf("failure won but status = %q", got.Status)
		}
		if got.ErrorDetail == nil || *got.ErrorDetail != "backend exploded" {
			t.Fatalf("failure won but errorDetail = %v", got.ErrorDetail)
		}
	default:
		t.Fatalf("want exactly one winner, got complete=%v fail=%v", completeErr, failErr)
	}
}

func TestAdvanceRejectsIllegalTransitions(t *testing.T) {
	repo := NewMemoryRepo()
	lb := seedLivebook(t, repo, StatusWaiting)
	ctx := context.Background()

	// waiting can only reach transcribing or failed.
	if err := repo.Advance(ctx, lb.ID, StatusWaiting, StatusCompleted, AdvanceFields{}); !errors.Is(err, ErrConflict) {
		t.Errorf("waiting->completed: err = %v, want ErrConflict", err)
	}

	// Walk to completed, then confirm the terminal state accepts nothing.
	mustAdvance := func(from, to Status) {
		t.Helper()
		if err := repo.Advance(ctx, lb.ID, from, to, AdvanceFields{}); err != nil {
			t.Fatalf("advance %s->%s: %v", from, to, err)
		}
	}
	mustAdvance(StatusWaiting, StatusTranscribing)
	mustAdvance(StatusTranscribing, StatusGenerating)
	mustAdvance(StatusGenerating, StatusCompleted)

	if err := repo.Advance(ctx, lb.ID, StatusCompleted, StatusFailed, AdvanceFields{}); !errors.Is(err, ErrConflict) {
		t.Errorf("completed->failed: err = %v, want ErrConflict", err)
	}
	if err := repo.Fail(ctx, lb.ID, "too late"); !errors.Is(err, ErrConflict) {
		t.Errorf("Fail on completed: err = %v, want ErrConflict", err)
	}
}

func TestAdvanceWritesFields(t *testing.T) {
	repo := NewMemoryRepo()
	lb := seedLivebook(t, repo, StatusWaiting)
	ctx := context.Background()

	repo.Advance(ctx, lb.ID, StatusWaiting, StatusTranscribing, AdvanceFields{})
	repo.Advance(ctx, lb.ID, StatusTranscribing, StatusGenerating, AdvanceFields{})

	pdf := "https://files/x.pdf"
	duration := 12.5
	if err := repo.Advance(ctx, lb.ID, StatusGenerating, StatusCompleted, AdvanceFields{PDFURL: &pdf, DurationSeconds: &duration}); err != nil {
		t.Fatalf("advance to completed: %v", err)
	}

	got, err := repo.GetAny(ctx, lb.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PDFURL == nil || *got.PDFURL != pdf {
		t.Errorf("pdfUrl = %v", got.PDFURL)
	}
	if got.TextURL != nil {
		t.Errorf("textUrl = %v, want nil (not written)", got.TextURL)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != duration {
		t.Errorf("duration = %v", got.DurationSeconds)
	}
	if !got.UpdatedAt.After(lb.UpdatedAt) {
		t.Errorf("updated_at not bumped")
	}
}

func TestGetOrCreateReusesActive(t *testing.T) {
	repo := NewMemoryRepo()
	first := seedLivebook(t, repo, StatusWaiting)

	second := first
	second.ID = "lb-second"
	got, created, err := repo.GetOrCreateForTalk(context.Background(), second)
	if err != nil {
		t.Fatalf("GetOrCreateForTalk: %v", err)
	}
	if created {
		t.Fatal("second create must reuse the active livebook")
	}
	if got.ID != first.ID {
		t.Errorf("reused id = %q, want %q", got.ID, first.ID)
	}

	// Once the active one is terminal, a new create is allowed.
	if err := repo.Fail(context.Background(), first.ID, "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, created, err = repo.GetOrCreateForTalk(context.Background(), second)
	if err != nil || !created {
		t.Fatalf("create after terminal: created=%v err=%v", created, err)
	}
	if got.ID != second.ID {
		t.Errorf("new id = %q, want %q", got.ID, second.ID)
	}
}
