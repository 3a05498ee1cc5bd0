package talks

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGSetFailureRefusesTerminalTalk(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Zero rows affected: the talk is already completed or failed.
	mock.ExpectExec("UPDATE talks SET status").
		WithArgs(string(StatusFailed), "decoder exploded", "talk-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetFailure(context.Background(), "talk-1", "decoder exploded")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSetFailureMarksNonTerminalTalk(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE talks SET status").
		WithArgs(string(StatusFailed), "decoder exploded", "talk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetFailure(context.Background(), "talk-1", "decoder exploded"); err != nil {
		t.Fatalf("SetFailure: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGSetTranscriptRefusesTerminalTalk(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE talks SET transcript").
		WithArgs("late transcript", "talk-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetTranscript(context.Background(), "talk-1", "late transcript")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
