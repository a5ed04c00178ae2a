package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"qcm-service/internal/domain"
)

func TestReplaceAttemptKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(map[int64]domain.Quiz{1: {ID: 1, Name: "Go basics"}})

	first, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 1, UserID: 7, Grade: 8}, []domain.AnswerRecord{
		{QuestionID: 1, PointsEarned: 4, SelectedPropositionIDs: []int64{2}},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	second, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 1, UserID: 7, Grade: 20}, []domain.AnswerRecord{
		{QuestionID: 1, PointsEarned: 10, SelectedPropositionIDs: []int64{1}},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if n := store.CountAttempts(7, 1); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}

	if _, err := store.GetAttempt(ctx, 1, first); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected first attempt gone, got %v", err)
	}
	attempt, err := store.GetAttempt(ctx, 1, second)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.Grade != 20 {
		t.Fatalf("expected latest grade 20, got %v", attempt.Grade)
	}

	records, err := store.GetAnswerRecords(ctx, second)
	if err != nil {
		t.Fatalf("get records: %v", err)
	}
	if len(records) != 1 || records[0].PointsEarned != 10 {
		t.Fatalf("expected latest records, got %+v", records)
	}
	if _, err := store.GetAnswerRecords(ctx, first); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected first records deleted, got %v", err)
	}
}

func TestGetAttemptChecksQuiz(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(nil)

	id, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 1, UserID: 7}, nil)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	if _, err := store.GetAttempt(ctx, 2, id); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found for wrong quiz, got %v", err)
	}
}

func TestListAttemptsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore(map[int64]domain.Quiz{
		1: {ID: 1, Name: "Go basics", Difficulty: "easy"},
		2: {ID: 2, Name: "Concurrency", Difficulty: "hard"},
	})

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 1, UserID: 7, Grade: 12, SubmittedAt: base}, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 2, UserID: 7, Grade: 16, SubmittedAt: base.Add(time.Hour)}, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := store.ReplaceAttempt(ctx, domain.Attempt{QuizID: 1, UserID: 9, Grade: 5, SubmittedAt: base}, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}

	summaries, err := store.ListAttempts(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 attempts for user 7, got %d", len(summaries))
	}
	if summaries[0].QuizName != "Concurrency" || summaries[1].QuizName != "Go basics" {
		t.Fatalf("expected newest first, got %+v", summaries)
	}
}
