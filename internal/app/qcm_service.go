package app

import (
	"context"
	"time"

	"qcm-service/internal/domain"
	"qcm-service/internal/scoring"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// AttemptStore persists attempts. ReplaceAttempt must run atomically: the
// previous attempt for (user, quiz) and everything hanging off it is removed
// and the new attempt inserted in a single transaction, or nothing changes.
type AttemptStore interface {
	ReplaceAttempt(ctx context.Context, attempt domain.Attempt, answers []domain.AnswerRecord) (int64, error)
	GetAttempt(ctx context.Context, quizID, attemptID int64) (domain.Attempt, error)
	GetAnswerRecords(ctx context.Context, attemptID int64) ([]domain.AnswerRecord, error)
	ListAttempts(ctx context.Context, userID int64) ([]domain.AttemptSummary, error)
}

// QCMService orchestrates the attempt lifecycle: load quiz content, score the
// submission, and atomically replace any prior attempt by the same user.
type QCMService struct {
	quizzes  QuizRepository
	attempts AttemptStore
	now      func() time.Time
}

func NewQCMService(quizzes QuizRepository, attempts AttemptStore) *QCMService {
	return &QCMService{quizzes: quizzes, attempts: attempts, now: time.Now}
}

// NewQCMServiceWithClock is test-only for deterministic timestamps.
func NewQCMServiceWithClock(quizzes QuizRepository, attempts AttemptStore, now func() time.Time) *QCMService {
	return &QCMService{quizzes: quizzes, attempts: attempts, now: now}
}

// Submit scores a raw submission and persists it, replacing any prior attempt
// by the same user for the same quiz.
func (s *QCMService) Submit(ctx context.Context, userID, quizID int64, answers []domain.AnswerSelection) (domain.SubmitResult, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	selections := groupSelections(answers)

	result, err := scoring.ScoreAttempt(quiz.Questions, selections)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	attempt := domain.Attempt{
		QuizID:      quizID,
		UserID:      userID,
		Grade:       result.Grade,
		SubmittedAt: s.now(),
	}
	records := make([]domain.AnswerRecord, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		records = append(records, domain.AnswerRecord{
			QuestionID:             q.ID,
			PointsEarned:           result.QuestionScores[q.ID],
			SelectedPropositionIDs: selections[q.ID],
		})
	}

	attemptID, err := s.attempts.ReplaceAttempt(ctx, attempt, records)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	return domain.SubmitResult{
		AttemptID:    attemptID,
		TotalPoints:  result.TotalPoints,
		EarnedPoints: result.EarnedPoints,
		Grade:        result.Grade,
	}, nil
}

// Correction builds the review projection of a stored attempt. It never
// re-scores: points come from the persisted answer records.
func (s *QCMService) Correction(ctx context.Context, userID, quizID, attemptID int64) (domain.Correction, error) {
	attempt, err := s.attempts.GetAttempt(ctx, quizID, attemptID)
	if err != nil {
		return domain.Correction{}, err
	}
	if attempt.UserID != userID {
		return domain.Correction{}, domain.ErrNotOwner
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Correction{}, err
	}

	records, err := s.attempts.GetAnswerRecords(ctx, attemptID)
	if err != nil {
		return domain.Correction{}, err
	}
	byQuestion := make(map[int64]domain.AnswerRecord, len(records))
	for _, r := range records {
		byQuestion[r.QuestionID] = r
	}

	questions := make([]domain.CorrectionQuestion, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		cq := domain.CorrectionQuestion{Question: q, UserAnswers: []int64{}}
		if r, ok := byQuestion[q.ID]; ok {
			cq.PointsEarned = r.PointsEarned
			if r.SelectedPropositionIDs != nil {
				cq.UserAnswers = r.SelectedPropositionIDs
			}
		}
		questions = append(questions, cq)
	}

	return domain.Correction{
		Quiz:      domain.Quiz{ID: quiz.ID, Name: quiz.Name, Difficulty: quiz.Difficulty},
		Attempt:   attempt,
		Questions: questions,
	}, nil
}

// ListAttempts returns the caller's attempt history, newest first.
func (s *QCMService) ListAttempts(ctx context.Context, userID int64) ([]domain.AttemptSummary, error) {
	return s.attempts.ListAttempts(ctx, userID)
}

// groupSelections partitions raw (question, proposition) pairs into per-question
// selection lists, dropping duplicate proposition ids while keeping first-seen order.
func groupSelections(answers []domain.AnswerSelection) map[int64][]int64 {
	selections := make(map[int64][]int64)
	seen := make(map[domain.AnswerSelection]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		selections[a.QuestionID] = append(selections[a.QuestionID], a.PropositionID)
	}
	return selections
}
