package memory

import (
	"context"
	"sort"
	"sync"

	"qcm-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. The mutex
// stands in for the database transaction: replace-and-insert is atomic with
// respect to concurrent submissions.
type AttemptStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]domain.Attempt
	records map[int64][]domain.AnswerRecord // attemptID -> records
	quizzes map[int64]domain.Quiz           // quiz metadata for summaries
}

func NewAttemptStore(quizzes map[int64]domain.Quiz) *AttemptStore {
	return &AttemptStore{
		nextID:  1,
		byID:    make(map[int64]domain.Attempt),
		records: make(map[int64][]domain.AnswerRecord),
		quizzes: quizzes,
	}
}

func (s *AttemptStore) ReplaceAttempt(_ context.Context, attempt domain.Attempt, answers []domain.AnswerRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.byID {
		if existing.QuizID == attempt.QuizID && existing.UserID == attempt.UserID {
			delete(s.byID, id)
			delete(s.records, id)
		}
	}

	attempt.ID = s.nextID
	s.nextID++
	s.byID[attempt.ID] = attempt

	stored := make([]domain.AnswerRecord, len(answers))
	copy(stored, answers)
	for i := range stored {
		stored[i].ID = s.nextID
		s.nextID++
		stored[i].AttemptID = attempt.ID
	}
	s.records[attempt.ID] = stored

	return attempt.ID, nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, quizID, attemptID int64) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.byID[attemptID]
	if !ok || attempt.QuizID != quizID {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) GetAnswerRecords(_ context.Context, attemptID int64) ([]domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, ok := s.records[attemptID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	out := make([]domain.AnswerRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, userID int64) ([]domain.AttemptSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.AttemptSummary, 0)
	for _, attempt := range s.byID {
		if attempt.UserID != userID {
			continue
		}
		summary := domain.AttemptSummary{
			ID:          attempt.ID,
			QuizID:      attempt.QuizID,
			Grade:       attempt.Grade,
			SubmittedAt: attempt.SubmittedAt,
		}
		if quiz, ok := s.quizzes[attempt.QuizID]; ok {
			summary.QuizName = quiz.Name
			summary.Difficulty = quiz.Difficulty
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].SubmittedAt.Equal(summaries[j].SubmittedAt) {
			return summaries[i].SubmittedAt.After(summaries[j].SubmittedAt)
		}
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

// CountAttempts reports how many attempts exist for (user, quiz). Tests use it
// to check that resubmission never leaves more than one row.
func (s *AttemptStore) CountAttempts(userID, quizID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, attempt := range s.byID {
		if attempt.UserID == userID && attempt.QuizID == quizID {
			n++
		}
	}
	return n
}
