package postgres

import (
	"context"
	"errors"
	"fmt"

	"qcm-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists attempts in Postgres. ReplaceAttempt runs the
// delete-then-insert inside one transaction so the one-attempt-per-(user,quiz)
// invariant holds under concurrent resubmission; the UNIQUE (qcm_id, user_id)
// constraint backstops it.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) ReplaceAttempt(ctx context.Context, attempt domain.Attempt, answers []domain.AnswerRecord) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace attempt: %w", err)
	}
	defer tx.Rollback(ctx)

	// Cascades remove the prior attempt's answer records and selections.
	if _, err := tx.Exec(ctx,
		`DELETE FROM attempt WHERE qcm_id=$1 AND user_id=$2`,
		attempt.QuizID, attempt.UserID); err != nil {
		return 0, fmt.Errorf("delete prior attempt: %w", err)
	}

	var attemptID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO attempt (qcm_id, user_id, grade, submitted_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		attempt.QuizID, attempt.UserID, attempt.Grade, attempt.SubmittedAt,
	).Scan(&attemptID); err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}

	for _, rec := range answers {
		var recordID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO answer_record (attempt_id, question_id, points_earned)
			 VALUES ($1, $2, $3) RETURNING id`,
			attemptID, rec.QuestionID, rec.PointsEarned,
		).Scan(&recordID); err != nil {
			return 0, fmt.Errorf("insert answer record: %w", err)
		}
		for _, propositionID := range rec.SelectedPropositionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO selected_proposition (answer_record_id, proposition_id)
				 VALUES ($1, $2)`,
				recordID, propositionID); err != nil {
				return 0, fmt.Errorf("insert selected proposition: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace attempt: %w", err)
	}
	return attemptID, nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, quizID, attemptID int64) (domain.Attempt, error) {
	var a domain.Attempt
	err := s.pool.QueryRow(ctx,
		`SELECT id, qcm_id, user_id, grade, submitted_at
		 FROM attempt WHERE id=$1 AND qcm_id=$2`, attemptID, quizID,
	).Scan(&a.ID, &a.QuizID, &a.UserID, &a.Grade, &a.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return a, nil
}

func (s *AttemptStore) GetAnswerRecords(ctx context.Context, attemptID int64) ([]domain.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, points_earned
		 FROM answer_record WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load answer records: %w", err)
	}
	defer rows.Close()

	var records []domain.AnswerRecord
	var recordIDs []int64
	for rows.Next() {
		var r domain.AnswerRecord
		if err := rows.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &r.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan answer record: %w", err)
		}
		records = append(records, r)
		recordIDs = append(recordIDs, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load answer records: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	selRows, err := s.pool.Query(ctx,
		`SELECT answer_record_id, proposition_id
		 FROM selected_proposition WHERE answer_record_id = ANY($1) ORDER BY id`, recordIDs)
	if err != nil {
		return nil, fmt.Errorf("load selected propositions: %w", err)
	}
	defer selRows.Close()

	byRecord := make(map[int64][]int64, len(records))
	for selRows.Next() {
		var recordID, propositionID int64
		if err := selRows.Scan(&recordID, &propositionID); err != nil {
			return nil, fmt.Errorf("scan selected proposition: %w", err)
		}
		byRecord[recordID] = append(byRecord[recordID], propositionID)
	}
	if err := selRows.Err(); err != nil {
		return nil, fmt.Errorf("load selected propositions: %w", err)
	}

	for i := range records {
		records[i].SelectedPropositionIDs = byRecord[records[i].ID]
	}
	return records, nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, userID int64) ([]domain.AttemptSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.qcm_id, q.name, q.difficulty, a.grade, a.submitted_at
		 FROM attempt a
		 JOIN qcm q ON q.id = a.qcm_id
		 WHERE a.user_id=$1
		 ORDER BY a.submitted_at DESC, a.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.AttemptSummary, 0)
	for rows.Next() {
		var row domain.AttemptSummary
		if err := rows.Scan(&row.ID, &row.QuizID, &row.QuizName, &row.Difficulty, &row.Grade, &row.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt summary: %w", err)
		}
		summaries = append(summaries, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return summaries, nil
}
