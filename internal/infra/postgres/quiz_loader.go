package postgres

import (
	"context"
	"errors"
	"fmt"

	"qcm-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads a quiz with its questions and propositions from Postgres.
// A quiz that exists but has no questions is returned as-is; only a missing
// quiz row yields domain.ErrQuizNotFound.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, difficulty FROM qcm WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Name, &quiz.Difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load qcm: %w", err)
	}

	questions, err := l.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (l *QuizLoader) loadQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, heading, points, negative_points, type, explanation
		 FROM question WHERE qcm_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	var ids []int64
	for rows.Next() {
		var q domain.Question
		var qType string
		if err := rows.Scan(&q.ID, &q.Heading, &q.Points, &q.NegativePoints, &qType, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qType)
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	propRows, err := l.pool.Query(ctx,
		`SELECT id, question_id, text, validity
		 FROM proposition WHERE question_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("load propositions: %w", err)
	}
	defer propRows.Close()

	byQuestion := make(map[int64][]domain.Proposition, len(questions))
	for propRows.Next() {
		var p domain.Proposition
		var questionID int64
		if err := propRows.Scan(&p.ID, &questionID, &p.Text, &p.Correct); err != nil {
			return nil, fmt.Errorf("scan proposition: %w", err)
		}
		byQuestion[questionID] = append(byQuestion[questionID], p)
	}
	if err := propRows.Err(); err != nil {
		return nil, fmt.Errorf("load propositions: %w", err)
	}

	for i := range questions {
		questions[i].Propositions = byQuestion[questions[i].ID]
	}
	return questions, nil
}
