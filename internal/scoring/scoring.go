// Package scoring computes per-question scores and aggregate grades for QCM
// submissions. It performs no I/O and keeps no state; every function is safe
// to call concurrently.
package scoring

import (
	"fmt"
	"math"

	"qcm-service/internal/domain"
)

// Result aggregates the outcome of scoring one full attempt.
type Result struct {
	TotalPoints    float64
	EarnedPoints   float64
	Grade          float64
	QuestionScores map[int64]float64
}

// ScoreQuestion returns the points earned for one question given the
// proposition ids the user selected. The result is always >= 0: the
// negative-point penalty is floored at zero per question.
func ScoreQuestion(q domain.Question, selected []int64) (float64, error) {
	if len(q.Propositions) == 0 {
		return 0, fmt.Errorf("question %d has no propositions: %w", q.ID, domain.ErrInvalidQuestionStructure)
	}

	switch q.Type {
	case domain.QuestionSingle:
		return scoreSingle(q, selected)
	case domain.QuestionMultiple:
		return scoreMultiple(q, selected), nil
	default:
		return 0, fmt.Errorf("question %d has unknown type %q: %w", q.ID, q.Type, domain.ErrInvalidQuestionStructure)
	}
}

func scoreSingle(q domain.Question, selected []int64) (float64, error) {
	var correct *domain.Proposition
	for i := range q.Propositions {
		if q.Propositions[i].Correct {
			correct = &q.Propositions[i]
			break
		}
	}
	if correct == nil {
		return 0, fmt.Errorf("single-choice question %d has no correct proposition: %w", q.ID, domain.ErrInvalidQuestionStructure)
	}

	if len(selected) == 0 {
		return 0, nil
	}

	// Callers should send one id for single-choice questions; if more arrive,
	// only the first is considered.
	if selected[0] == correct.ID {
		return q.Points, nil
	}
	return math.Max(0, -q.NegativePoints), nil
}

func scoreMultiple(q domain.Question, selected []int64) float64 {
	chosen := make(map[int64]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}

	score := q.Points
	for _, p := range q.Propositions {
		switch {
		case chosen[p.ID] && !p.Correct:
			score -= q.NegativePoints
		case !chosen[p.ID] && p.Correct:
			score -= q.NegativePoints
		}
	}
	return math.Max(0, score)
}

// ScoreAttempt scores every question of a quiz against the user's selections
// and derives the final grade on the 0-20 scale. Questions absent from
// selections are treated as unanswered.
func ScoreAttempt(questions []domain.Question, selections map[int64][]int64) (Result, error) {
	if len(questions) == 0 {
		return Result{}, domain.ErrEmptyQuestionSet
	}

	res := Result{QuestionScores: make(map[int64]float64, len(questions))}
	for _, q := range questions {
		score, err := ScoreQuestion(q, selections[q.ID])
		if err != nil {
			return Result{}, err
		}
		res.TotalPoints += q.Points
		res.EarnedPoints += score
		res.QuestionScores[q.ID] = score
	}

	if res.TotalPoints > 0 {
		res.Grade = res.EarnedPoints / res.TotalPoints * 20
	}
	res.Grade = round2(math.Max(0, res.Grade))
	return res, nil
}

// round2 rounds half-up to two decimal places.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
