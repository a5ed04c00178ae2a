package domain

import "time"

// QuestionType distinguishes single- from multi-select questions.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

// Proposition is one answer option for a question. Correct is a strict boolean;
// repositories normalize any 0/1 representation before it reaches the engine.
type Proposition struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a single- or multi-select item with a point value and a
// negative-point penalty deducted per infraction.
type Question struct {
	ID             int64         `json:"id"`
	Heading        string        `json:"heading"`
	Points         float64       `json:"points"`
	NegativePoints float64       `json:"negativePoints"`
	Type           QuestionType  `json:"type"`
	Explanation    string        `json:"explanation,omitempty"`
	Propositions   []Proposition `json:"propositions"`
}

// Quiz is an authored set of questions.
type Quiz struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Difficulty string     `json:"difficulty,omitempty"`
	Questions  []Question `json:"questions,omitempty"`
}

// Attempt is one user's scored submission for one quiz. At most one attempt
// exists per (user, quiz) pair; resubmission replaces the previous one.
type Attempt struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quizId"`
	UserID      int64     `json:"userId"`
	Grade       float64   `json:"grade"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// AnswerRecord holds the scored result for one question of an attempt, plus
// the proposition ids the user selected for it.
type AnswerRecord struct {
	ID                     int64   `json:"id"`
	AttemptID              int64   `json:"attemptId"`
	QuestionID             int64   `json:"questionId"`
	PointsEarned           float64 `json:"pointsEarned"`
	SelectedPropositionIDs []int64 `json:"selectedPropositionIds"`
}

// AnswerSelection is one raw (question, proposition) pair from a submission.
type AnswerSelection struct {
	QuestionID    int64 `json:"questionId"`
	PropositionID int64 `json:"propositionId"`
}

// SubmitResult is returned to the client after a successful submission.
type SubmitResult struct {
	AttemptID    int64   `json:"attemptId"`
	TotalPoints  float64 `json:"totalPoints"`
	EarnedPoints float64 `json:"earnedPoints"`
	Grade        float64 `json:"grade"`
}

// AttemptSummary is one row of a user's attempt history.
type AttemptSummary struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quizId"`
	QuizName    string    `json:"quizName"`
	Difficulty  string    `json:"difficulty,omitempty"`
	Grade       float64   `json:"grade"`
	SubmittedAt time.Time `json:"date"`
}

// CorrectionQuestion is the per-question read projection of a stored attempt:
// the full question with correct flags visible, the user's selections, and the
// points the stored answer record earned.
type CorrectionQuestion struct {
	Question
	UserAnswers  []int64 `json:"userAnswers"`
	PointsEarned float64 `json:"pointsEarned"`
}

// Correction is the full review view of one attempt.
type Correction struct {
	Quiz      Quiz                 `json:"qcm"`
	Attempt   Attempt              `json:"attempt"`
	Questions []CorrectionQuestion `json:"questions"`
}
