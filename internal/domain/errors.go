package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist (distinct from a quiz
	// that exists but has zero questions).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates the requested attempt does not exist for the quiz.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrNotOwner is returned when a user requests another user's attempt.
	ErrNotOwner = errors.New("attempt belongs to another user")
	// ErrEmptyQuestionSet rejects submissions against a quiz with no questions.
	ErrEmptyQuestionSet = errors.New("quiz has no questions")
	// ErrInvalidQuestionStructure flags a malformed question definition: unknown
	// type, no propositions, or a single-choice question with no correct proposition.
	ErrInvalidQuestionStructure = errors.New("invalid question structure")
	// ErrInvalidAnswerInput flags a malformed answers payload.
	ErrInvalidAnswerInput = errors.New("invalid answer input")
)
