// Package http exposes the QCM REST API: submit answers, review a correction,
// and list attempt history.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"qcm-service/internal/app"
	"qcm-service/internal/auth"
	"qcm-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Handler bundles the HTTP endpoints over the QCM service.
type Handler struct {
	service *app.QCMService
}

func NewHandler(service *app.QCMService) *Handler {
	return &Handler{service: service}
}

// NewRouter assembles the API router. Everything under /api requires a valid
// bearer token; /healthz does not.
func NewRouter(service *app.QCMService, tokens *auth.TokenService) http.Handler {
	h := NewHandler(service)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(tokens))
		r.Post("/qcm/{qcmID}/submit", h.Submit)
		r.Get("/qcm/{qcmID}/correction/{attemptID}", h.Correction)
		r.Get("/attempts", h.ListAttempts)
	})
	return r
}

type submitRequest struct {
	Answers []domain.AnswerSelection `json:"answers"`
}

type submitResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	AttemptID    int64   `json:"attemptId"`
	TotalPoints  float64 `json:"totalPoints"`
	EarnedPoints float64 `json:"earnedPoints"`
	Grade        float64 `json:"grade"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit handles POST /api/qcm/{qcmID}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	quizID, err := pathID(r, "qcmID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "answers must be a list of question/proposition pairs")
		return
	}
	if req.Answers == nil {
		writeError(w, http.StatusBadRequest, "answers must be a list of question/proposition pairs")
		return
	}

	result, err := h.service.Submit(r.Context(), userID, quizID, req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success:      true,
		Message:      "answers submitted",
		AttemptID:    result.AttemptID,
		TotalPoints:  result.TotalPoints,
		EarnedPoints: result.EarnedPoints,
		Grade:        result.Grade,
	})
}

type correctionResponse struct {
	Success   bool                        `json:"success"`
	QCM       domain.Quiz                 `json:"qcm"`
	Attempt   domain.Attempt              `json:"attempt"`
	Questions []domain.CorrectionQuestion `json:"questions"`
}

// Correction handles GET /api/qcm/{qcmID}/correction/{attemptID}.
func (h *Handler) Correction(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	quizID, err := pathID(r, "qcmID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz id")
		return
	}
	attemptID, err := pathID(r, "attemptID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attempt id")
		return
	}

	correction, err := h.service.Correction(r.Context(), userID, quizID, attemptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, correctionResponse{
		Success:   true,
		QCM:       correction.Quiz,
		Attempt:   correction.Attempt,
		Questions: correction.Questions,
	})
}

type attemptsResponse struct {
	Success  bool                    `json:"success"`
	Attempts []domain.AttemptSummary `json:"attempts"`
}

// ListAttempts handles GET /api/attempts.
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	attempts, err := h.service.ListAttempts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptsResponse{Success: true, Attempts: attempts})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// writeServiceError maps domain errors to HTTP statuses. Anything unrecognized
// is an internal fault: logged server-side, generic message to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, "quiz not found")
	case errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, "attempt not found")
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusForbidden, "attempt belongs to another user")
	case errors.Is(err, domain.ErrEmptyQuestionSet):
		writeError(w, http.StatusBadRequest, "quiz has no questions")
	case errors.Is(err, domain.ErrInvalidAnswerInput):
		writeError(w, http.StatusBadRequest, "invalid answers payload")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
