package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-animator/internal/expressionlog"
)

// DetectionHandler exposes the expression log endpoints.
type DetectionHandler struct {
	service *expressionlog.Service
}

// NewDetectionHandler creates a new detection handler.
func NewDetectionHandler(service *expressionlog.Service) *DetectionHandler {
	return &DetectionHandler{service: service}
}

// DetectExpressionRequest is the body of POST /detect-expression.
type DetectExpressionRequest struct {
	SessionID  string          `json:"sessionId"`
	Expression string          `json:"expression"`
	Confidence float64         `json:"confidence"`
	Landmarks  json.RawMessage `json:"landmarks"`
}

// EndSessionRequest is the body of POST /end-session.
type EndSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// respondLogError maps expression log errors onto status codes.
func respondLogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, expressionlog.ErrInvalidInput):
		respondFailure(w, http.StatusBadRequest, "sessionId and expression are required")
	case errors.Is(err, expressionlog.ErrNotFound):
		respondFailure(w, http.StatusNotFound, "Session not found")
	default:
		log.Printf("Expression log error: %v", err)
		respondFailure(w, http.StatusInternalServerError, "internal error")
	}
}

// StartSession opens a new expression log.
func (h *DetectionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Begin(r.Context())
	if err != nil {
		respondLogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": l.ID,
		"message":   "Face detection session started",
		"timestamp": l.StartTime,
	})
}

// DetectExpression appends an expression to a log.
func (h *DetectionHandler) DetectExpression(w http.ResponseWriter, r *http.Request) {
	var req DetectExpressionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	entry, err := h.service.Record(r.Context(), req.SessionID, req.Expression, req.Confidence, req.Landmarks)
	if err != nil {
		respondLogError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"expression": entry.Expression,
		"confidence": entry.Confidence,
		"timestamp":  entry.Timestamp,
		"sessionId":  req.SessionID,
	})
}

// GetSession returns a log with its most recent entries.
func (h *DetectionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Summary(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		respondLogError(w, err)
		return
	}

	entries := l.Entries
	if entries == nil {
		entries = []expressionlog.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"sessionId":        l.ID,
		"startTime":        l.StartTime,
		"lastActivity":     l.LastActivity,
		"totalExpressions": l.Total,
		"expressions":      entries,
		"status":           l.Status,
	})
}

// EndSession ends a log and reports its totals.
func (h *DetectionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	l, err := h.service.Finish(r.Context(), req.SessionID)
	if err != nil {
		respondLogError(w, err)
		return
	}

	var duration time.Duration
	if l.EndTime != nil {
		duration = l.EndTime.Sub(l.StartTime)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"sessionId":        l.ID,
		"totalExpressions": l.Total,
		"startTime":        l.StartTime,
		"endTime":          l.EndTime,
		"duration":         duration.Milliseconds(),
	})
}
