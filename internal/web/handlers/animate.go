package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-animator/internal/engine"
	"github.com/kozaktomas/face-animator/internal/landmarks"
)

// AnimateHandler serves the one-shot landmark → transform endpoint.
type AnimateHandler struct {
	engine *engine.Engine
}

// NewAnimateHandler creates a new animate handler.
func NewAnimateHandler(eng *engine.Engine) *AnimateHandler {
	return &AnimateHandler{engine: eng}
}

// AnimateRequest is the body of POST /animate. Landmarks stay raw so a
// malformed list degrades to an absent frame instead of a rejected request.
type AnimateRequest struct {
	Landmarks json.RawMessage `json:"landmarks"`
	ImageID   string          `json:"imageId,omitempty"`
}

// frame decodes the landmark list. Anything undecodable is treated as absent.
func (req AnimateRequest) frame() *landmarks.Frame {
	if len(req.Landmarks) == 0 || string(req.Landmarks) == "null" {
		return nil
	}
	var f landmarks.Frame
	if err := json.Unmarshal(req.Landmarks, &f); err != nil {
		return nil
	}
	return &f
}

// AnimateResponse extends the engine result with the echoed image id.
type AnimateResponse struct {
	engine.Result
	ImageID string `json:"imageId,omitempty"`
}

// Animate computes the transform for a single frame. Missing or malformed
// landmarks yield the neutral default; only a body that is not a JSON object
// is rejected.
func (h *AnimateHandler) Animate(w http.ResponseWriter, r *http.Request) {
	var req AnimateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	respondJSON(w, http.StatusOK, AnimateResponse{
		Result:  h.engine.Animate(req.frame()),
		ImageID: req.ImageID,
	})
}
