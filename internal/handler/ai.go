package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/minseo-cho/routinelab/internal/llm"
	"github.com/minseo-cho/routinelab/internal/llm/prompts"
	"github.com/minseo-cho/routinelab/internal/routine"
)

// handleAnalyzeImage runs the vision model over a photographed worksheet.
// The caller supplies the prompts so the same endpoint serves every
// routine.
func (h *Handler) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SystemPrompt string `json:"systemPrompt"`
		UserPrompt   string `json:"userPrompt"`
		ImageData    string `json:"imageData"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SystemPrompt == "" || req.UserPrompt == "" || req.ImageData == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "systemPrompt, userPrompt, and imageData are required",
		})
		return
	}

	text, err := h.llm.AnalyzeImage(r.Context(), req.SystemPrompt, req.UserPrompt, req.ImageData)
	if err != nil {
		slog.Error("image analysis failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "image analysis failed",
			"details": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"analysis": text})
}

// handleAnalyze runs the text model over typed step responses and scores
// how substantive the result looks.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoutineType string            `json:"routineType"`
		Responses   map[string]string `json:"responses"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	schema, ok := routine.Get(req.RoutineType)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "ErrUnknownRoutine")
		return
	}
	if len(req.Responses) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "responses are required"})
		return
	}

	system, err := prompts.BuildSystemPrompt(schema)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	user, err := prompts.BuildTextUserPrompt(schema, req.Responses)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	text, err := h.llm.Analyze(r.Context(), system, user)
	if err != nil {
		slog.Error("text analysis failed", "routine", schema.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "analysis failed",
			"details": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"analysis":    text,
		"confidence":  llm.Confidence(text),
		"routineType": schema.ID,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
