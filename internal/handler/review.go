package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minseo-cho/routinelab/internal/analysis"
	"github.com/minseo-cho/routinelab/internal/llm"
	"github.com/minseo-cho/routinelab/internal/llm/prompts"
	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/review"
	"github.com/minseo-cho/routinelab/internal/routine"
)

// handleStartReview opens a review session for a submitted response. The
// caller may supply the analysis text; otherwise one is generated from the
// stored response.
func (h *Handler) handleStartReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analysis string `json:"analysis"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	responseID := chi.URLParam(r, "responseID")
	resp, err := h.store.GetResponse(r.Context(), responseID)
	if err != nil || resp == nil || resp.IsDraft {
		respondError(w, r, http.StatusNotFound, "ErrResponseNotFound")
		return
	}
	room, err := h.store.GetRoom(r.Context(), resp.RoomID)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "ErrRoomNotFound")
		return
	}
	user := model.UserFromContext(r.Context())
	if user.Role != model.UserRoleAdmin && room.TeacherID != user.ID {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	schema, ok := routine.Get(room.RoutineType)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "ErrUnknownRoutine")
		return
	}

	text := req.Analysis
	if text == "" {
		text, err = h.generateAnalysis(r, schema, resp.Data)
		if err != nil {
			slog.Error("analysis generation failed", "response_id", responseID, "error", err)
			respondError(w, r, http.StatusBadGateway, llm.ErrorMessageID(err))
			return
		}
	}

	sess := review.NewSession(responseID, schema, analysis.Parse(text))
	h.reviews.Put(responseID, sess)
	respondJSON(w, http.StatusOK, h.reviewState(sess))
}

func (h *Handler) generateAnalysis(r *http.Request, schema routine.Schema, data map[string]string) (string, error) {
	system, err := prompts.BuildSystemPrompt(schema)
	if err != nil {
		return "", err
	}
	user, err := prompts.BuildTextUserPrompt(schema, data)
	if err != nil {
		return "", err
	}
	return h.llm.Analyze(r.Context(), system, user)
}

func (h *Handler) reviewSession(w http.ResponseWriter, r *http.Request) (*review.Session, bool) {
	responseID := chi.URLParam(r, "responseID")
	sess, ok := h.reviews.Get(responseID)
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no review in progress"})
		return nil, false
	}
	return sess, true
}

func (h *Handler) reviewState(sess *review.Session) map[string]any {
	state := map[string]any{
		"index":     sess.Index(),
		"screen":    sess.Screen(),
		"feedbacks": sess.Feedbacks(),
		"scores":    sess.Scores(),
	}
	var content string
	switch sess.Screen() {
	case review.ScreenStep:
		step, c, _ := sess.CurrentStep()
		state["step"] = step
		content = c
	case review.ScreenComprehensive:
		content = sess.Parsed().Comprehensive
	case review.ScreenEducational:
		content = sess.Parsed().Educational
	}
	state["content"] = content
	state["content_html"] = analysis.Format(content)
	return state
}

func (h *Handler) handleReviewState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.reviewSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.reviewState(sess))
}

func (h *Handler) handleReviewNavigate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.reviewSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Direction {
	case "next":
		sess.Next()
	case "prev":
		sess.Prev()
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "direction must be next or prev"})
		return
	}
	respondJSON(w, http.StatusOK, h.reviewState(sess))
}

func (h *Handler) handleReviewFeedback(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.reviewSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.SetFeedback(req.Text); err != nil {
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, h.reviewState(sess))
}

func (h *Handler) handleReviewScore(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.reviewSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Score int `json:"score"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.SetScore(req.Score); err != nil {
		status := http.StatusConflict
		if errors.Is(err, review.ErrScoreRange) {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, h.reviewState(sess))
}

func (h *Handler) handleReviewSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.reviewSession(w, r)
	if !ok {
		return
	}

	ev, err := sess.Save(r.Context(), h.store)
	if err != nil {
		if errors.Is(err, review.ErrNotSaveScreen) {
			respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("failed to save evaluation", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.reviews.Drop(chi.URLParam(r, "responseID"))
	respondJSON(w, http.StatusOK, map[string]any{"evaluation": ev})
}
