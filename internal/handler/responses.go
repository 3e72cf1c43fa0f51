package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/response"
	"github.com/minseo-cho/routinelab/internal/routine"
)

type studentRef struct {
	Student  model.StudentIdentity `json:"student"`
	TeamName string                `json:"team_name"`
}

// activeRoomSchema resolves the room in the URL and its routine schema for
// the student flow. Students can only work in active rooms.
func (h *Handler) activeRoomSchema(w http.ResponseWriter, r *http.Request) (model.Room, routine.Schema, bool) {
	room, err := h.store.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil || room.Status != model.RoomActive {
		respondError(w, r, http.StatusNotFound, "ErrRoomNotFound")
		return model.Room{}, routine.Schema{}, false
	}
	schema, ok := routine.Get(room.RoutineType)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "ErrUnknownRoutine")
		return model.Room{}, routine.Schema{}, false
	}
	return room, schema, true
}

func (h *Handler) studentSession(w http.ResponseWriter, r *http.Request, ref studentRef) (*response.Session, bool) {
	room, schema, ok := h.activeRoomSchema(w, r)
	if !ok {
		return nil, false
	}
	if !ref.Student.Valid() {
		respondError(w, r, http.StatusBadRequest, "ErrStudentIdentity")
		return nil, false
	}
	sess, err := h.responses.Get(r.Context(), schema, room.ID, ref.Student, ref.TeamName)
	if err != nil {
		slog.Error("failed to load response session", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	return sess, true
}

func sessionState(sess *response.Session) map[string]any {
	return map[string]any{
		"index":     sess.Index(),
		"step":      sess.CurrentStep(),
		"submitted": sess.Submitted(),
		"data":      sess.Data(),
	}
}

func (h *Handler) handleResponseLoad(w http.ResponseWriter, r *http.Request) {
	var req studentRef
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.studentSession(w, r, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sessionState(sess))
}

func (h *Handler) handleResponseEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		studentRef
		Value string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.studentSession(w, r, req.studentRef)
	if !ok {
		return
	}
	if err := sess.SetCurrentValue(req.Value); err != nil {
		respondError(w, r, http.StatusConflict, "ErrAlreadySubmitted")
		return
	}
	respondJSON(w, http.StatusOK, sessionState(sess))
}

func (h *Handler) handleResponseNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		studentRef
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.studentSession(w, r, req.studentRef)
	if !ok {
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
	respondJSON(w, http.StatusOK, sessionState(sess))
}

func (h *Handler) handleResponseSubmit(w http.ResponseWriter, r *http.Request) {
	var req studentRef
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, ok := h.studentSession(w, r, req)
	if !ok {
		return
	}

	id, err := sess.Submit(r.Context())
	switch {
	case errors.Is(err, response.ErrAlreadySubmitted):
		respondError(w, r, http.StatusConflict, "ErrAlreadySubmitted")
		return
	case errors.Is(err, response.ErrIncomplete):
		respondError(w, r, http.StatusUnprocessableEntity, "ErrIncompleteResponse")
		return
	case err != nil:
		slog.Error("failed to submit response", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"response_id": id,
		"submitted":   true,
	})
}
