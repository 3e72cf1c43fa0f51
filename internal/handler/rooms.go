package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/routine"
)

// roomForTeacher loads a room and checks the requesting user owns it.
// Admins may touch any room. A nil room means the response was already
// written.
func (h *Handler) roomForTeacher(w http.ResponseWriter, r *http.Request) *model.Room {
	room, err := h.store.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "ErrRoomNotFound")
		return nil
	}
	user := model.UserFromContext(r.Context())
	if user.Role != model.UserRoleAdmin && room.TeacherID != user.ID {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return nil
	}
	return &room
}

func (h *Handler) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	type routineInfo struct {
		ID    string              `json:"id"`
		Name  string              `json:"name"`
		Steps []routine.StepLabel `json:"steps"`
	}
	var out []routineInfo
	for _, id := range routine.IDs() {
		s, _ := routine.Get(id)
		labels := make([]routine.StepLabel, 0, s.NumSteps())
		for _, step := range s.Steps {
			labels = append(labels, s.Labels[step])
		}
		out = append(out, routineInfo{ID: s.ID, Name: s.Name, Steps: labels})
	}
	respondJSON(w, http.StatusOK, map[string]any{"routines": out})
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		RoutineType   string `json:"thinking_routine_type"`
		Participation string `json:"participation_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "title required"})
		return
	}
	schema, ok := routine.Get(req.RoutineType)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "ErrUnknownRoutine")
		return
	}

	user := model.UserFromContext(r.Context())
	room, err := h.store.CreateRoom(r.Context(), model.Room{
		Title:         req.Title,
		Description:   req.Description,
		RoutineType:   schema.ID,
		Participation: model.ParticipationType(req.Participation),
		TeacherID:     user.ID,
	})
	if err != nil {
		slog.Error("failed to create room", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	// Seed the template with the routine's default questions so the room
	// is usable before the teacher customizes anything.
	tpl := model.RoutineTemplate{
		RoomID:      room.ID,
		RoutineType: schema.ID,
		Content: model.TemplateContent{
			SeeQuestion:    schema.Questions[routine.StepSee],
			ThinkQuestion:  schema.Questions[routine.StepThink],
			WonderQuestion: schema.Questions[routine.StepWonder],
			FourthQuestion: schema.Questions[routine.FourthStep],
		},
	}
	if err := h.store.UpsertTemplate(r.Context(), tpl); err != nil {
		slog.Error("failed to seed template", "room_id", room.ID, "error", err)
	}

	respondJSON(w, http.StatusCreated, map[string]any{"room": room})
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	rooms, err := h.store.ListRoomsByTeacher(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to list rooms", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"room": room})
}

func (h *Handler) handleUpdateRoomStatus(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	var req struct {
		Status model.RoomStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status != model.RoomActive && req.Status != model.RoomDraft {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	if err := h.store.UpdateRoomStatus(r.Context(), room.ID, req.Status); err != nil {
		slog.Error("failed to update room status", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	if err := h.store.DeleteRoom(r.Context(), room.ID); err != nil {
		slog.Error("failed to delete room", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	var req struct {
		Content model.TemplateContent `json:"content"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	tpl := model.RoutineTemplate{
		RoomID:      room.ID,
		RoutineType: room.RoutineType,
		Content:     req.Content,
	}
	if err := h.store.UpsertTemplate(r.Context(), tpl); err != nil {
		slog.Error("failed to save template", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), room.ID)
	if err != nil {
		slog.Error("failed to get template", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"template": tpl})
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	subs, err := h.store.ListSubmissions(r.Context(), room.ID)
	if err != nil {
		slog.Error("failed to list submissions", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (h *Handler) handleExportRoom(w http.ResponseWriter, r *http.Request) {
	room := h.roomForTeacher(w, r)
	if room == nil {
		return
	}
	export, err := h.store.ExportRoom(r.Context(), room.ID)
	if err != nil {
		slog.Error("failed to export room", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respondJSON(w, http.StatusOK, export)
}

// handleJoinRoom is the student entry point: look up an active room by its
// 6-digit code and return the routine schema and template content.
func (h *Handler) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.store.GetRoomByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "ErrInvalidRoomCode")
		return
	}
	schema, ok := routine.Get(room.RoutineType)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "ErrUnknownRoutine")
		return
	}
	tpl, err := h.store.GetTemplate(r.Context(), room.ID)
	if err != nil {
		slog.Error("failed to get template", "room_id", room.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"room": map[string]any{
			"id":                    room.ID,
			"title":                 room.Title,
			"description":           room.Description,
			"thinking_routine_type": room.RoutineType,
			"participation_type":    room.Participation,
		},
		"routine": map[string]any{
			"id":    schema.ID,
			"name":  schema.Name,
			"steps": schema.Steps,
		},
		"template": tpl,
	})
}
