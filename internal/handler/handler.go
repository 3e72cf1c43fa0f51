// Package handler exposes the HTTP API: auth and user administration,
// room and template management for teachers, the anonymous student
// response flow, AI analysis, and the review walkthrough.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/minseo-cho/routinelab/internal/i18n"
	"github.com/minseo-cho/routinelab/internal/llm"
	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/response"
	"github.com/minseo-cho/routinelab/internal/review"
	"github.com/minseo-cho/routinelab/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	llm       *llm.Client
	responses *response.Manager
	reviews   *review.Manager
	config    model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, cfg model.AppConfig) *Handler {
	return &Handler{
		store:     s,
		llm:       l,
		responses: response.NewManager(s),
		reviews:   review.NewManager(),
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	// Public: login plus the student-facing room flow. Students never
	// authenticate; they carry their identity in each request.
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Get("/api/join/{code}", h.handleJoinRoom)
	r.Post("/api/rooms/{roomID}/responses/load", h.handleResponseLoad)
	r.Post("/api/rooms/{roomID}/responses/edit", h.handleResponseEdit)
	r.Post("/api/rooms/{roomID}/responses/navigate", h.handleResponseNavigate)
	r.Post("/api/rooms/{roomID}/responses/submit", h.handleResponseSubmit)

	r.Post("/api/ai/analyze", h.handleAnalyze)
	r.Post("/api/ai/analyze-image", h.handleAnalyzeImage)

	// Teacher surface.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))

		r.Get("/api/auth/me", h.handleMe)
		r.Get("/api/routines", h.handleListRoutines)

		r.Post("/api/rooms", h.handleCreateRoom)
		r.Get("/api/rooms", h.handleListRooms)
		r.Get("/api/rooms/{roomID}", h.handleGetRoom)
		r.Patch("/api/rooms/{roomID}/status", h.handleUpdateRoomStatus)
		r.Delete("/api/rooms/{roomID}", h.handleDeleteRoom)
		r.Put("/api/rooms/{roomID}/template", h.handleUpsertTemplate)
		r.Get("/api/rooms/{roomID}/template", h.handleGetTemplate)
		r.Get("/api/rooms/{roomID}/submissions", h.handleListSubmissions)
		r.Get("/api/rooms/{roomID}/export", h.handleExportRoom)

		r.Post("/api/responses/{responseID}/review", h.handleStartReview)
		r.Get("/api/responses/{responseID}/review", h.handleReviewState)
		r.Post("/api/responses/{responseID}/review/navigate", h.handleReviewNavigate)
		r.Post("/api/responses/{responseID}/review/feedback", h.handleReviewFeedback)
		r.Post("/api/responses/{responseID}/review/score", h.handleReviewScore)
		r.Post("/api/responses/{responseID}/review/save", h.handleReviewSave)
	})

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleAdmin))

		r.Get("/api/admin/users", h.handleAdminListUsers)
		r.Post("/api/admin/users", h.handleCreateUser)
		r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
		r.Post("/api/admin/users/{userID}/password", h.handleSetUserPassword)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError writes a localized error body looked up by message ID.
func respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}
