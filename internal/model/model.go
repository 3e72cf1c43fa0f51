package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user. Students are not users: they identify
// themselves per room with name/grade/class/number and never authenticate.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// RoomStatus represents the publication state of an activity room.
type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	RoomDraft  RoomStatus = "draft"
)

// ParticipationType controls whether students respond alone or as a team.
type ParticipationType string

const (
	ParticipationIndividual ParticipationType = "individual"
	ParticipationTeam       ParticipationType = "team"
)

// Room is a teacher-created instance of one thinking routine, joined by
// students via a 6-digit code.
type Room struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Code          string            `json:"room_code"`
	RoutineType   string            `json:"thinking_routine_type"`
	Participation ParticipationType `json:"participation_type"`
	Status        RoomStatus        `json:"status"`
	TeacherID     int64             `json:"teacher_id"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TemplateContent holds the stimulus material and per-step questions shown
// to students in a room.
type TemplateContent struct {
	ImageURL       string `json:"image_url,omitempty"`
	TextContent    string `json:"text_content,omitempty"`
	YoutubeURL     string `json:"youtube_url,omitempty"`
	SeeQuestion    string `json:"see_question"`
	ThinkQuestion  string `json:"think_question"`
	WonderQuestion string `json:"wonder_question"`
	FourthQuestion string `json:"fourth_question,omitempty"`
}

// RoutineTemplate attaches template content to a room.
type RoutineTemplate struct {
	ID          int64           `json:"id"`
	RoomID      string          `json:"room_id"`
	RoutineType string          `json:"routine_type"`
	Content     TemplateContent `json:"content"`
}

// StudentIdentity identifies one student within a room. Students are keyed
// by the composite of all four fields, not by account.
type StudentIdentity struct {
	Name   string `json:"name"`
	Grade  string `json:"grade"`
	Class  string `json:"class"`
	Number string `json:"number"`
}

// StudentID returns the composite storage key for this identity.
func (si StudentIdentity) StudentID() string {
	return fmt.Sprintf("%s_%s_%s_%s", si.Name, si.Grade, si.Class, si.Number)
}

// Valid reports whether all identity fields are present.
func (si StudentIdentity) Valid() bool {
	return strings.TrimSpace(si.Name) != "" &&
		strings.TrimSpace(si.Grade) != "" &&
		strings.TrimSpace(si.Class) != "" &&
		strings.TrimSpace(si.Number) != ""
}

// StudentResponse is one student's in-progress or submitted answer set for
// a room. At most one draft and one submission exist per (room, student).
type StudentResponse struct {
	ID          string            `json:"id"`
	RoomID      string            `json:"room_id"`
	Student     StudentIdentity   `json:"student"`
	TeamName    string            `json:"team_name,omitempty"`
	Data        map[string]string `json:"response_data"`
	IsDraft     bool              `json:"is_draft"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// AppConfig carries server-level settings shared by handlers.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	Lang          string // language tag for localized messages
}

// Evaluation is the teacher's per-step feedback and scores recorded after
// reviewing an AI analysis of one response.
type Evaluation struct {
	ID         int64             `json:"id"`
	ResponseID string            `json:"response_id"`
	Feedbacks  map[string]string `json:"step_feedbacks"`
	Scores     map[string]int    `json:"step_scores"`
	CreatedAt  time.Time         `json:"created_at"`
}
