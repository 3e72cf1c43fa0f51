// Package store persists rooms, templates, student responses, and teacher
// evaluations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minseo-cho/routinelab/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS activity_rooms (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		room_code TEXT NOT NULL,
		thinking_routine_type TEXT NOT NULL,
		participation_type TEXT NOT NULL DEFAULT 'individual',
		status TEXT NOT NULL DEFAULT 'active',
		teacher_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (teacher_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS routine_templates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL UNIQUE,
		routine_type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '{}',
		FOREIGN KEY (room_id) REFERENCES activity_rooms(id)
	);

	CREATE TABLE IF NOT EXISTS student_responses (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		student_grade TEXT NOT NULL DEFAULT '',
		student_class TEXT NOT NULL DEFAULT '',
		student_number TEXT NOT NULL DEFAULT '',
		team_name TEXT NOT NULL DEFAULT '',
		response_data TEXT NOT NULL DEFAULT '{}',
		is_draft INTEGER NOT NULL DEFAULT 1,
		submitted_at DATETIME,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (room_id) REFERENCES activity_rooms(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_responses_one_draft
		ON student_responses(room_id, student_id) WHERE is_draft = 1;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_responses_one_final
		ON student_responses(room_id, student_id) WHERE is_draft = 0;

	CREATE TABLE IF NOT EXISTS response_evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		response_id TEXT NOT NULL UNIQUE,
		step_feedbacks TEXT NOT NULL DEFAULT '{}',
		step_scores TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (response_id) REFERENCES student_responses(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateRoom inserts a room with a fresh ID and a unique active room code.
func (s *Store) CreateRoom(ctx context.Context, room model.Room) (model.Room, error) {
	code, err := GenerateRoomCode(func(c string) (bool, error) {
		return s.roomCodeInUse(ctx, c)
	})
	if err != nil {
		return model.Room{}, err
	}

	room.ID = uuid.NewString()
	room.Code = code
	room.CreatedAt = time.Now()
	if room.Status == "" {
		room.Status = model.RoomActive
	}
	if room.Participation == "" {
		room.Participation = model.ParticipationIndividual
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_rooms
		 (id, title, description, room_code, thinking_routine_type, participation_type, status, teacher_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Title, room.Description, room.Code, room.RoutineType,
		room.Participation, room.Status, room.TeacherID, room.CreatedAt,
	)
	if err != nil {
		return model.Room{}, err
	}
	return room, nil
}

// roomCodeInUse reports whether an active room already uses the code.
func (s *Store) roomCodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_rooms WHERE room_code = ? AND status = 'active'`, code,
	).Scan(&n)
	return n > 0, err
}

const roomColumns = `id, title, description, room_code, thinking_routine_type, participation_type, status, teacher_id, created_at`

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.Code, &r.RoutineType,
		&r.Participation, &r.Status, &r.TeacherID, &r.CreatedAt)
	return r, err
}

// GetRoom returns a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (model.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM activity_rooms WHERE id = ?`, id))
}

// GetRoomByCode returns the active room with the given code.
func (s *Store) GetRoomByCode(ctx context.Context, code string) (model.Room, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM activity_rooms WHERE room_code = ? AND status = 'active'`, code))
}

// ListRoomsByTeacher returns a teacher's rooms, newest first.
func (s *Store) ListRoomsByTeacher(ctx context.Context, teacherID int64) ([]model.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM activity_rooms WHERE teacher_id = ? ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rooms []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// UpdateRoomStatus changes a room's publication status.
func (s *Store) UpdateRoomStatus(ctx context.Context, id string, status model.RoomStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE activity_rooms SET status = ? WHERE id = ?`, status, id)
	return err
}

// DeleteRoom removes a room with its template, responses, and evaluations.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM response_evaluations WHERE response_id IN
		 (SELECT id FROM student_responses WHERE room_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM student_responses WHERE room_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM routine_templates WHERE room_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_rooms WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertTemplate creates or replaces the template content for a room.
func (s *Store) UpsertTemplate(ctx context.Context, tpl model.RoutineTemplate) error {
	content, err := json.Marshal(tpl.Content)
	if err != nil {
		return fmt.Errorf("marshal template content: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO routine_templates (room_id, routine_type, content)
		 VALUES (?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET routine_type = excluded.routine_type, content = excluded.content`,
		tpl.RoomID, tpl.RoutineType, string(content),
	)
	return err
}

// GetTemplate returns the template for a room, or nil if none is set.
func (s *Store) GetTemplate(ctx context.Context, roomID string) (*model.RoutineTemplate, error) {
	var tpl model.RoutineTemplate
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, routine_type, content FROM routine_templates WHERE room_id = ?`, roomID,
	).Scan(&tpl.ID, &tpl.RoomID, &tpl.RoutineType, &content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &tpl.Content); err != nil {
		return nil, fmt.Errorf("unmarshal template content: %w", err)
	}
	return &tpl, nil
}

const responseColumns = `id, room_id, student_id, student_name, student_grade, student_class, student_number,
	team_name, response_data, is_draft, submitted_at, updated_at`

func scanResponse(row interface{ Scan(...any) error }) (*model.StudentResponse, error) {
	var r model.StudentResponse
	var studentID, data string
	err := row.Scan(&r.ID, &r.RoomID, &studentID, &r.Student.Name, &r.Student.Grade,
		&r.Student.Class, &r.Student.Number, &r.TeamName, &data, &r.IsDraft,
		&r.SubmittedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return nil, fmt.Errorf("unmarshal response data: %w", err)
	}
	return &r, nil
}

// GetDraft returns the draft for a student in a room, or nil.
func (s *Store) GetDraft(ctx context.Context, roomID, studentID string) (*model.StudentResponse, error) {
	return scanResponse(s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM student_responses
		 WHERE room_id = ? AND student_id = ? AND is_draft = 1`, roomID, studentID))
}

// GetSubmission returns the final submission for a student in a room, or nil.
func (s *Store) GetSubmission(ctx context.Context, roomID, studentID string) (*model.StudentResponse, error) {
	return scanResponse(s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM student_responses
		 WHERE room_id = ? AND student_id = ? AND is_draft = 0`, roomID, studentID))
}

// GetResponse returns a response by ID, or nil.
func (s *Store) GetResponse(ctx context.Context, id string) (*model.StudentResponse, error) {
	return scanResponse(s.db.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM student_responses WHERE id = ?`, id))
}

// SaveDraft inserts or updates the draft row for (room, student). The
// partial unique index makes concurrent writers converge on one row.
func (s *Store) SaveDraft(ctx context.Context, resp model.StudentResponse) (string, error) {
	return s.saveResponse(ctx, resp, true)
}

// SaveSubmission inserts or updates the final row for (room, student).
func (s *Store) SaveSubmission(ctx context.Context, resp model.StudentResponse) (string, error) {
	return s.saveResponse(ctx, resp, false)
}

func (s *Store) saveResponse(ctx context.Context, resp model.StudentResponse, draft bool) (string, error) {
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return "", fmt.Errorf("marshal response data: %w", err)
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}

	draftFlag := 0
	if draft {
		draftFlag = 1
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO student_responses
		 (id, room_id, student_id, student_name, student_grade, student_class, student_number,
		  team_name, response_data, is_draft, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, %d, ?, ?)
		 ON CONFLICT(room_id, student_id) WHERE is_draft = %d DO UPDATE SET
		   response_data = excluded.response_data,
		   team_name = excluded.team_name,
		   submitted_at = excluded.submitted_at,
		   updated_at = excluded.updated_at`, draftFlag, draftFlag),
		resp.ID, resp.RoomID, resp.Student.StudentID(), resp.Student.Name, resp.Student.Grade,
		resp.Student.Class, resp.Student.Number, resp.TeamName, string(data),
		resp.SubmittedAt, time.Now(),
	)
	if err != nil {
		return "", err
	}

	// The upsert may have kept an existing row's ID; read it back.
	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM student_responses WHERE room_id = ? AND student_id = ? AND is_draft = ?`,
		resp.RoomID, resp.Student.StudentID(), draftFlag,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeleteDraft removes the draft row for (room, student), if any.
func (s *Store) DeleteDraft(ctx context.Context, roomID, studentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM student_responses WHERE room_id = ? AND student_id = ? AND is_draft = 1`,
		roomID, studentID)
	return err
}

// ListSubmissions returns all final submissions for a room, newest first.
func (s *Store) ListSubmissions(ctx context.Context, roomID string) ([]model.StudentResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+responseColumns+` FROM student_responses
		 WHERE room_id = ? AND is_draft = 0 ORDER BY submitted_at DESC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var responses []model.StudentResponse
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}

// SaveEvaluation inserts or replaces the teacher's evaluation of a
// response. Implements review.Persister.
func (s *Store) SaveEvaluation(ctx context.Context, ev model.Evaluation) (int64, error) {
	feedbacks, err := json.Marshal(ev.Feedbacks)
	if err != nil {
		return 0, fmt.Errorf("marshal feedbacks: %w", err)
	}
	scores, err := json.Marshal(ev.Scores)
	if err != nil {
		return 0, fmt.Errorf("marshal scores: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO response_evaluations (response_id, step_feedbacks, step_scores, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(response_id) DO UPDATE SET
		   step_feedbacks = excluded.step_feedbacks,
		   step_scores = excluded.step_scores,
		   created_at = excluded.created_at`,
		ev.ResponseID, string(feedbacks), string(scores), time.Now(),
	)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM response_evaluations WHERE response_id = ?`, ev.ResponseID,
	).Scan(&id)
	return id, err
}

// GetEvaluation returns the evaluation for a response, or nil.
func (s *Store) GetEvaluation(ctx context.Context, responseID string) (*model.Evaluation, error) {
	var ev model.Evaluation
	var feedbacks, scores string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, response_id, step_feedbacks, step_scores, created_at
		 FROM response_evaluations WHERE response_id = ?`, responseID,
	).Scan(&ev.ID, &ev.ResponseID, &feedbacks, &scores, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(feedbacks), &ev.Feedbacks); err != nil {
		return nil, fmt.Errorf("unmarshal feedbacks: %w", err)
	}
	if err := json.Unmarshal([]byte(scores), &ev.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return &ev, nil
}
