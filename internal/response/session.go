// Package response manages the student side of a room: loading drafts or
// prior submissions, step navigation, debounced autosave, and final
// submission.
package response

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/routine"
)

// AutosaveDelay is the quiescence window after the last edit before a draft
// write is issued.
const AutosaveDelay = 2 * time.Second

var (
	// ErrIncomplete is returned by Submit when any step is blank.
	ErrIncomplete = errors.New("response: all steps must be filled in before submitting")
	// ErrAlreadySubmitted is returned when editing or submitting after a
	// successful submission.
	ErrAlreadySubmitted = errors.New("response: already submitted")
)

// Store is the persistence surface the lifecycle needs. Implemented by the
// sqlite store.
type Store interface {
	GetDraft(ctx context.Context, roomID, studentID string) (*model.StudentResponse, error)
	GetSubmission(ctx context.Context, roomID, studentID string) (*model.StudentResponse, error)
	SaveDraft(ctx context.Context, resp model.StudentResponse) (string, error)
	DeleteDraft(ctx context.Context, roomID, studentID string) error
	SaveSubmission(ctx context.Context, resp model.StudentResponse) (string, error)
}

// Session is one student's working state in one room.
type Session struct {
	store  Store
	schema routine.Schema
	roomID string
	ident  model.StudentIdentity
	team   string

	mu        sync.Mutex
	data      map[string]string
	index     int
	submitted bool
	debouncer *Debouncer
}

// NewSession creates an unloaded session. Call Load before use.
func NewSession(store Store, schema routine.Schema, roomID string, ident model.StudentIdentity, team string) *Session {
	return &Session{
		store:     store,
		schema:    schema,
		roomID:    roomID,
		ident:     ident,
		team:      team,
		data:      make(map[string]string),
		debouncer: NewDebouncer(AutosaveDelay),
	}
}

// newSessionWithDelay is the test seam for autosave timing.
func newSessionWithDelay(store Store, schema routine.Schema, roomID string, ident model.StudentIdentity, delay time.Duration) *Session {
	s := NewSession(store, schema, roomID, ident, "")
	s.debouncer = NewDebouncer(delay)
	return s
}

// Load restores any draft or prior submission. With a draft, the current
// step becomes the furthest non-empty step (scanning the step order
// backward). With a submission only, the session is restored read-only at
// the last step. Otherwise it starts empty at the first step.
func (s *Session) Load(ctx context.Context) error {
	draft, err := s.store.GetDraft(ctx, s.roomID, s.ident.StudentID())
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if draft != nil {
		s.restoreLocked(draft)
		s.index = s.furthestNonEmptyLocked()
		return nil
	}

	sub, err := s.store.GetSubmission(ctx, s.roomID, s.ident.StudentID())
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	if sub != nil {
		s.restoreLocked(sub)
		s.submitted = true
		s.index = s.schema.NumSteps() - 1
		return nil
	}

	s.data = make(map[string]string)
	s.index = 0
	return nil
}

func (s *Session) restoreLocked(r *model.StudentResponse) {
	s.data = make(map[string]string, len(r.Data))
	for k, v := range r.Data {
		s.data[k] = v
	}
}

// furthestNonEmptyLocked scans the step order backward and returns the
// index of the first non-blank step, defaulting to the first step.
func (s *Session) furthestNonEmptyLocked() int {
	for i := s.schema.NumSteps() - 1; i >= 0; i-- {
		if strings.TrimSpace(s.data[s.schema.Steps[i]]) != "" {
			return i
		}
	}
	return 0
}

// CurrentStep returns the step key the session is positioned at.
func (s *Session) CurrentStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.Steps[s.index]
}

// Index returns the current step index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Submitted reports whether the session holds a final submission.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Data returns a copy of the response data.
func (s *Session) Data() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Next moves to the following step; no-op at the last step.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < s.schema.NumSteps()-1 {
		s.index++
	}
	return s.index
}

// Prev moves to the preceding step; no-op at the first step.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

// SetCurrentValue writes text into the current step and schedules a
// debounced autosave. Autosave stays suppressed while all three primary
// steps are blank so empty draft rows are never created.
func (s *Session) SetCurrentValue(text string) error {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return ErrAlreadySubmitted
	}
	s.data[s.schema.Steps[s.index]] = text
	primaryBlank := strings.TrimSpace(s.data[routine.StepSee]) == "" &&
		strings.TrimSpace(s.data[routine.StepThink]) == "" &&
		strings.TrimSpace(s.data[routine.StepWonder]) == ""
	s.mu.Unlock()

	if primaryBlank {
		return nil
	}
	s.debouncer.Schedule(s.flushDraft)
	return nil
}

// flushDraft writes the current data as a draft. Runs on the debounce
// timer; a session that got submitted in the meantime discards the write.
func (s *Session) flushDraft() {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	resp := s.snapshotLocked(true)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.store.SaveDraft(ctx, resp); err != nil {
		slog.Error("draft autosave failed", "room_id", s.roomID, "student_id", s.ident.StudentID(), "error", err)
	}
}

func (s *Session) snapshotLocked(draft bool) model.StudentResponse {
	data := make(map[string]string, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	return model.StudentResponse{
		RoomID:   s.roomID,
		Student:  s.ident,
		TeamName: s.team,
		Data:     data,
		IsDraft:  draft,
	}
}

// Submit validates completeness and persists the final record. The final
// record is written before the draft is removed, so a failure in between
// leaves a stale draft instead of losing the submission.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return "", ErrAlreadySubmitted
	}
	for _, step := range s.schema.Steps {
		if strings.TrimSpace(s.data[step]) == "" {
			s.mu.Unlock()
			return "", ErrIncomplete
		}
	}
	resp := s.snapshotLocked(false)
	s.mu.Unlock()

	now := time.Now()
	resp.SubmittedAt = &now

	id, err := s.store.SaveSubmission(ctx, resp)
	if err != nil {
		return "", fmt.Errorf("save submission: %w", err)
	}

	s.debouncer.Stop()
	if err := s.store.DeleteDraft(ctx, s.roomID, s.ident.StudentID()); err != nil {
		// The submission is safe; the stale draft is cleaned up on the
		// next write for this student.
		slog.Warn("delete draft after submit failed", "room_id", s.roomID, "error", err)
	}

	s.mu.Lock()
	s.submitted = true
	s.mu.Unlock()
	return id, nil
}

// Close cancels any pending autosave.
func (s *Session) Close() {
	s.debouncer.Stop()
}
