// Package review drives a teacher through the step-by-step screens of one
// parsed AI analysis and collects per-step feedback and scores until they
// are saved.
package review

import (
	"context"
	"errors"
	"sync"

	"github.com/minseo-cho/routinelab/internal/analysis"
	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/routine"
)

var (
	// ErrNotStepScreen is returned when feedback or a score is set while
	// the session is on the comprehensive or educational screen.
	ErrNotStepScreen = errors.New("review: not on a step screen")
	// ErrNotSaveScreen is returned when save is attempted before the
	// educational screen.
	ErrNotSaveScreen = errors.New("review: save only allowed on the final screen")
	// ErrScoreRange is returned for scores outside 1..5.
	ErrScoreRange = errors.New("review: score must be between 1 and 5")
)

// Persister writes a finished evaluation. Implemented by the store.
type Persister interface {
	SaveEvaluation(ctx context.Context, ev model.Evaluation) (int64, error)
}

// Screen identifies what the current index points at.
type Screen string

const (
	ScreenStep          Screen = "step"
	ScreenComprehensive Screen = "comprehensive"
	ScreenEducational   Screen = "educational"
)

// Session is the teacher-side working state while walking through one
// ParsedAnalysis. The index ranges over [0, numSteps+1]: numSteps is the
// comprehensive screen and numSteps+1 the educational/save screen.
type Session struct {
	mu sync.Mutex

	responseID string
	schema     routine.Schema
	parsed     analysis.ParsedAnalysis

	index     int
	feedbacks map[string]string
	scores    map[string]int
}

// NewSession starts a review at the first step screen.
func NewSession(responseID string, schema routine.Schema, parsed analysis.ParsedAnalysis) *Session {
	return &Session{
		responseID: responseID,
		schema:     schema,
		parsed:     parsed,
		feedbacks:  make(map[string]string),
		scores:     make(map[string]int),
	}
}

// Index returns the current screen index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Screen returns which kind of screen the session is on.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenLocked()
}

func (s *Session) screenLocked() Screen {
	switch {
	case s.index < s.schema.NumSteps():
		return ScreenStep
	case s.index == s.schema.NumSteps():
		return ScreenComprehensive
	default:
		return ScreenEducational
	}
}

// Next advances one screen, clamped at the educational screen.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < s.schema.NumSteps()+1 {
		s.index++
	}
	return s.index
}

// Prev moves one screen back, clamped at the first step.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
	}
	return s.index
}

// CurrentStep returns the response step key and its analysis content for
// the current step screen. ok is false on the comprehensive and educational
// screens.
func (s *Session) CurrentStep() (step string, content string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenLocked() != ScreenStep {
		return "", "", false
	}
	step = s.schema.Steps[s.index]
	content = s.parsed.IndividualSteps[s.schema.AnalysisKey(s.index)]
	return step, content, true
}

// SetFeedback records feedback for the step currently shown. It fails on
// the comprehensive and educational screens, which have no per-step
// feedback affordance.
func (s *Session) SetFeedback(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenLocked() != ScreenStep {
		return ErrNotStepScreen
	}
	s.feedbacks[s.schema.Steps[s.index]] = text
	return nil
}

// SetScore records a 1..5 score for the step currently shown.
func (s *Session) SetScore(score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenLocked() != ScreenStep {
		return ErrNotStepScreen
	}
	if score < 1 || score > 5 {
		return ErrScoreRange
	}
	s.scores[s.schema.Steps[s.index]] = score
	return nil
}

// Feedbacks returns a copy of the feedback collected so far.
func (s *Session) Feedbacks() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.feedbacks))
	for k, v := range s.feedbacks {
		out[k] = v
	}
	return out
}

// Scores returns a copy of the scores collected so far.
func (s *Session) Scores() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Parsed returns the analysis under review.
func (s *Session) Parsed() analysis.ParsedAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parsed
}

// Save persists the collected feedback and scores. Only meaningful from the
// educational screen. Each call issues a write; the caller must keep the
// action disabled while one is in flight.
func (s *Session) Save(ctx context.Context, p Persister) (model.Evaluation, error) {
	s.mu.Lock()
	if s.screenLocked() != ScreenEducational {
		s.mu.Unlock()
		return model.Evaluation{}, ErrNotSaveScreen
	}
	ev := model.Evaluation{
		ResponseID: s.responseID,
		Feedbacks:  make(map[string]string, len(s.feedbacks)),
		Scores:     make(map[string]int, len(s.scores)),
	}
	for k, v := range s.feedbacks {
		ev.Feedbacks[k] = v
	}
	for k, v := range s.scores {
		ev.Scores[k] = v
	}
	s.mu.Unlock()

	id, err := p.SaveEvaluation(ctx, ev)
	if err != nil {
		return model.Evaluation{}, err
	}
	ev.ID = id
	return ev, nil
}
