package review

import (
	"context"
	"errors"
	"testing"

	"github.com/minseo-cho/routinelab/internal/analysis"
	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/routine"
)

type fakePersister struct {
	saved []model.Evaluation
	err   error
}

func (f *fakePersister) SaveEvaluation(_ context.Context, ev model.Evaluation) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, ev)
	return int64(len(f.saved)), nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	schema, ok := routine.Get("see-think-wonder")
	if !ok {
		t.Fatal("see-think-wonder schema missing")
	}
	parsed := analysis.ParsedAnalysis{
		IndividualSteps: map[string]string{
			"see":   "see analysis",
			"think": "think analysis",
		},
	}
	return NewSession("resp-1", schema, parsed)
}

func TestIndexBounds(t *testing.T) {
	s := newTestSession(t)

	if got := s.Prev(); got != 0 {
		t.Errorf("Prev at 0 = %d, want 0", got)
	}
	for i := 0; i < 4; i++ {
		s.Next()
	}
	if got := s.Index(); got != 4 {
		t.Errorf("after 4 Next = %d, want 4", got)
	}
	if got := s.Next(); got != 4 {
		t.Errorf("fifth Next = %d, want 4 (clamped)", got)
	}
}

func TestScreenProgression(t *testing.T) {
	s := newTestSession(t)

	want := []Screen{ScreenStep, ScreenStep, ScreenStep, ScreenComprehensive, ScreenEducational}
	for i, w := range want {
		if got := s.Screen(); got != w {
			t.Errorf("index %d: screen = %q, want %q", i, got, w)
		}
		s.Next()
	}
}

func TestCurrentStep(t *testing.T) {
	s := newTestSession(t)

	step, content, ok := s.CurrentStep()
	if !ok || step != "see" || content != "see analysis" {
		t.Errorf("CurrentStep = (%q, %q, %v)", step, content, ok)
	}

	s.Next()
	s.Next()
	// Third step has no parsed content.
	step, content, ok = s.CurrentStep()
	if !ok || step != "wonder" || content != "" {
		t.Errorf("CurrentStep at wonder = (%q, %q, %v)", step, content, ok)
	}

	s.Next()
	if _, _, ok := s.CurrentStep(); ok {
		t.Error("CurrentStep should report false on the comprehensive screen")
	}
}

func TestFeedbackAndScoreOnlyOnStepScreens(t *testing.T) {
	s := newTestSession(t)

	if err := s.SetFeedback("observant"); err != nil {
		t.Fatalf("SetFeedback: %v", err)
	}
	if err := s.SetScore(4); err != nil {
		t.Fatalf("SetScore: %v", err)
	}

	if err := s.SetScore(0); !errors.Is(err, ErrScoreRange) {
		t.Errorf("score 0: got %v, want ErrScoreRange", err)
	}
	if err := s.SetScore(6); !errors.Is(err, ErrScoreRange) {
		t.Errorf("score 6: got %v, want ErrScoreRange", err)
	}

	s.Next()
	s.Next()
	s.Next() // comprehensive
	if err := s.SetFeedback("nope"); !errors.Is(err, ErrNotStepScreen) {
		t.Errorf("feedback on comprehensive: got %v, want ErrNotStepScreen", err)
	}
	if err := s.SetScore(3); !errors.Is(err, ErrNotStepScreen) {
		t.Errorf("score on comprehensive: got %v, want ErrNotStepScreen", err)
	}

	fb := s.Feedbacks()
	if fb["see"] != "observant" {
		t.Errorf("feedbacks = %v", fb)
	}
	sc := s.Scores()
	if sc["see"] != 4 {
		t.Errorf("scores = %v", sc)
	}
}

func TestSaveOnlyFromEducational(t *testing.T) {
	s := newTestSession(t)
	p := &fakePersister{}

	if _, err := s.Save(context.Background(), p); !errors.Is(err, ErrNotSaveScreen) {
		t.Fatalf("save from step screen: got %v, want ErrNotSaveScreen", err)
	}
	if len(p.saved) != 0 {
		t.Fatal("no write should be issued before the final screen")
	}

	_ = s.SetFeedback("good start")
	_ = s.SetScore(5)
	for i := 0; i < 4; i++ {
		s.Next()
	}

	ev, err := s.Save(context.Background(), p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ev.ResponseID != "resp-1" {
		t.Errorf("response ID = %q", ev.ResponseID)
	}
	if ev.Feedbacks["see"] != "good start" || ev.Scores["see"] != 5 {
		t.Errorf("saved evaluation = %+v", ev)
	}

	// Save is not idempotent: a second call issues a second write.
	if _, err := s.Save(context.Background(), p); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if len(p.saved) != 2 {
		t.Errorf("expected 2 writes, got %d", len(p.saved))
	}
}

func TestManager(t *testing.T) {
	m := NewManager()
	s := newTestSession(t)

	if _, ok := m.Get("resp-1"); ok {
		t.Fatal("unexpected session before Put")
	}
	m.Put("resp-1", s)
	if got, ok := m.Get("resp-1"); !ok || got != s {
		t.Fatal("Get should return the stored session")
	}
	m.Drop("resp-1")
	if _, ok := m.Get("resp-1"); ok {
		t.Fatal("session should be gone after Drop")
	}
}
