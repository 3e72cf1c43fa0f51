package routine

import "testing"

func TestRegistryShape(t *testing.T) {
	ids := IDs()
	if len(ids) != 7 {
		t.Fatalf("expected 7 routines, got %d", len(ids))
	}

	for _, id := range ids {
		s, ok := Get(id)
		if !ok {
			t.Fatalf("Get(%q) not found", id)
		}

		wantSteps := 3
		if id == "4c" {
			wantSteps = 4
		}
		if len(s.Steps) != wantSteps {
			t.Errorf("%s: expected %d steps, got %d", id, wantSteps, len(s.Steps))
		}
		if len(s.AnalysisKeys) != len(s.Steps) {
			t.Errorf("%s: %d analysis keys for %d steps", id, len(s.AnalysisKeys), len(s.Steps))
		}

		for _, step := range s.Steps {
			if _, ok := s.Labels[step]; !ok {
				t.Errorf("%s: step %q has no label", id, step)
			}
			if q := s.Questions[step]; q == "" {
				t.Errorf("%s: step %q has no default question", id, step)
			}
		}
	}
}

func TestGetUnknown(t *testing.T) {
	if _, ok := Get("no-such-routine"); ok {
		t.Error("expected lookup miss for unknown routine")
	}
}

func TestAnalysisKey(t *testing.T) {
	s, _ := Get("4c")
	want := []string{"connect", "challenge", "concepts", "changes"}
	for i, w := range want {
		if got := s.AnalysisKey(i); got != w {
			t.Errorf("AnalysisKey(%d) = %q, want %q", i, got, w)
		}
	}
	if got := s.AnalysisKey(4); got != "" {
		t.Errorf("out-of-range AnalysisKey = %q, want empty", got)
	}
	if got := s.AnalysisKey(-1); got != "" {
		t.Errorf("negative AnalysisKey = %q, want empty", got)
	}
}

func TestDefaultContent(t *testing.T) {
	stw, _ := Get("see-think-wonder")
	content := DefaultContent(stw)
	if _, ok := content["fourth_question"]; ok {
		t.Error("three-step routine should not have a fourth question")
	}
	if content["see_question"] == "" {
		t.Error("missing see question")
	}

	fourC, _ := Get("4c")
	content = DefaultContent(fourC)
	if content["fourth_question"] == "" {
		t.Error("4c should have a fourth question")
	}
}
