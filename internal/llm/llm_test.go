package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestConfidenceScoring(t *testing.T) {
	// Long text, both keyword pairs, more than 3 lines: every bonus
	// applies and the cap kicks in.
	rich := "학생의 응답에 대한 분석 결과입니다.\n" +
		strings.Repeat("관찰한 내용이 구체적이고 좋습니다. ", 3) + "\n" +
		"다음 단계에서는 더 깊이 생각해 보세요.\n" +
		"개선할 점도 있습니다.\n" +
		"전반적으로 훌륭합니다."
	if got := Confidence(rich); got != 0.95 {
		t.Errorf("rich analysis confidence = %v, want 0.95", got)
	}

	if got := Confidence("short text"); got != 0.5 {
		t.Errorf("bare analysis confidence = %v, want 0.5", got)
	}
}

func TestConfidenceIndividualBonuses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"length only", strings.Repeat("a", 101), 0.7},
		{"analysis keyword only", "분석", 0.6},
		{"evaluation keyword only", "평가", 0.6},
		{"improvement keyword only", "개선", 0.6},
		{"feedback keyword only", "피드백", 0.6},
		{"both keyword pairs", "분석 피드백", 0.7},
		{"lines only", "a\nb\nc\nd", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.text)
			// Avoid float equality noise from repeated additions.
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Confidence(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestConfidenceCountsRunesNotBytes(t *testing.T) {
	// 60 Hangul runes are 180 bytes; the length bonus must not apply.
	text := strings.Repeat("가", 60)
	if got := Confidence(text); got != 0.5 {
		t.Errorf("Confidence = %v, want 0.5 for 60 runes", got)
	}
}

func TestErrorMessageID(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing credential", ErrNoCredential, "ErrAIMissingCredential"},
		{"wrapped credential", errors.Join(errors.New("x"), ErrNoCredential), "ErrAIMissingCredential"},
		{"quota", errors.New("insufficient_quota: you exceeded your quota"), "ErrAIQuota"},
		{"rate limit", errors.New("429 rate limit reached"), "ErrAIQuota"},
		{"timeout", errors.New("context deadline exceeded"), "ErrAITimeout"},
		{"bad key", errors.New("401 incorrect API key provided"), "ErrAIKey"},
		{"other", errors.New("connection reset by peer"), "ErrAIGeneric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessageID(tt.err); got != tt.want {
				t.Errorf("ErrorMessageID = %q, want %q", got, tt.want)
			}
		})
	}
}
