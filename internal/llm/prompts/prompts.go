// Package prompts builds the system and user prompts for analysis requests
// from embedded templates.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/minseo-cho/routinelab/internal/routine"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	loadOnce sync.Once
	loadErr  error
	tmpls    *template.Template
)

// studentResponseRegex strips tag injections from student text before it is
// embedded between the real <student-response> markers.
var studentResponseRegex = regexp.MustCompile(`(?i)</?\s*student-response\b[^>]*>`)

const maxAnswerRunes = 10000

func load() error {
	loadOnce.Do(func() {
		tmpls, loadErr = template.ParseFS(templateFS, "templates/*.tmpl")
	})
	return loadErr
}

// StepPrompt is the per-step data fed into the templates.
type StepPrompt struct {
	Label    string
	Question string
	Answer   string
}

type promptData struct {
	RoutineName string
	Steps       []StepPrompt
}

func buildData(schema routine.Schema, responses map[string]string) promptData {
	data := promptData{RoutineName: schema.Name}
	for _, step := range schema.Steps {
		// The fourth step never goes into the analysis prompt body.
		if step == routine.FourthStep && responses != nil {
			continue
		}
		sp := StepPrompt{
			Label:    schema.Labels[step].Title,
			Question: schema.Questions[step],
		}
		if responses != nil {
			sp.Answer = sanitizeAnswer(responses[step])
		}
		data.Steps = append(data.Steps, sp)
	}
	return data
}

func execute(name string, data promptData) (string, error) {
	if err := load(); err != nil {
		return "", fmt.Errorf("load prompt templates: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpls.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// BuildSystemPrompt builds the system prompt for the given routine. The
// same prompt serves text and image analysis.
func BuildSystemPrompt(schema routine.Schema) (string, error) {
	return execute("system.tmpl", buildData(schema, nil))
}

// BuildTextUserPrompt builds the user prompt carrying the student's typed
// responses.
func BuildTextUserPrompt(schema routine.Schema, responses map[string]string) (string, error) {
	if responses == nil {
		responses = map[string]string{}
	}
	return execute("user_text.tmpl", buildData(schema, responses))
}

// BuildImageUserPrompt builds the user prompt that accompanies an uploaded
// worksheet photo.
func BuildImageUserPrompt(schema routine.Schema) (string, error) {
	return execute("user_image.tmpl", buildData(schema, nil))
}

func sanitizeAnswer(answer string) string {
	answer = studentResponseRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
