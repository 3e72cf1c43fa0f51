// Package routine holds the static registry of thinking-routine schemas.
// Schemas are defined once at init and never mutated; every other component
// looks routines up here instead of branching on routine type.
package routine

// Canonical response step keys. Student responses are always stored under
// these slots regardless of routine, with FourthStep used only by the
// four-step variant.
const (
	StepSee    = "see"
	StepThink  = "think"
	StepWonder = "wonder"
	FourthStep = "fourth_step"
)

// StepLabel is the display metadata for one step of a routine.
type StepLabel struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Color    string `json:"color"`
}

// Schema describes one thinking-routine variant: the ordered response steps,
// the canonical analysis keys the parser produces for it, and per-step
// display labels and default questions.
type Schema struct {
	ID           string
	Name         string
	Steps        []string
	AnalysisKeys []string
	Labels       map[string]StepLabel
	Questions    map[string]string
}

// NumSteps returns the number of response steps in the routine.
func (s Schema) NumSteps() int { return len(s.Steps) }

// HasStep reports whether key is one of the routine's response steps.
func (s Schema) HasStep(key string) bool {
	for _, st := range s.Steps {
		if st == key {
			return true
		}
	}
	return false
}

// AnalysisKey maps a response step index to the canonical analysis key the
// parser uses for that step.
func (s Schema) AnalysisKey(i int) string {
	if i < 0 || i >= len(s.AnalysisKeys) {
		return ""
	}
	return s.AnalysisKeys[i]
}

var registry = map[string]Schema{
	"see-think-wonder": {
		ID:           "see-think-wonder",
		Name:         "See-Think-Wonder",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"see", "think", "wonder"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "See", Subtitle: "What do you see?", Color: "blue"},
			StepThink:  {Title: "Think", Subtitle: "What do you think about that?", Color: "green"},
			StepWonder: {Title: "Wonder", Subtitle: "What does it make you wonder?", Color: "purple"},
		},
		Questions: map[string]string{
			StepSee:    "What do you see? Describe only what you observe.",
			StepThink:  "What do you think is going on? What makes you say that?",
			StepWonder: "What does this make you wonder? What questions do you have?",
		},
	},
	"4c": {
		ID:           "4c",
		Name:         "4C",
		Steps:        []string{StepSee, StepThink, StepWonder, FourthStep},
		AnalysisKeys: []string{"connect", "challenge", "concepts", "changes"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Connect", Subtitle: "Connections to what you know", Color: "blue"},
			StepThink:  {Title: "Challenge", Subtitle: "Ideas to challenge or question", Color: "red"},
			StepWonder: {Title: "Concepts", Subtitle: "Key concepts worth holding on to", Color: "green"},
			FourthStep: {Title: "Changes", Subtitle: "Changes in attitude or thinking", Color: "orange"},
		},
		Questions: map[string]string{
			StepSee:    "What connections do you draw between the text and your own life or learning?",
			StepThink:  "What ideas or assumptions do you want to challenge or argue with?",
			StepWonder: "What key concepts or ideas do you think are important to hold on to?",
			FourthStep: "What changes in your attitudes, thinking, or action are suggested?",
		},
	},
	"circle-of-viewpoints": {
		ID:           "circle-of-viewpoints",
		Name:         "Circle of Viewpoints",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"viewpoints", "perspective", "questions"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Viewpoints", Subtitle: "Brainstorm different viewpoints", Color: "blue"},
			StepThink:  {Title: "Perspective", Subtitle: "Explore one viewpoint from inside", Color: "green"},
			StepWonder: {Title: "Questions", Subtitle: "Questions from this viewpoint", Color: "purple"},
		},
		Questions: map[string]string{
			StepSee:    "What different viewpoints could there be on this topic?",
			StepThink:  "Choose one viewpoint. What would this person or thing think about the topic?",
			StepWonder: "What questions would you ask from this viewpoint?",
		},
	},
	"connect-extend-challenge": {
		ID:           "connect-extend-challenge",
		Name:         "Connect-Extend-Challenge",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"connect", "extend", "challenge"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Connect", Subtitle: "How does this connect to what you know?", Color: "blue"},
			StepThink:  {Title: "Extend", Subtitle: "What new ideas extended your thinking?", Color: "green"},
			StepWonder: {Title: "Challenge", Subtitle: "What is still challenging or puzzling?", Color: "red"},
		},
		Questions: map[string]string{
			StepSee:    "How are the ideas connected to what you already knew?",
			StepThink:  "What new ideas extended or pushed your thinking in new directions?",
			StepWonder: "What is still challenging or confusing for you?",
		},
	},
	"frayer-model": {
		ID:           "frayer-model",
		Name:         "Frayer Model",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"definition", "characteristics", "examples"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Definition", Subtitle: "Define the concept in your own words", Color: "blue"},
			StepThink:  {Title: "Characteristics", Subtitle: "Essential characteristics", Color: "green"},
			StepWonder: {Title: "Examples", Subtitle: "Examples and non-examples", Color: "orange"},
		},
		Questions: map[string]string{
			StepSee:    "How would you define this concept in your own words?",
			StepThink:  "What are the essential characteristics of this concept?",
			StepWonder: "What are examples and non-examples of this concept?",
		},
	},
	"used-to-think-now-think": {
		ID:           "used-to-think-now-think",
		Name:         "I Used to Think... Now I Think...",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"used_to_think", "now_think", "why_changed"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Used to Think", Subtitle: "What you used to think", Color: "gray"},
			StepThink:  {Title: "Now Think", Subtitle: "What you think now", Color: "green"},
			StepWonder: {Title: "Why Changed", Subtitle: "Why your thinking changed", Color: "purple"},
		},
		Questions: map[string]string{
			StepSee:    "What did you use to think about this topic?",
			StepThink:  "What do you think about it now?",
			StepWonder: "What made your thinking change?",
		},
	},
	"think-puzzle-explore": {
		ID:           "think-puzzle-explore",
		Name:         "Think-Puzzle-Explore",
		Steps:        []string{StepSee, StepThink, StepWonder},
		AnalysisKeys: []string{"think", "puzzle", "explore"},
		Labels: map[string]StepLabel{
			StepSee:    {Title: "Think", Subtitle: "What do you think you know?", Color: "blue"},
			StepThink:  {Title: "Puzzle", Subtitle: "What puzzles you?", Color: "red"},
			StepWonder: {Title: "Explore", Subtitle: "How can you explore further?", Color: "green"},
		},
		Questions: map[string]string{
			StepSee:    "What do you think you know about this topic?",
			StepThink:  "What questions or puzzles do you have?",
			StepWonder: "How can you explore the puzzles you have?",
		},
	},
}

// Get returns the schema for the given routine identifier.
func Get(id string) (Schema, bool) {
	s, ok := registry[id]
	return s, ok
}

// IDs returns all registered routine identifiers.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

// DefaultContent builds template content pre-filled with the routine's
// default questions.
func DefaultContent(s Schema) map[string]string {
	content := map[string]string{
		"see_question":    s.Questions[StepSee],
		"think_question":  s.Questions[StepThink],
		"wonder_question": s.Questions[StepWonder],
	}
	if s.HasStep(FourthStep) {
		content["fourth_question"] = s.Questions[FourthStep]
	}
	return content
}
