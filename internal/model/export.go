package model

import "time"

// RoomExport is the top-level JSON structure for room result export.
type RoomExport struct {
	RoomID      string           `json:"room_id"`
	Title       string           `json:"title"`
	RoomCode    string           `json:"room_code"`
	RoutineType string           `json:"routine_type"`
	ExportedAt  time.Time        `json:"exported_at"`
	Results     []ResponseExport `json:"results"`
}

// ResponseExport holds one student's submission and any teacher evaluation.
type ResponseExport struct {
	StudentID    string            `json:"student_id"`
	StudentName  string            `json:"student_name"`
	Grade        string            `json:"grade"`
	Class        string            `json:"class"`
	Number       string            `json:"number"`
	TeamName     string            `json:"team_name,omitempty"`
	ResponseData map[string]string `json:"response_data"`
	SubmittedAt  *time.Time        `json:"submitted_at,omitempty"`
	Feedbacks    map[string]string `json:"step_feedbacks,omitempty"`
	Scores       map[string]int    `json:"step_scores,omitempty"`
}
