package store

import (
	"context"
	"time"

	"github.com/minseo-cho/routinelab/internal/model"
)

// ExportRoom collects a room's submissions with any evaluations into a
// single export document.
func (s *Store) ExportRoom(ctx context.Context, roomID string) (model.RoomExport, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return model.RoomExport{}, err
	}

	submissions, err := s.ListSubmissions(ctx, roomID)
	if err != nil {
		return model.RoomExport{}, err
	}

	export := model.RoomExport{
		RoomID:      room.ID,
		Title:       room.Title,
		RoomCode:    room.Code,
		RoutineType: room.RoutineType,
		ExportedAt:  time.Now(),
		Results:     make([]model.ResponseExport, 0, len(submissions)),
	}
	for _, resp := range submissions {
		result := model.ResponseExport{
			StudentID:    resp.Student.StudentID(),
			StudentName:  resp.Student.Name,
			Grade:        resp.Student.Grade,
			Class:        resp.Student.Class,
			Number:       resp.Student.Number,
			TeamName:     resp.TeamName,
			ResponseData: resp.Data,
			SubmittedAt:  resp.SubmittedAt,
		}
		ev, err := s.GetEvaluation(ctx, resp.ID)
		if err != nil {
			return model.RoomExport{}, err
		}
		if ev != nil {
			result.Feedbacks = ev.Feedbacks
			result.Scores = ev.Scores
		}
		export.Results = append(export.Results, result)
	}
	return export, nil
}
