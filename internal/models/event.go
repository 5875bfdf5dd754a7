package models

import "time"

// PlacementCompletedEvent публикуется в RabbitMQ после обработки загрузки.
type PlacementCompletedEvent struct {
	SessionID    string    `json:"session_id"`
	GradeCount   int       `json:"grade_count"`
	StudentCount int       `json:"student_count"`
	FailedGrades int       `json:"failed_grades"`
	CompletedAt  time.Time `json:"completed_at"`
}
