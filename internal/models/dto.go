package models

import "time"

// ClassConfig — конфигурация классов для одной параллели (из запроса).
type ClassConfig struct {
	BigCount   int `json:"big_count"`
	SmallCount int `json:"small_count"`
	SmallSize  int `json:"small_size"`
}

func (c ClassConfig) IsZero() bool {
	return c.BigCount == 0 && c.SmallCount == 0
}

// GradeOutcome — результат обработки одной параллели в сводке ответа.
type GradeOutcome struct {
	GradeID      string `json:"grade_id"`
	DisplayName  string `json:"display_name"`
	StudentCount int    `json:"student_count"`
	ClassCount   int    `json:"class_count,omitempty"`
	ResultFile   string `json:"result_file,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PlacementSummary — агрегированный ответ на загрузку.
type PlacementSummary struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Results   []GradeOutcome `json:"results"`
	Failed    []GradeOutcome `json:"failed,omitempty"`
}

// HistoryEntry — строка истории обработанных параллелей.
type HistoryEntry struct {
	ID           string    `json:"id" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	GradeID      string    `json:"grade_id" db:"grade_id"`
	StudentCount int       `json:"student_count" db:"student_count"`
	ClassCount   int       `json:"class_count" db:"class_count"`
	InitialScore float64   `json:"initial_score" db:"initial_score"`
	FinalScore   float64   `json:"final_score" db:"final_score"`
	Outcome      string    `json:"outcome" db:"outcome"`
	DurationMs   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
