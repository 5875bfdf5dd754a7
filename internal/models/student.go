package models

// StudentRecord — один ученик из загруженной ведомости.
// После подготовки движком запись не изменяется.
type StudentRecord struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Grade         string             `json:"grade"`
	OriginalClass string             `json:"original_class"`
	Scores        map[string]float64 `json:"scores"`

	// Производные поля, заполняются balancer.PrepareStudents.
	Total     float64 `json:"total"`
	Composite float64 `json:"composite"`
	Rank      int     `json:"rank"`
	TopTier   bool    `json:"top_tier"`
}

// GradeRoster — все ученики одной параллели плюс метаданные из файлов.
type GradeRoster struct {
	GradeID            string          `json:"grade_id"`
	DisplayName        string          `json:"display_name"`
	OriginalClassCount int             `json:"original_class_count"`
	Subjects           []string        `json:"subjects"`
	Students           []StudentRecord `json:"students"`
}

func (r *GradeRoster) StudentCount() int {
	return len(r.Students)
}
