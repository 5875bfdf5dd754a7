package models

// ClassPlan — целевой размер одного нового класса.
// Index нумеруется с единицы, порядок значим для змейки.
type ClassPlan struct {
	Grade      string `json:"grade"`
	Index      int    `json:"index"`
	TargetSize int    `json:"target_size"`
	Big        bool   `json:"big"`
}

// Assignment — распределение учеников параллели по новым классам.
// Создается сидером, мутируется рефайнером только через Swap,
// после передачи в отчет считается неизменяемым.
type Assignment struct {
	Grade   string         `json:"grade"`
	Classes int            `json:"classes"`
	ClassOf map[string]int `json:"class_of"` // id ученика -> индекс класса (1..N)
}

// Swap обменивает классы двух учеников. Размеры классов при этом
// не меняются, это единственная разрешенная мутация.
func (a *Assignment) Swap(idA, idB string) {
	a.ClassOf[idA], a.ClassOf[idB] = a.ClassOf[idB], a.ClassOf[idA]
}

// Sizes возвращает фактические размеры классов (индекс 0 — класс 1).
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.Classes)
	for _, class := range a.ClassOf {
		if class >= 1 && class <= a.Classes {
			sizes[class-1]++
		}
	}
	return sizes
}

// ClassSummary — итоговая статистика одного класса для отчета.
type ClassSummary struct {
	Index        int                `json:"index"`
	Label        string             `json:"label"` // big | small
	Size         int                `json:"size"`
	TopTierCount int                `json:"top_tier_count"`
	TotalMean    float64            `json:"total_mean"`
	TotalStddev  float64            `json:"total_stddev"`
	SubjectMean  map[string]float64 `json:"subject_mean"`
	SubjectStd   map[string]float64 `json:"subject_stddev"`
}
