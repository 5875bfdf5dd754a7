package balancer

import (
	"github.com/RubachokBoss/class-balancer/internal/models"
)

const (
	DefaultTopTierRatio  = 0.15
	DefaultTopWeight     = 1.0
	DefaultSubjectWeight = 1.0
)

// ScorerConfig — веса целевой функции баланса.
type ScorerConfig struct {
	TopTierRatio  float64
	TopWeight     float64
	SubjectWeight float64
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		TopTierRatio:  DefaultTopTierRatio,
		TopWeight:     DefaultTopWeight,
		SubjectWeight: DefaultSubjectWeight,
	}
}

func (c ScorerConfig) withDefaults() ScorerConfig {
	if c.TopTierRatio <= 0 {
		c.TopTierRatio = DefaultTopTierRatio
	}
	if c.TopWeight <= 0 {
		c.TopWeight = DefaultTopWeight
	}
	if c.SubjectWeight <= 0 {
		c.SubjectWeight = DefaultSubjectWeight
	}
	return c
}

// Tracker инкрементально поддерживает посуммники классов, чтобы
// оценивать обмен двух учеников без полного пересчета. Обмен меняет
// только суммы и топ-счетчики двух затронутых классов.
type Tracker struct {
	subjects  []string
	classes   int
	counts    []int
	sums      [][]float64 // [класс][предмет]
	topCounts []int
	wTop      float64
	wSubject  float64
}

// NewTracker строит трекер по подготовленным ученикам и текущему
// распределению. Индексы классов в Assignment нумеруются с единицы.
func NewTracker(students []models.StudentRecord, subjects []string, a *models.Assignment, cfg ScorerConfig) *Tracker {
	cfg = cfg.withDefaults()

	t := &Tracker{
		subjects:  subjects,
		classes:   a.Classes,
		counts:    make([]int, a.Classes),
		sums:      make([][]float64, a.Classes),
		topCounts: make([]int, a.Classes),
		wTop:      cfg.TopWeight,
		wSubject:  cfg.SubjectWeight,
	}
	for c := range t.sums {
		t.sums[c] = make([]float64, len(subjects))
	}

	for i := range students {
		class := a.ClassOf[students[i].ID] - 1
		t.counts[class]++
		if students[i].TopTier {
			t.topCounts[class]++
		}
		for si, subj := range subjects {
			t.sums[class][si] += students[i].Scores[subj]
		}
	}

	return t
}

// Score — взвешенная сумма дисперсии топ-счетчиков и дисперсий
// среднеклассовых баллов по каждому предмету. Меньше — лучше.
func (t *Tracker) Score() float64 {
	tops := make([]float64, t.classes)
	for c, v := range t.topCounts {
		tops[c] = float64(v)
	}
	score := t.wTop * variance(tops)

	means := make([]float64, t.classes)
	for si := range t.subjects {
		for c := 0; c < t.classes; c++ {
			n := t.counts[c]
			if n == 0 {
				n = 1
			}
			means[c] = t.sums[c][si] / float64(n)
		}
		score += t.wSubject * variance(means)
	}

	return score
}

// Swap переносит a из класса ca в cb и b из cb в ca (1-based).
// Повторный вызов с переставленными классами откатывает обмен.
func (t *Tracker) Swap(a, b *models.StudentRecord, ca, cb int) {
	ca--
	cb--
	for si, subj := range t.subjects {
		t.sums[ca][si] += b.Scores[subj] - a.Scores[subj]
		t.sums[cb][si] += a.Scores[subj] - b.Scores[subj]
	}
	if a.TopTier != b.TopTier {
		if a.TopTier {
			t.topCounts[ca]--
			t.topCounts[cb]++
		} else {
			t.topCounts[ca]++
			t.topCounts[cb]--
		}
	}
}

// TopCounts возвращает копию топ-счетчиков по классам.
func (t *Tracker) TopCounts() []int {
	return append([]int(nil), t.topCounts...)
}

// ScoreAssignment — полная (неинкрементальная) оценка распределения.
func ScoreAssignment(students []models.StudentRecord, subjects []string, a *models.Assignment, cfg ScorerConfig) float64 {
	return NewTracker(students, subjects, a, cfg).Score()
}

func variance(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	varSum := 0.0
	for _, v := range values {
		d := v - mean
		varSum += d * d
	}
	return varSum / n
}
