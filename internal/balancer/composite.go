package balancer

import (
	"math"
	"sort"

	"github.com/RubachokBoss/class-balancer/internal/models"
)

// Prepared — ведомость параллели после подготовки: баллы дополнены,
// ученики отсортированы по рейтингу, топ-группа отмечена.
type Prepared struct {
	Grade    string
	Subjects []string
	Students []models.StudentRecord // по убыванию композитного балла
	Special  []models.StudentRecord // все баллы отсутствуют или нулевые
	TopCount int
}

// PrepareStudents считает производные поля и детерминированно
// сортирует учеников. Политика пропущенных баллов: отсутствующий
// предмет считается нулем; ученики, у которых нулевые или
// отсутствующие баллы по всем предметам, исключаются из
// распределения и возвращаются отдельным списком.
func PrepareStudents(roster *models.GradeRoster, topRatio float64) *Prepared {
	prep := &Prepared{
		Grade:    roster.GradeID,
		Subjects: append([]string(nil), roster.Subjects...),
	}

	for _, s := range roster.Students {
		if hasAnyScore(s, prep.Subjects) {
			prep.Students = append(prep.Students, s)
		} else {
			prep.Special = append(prep.Special, s)
		}
	}

	n := len(prep.Students)
	if n == 0 {
		return prep
	}

	for i := range prep.Students {
		total := 0.0
		for _, subj := range prep.Subjects {
			total += prep.Students[i].Scores[subj]
		}
		prep.Students[i].Total = total
	}

	// Композитный балл: среднее z-оценок по предметам, чтобы предметы
	// с разными шкалами весили одинаково.
	for _, subj := range prep.Subjects {
		mean, std := meanStd(prep.Students, subj)
		for i := range prep.Students {
			if std > 0 {
				prep.Students[i].Composite += (prep.Students[i].Scores[subj] - mean) / std
			}
		}
	}
	if len(prep.Subjects) > 0 {
		for i := range prep.Students {
			prep.Students[i].Composite /= float64(len(prep.Subjects))
		}
	}

	sort.SliceStable(prep.Students, func(i, j int) bool {
		a, b := prep.Students[i], prep.Students[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if len(prep.Subjects) > 0 {
			first := prep.Subjects[0]
			if a.Scores[first] != b.Scores[first] {
				return a.Scores[first] > b.Scores[first]
			}
		}
		return a.ID < b.ID
	})

	if topRatio <= 0 {
		topRatio = DefaultTopTierRatio
	}
	prep.TopCount = int(float64(n) * topRatio)
	if prep.TopCount < 1 {
		prep.TopCount = 1
	}
	if prep.TopCount > n {
		prep.TopCount = n
	}

	for i := range prep.Students {
		prep.Students[i].Rank = i + 1
		prep.Students[i].TopTier = i < prep.TopCount
	}

	return prep
}

func hasAnyScore(s models.StudentRecord, subjects []string) bool {
	for _, subj := range subjects {
		if v, ok := s.Scores[subj]; ok && v != 0 {
			return true
		}
	}
	return false
}

func meanStd(students []models.StudentRecord, subject string) (float64, float64) {
	n := float64(len(students))
	if n == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range students {
		sum += s.Scores[subject]
	}
	mean := sum / n

	varSum := 0.0
	for _, s := range students {
		d := s.Scores[subject] - mean
		varSum += d * d
	}

	return mean, math.Sqrt(varSum / n)
}
