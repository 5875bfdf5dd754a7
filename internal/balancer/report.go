package balancer

import (
	"math"

	"github.com/RubachokBoss/class-balancer/internal/models"
)

// BuildReport считает итоговую статистику по классам готового
// распределения. Чистая функция: ничего не мутирует, список
// отсортирован по индексу класса.
func BuildReport(students []models.StudentRecord, subjects []string,
	assignment *models.Assignment, plans []models.ClassPlan,
) []models.ClassSummary {
	byClass := make([][]*models.StudentRecord, len(plans))
	for i := range students {
		class := assignment.ClassOf[students[i].ID]
		if class < 1 || class > len(plans) {
			continue
		}
		byClass[class-1] = append(byClass[class-1], &students[i])
	}

	summaries := make([]models.ClassSummary, 0, len(plans))
	for _, plan := range plans {
		group := byClass[plan.Index-1]

		summary := models.ClassSummary{
			Index:       plan.Index,
			Label:       "small",
			Size:        len(group),
			SubjectMean: make(map[string]float64, len(subjects)),
			SubjectStd:  make(map[string]float64, len(subjects)),
		}
		if plan.Big {
			summary.Label = "big"
		}

		for _, s := range group {
			if s.TopTier {
				summary.TopTierCount++
			}
		}

		totals := make([]float64, len(group))
		for i, s := range group {
			totals[i] = s.Total
		}
		summary.TotalMean, summary.TotalStddev = meanStddev(totals)

		for _, subj := range subjects {
			values := make([]float64, len(group))
			for i, s := range group {
				values[i] = s.Scores[subj]
			}
			summary.SubjectMean[subj], summary.SubjectStd[subj] = meanStddev(values)
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

func meanStddev(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
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
	return mean, math.Sqrt(varSum / n)
}
