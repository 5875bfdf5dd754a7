package balancer

import (
	"context"
	"math/rand"

	"github.com/RubachokBoss/class-balancer/internal/models"
)

// Outcome — причина остановки рефайнера.
type Outcome string

const (
	// OutcomeLocalOptimum — полный проход не нашел ни одного
	// улучшающего обмена.
	OutcomeLocalOptimum Outcome = "local_optimum"
	// OutcomeBudgetExhausted — кончился бюджет итераций или время;
	// текущее распределение валидно и является лучшим найденным.
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
)

const improvementEps = 1e-12

// RefinerConfig ограничивает поиск. Таймаут по стенным часам
// передается через контекст вызывающей стороной.
type RefinerConfig struct {
	MaxPasses      int
	MaxEvaluations int
}

func DefaultRefinerConfig() RefinerConfig {
	return RefinerConfig{
		MaxPasses:      64,
		MaxEvaluations: 2000000,
	}
}

// RefineResult — статистика одного запуска рефайнера.
type RefineResult struct {
	Outcome      Outcome `json:"outcome"`
	Passes       int     `json:"passes"`
	Swaps        int     `json:"swaps"`
	Evaluations  int     `json:"evaluations"`
	InitialScore float64 `json:"initial_score"`
	FinalScore   float64 `json:"final_score"`
}

// Refine жадно улучшает распределение обменами учеников между
// классами. Каждый проход перебирает все межклассовые пары; обмен
// фиксируется только если целевая функция строго уменьшается, поэтому
// процесс монотонен и не осциллирует. rng задает порядок обхода пар
// классов — при одинаковом seed результат бит-в-бит воспроизводим.
func Refine(ctx context.Context, students []models.StudentRecord, subjects []string,
	assignment *models.Assignment, scorerCfg ScorerConfig, cfg RefinerConfig, rng *rand.Rand,
) *RefineResult {
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultRefinerConfig().MaxPasses
	}
	if cfg.MaxEvaluations <= 0 {
		cfg.MaxEvaluations = DefaultRefinerConfig().MaxEvaluations
	}

	tracker := NewTracker(students, subjects, assignment, scorerCfg)
	current := tracker.Score()

	result := &RefineResult{
		Outcome:      OutcomeBudgetExhausted,
		InitialScore: current,
		FinalScore:   current,
	}

	classes := assignment.Classes
	if classes < 2 || len(students) < 2 {
		result.Outcome = OutcomeLocalOptimum
		return result
	}

	// Списки учеников по классам (индексы в students), в порядке рейтинга.
	members := make([][]int, classes)
	for i := range students {
		class := assignment.ClassOf[students[i].ID]
		members[class-1] = append(members[class-1], i)
	}

	pairs := make([][2]int, 0, classes*(classes-1)/2)
	for ca := 1; ca <= classes; ca++ {
		for cb := ca + 1; cb <= classes; cb++ {
			pairs = append(pairs, [2]int{ca, cb})
		}
	}

	for pass := 0; pass < cfg.MaxPasses; pass++ {
		result.Passes++
		improved := false

		rng.Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})

		for _, pair := range pairs {
			ca, cb := pair[0], pair[1]
			listA, listB := members[ca-1], members[cb-1]

			for ai := range listA {
				for bi := range listB {
					if result.Evaluations >= cfg.MaxEvaluations {
						result.FinalScore = current
						return result
					}
					if result.Evaluations%256 == 0 && ctx.Err() != nil {
						result.FinalScore = current
						return result
					}
					result.Evaluations++

					ia, ib := listA[ai], listB[bi]
					a, b := &students[ia], &students[ib]

					tracker.Swap(a, b, ca, cb)
					next := tracker.Score()
					if next < current-improvementEps {
						current = next
						assignment.Swap(a.ID, b.ID)
						listA[ai], listB[bi] = ib, ia
						result.Swaps++
						improved = true
					} else {
						tracker.Swap(a, b, cb, ca)
					}
				}
			}
		}

		if !improved {
			result.Outcome = OutcomeLocalOptimum
			break
		}
	}

	result.FinalScore = current
	return result
}
