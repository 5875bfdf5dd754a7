package balancer

import (
	"context"
	"math/rand"
	"time"

	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/rs/zerolog"
)

// Config — параметры движка для всех параллелей.
type Config struct {
	TopTierRatio   float64
	TopWeight      float64
	SubjectWeight  float64
	Rounds         int
	MaxPasses      int
	MaxEvaluations int
	RefineTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopTierRatio:   DefaultTopTierRatio,
		TopWeight:      DefaultTopWeight,
		SubjectWeight:  DefaultSubjectWeight,
		Rounds:         4,
		MaxPasses:      64,
		MaxEvaluations: 2000000,
		RefineTimeout:  10 * time.Second,
	}
}

// GradeResult — полный результат конвейера одной параллели.
type GradeResult struct {
	Roster      *models.GradeRoster
	Plans       []models.ClassPlan
	Students    []models.StudentRecord // подготовленные, по рейтингу
	Special     []models.StudentRecord
	Subjects    []string
	Assignment  *models.Assignment
	Summaries   []models.ClassSummary
	SeededScore float64
	FinalScore  float64
	Refine      *RefineResult
	Elapsed     time.Duration
}

// Engine выполняет конвейер план -> змейка -> рефайнер -> отчет для
// одной параллели. Параллели независимы, движок не хранит состояния
// между вызовами и безопасен для конкурентного использования.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Run обрабатывает одну параллель. Несколько раундов: нулевой —
// чистая змейка по рейтингу, дальнейшие — с перемешиванием блоков
// рангов (топ-группа не трогается), остается лучший результат.
// При одинаковом seed результат детерминирован.
func (e *Engine) Run(ctx context.Context, roster *models.GradeRoster, classCfg models.ClassConfig, seed int64) (*GradeResult, error) {
	start := time.Now()

	prep := PrepareStudents(roster, e.cfg.TopTierRatio)
	if len(prep.Students) == 0 {
		return nil, &DataError{Grade: roster.GradeID, Reason: "no students with usable scores"}
	}

	// Без явной конфигурации целимся в исходное число классов.
	if classCfg.IsZero() && roster.OriginalClassCount > 0 {
		classCfg.BigCount = roster.OriginalClassCount
	}

	plans, err := PlanClasses(roster.GradeID, len(prep.Students), classCfg)
	if err != nil {
		return nil, err
	}

	scorerCfg := ScorerConfig{
		TopTierRatio:  e.cfg.TopTierRatio,
		TopWeight:     e.cfg.TopWeight,
		SubjectWeight: e.cfg.SubjectWeight,
	}
	refinerCfg := RefinerConfig{
		MaxPasses:      e.cfg.MaxPasses,
		MaxEvaluations: e.cfg.MaxEvaluations,
	}

	rng := rand.New(rand.NewSource(seed))

	result := &GradeResult{
		Roster:   roster,
		Plans:    plans,
		Students: prep.Students,
		Special:  prep.Special,
		Subjects: prep.Subjects,
	}

	for round := 0; round < e.cfg.Rounds; round++ {
		if ctx.Err() != nil && result.Assignment != nil {
			break
		}

		ordered := prep.Students
		if round > 0 {
			ordered = shuffledOrder(prep, len(plans), rng)
		}

		assignment, err := Seed(ordered, plans)
		if err != nil {
			return nil, err
		}

		refineCtx := ctx
		cancel := context.CancelFunc(func() {})
		if e.cfg.RefineTimeout > 0 {
			refineCtx, cancel = context.WithTimeout(ctx, e.cfg.RefineTimeout)
		}
		refine := Refine(refineCtx, prep.Students, prep.Subjects, assignment, scorerCfg, refinerCfg, rng)
		cancel()

		if round == 0 {
			result.SeededScore = refine.InitialScore
		}
		if result.Assignment == nil || refine.FinalScore < result.FinalScore {
			result.Assignment = assignment
			result.FinalScore = refine.FinalScore
			result.Refine = refine
		}

		e.logger.Debug().
			Str("grade", roster.GradeID).
			Int("round", round).
			Float64("initial_score", refine.InitialScore).
			Float64("final_score", refine.FinalScore).
			Int("swaps", refine.Swaps).
			Str("outcome", string(refine.Outcome)).
			Msg("Refinement round finished")
	}

	result.Summaries = BuildReport(prep.Students, prep.Subjects, result.Assignment, plans)
	result.Elapsed = time.Since(start)

	e.logger.Info().
		Str("grade", roster.GradeID).
		Int("students", len(prep.Students)).
		Int("special", len(prep.Special)).
		Int("classes", len(plans)).
		Float64("seeded_score", result.SeededScore).
		Float64("final_score", result.FinalScore).
		Dur("elapsed", result.Elapsed).
		Msg("Grade placement completed")

	return result, nil
}

// shuffledOrder перемешивает позиции рейтинга блоками, не затрагивая
// топ-группу, и возвращает учеников в новом порядке посева.
func shuffledOrder(prep *Prepared, classes int, rng *rand.Rand) []models.StudentRecord {
	n := len(prep.Students)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	blockSize := classes * 2
	if blockSize < 6 {
		blockSize = 6
	}

	for start := prep.TopCount; start < n; start += blockSize {
		end := start + blockSize
		if end > n {
			end = n
		}
		block := order[start:end]
		rng.Shuffle(len(block), func(i, j int) {
			block[i], block[j] = block[j], block[i]
		})
	}

	ordered := make([]models.StudentRecord, n)
	for i, idx := range order {
		ordered[i] = prep.Students[idx]
	}
	return ordered
}
