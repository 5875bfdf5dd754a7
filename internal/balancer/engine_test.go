package balancer

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return NewEngine(DefaultConfig(), zerolog.Nop())
}

func testRoster(n int, seed int64) *models.GradeRoster {
	rng := rand.New(rand.NewSource(seed))
	students := make([]models.StudentRecord, n)
	for i := range students {
		students[i] = models.StudentRecord{
			ID:   fmt.Sprintf("s%03d", i),
			Name: fmt.Sprintf("Student %d", i),
			Scores: map[string]float64{
				"math":    float64(40 + rng.Intn(60)),
				"physics": float64(40 + rng.Intn(60)),
				"english": float64(40 + rng.Intn(60)),
			},
		}
	}
	return &models.GradeRoster{
		GradeID:            "7",
		DisplayName:        "Grade 7",
		OriginalClassCount: 3,
		Subjects:           []string{"math", "physics", "english"},
		Students:           students,
	}
}

func TestEngineRunProperties(t *testing.T) {
	roster := testRoster(91, 13)

	result, err := testEngine().Run(context.Background(), roster,
		models.ClassConfig{BigCount: 3}, 1)
	require.NoError(t, err)

	// Сумма размеров равна числу распределяемых учеников.
	sizes := result.Assignment.Sizes()
	total := 0
	for _, s := range sizes {
		total += s
	}
	assert.Equal(t, len(result.Students), total)

	// Каждый размер совпадает с целевым.
	for i, plan := range result.Plans {
		assert.Equal(t, plan.TargetSize, sizes[i])
	}

	// Каждый ученик встречается ровно один раз.
	assert.Len(t, result.Assignment.ClassOf, len(result.Students))
	for _, s := range result.Students {
		class, ok := result.Assignment.ClassOf[s.ID]
		require.True(t, ok)
		assert.GreaterOrEqual(t, class, 1)
		assert.LessOrEqual(t, class, len(result.Plans))
	}

	// Рефайнер не ухудшает посев.
	assert.LessOrEqual(t, result.FinalScore, result.SeededScore)
}

func TestEngineRunDeterministic(t *testing.T) {
	run := func() map[string]int {
		result, err := testEngine().Run(context.Background(), testRoster(80, 7),
			models.ClassConfig{BigCount: 3}, 42)
		require.NoError(t, err)
		return result.Assignment.ClassOf
	}

	assert.Equal(t, run(), run())
}

func TestEngineRunDefaultsToOriginalClassCount(t *testing.T) {
	roster := testRoster(60, 3)
	roster.OriginalClassCount = 2

	result, err := testEngine().Run(context.Background(), roster, models.ClassConfig{}, 1)
	require.NoError(t, err)
	assert.Len(t, result.Plans, 2)
}

func TestEngineRunDataError(t *testing.T) {
	roster := &models.GradeRoster{
		GradeID:  "7",
		Subjects: []string{"math"},
		Students: []models.StudentRecord{
			{ID: "a", Scores: map[string]float64{"math": 0}},
			{ID: "b", Scores: map[string]float64{}},
		},
	}

	_, err := testEngine().Run(context.Background(), roster, models.ClassConfig{BigCount: 1}, 1)
	require.Error(t, err)
	assert.True(t, IsDataError(err))
}

func TestEngineRunConfigError(t *testing.T) {
	roster := testRoster(30, 1)
	roster.OriginalClassCount = 0

	_, err := testEngine().Run(context.Background(), roster, models.ClassConfig{}, 1)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestEngineSpreadsTopTierEvenly(t *testing.T) {
	// Параллель с одним доминирующим отличником: после рефайнера
	// топ-группа расходится по классам с разницей не больше единицы.
	roster := testRoster(40, 29)
	roster.Students[0].Scores = map[string]float64{
		"math": 100, "physics": 100, "english": 100,
	}

	result, err := testEngine().Run(context.Background(), roster,
		models.ClassConfig{BigCount: 3}, 1)
	require.NoError(t, err)

	tops := make([]int, len(result.Plans))
	for _, s := range result.Students {
		if s.TopTier {
			tops[result.Assignment.ClassOf[s.ID]-1]++
		}
	}

	minTop, maxTop := tops[0], tops[0]
	for _, c := range tops[1:] {
		if c < minTop {
			minTop = c
		}
		if c > maxTop {
			maxTop = c
		}
	}
	assert.LessOrEqual(t, maxTop-minTop, 1)
}

func TestEngineSeparatesSpecialStudents(t *testing.T) {
	roster := testRoster(30, 19)
	roster.Students[5].Scores = map[string]float64{}

	result, err := testEngine().Run(context.Background(), roster,
		models.ClassConfig{BigCount: 2}, 1)
	require.NoError(t, err)

	assert.Len(t, result.Special, 1)
	assert.Len(t, result.Students, 29)
	_, assigned := result.Assignment.ClassOf[roster.Students[5].ID]
	assert.False(t, assigned)
}
