package balancer

import (
	"testing"

	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterWith(subjects []string, students ...models.StudentRecord) *models.GradeRoster {
	return &models.GradeRoster{
		GradeID:  "7",
		Subjects: subjects,
		Students: students,
	}
}

func TestPrepareStudentsZScoreEqualizesScales(t *testing.T) {
	// Предметы с разными шкалами: после z-нормализации сильный балл
	// по "узкой" шкале весит столько же, сколько по "широкой".
	roster := rosterWith([]string{"math", "art"},
		models.StudentRecord{ID: "a", Scores: map[string]float64{"math": 100, "art": 1}},
		models.StudentRecord{ID: "b", Scores: map[string]float64{"math": 50, "art": 2}},
	)

	prep := PrepareStudents(roster, 0.5)
	require.Len(t, prep.Students, 2)

	// Композиты зеркальны: z-оценки компенсируют друг друга.
	assert.InDelta(t, prep.Students[0].Composite, -prep.Students[1].Composite, 1e-9)
	// Равный композит, решает суммарный балл.
	assert.Equal(t, "a", prep.Students[0].ID)
}

func TestPrepareStudentsSeparatesSpecial(t *testing.T) {
	roster := rosterWith([]string{"math", "physics"},
		models.StudentRecord{ID: "a", Scores: map[string]float64{"math": 90, "physics": 80}},
		models.StudentRecord{ID: "b", Scores: map[string]float64{"math": 0, "physics": 0}},
		models.StudentRecord{ID: "c", Scores: map[string]float64{}},
	)

	prep := PrepareStudents(roster, 0.15)

	require.Len(t, prep.Students, 1)
	assert.Equal(t, "a", prep.Students[0].ID)

	require.Len(t, prep.Special, 2)
	assert.Equal(t, "b", prep.Special[0].ID)
	assert.Equal(t, "c", prep.Special[1].ID)
}

func TestPrepareStudentsZeroFillsMissingScores(t *testing.T) {
	roster := rosterWith([]string{"math", "physics"},
		models.StudentRecord{ID: "a", Scores: map[string]float64{"math": 90}},
		models.StudentRecord{ID: "b", Scores: map[string]float64{"math": 80, "physics": 70}},
	)

	prep := PrepareStudents(roster, 0.15)
	require.Len(t, prep.Students, 2)

	for _, s := range prep.Students {
		if s.ID == "a" {
			assert.Equal(t, 90.0, s.Total) // physics дополнен нулем
		}
	}
}

func TestPrepareStudentsTieBreakByID(t *testing.T) {
	roster := rosterWith([]string{"math"},
		models.StudentRecord{ID: "b", Scores: map[string]float64{"math": 80}},
		models.StudentRecord{ID: "a", Scores: map[string]float64{"math": 80}},
	)

	prep := PrepareStudents(roster, 0.15)
	require.Len(t, prep.Students, 2)
	assert.Equal(t, "a", prep.Students[0].ID)
	assert.Equal(t, "b", prep.Students[1].ID)
}

func TestPrepareStudentsTopCount(t *testing.T) {
	students := make([]models.StudentRecord, 0, 40)
	for i := 0; i < 40; i++ {
		students = append(students, models.StudentRecord{
			ID:     string(rune('A' + i)),
			Scores: map[string]float64{"math": float64(100 - i)},
		})
	}
	roster := rosterWith([]string{"math"}, students...)

	prep := PrepareStudents(roster, 0.15)
	assert.Equal(t, 6, prep.TopCount) // int(40 * 0.15)

	for i, s := range prep.Students {
		assert.Equal(t, i+1, s.Rank)
		assert.Equal(t, i < 6, s.TopTier)
	}
}

func TestPrepareStudentsTopCountFloor(t *testing.T) {
	roster := rosterWith([]string{"math"},
		models.StudentRecord{ID: "a", Scores: map[string]float64{"math": 90}},
		models.StudentRecord{ID: "b", Scores: map[string]float64{"math": 80}},
	)

	prep := PrepareStudents(roster, 0.15)
	// int(2 * 0.15) == 0, но топ-группа не бывает пустой.
	assert.Equal(t, 1, prep.TopCount)
}
