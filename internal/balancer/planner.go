package balancer

import (
	"github.com/RubachokBoss/class-balancer/internal/models"
)

// PlanClasses превращает число учеников и конфигурацию big/small
// в список целевых размеров классов. Сумма размеров всегда равна
// studentCount, остаток раздается по одному месту первым классам
// (сначала большим). Порядок планов фиксированный: big, затем small.
func PlanClasses(grade string, studentCount int, cfg models.ClassConfig) ([]models.ClassPlan, error) {
	if studentCount <= 0 {
		return nil, configErrorf(grade, "student count must be positive, got %d", studentCount)
	}
	if cfg.BigCount < 0 || cfg.SmallCount < 0 || cfg.SmallSize < 0 {
		return nil, configErrorf(grade, "class counts and sizes must be non-negative")
	}
	if cfg.BigCount+cfg.SmallCount == 0 {
		return nil, configErrorf(grade, "no target classes: big_count + small_count must be positive")
	}

	var bigSize int
	if cfg.SmallCount > 0 {
		if cfg.SmallSize*cfg.SmallCount > studentCount {
			return nil, configErrorf(grade, "small classes alone overflow the grade: %d * %d > %d",
				cfg.SmallCount, cfg.SmallSize, studentCount)
		}
		remaining := studentCount - cfg.SmallCount*cfg.SmallSize
		if cfg.BigCount > 0 {
			bigSize = remaining / cfg.BigCount
		} else if remaining != 0 {
			return nil, configErrorf(grade, "%d students do not fit exactly into %d small classes of %d",
				studentCount, cfg.SmallCount, cfg.SmallSize)
		}
	} else {
		bigSize = studentCount / cfg.BigCount
	}

	plans := make([]models.ClassPlan, 0, cfg.BigCount+cfg.SmallCount)
	for i := 0; i < cfg.BigCount; i++ {
		plans = append(plans, models.ClassPlan{
			Grade:      grade,
			Index:      len(plans) + 1,
			TargetSize: bigSize,
			Big:        true,
		})
	}
	for i := 0; i < cfg.SmallCount; i++ {
		plans = append(plans, models.ClassPlan{
			Grade:      grade,
			Index:      len(plans) + 1,
			TargetSize: cfg.SmallSize,
			Big:        false,
		})
	}

	total := 0
	for _, p := range plans {
		total += p.TargetSize
	}

	// Раздаем остаток по одному месту, большие классы идут первыми,
	// поэтому смещение относительно конфигурации не превышает одного места.
	for i := 0; total < studentCount; i++ {
		plans[i%len(plans)].TargetSize++
		total++
	}

	return plans, nil
}
