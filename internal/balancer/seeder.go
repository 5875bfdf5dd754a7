package balancer

import (
	"fmt"

	"github.com/RubachokBoss/class-balancer/internal/models"
)

// Seed раскладывает отсортированных по рейтингу учеников по классам
// змейкой: проход слева направо, затем справа налево. Заполненный
// класс выбывает из обхода, направление при этом сохраняется и
// меняется только на краю оставшегося активного диапазона.
func Seed(students []models.StudentRecord, plans []models.ClassPlan) (*models.Assignment, error) {
	total := 0
	for _, p := range plans {
		total += p.TargetSize
	}
	if total != len(students) {
		return nil, fmt.Errorf("target sizes sum to %d, want %d students", total, len(students))
	}

	order := snakeOrder(planTargets(plans), len(students))

	assignment := &models.Assignment{
		Grade:   gradeOf(plans),
		Classes: len(plans),
		ClassOf: make(map[string]int, len(students)),
	}
	for i, s := range students {
		assignment.ClassOf[s.ID] = plans[order[i]].Index
	}

	return assignment, nil
}

// snakeOrder возвращает для каждой позиции рейтинга индекс класса
// (позицию в plans). targets задают емкости классов.
func snakeOrder(targets []int, n int) []int {
	remaining := append([]int(nil), targets...)

	// active — индексы классов, еще имеющих свободные места.
	active := make([]int, 0, len(targets))
	for i, t := range targets {
		if t > 0 {
			active = append(active, i)
		}
	}

	order := make([]int, 0, n)
	pos, dir := 0, 1

	for len(order) < n && len(active) > 0 {
		class := active[pos]
		order = append(order, class)
		remaining[class]--

		if remaining[class] == 0 {
			active = append(active[:pos], active[pos+1:]...)
			if len(active) == 0 {
				break
			}
			// Сосед по направлению сдвинулся на место удаленного.
			if dir == -1 {
				pos--
			}
			if pos >= len(active) {
				dir = -1
				pos = len(active) - 1
			} else if pos < 0 {
				dir = 1
				pos = 0
			}
			continue
		}

		next := pos + dir
		if next >= len(active) {
			dir = -1 // крайний класс получает двух подряд
		} else if next < 0 {
			dir = 1
		} else {
			pos = next
		}
	}

	return order
}

func planTargets(plans []models.ClassPlan) []int {
	targets := make([]int, len(plans))
	for i, p := range plans {
		targets[i] = p.TargetSize
	}
	return targets
}

func gradeOf(plans []models.ClassPlan) string {
	if len(plans) > 0 {
		return plans[0].Grade
	}
	return ""
}
