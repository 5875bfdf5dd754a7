package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task — единица работы пула (обработка одной параллели).
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskResult — исход одной задачи после полного fan-in.
type TaskResult struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

// Pool выполняет пачку независимых задач ограниченным числом
// воркеров и возвращает результаты всех задач разом: ответ не
// отдается, пока не завершилась каждая задача.
type Pool struct {
	maxWorkers int
	logger     zerolog.Logger
}

func NewPool(maxWorkers int, logger zerolog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Pool{maxWorkers: maxWorkers, logger: logger}
}

// RunAll исполняет все задачи и собирает результаты в исходном
// порядке. Паника внутри задачи перехватывается и превращается в
// ошибку этой задачи, не задевая остальных.
func (p *Pool) RunAll(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	workers := p.maxWorkers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	p.logger.Debug().
		Int("tasks", len(tasks)).
		Int("workers", workers).
		Msg("Starting task batch")

	indexes := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range indexes {
				results[i] = p.runOne(ctx, workerID, tasks[i])
			}
		}(w)
	}

	for i := range tasks {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

func (p *Pool) runOne(ctx context.Context, workerID int, task Task) (result TaskResult) {
	start := time.Now()
	result.Name = task.Name

	defer func() {
		result.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Str("task", task.Name).
				Interface("panic", r).
				Msg("Worker recovered from panic")
			result.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	result.Err = task.Run(ctx)
	return result
}
