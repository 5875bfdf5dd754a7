package service

import (
	"context"
	"fmt"
	"time"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/RubachokBoss/class-balancer/internal/exporter"
	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/RubachokBoss/class-balancer/internal/parser"
	"github.com/RubachokBoss/class-balancer/internal/repository"
	"github.com/RubachokBoss/class-balancer/internal/service/integration"
	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/RubachokBoss/class-balancer/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PlacementService interface {
	ProcessUpload(ctx context.Context, files []parser.UploadedFile, classCfg models.ClassConfig, seed int64) (*models.PlacementSummary, error)
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

type placementService struct {
	parser      *parser.Parser
	engine      *balancer.Engine
	exporter    *exporter.Exporter
	store       storage.SessionStore
	pool        *worker.Pool
	runRepo     repository.PlacementRunRepository // nil, если БД выключена
	rabbit      integration.RabbitMQClient        // nil, если RabbitMQ выключен
	defaultSeed int64
	logger      zerolog.Logger
}

func NewPlacementService(
	rosterParser *parser.Parser,
	engine *balancer.Engine,
	excelExporter *exporter.Exporter,
	store storage.SessionStore,
	pool *worker.Pool,
	runRepo repository.PlacementRunRepository,
	rabbit integration.RabbitMQClient,
	defaultSeed int64,
	logger zerolog.Logger,
) PlacementService {
	return &placementService{
		parser:      rosterParser,
		engine:      engine,
		exporter:    excelExporter,
		store:       store,
		pool:        pool,
		runRepo:     runRepo,
		rabbit:      rabbit,
		defaultSeed: defaultSeed,
		logger:      logger,
	}
}

type gradeRun struct {
	roster  *models.GradeRoster
	result  *balancer.GradeResult
	file    string
	err     error
	elapsed time.Duration
}

// ProcessUpload — полный цикл загрузки: разбор ведомостей, создание
// сессии, параллельная обработка параллелей, выгрузка артефактов и
// сводка. Ошибка одной параллели попадает в сводку и не мешает
// остальным.
func (s *placementService) ProcessUpload(ctx context.Context, files []parser.UploadedFile, classCfg models.ClassConfig, seed int64) (*models.PlacementSummary, error) {
	rosters, err := s.parser.ParseAll(files)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.store.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if seed == 0 {
		seed = s.defaultSeed
	}

	runs := make([]gradeRun, len(rosters))
	tasks := make([]worker.Task, len(rosters))
	for i := range rosters {
		i := i
		runs[i].roster = rosters[i]
		tasks[i] = worker.Task{
			Name: rosters[i].GradeID,
			Run: func(taskCtx context.Context) error {
				return s.processGrade(taskCtx, sessionID, classCfg, seed, &runs[i])
			},
		}
	}

	// Fan-out по параллелям, ответ только после полного fan-in.
	taskResults := s.pool.RunAll(ctx, tasks)
	for i, tr := range taskResults {
		if runs[i].err == nil && tr.Err != nil {
			runs[i].err = tr.Err
		}
		runs[i].elapsed = tr.Elapsed
	}

	summary := s.buildSummary(sessionID, runs)
	s.recordHistory(ctx, sessionID, runs)
	s.publishEvent(ctx, sessionID, runs)

	return summary, nil
}

func (s *placementService) processGrade(ctx context.Context, sessionID string, classCfg models.ClassConfig, seed int64, run *gradeRun) error {
	result, err := s.engine.Run(ctx, run.roster, classCfg, seed)
	if err != nil {
		run.err = err
		return nil // ошибка параллели остается в сводке
	}

	data, err := s.exporter.GradeWorkbook(result)
	if err != nil {
		run.err = fmt.Errorf("failed to export grade %s: %w", run.roster.GradeID, err)
		return nil
	}

	fileName := exporter.FileName(run.roster.GradeID)
	err = s.store.Put(ctx, sessionID, storage.Artifact{
		Name:        fileName,
		ContentType: exporter.ContentTypeXLSX,
		Data:        data,
	})
	if err != nil {
		run.err = fmt.Errorf("failed to store artifact for grade %s: %w", run.roster.GradeID, err)
		return nil
	}

	run.result = result
	run.file = fileName
	return nil
}

func (s *placementService) buildSummary(sessionID string, runs []gradeRun) *models.PlacementSummary {
	summary := &models.PlacementSummary{SessionID: sessionID}

	for _, run := range runs {
		outcome := models.GradeOutcome{
			GradeID:      run.roster.GradeID,
			DisplayName:  run.roster.DisplayName,
			StudentCount: run.roster.StudentCount(),
		}

		if run.err != nil {
			outcome.Error = run.err.Error()
			summary.Failed = append(summary.Failed, outcome)
			continue
		}

		outcome.StudentCount = len(run.result.Students)
		outcome.ClassCount = len(run.result.Plans)
		outcome.ResultFile = run.file
		outcome.Outcome = string(run.result.Refine.Outcome)
		summary.Results = append(summary.Results, outcome)
	}

	summary.Message = fmt.Sprintf("processed %d of %d grades", len(summary.Results), len(runs))
	return summary
}

func (s *placementService) recordHistory(ctx context.Context, sessionID string, runs []gradeRun) {
	if s.runRepo == nil {
		return
	}

	for _, run := range runs {
		if run.result == nil {
			continue
		}
		entry := &models.HistoryEntry{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			GradeID:      run.roster.GradeID,
			StudentCount: len(run.result.Students),
			ClassCount:   len(run.result.Plans),
			InitialScore: run.result.SeededScore,
			FinalScore:   run.result.FinalScore,
			Outcome:      string(run.result.Refine.Outcome),
			DurationMs:   run.elapsed.Milliseconds(),
			CreatedAt:    time.Now(),
		}
		if err := s.runRepo.Save(ctx, entry); err != nil {
			s.logger.Error().Err(err).Str("grade", run.roster.GradeID).Msg("Failed to save placement run")
		}
	}
}

func (s *placementService) publishEvent(ctx context.Context, sessionID string, runs []gradeRun) {
	if s.rabbit == nil {
		return
	}

	event := &models.PlacementCompletedEvent{
		SessionID:   sessionID,
		CompletedAt: time.Now(),
	}
	for _, run := range runs {
		if run.err != nil {
			event.FailedGrades++
			continue
		}
		event.GradeCount++
		event.StudentCount += len(run.result.Students)
	}

	if err := s.rabbit.PublishPlacementCompleted(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish placement event")
	}
}

func (s *placementService) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if s.runRepo == nil {
		return []models.HistoryEntry{}, nil
	}
	return s.runRepo.ListRecent(ctx, limit)
}
