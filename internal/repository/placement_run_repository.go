package repository

import (
	"context"
	"database/sql"

	"github.com/RubachokBoss/class-balancer/internal/models"
	"github.com/rs/zerolog"
)

// PlacementRunRepository хранит историю обработанных параллелей.
type PlacementRunRepository interface {
	Save(ctx context.Context, entry *models.HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

type placementRunRepository struct {
	*PostgresRepository
}

func NewPlacementRunRepository(db *sql.DB, logger zerolog.Logger) PlacementRunRepository {
	return &placementRunRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *placementRunRepository) Save(ctx context.Context, entry *models.HistoryEntry) error {
	query := `
		INSERT INTO placement_runs
			(id, session_id, grade_id, student_count, class_count,
			 initial_score, final_score, outcome, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.GradeID,
		entry.StudentCount,
		entry.ClassCount,
		entry.InitialScore,
		entry.FinalScore,
		entry.Outcome,
		entry.DurationMs,
		entry.CreatedAt,
	)

	return err
}

func (r *placementRunRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, session_id, grade_id, student_count, class_count,
		       initial_score, final_score, outcome, duration_ms, created_at
		FROM placement_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.GradeID,
			&entry.StudentCount,
			&entry.ClassCount,
			&entry.InitialScore,
			&entry.FinalScore,
			&entry.Outcome,
			&entry.DurationMs,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
