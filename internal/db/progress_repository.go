package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
)

type ProgressRepository struct {
	queue *DBQueue
}

func NewProgressRepository(queue *DBQueue) *ProgressRepository {
	return &ProgressRepository{queue: queue}
}

// Upsert writes progress, replacing any row for the same user and workshop.
func (r *ProgressRepository) Upsert(ctx context.Context, progress *models.NavigationProgress) error {
	completed, err := encodeSteps(progress.CompletedStepIDs)
	if err != nil {
		return err
	}
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = time.Now().UTC()
	}
	_, err = r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		_, err := db.ExecContext(ctx, `
			INSERT INTO navigation_progress (user_id, workshop_type, current_step_id, completed_steps, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, workshop_type) DO UPDATE SET
				current_step_id = excluded.current_step_id,
				completed_steps = excluded.completed_steps,
				updated_at = excluded.updated_at
		`, progress.UserID, progress.Workshop, progress.CurrentStepID, completed, progress.UpdatedAt)
		return nil, err
	})
	return err
}

func (r *ProgressRepository) Get(ctx context.Context, userID int64, workshop models.WorkshopType) (*models.NavigationProgress, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		row := db.QueryRowContext(ctx, `
			SELECT user_id, workshop_type, current_step_id, completed_steps, updated_at
			FROM navigation_progress WHERE user_id = ? AND workshop_type = ?
		`, userID, workshop)
		progress, err := scanProgress(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return progress, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.NavigationProgress), nil
}

func (r *ProgressRepository) GetByWorkshop(ctx context.Context, workshop models.WorkshopType) ([]*models.NavigationProgress, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT user_id, workshop_type, current_step_id, completed_steps, updated_at
			FROM navigation_progress WHERE workshop_type = ?
			ORDER BY user_id
		`, workshop)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var progresses []*models.NavigationProgress
		for rows.Next() {
			progress, err := scanProgress(rows)
			if err != nil {
				return nil, err
			}
			progresses = append(progresses, progress)
		}
		return progresses, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.NavigationProgress), nil
}

func deleteProgress(ctx context.Context, ex execer, userID int64, workshop models.WorkshopType) error {
	_, err := ex.ExecContext(ctx, `
		DELETE FROM navigation_progress WHERE user_id = ? AND workshop_type = ?
	`, userID, workshop)
	return err
}

func scanProgress(row rowScanner) (*models.NavigationProgress, error) {
	var progress models.NavigationProgress
	var workshop, completed string
	var updatedAt sql.NullTime
	if err := row.Scan(&progress.UserID, &workshop, &progress.CurrentStepID, &completed, &updatedAt); err != nil {
		return nil, err
	}
	progress.Workshop = models.WorkshopType(workshop)
	if updatedAt.Valid {
		progress.UpdatedAt = updatedAt.Time
	}
	steps, err := decodeSteps(completed)
	if err != nil {
		return nil, err
	}
	progress.CompletedStepIDs = steps
	return &progress, nil
}

func encodeSteps(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSteps(data string) ([]string, error) {
	ids := []string{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
