package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, email, name, role, password_hash, ast_workshop_completed, ia_workshop_completed,
	ast_completed_at, ia_completed_at, created_at`

func queryCreateUser(ctx context.Context, db execer, user *models.User) (int64, error) {
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Email, user.Name, user.Role, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func queryGetUser(ctx context.Context, db execer, where string, arg any) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return user, err
}

func queryListUsers(ctx context.Context, db execer) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func queryListUserIDs(ctx context.Context, db execer) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func querySetWorkshopCompleted(ctx context.Context, db execer, userID int64, workshop models.WorkshopType, at *time.Time) error {
	var query string
	switch workshop {
	case models.WorkshopAllStarTeams:
		query = `UPDATE users SET ast_workshop_completed = $1, ast_completed_at = $2 WHERE id = $3`
	case models.WorkshopImaginalAgility:
		query = `UPDATE users SET ia_workshop_completed = $1, ia_completed_at = $2 WHERE id = $3`
	default:
		return fmt.Errorf("unknown workshop type %q", workshop)
	}
	res, err := db.ExecContext(ctx, query, at != nil, nullTimePtr(at), userID)
	if err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// queryMarkWorkshopCompleted sets the flag only while it is still unset.
func queryMarkWorkshopCompleted(ctx context.Context, db execer, userID int64, workshop models.WorkshopType, at time.Time) (bool, error) {
	var query string
	switch workshop {
	case models.WorkshopAllStarTeams:
		query = `UPDATE users SET ast_workshop_completed = TRUE, ast_completed_at = $1 WHERE id = $2 AND NOT ast_workshop_completed`
	case models.WorkshopImaginalAgility:
		query = `UPDATE users SET ia_workshop_completed = TRUE, ia_completed_at = $1 WHERE id = $2 AND NOT ia_workshop_completed`
	default:
		return false, fmt.Errorf("unknown workshop type %q", workshop)
	}
	res, err := db.ExecContext(ctx, query, at, userID)
	if err != nil {
		return false, fmt.Errorf("mark completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func queryCreateRecord(ctx context.Context, db execer, record *models.AssessmentRecord) (int64, error) {
	err := db.QueryRowContext(ctx, `
		INSERT INTO assessment_records (user_id, record_type, schema_version, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, record.UserID, record.RecordType, record.SchemaVersion, record.Payload).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return record.ID, nil
}

func queryGetRecords(ctx context.Context, db execer, userID int64) ([]*models.AssessmentRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, record_type, schema_version, payload, created_at
		FROM assessment_records WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.AssessmentRecord
	for rows.Next() {
		var r models.AssessmentRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.RecordType, &r.SchemaVersion, &r.Payload, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func queryDeleteRecords(ctx context.Context, db execer, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `DELETE FROM assessment_records WHERE user_id = $1 AND id = ANY($2)`, userID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func queryGetProgress(ctx context.Context, db execer, userID int64, workshop models.WorkshopType) (*models.NavigationProgress, error) {
	p, err := scanProgress(db.QueryRowContext(ctx, `
		SELECT user_id, workshop_type, current_step_id, completed_steps, updated_at
		FROM navigation_progress WHERE user_id = $1 AND workshop_type = $2
	`, userID, workshop))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

func queryUpsertProgress(ctx context.Context, db execer, p *models.NavigationProgress) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	completed := p.CompletedStepIDs
	if completed == nil {
		completed = []string{}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO navigation_progress (user_id, workshop_type, current_step_id, completed_steps, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, workshop_type) DO UPDATE SET
			current_step_id = EXCLUDED.current_step_id,
			completed_steps = EXCLUDED.completed_steps,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Workshop, p.CurrentStepID, pq.StringArray(completed), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func queryListProgress(ctx context.Context, db execer, workshop models.WorkshopType) ([]*models.NavigationProgress, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, workshop_type, current_step_id, completed_steps, updated_at
		FROM navigation_progress WHERE workshop_type = $1 ORDER BY user_id
	`, workshop)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.NavigationProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
