package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ad/go-workshop-progress/internal/models"
)

type AssessmentRepository struct {
	queue *DBQueue
}

func NewAssessmentRepository(queue *DBQueue) *AssessmentRepository {
	return &AssessmentRepository{queue: queue}
}

func (r *AssessmentRepository) Create(ctx context.Context, record *models.AssessmentRecord) (int64, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		res, err := db.ExecContext(ctx, `
			INSERT INTO assessment_records (user_id, record_type, schema_version, payload)
			VALUES (?, ?, ?, ?)
		`, record.UserID, record.RecordType, record.SchemaVersion, record.Payload)
		if err != nil {
			return nil, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, err
	}
	record.ID = result.(int64)
	return record.ID, nil
}

func (r *AssessmentRepository) GetByUser(ctx context.Context, userID int64) ([]*models.AssessmentRecord, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		rows, err := db.QueryContext(ctx, `
			SELECT id, user_id, record_type, schema_version, payload, created_at
			FROM assessment_records WHERE user_id = ?
			ORDER BY id
		`, userID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var records []*models.AssessmentRecord
		for rows.Next() {
			var rec models.AssessmentRecord
			var payload sql.NullString
			if err := rows.Scan(&rec.ID, &rec.UserID, &rec.RecordType, &rec.SchemaVersion, &payload, &rec.CreatedAt); err != nil {
				return nil, err
			}
			rec.Payload = payload.String
			records = append(records, &rec)
		}
		return records, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.AssessmentRecord), nil
}

func deleteRecords(ctx context.Context, ex execer, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := ex.ExecContext(ctx, `
		DELETE FROM assessment_records
		WHERE user_id = ? AND id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
