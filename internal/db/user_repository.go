package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
)

const userColumns = `id, email, name, role, password_hash, ast_workshop_completed, ia_workshop_completed,
	ast_completed_at, ia_completed_at, created_at`

type UserRepository struct {
	queue *DBQueue
}

func NewUserRepository(queue *DBQueue) *UserRepository {
	return &UserRepository{queue: queue}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		res, err := db.ExecContext(ctx, `
			INSERT INTO users (email, name, role, password_hash)
			VALUES (?, ?, ?, ?)
		`, user.Email, user.Name, user.Role, user.PasswordHash)
		if err != nil {
			return nil, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, err
	}
	user.ID = result.(int64)
	return user.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		user, err := scanUser(db.QueryRowContext(ctx, query, arg))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return user, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.User), nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
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
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.User), nil
}

func (r *UserRepository) GetAllIDs(ctx context.Context) ([]int64, error) {
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
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
	})
	if err != nil {
		return nil, err
	}
	return result.([]int64), nil
}

func (r *UserRepository) SetWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at *time.Time) error {
	_, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		return nil, setWorkshopCompleted(ctx, db, userID, workshop, at)
	})
	return err
}

// MarkWorkshopCompleted sets the flag only while it is still unset and reports
// whether this call set it.
func (r *UserRepository) MarkWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at time.Time) (bool, error) {
	var query string
	switch workshop {
	case models.WorkshopAllStarTeams:
		query = `UPDATE users SET ast_workshop_completed = TRUE, ast_completed_at = ? WHERE id = ? AND NOT ast_workshop_completed`
	case models.WorkshopImaginalAgility:
		query = `UPDATE users SET ia_workshop_completed = TRUE, ia_completed_at = ? WHERE id = ? AND NOT ia_workshop_completed`
	default:
		return false, fmt.Errorf("unknown workshop type %q", workshop)
	}
	result, err := r.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		res, err := db.ExecContext(ctx, query, at, userID)
		if err != nil {
			return nil, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		return false, err
	}
	return result.(int64) == 1, nil
}

func setWorkshopCompleted(ctx context.Context, ex execer, userID int64, workshop models.WorkshopType, at *time.Time) error {
	var query string
	switch workshop {
	case models.WorkshopAllStarTeams:
		query = `UPDATE users SET ast_workshop_completed = ?, ast_completed_at = ? WHERE id = ?`
	case models.WorkshopImaginalAgility:
		query = `UPDATE users SET ia_workshop_completed = ?, ia_completed_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("unknown workshop type %q", workshop)
	}
	res, err := ex.ExecContext(ctx, query, at != nil, at, userID)
	if err != nil {
		return err
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var role string
	var astAt, iaAt sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash,
		&user.ASTWorkshopCompleted, &user.IAWorkshopCompleted, &astAt, &iaAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if astAt.Valid {
		user.ASTCompletedAt = &astAt.Time
	}
	if iaAt.Valid {
		user.IACompletedAt = &iaAt.Time
	}
	return &user, nil
}
