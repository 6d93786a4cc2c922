package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/ad/go-workshop-progress/internal/models"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*models.User, error) {
	var u models.User
	var astAt, iaAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
		&u.ASTWorkshopCompleted, &u.IAWorkshopCompleted, &astAt, &iaAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.ASTCompletedAt = timePtr(astAt)
	u.IACompletedAt = timePtr(iaAt)
	return &u, nil
}

func scanProgress(row scannable) (*models.NavigationProgress, error) {
	var p models.NavigationProgress
	var completed pq.StringArray
	if err := row.Scan(&p.UserID, &p.Workshop, &p.CurrentStepID, &completed, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CompletedStepIDs = []string(completed)
	if p.CompletedStepIDs == nil {
		p.CompletedStepIDs = []string{}
	}
	return &p, nil
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
