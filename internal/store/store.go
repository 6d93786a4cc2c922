// Package store defines the persistence contract shared by the sqlite and
// PostgreSQL backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ad/go-workshop-progress/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProgressStore is what the progress sync needs: assessment records in,
// navigation progress and completion flags out.
type ProgressStore interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetAssessmentRecords(ctx context.Context, userID int64) ([]*models.AssessmentRecord, error)
	// GetNavigationProgress returns ErrNotFound when nothing is stored yet.
	GetNavigationProgress(ctx context.Context, userID int64, workshop models.WorkshopType) (*models.NavigationProgress, error)
	SaveNavigationProgress(ctx context.Context, progress *models.NavigationProgress) error
	// MarkWorkshopCompleted sets the completion flag only if it is unset and
	// reports whether this call was the one that set it.
	MarkWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at time.Time) (bool, error)
}

// UserStore covers account management.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Store is the full backend contract.
type Store interface {
	ProgressStore
	UserStore

	// SetWorkshopCompleted sets or, with a nil at, clears the completion flag.
	SetWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at *time.Time) error
	CreateAssessmentRecord(ctx context.Context, record *models.AssessmentRecord) (int64, error)
	ListNavigationProgress(ctx context.Context, workshop models.WorkshopType) ([]*models.NavigationProgress, error)
	// ResetWorkshop deletes the listed records of the user, the stored
	// navigation progress for workshop and its completion flag.
	ResetWorkshop(ctx context.Context, userID int64, workshop models.WorkshopType, recordIDs []int64) error

	Close() error
}
