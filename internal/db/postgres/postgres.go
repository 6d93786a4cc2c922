// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New opens databaseURL, configures the pool and applies pending migrations.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	return queryCreateUser(ctx, s.db, user)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return queryGetUser(ctx, s.db, `WHERE id = $1`, userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return queryGetUser(ctx, s.db, `WHERE email = $1`, email)
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	return queryListUsers(ctx, s.db)
}

func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	return queryListUserIDs(ctx, s.db)
}

func (s *Store) SetWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at *time.Time) error {
	return querySetWorkshopCompleted(ctx, s.db, userID, workshop, at)
}

func (s *Store) MarkWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at time.Time) (bool, error) {
	return queryMarkWorkshopCompleted(ctx, s.db, userID, workshop, at)
}

func (s *Store) CreateAssessmentRecord(ctx context.Context, record *models.AssessmentRecord) (int64, error) {
	return queryCreateRecord(ctx, s.db, record)
}

func (s *Store) GetAssessmentRecords(ctx context.Context, userID int64) ([]*models.AssessmentRecord, error) {
	return queryGetRecords(ctx, s.db, userID)
}

func (s *Store) GetNavigationProgress(ctx context.Context, userID int64, workshop models.WorkshopType) (*models.NavigationProgress, error) {
	return queryGetProgress(ctx, s.db, userID, workshop)
}

func (s *Store) SaveNavigationProgress(ctx context.Context, progress *models.NavigationProgress) error {
	return queryUpsertProgress(ctx, s.db, progress)
}

func (s *Store) ListNavigationProgress(ctx context.Context, workshop models.WorkshopType) ([]*models.NavigationProgress, error) {
	return queryListProgress(ctx, s.db, workshop)
}

// ResetWorkshop runs the three deletes in one transaction.
func (s *Store) ResetWorkshop(ctx context.Context, userID int64, workshop models.WorkshopType, recordIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := queryDeleteRecords(ctx, tx, userID, recordIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM navigation_progress WHERE user_id = $1 AND workshop_type = $2`, userID, workshop); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	if err := querySetWorkshopCompleted(ctx, tx, userID, workshop, nil); err != nil {
		return err
	}
	return tx.Commit()
}
