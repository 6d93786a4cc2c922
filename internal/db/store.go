package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
	_ "modernc.org/sqlite"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is the sqlite backend. Every statement goes through one DBQueue.
type Store struct {
	sqlDB       *sql.DB
	queue       *DBQueue
	users       *UserRepository
	assessments *AssessmentRepository
	progress    *ProgressRepository
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the sqlite database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and matches the
	// single-writer queue.
	sqlDB.SetMaxOpenConns(1)
	if err := InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return NewStore(sqlDB, NewDBQueue(sqlDB)), nil
}

func NewStore(sqlDB *sql.DB, queue *DBQueue) *Store {
	return &Store{
		sqlDB:       sqlDB,
		queue:       queue,
		users:       NewUserRepository(queue),
		assessments: NewAssessmentRepository(queue),
		progress:    NewProgressRepository(queue),
	}
}

func (s *Store) Close() error {
	s.queue.Close()
	return s.sqlDB.Close()
}

func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	return s.users.GetAllIDs(ctx)
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.GetAll(ctx)
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, email)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	return s.users.Create(ctx, user)
}

func (s *Store) SetWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at *time.Time) error {
	return s.users.SetWorkshopCompleted(ctx, userID, workshop, at)
}

func (s *Store) MarkWorkshopCompleted(ctx context.Context, userID int64, workshop models.WorkshopType, at time.Time) (bool, error) {
	return s.users.MarkWorkshopCompleted(ctx, userID, workshop, at)
}

func (s *Store) GetAssessmentRecords(ctx context.Context, userID int64) ([]*models.AssessmentRecord, error) {
	return s.assessments.GetByUser(ctx, userID)
}

func (s *Store) CreateAssessmentRecord(ctx context.Context, record *models.AssessmentRecord) (int64, error) {
	return s.assessments.Create(ctx, record)
}

func (s *Store) GetNavigationProgress(ctx context.Context, userID int64, workshop models.WorkshopType) (*models.NavigationProgress, error) {
	return s.progress.Get(ctx, userID, workshop)
}

func (s *Store) SaveNavigationProgress(ctx context.Context, progress *models.NavigationProgress) error {
	return s.progress.Upsert(ctx, progress)
}

func (s *Store) ListNavigationProgress(ctx context.Context, workshop models.WorkshopType) ([]*models.NavigationProgress, error) {
	return s.progress.GetByWorkshop(ctx, workshop)
}

// ResetWorkshop runs the three deletes in one transaction inside a single
// queued task.
func (s *Store) ResetWorkshop(ctx context.Context, userID int64, workshop models.WorkshopType, recordIDs []int64) error {
	_, err := s.queue.Execute(ctx, func(ctx context.Context, db *sql.DB) (interface{}, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := deleteRecords(ctx, tx, userID, recordIDs); err != nil {
			return nil, fmt.Errorf("delete records: %w", err)
		}
		if err := deleteProgress(ctx, tx, userID, workshop); err != nil {
			return nil, fmt.Errorf("delete navigation progress: %w", err)
		}
		if err := setWorkshopCompleted(ctx, tx, userID, workshop, nil); err != nil {
			return nil, fmt.Errorf("clear completion: %w", err)
		}
		return nil, tx.Commit()
	})
	return err
}
