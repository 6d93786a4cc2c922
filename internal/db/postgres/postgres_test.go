package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var userRowColumns = []string{
	"id", "email", "name", "role", "password_hash", "ast_workshop_completed", "ia_workshop_completed",
	"ast_completed_at", "ia_completed_at", "created_at",
}

var progressColumns = []string{"user_id", "workshop_type", "current_step_id", "completed_steps", "updated_at"}

func TestScanHelpers(t *testing.T) {
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(now) = %v", nt)
	}
	if timePtr(sql.NullTime{}) != nil {
		t.Error("timePtr(invalid) should be nil")
	}
	if p := timePtr(sql.NullTime{Time: now, Valid: true}); p == nil || !p.Equal(now) {
		t.Errorf("timePtr(now) = %v", p)
	}
}

func TestCreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	user := &models.User{Email: "a@example.com", Name: "A", Role: models.RoleAdmin, PasswordHash: "h"}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@example.com", "A", models.RoleAdmin, "h").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	id, err := (&Store{db: db}).CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 || user.ID != 7 || !user.CreatedAt.Equal(now) {
		t.Fatalf("got id=%d user=%+v", id, user)
	}
}

func TestGetUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = \\$1").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(3), "c@example.com", "C", "participant", "", true, false, now, nil, now))

	u, err := (&Store{db: db}).GetUser(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "c@example.com" || !u.ASTWorkshopCompleted || u.ASTCompletedAt == nil || u.IACompletedAt != nil {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email = \\$1").WithArgs("x@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := (&Store{db: db}).GetUserByEmail(context.Background(), "x@example.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestListUserIDs(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id FROM users ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(5)))

	ids, err := (&Store{db: db}).ListUserIDs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[1] != 5 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSetWorkshopCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET ia_workshop_completed = \\$1, ia_completed_at = \\$2 WHERE id = \\$3").
		WithArgs(true, at, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET ast_workshop_completed").
		WithArgs(false, nil, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := &Store{db: db}
	if err := s.SetWorkshopCompleted(context.Background(), 4, models.WorkshopImaginalAgility, &at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetWorkshopCompleted(context.Background(), 99, models.WorkshopAllStarTeams, nil); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
	if err := s.SetWorkshopCompleted(context.Background(), 4, "nope", &at); err == nil {
		t.Fatal("expected error for unknown workshop")
	}
}

func TestMarkWorkshopCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE users SET ast_workshop_completed = TRUE, ast_completed_at = \\$1 WHERE id = \\$2 AND NOT ast_workshop_completed").
		WithArgs(at, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET ast_workshop_completed = TRUE").
		WithArgs(at, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := &Store{db: db}
	set, err := s.MarkWorkshopCompleted(context.Background(), 4, models.WorkshopAllStarTeams, at)
	if err != nil || !set {
		t.Fatalf("first mark = %v, %v; want true, nil", set, err)
	}
	set, err = s.MarkWorkshopCompleted(context.Background(), 4, models.WorkshopAllStarTeams, at)
	if err != nil || set {
		t.Fatalf("second mark = %v, %v; want false, nil", set, err)
	}
	if _, err := s.MarkWorkshopCompleted(context.Background(), 4, "nope", at); err == nil {
		t.Fatal("expected error for unknown workshop")
	}
}

func TestAssessmentRecords(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	s := &Store{db: db}

	mock.ExpectQuery("INSERT INTO assessment_records").
		WithArgs(int64(2), models.RecordStarCard, models.RecordSchemaV2, `{"thinking":1}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))
	mock.ExpectQuery("SELECT .+ FROM assessment_records WHERE user_id = \\$1 ORDER BY id").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "record_type", "schema_version", "payload", "created_at"}).
			AddRow(int64(10), int64(2), models.RecordStepProgress, 1, `{"step_id":"1-1"}`, now).
			AddRow(int64(11), int64(2), models.RecordStarCard, 2, `{"thinking":1}`, now))

	rec := &models.AssessmentRecord{UserID: 2, RecordType: models.RecordStarCard, SchemaVersion: models.RecordSchemaV2, Payload: `{"thinking":1}`}
	if _, err := s.CreateAssessmentRecord(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != 11 {
		t.Fatalf("expected id 11, got %d", rec.ID)
	}

	records, err := s.GetAssessmentRecords(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].SchemaVersion != 1 || records[1].Payload != `{"thinking":1}` {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestNavigationProgress(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	s := &Store{db: db}

	mock.ExpectExec("INSERT INTO navigation_progress").
		WithArgs(int64(1), models.WorkshopAllStarTeams, "2-1", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM navigation_progress WHERE user_id = \\$1 AND workshop_type = \\$2").
		WithArgs(int64(1), models.WorkshopAllStarTeams).
		WillReturnRows(sqlmock.NewRows(progressColumns).AddRow(int64(1), "ast", "2-1", "{1-1}", now))
	mock.ExpectQuery("SELECT .+ FROM navigation_progress WHERE user_id = \\$1 AND workshop_type = \\$2").
		WithArgs(int64(1), models.WorkshopImaginalAgility).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM navigation_progress WHERE workshop_type = \\$1 ORDER BY user_id").
		WithArgs(models.WorkshopAllStarTeams).
		WillReturnRows(sqlmock.NewRows(progressColumns).
			AddRow(int64(1), "ast", "2-1", "{1-1}", now).
			AddRow(int64(2), "ast", "1-1", "{}", now))

	err := s.SaveNavigationProgress(context.Background(), &models.NavigationProgress{
		UserID: 1, Workshop: models.WorkshopAllStarTeams, CurrentStepID: "2-1",
		CompletedStepIDs: []string{"1-1"}, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.GetNavigationProgress(context.Background(), 1, models.WorkshopAllStarTeams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CurrentStepID != "2-1" || len(p.CompletedStepIDs) != 1 || p.CompletedStepIDs[0] != "1-1" {
		t.Fatalf("unexpected progress: %+v", p)
	}

	if _, err := s.GetNavigationProgress(context.Background(), 1, models.WorkshopImaginalAgility); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}

	list, err := s.ListNavigationProgress(context.Background(), models.WorkshopAllStarTeams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[1].CompletedStepIDs == nil || len(list[1].CompletedStepIDs) != 0 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestResetWorkshop(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM assessment_records WHERE user_id = \\$1 AND id = ANY\\(\\$2\\)").
		WithArgs(int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM navigation_progress").
		WithArgs(int64(5), models.WorkshopAllStarTeams).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET ast_workshop_completed").
		WithArgs(false, nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := (&Store{db: db}).ResetWorkshop(context.Background(), 5, models.WorkshopAllStarTeams, []int64{3, 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResetWorkshop_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM navigation_progress").
		WithArgs(int64(5), models.WorkshopImaginalAgility).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := (&Store{db: db}).ResetWorkshop(context.Background(), 5, models.WorkshopImaginalAgility, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
