package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/db"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
	_ "modernc.org/sqlite"
	"pgregory.net/rapid"
)

func newTestStore(t testing.TB) *db.Store {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.InitSchema(sqlDB); err != nil {
		t.Fatal(err)
	}
	st := db.NewStore(sqlDB, db.NewDBQueueForTest(sqlDB))
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestUserManager(t testing.TB) (*UserManager, *db.Store) {
	st := newTestStore(t)
	return NewUserManager(st, NewProgressSyncService(st, nil, nil), nil), st
}

func mustCreateUser(t testing.TB, st store.UserStore, email string, role models.Role) *models.User {
	u := &models.User{Email: email, Name: email, Role: role}
	if _, err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestProperty_UserListPagination(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		manager, st := newTestUserManager(t)

		numUsers := rapid.IntRange(0, 35).Draw(rt, "numUsers")
		for i := 1; i <= numUsers; i++ {
			mustCreateUser(t, st, fmt.Sprintf("user%d@example.com", i), models.RoleParticipant)
		}

		page := rapid.IntRange(-1, 5).Draw(rt, "page")
		result, err := manager.GetUserListPage(context.Background(), page)
		if err != nil {
			rt.Fatal(err)
		}

		if len(result.Users) > UsersPerPage {
			rt.Errorf("Page has %d users, expected at most %d", len(result.Users), UsersPerPage)
		}

		expectedTotalPages := max((numUsers+UsersPerPage-1)/UsersPerPage, 1)
		if result.TotalPages != expectedTotalPages {
			rt.Errorf("Expected %d total pages, got %d", expectedTotalPages, result.TotalPages)
		}
		if result.HasPrev != (result.CurrentPage > 1) {
			rt.Errorf("HasPrev=%v but CurrentPage=%d", result.HasPrev, result.CurrentPage)
		}
		if result.HasNext != (result.CurrentPage < result.TotalPages) {
			rt.Errorf("HasNext=%v but CurrentPage=%d, TotalPages=%d", result.HasNext, result.CurrentPage, result.TotalPages)
		}

		effectivePage := min(max(page, 1), expectedTotalPages)
		expectedOnPage := min(max(numUsers-(effectivePage-1)*UsersPerPage, 0), UsersPerPage)
		if len(result.Users) != expectedOnPage {
			rt.Errorf("Expected %d users on page %d, got %d", expectedOnPage, effectivePage, len(result.Users))
		}
	})
}

func TestUserManager_GetUserDetails(t *testing.T) {
	manager, st := newTestUserManager(t)
	ctx := context.Background()
	user := mustCreateUser(t, st, "details@example.com", models.RoleParticipant)

	for _, s := range catalog.StepsFor(models.WorkshopAllStarTeams)[:4] {
		if _, err := st.CreateAssessmentRecord(ctx, completingRecord(user.ID, s)); err != nil {
			t.Fatal(err)
		}
	}

	details, err := manager.GetUserDetails(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserDetails failed: %v", err)
	}
	if len(details.Workshops) != len(models.WorkshopTypes) {
		t.Fatalf("expected progress for every workshop, got %d", len(details.Workshops))
	}
	ast := details.Workshops[0]
	if ast.CurrentStepID != "3-1" || ast.CurrentStepTitle != "Intro to Flow" || len(ast.CompletedStepIDs) != 4 {
		t.Errorf("unexpected AST progress: %+v", ast)
	}
	if ast.TotalSteps != 12 || ast.Completed {
		t.Errorf("unexpected AST totals: %+v", ast)
	}
	ia := details.Workshops[1]
	if ia.CurrentStepID != "ia-1-1" || len(ia.CompletedStepIDs) != 0 {
		t.Errorf("unexpected IA progress: %+v", ia)
	}

	if _, err := manager.GetUserDetails(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserManager_SubmitAssessment(t *testing.T) {
	manager, st := newTestUserManager(t)
	ctx := context.Background()
	user := mustCreateUser(t, st, "submit@example.com", models.RoleParticipant)

	if _, err := manager.SubmitAssessment(ctx, user.ID, models.RecordStepProgress, json.RawMessage(`{"stepId":"1-1"}`)); err != nil {
		t.Fatalf("SubmitAssessment failed: %v", err)
	}

	p, err := st.GetNavigationProgress(ctx, user.ID, models.WorkshopAllStarTeams)
	if err != nil {
		t.Fatalf("expected progress to be synced: %v", err)
	}
	if p.CurrentStepID != "2-1" {
		t.Errorf("CurrentStepID = %s, want 2-1", p.CurrentStepID)
	}

	for _, tc := range []struct {
		name       string
		recordType string
		payload    string
	}{
		{"unknown type", "mystery", `{}`},
		{"array payload", models.RecordStarCard, `[1,2]`},
		{"null payload", models.RecordStarCard, `null`},
		{"broken json", models.RecordStarCard, `{`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manager.SubmitAssessment(ctx, user.ID, tc.recordType, json.RawMessage(tc.payload))
			if !errors.Is(err, ErrInvalidAssessment) {
				t.Errorf("expected ErrInvalidAssessment, got %v", err)
			}
		})
	}
}

func TestUserManager_ResetWorkshopProgress(t *testing.T) {
	manager, st := newTestUserManager(t)
	ctx := context.Background()
	user := mustCreateUser(t, st, "reset@example.com", models.RoleParticipant)

	for _, w := range models.WorkshopTypes {
		for _, s := range catalog.StepsFor(w) {
			if _, err := st.CreateAssessmentRecord(ctx, completingRecord(user.ID, s)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !manager.sync.SyncUserProgress(ctx, user.ID) {
		t.Fatal("sync failed")
	}

	if err := manager.ResetWorkshopProgress(ctx, user.ID, models.WorkshopAllStarTeams); err != nil {
		t.Fatalf("ResetWorkshopProgress failed: %v", err)
	}

	got, _ := st.GetUser(ctx, user.ID)
	if got.ASTWorkshopCompleted || !got.IAWorkshopCompleted {
		t.Errorf("only AST completion should be cleared: %+v", got)
	}
	records, _ := st.GetAssessmentRecords(ctx, user.ID)
	if len(records) != len(catalog.StepsFor(models.WorkshopImaginalAgility)) {
		t.Errorf("expected only IA records to remain, got %d", len(records))
	}
	if _, err := st.GetNavigationProgress(ctx, user.ID, models.WorkshopAllStarTeams); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected AST progress to be removed, got %v", err)
	}
	ia, err := manager.sync.ResolveProgress(ctx, user.ID, models.WorkshopImaginalAgility)
	if err != nil || !ia.AllCompleted {
		t.Errorf("IA progress must survive the reset: %+v, %v", ia, err)
	}

	if err := manager.ResetWorkshopProgress(ctx, 4242, models.WorkshopAllStarTeams); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordBelongsTo(t *testing.T) {
	for _, tc := range []struct {
		name   string
		record *models.AssessmentRecord
		ast    bool
		ia     bool
	}{
		{"ast ack", &models.AssessmentRecord{RecordType: models.RecordStepProgress, SchemaVersion: 2, Payload: `{"stepId":"2-1"}`}, true, false},
		{"ia ack", &models.AssessmentRecord{RecordType: models.RecordStepProgress, SchemaVersion: 2, Payload: `{"stepId":"ia-1-1"}`}, false, true},
		{"legacy ack", &models.AssessmentRecord{RecordType: models.RecordStepProgress, SchemaVersion: 1, Payload: `{"step_id":"1-1"}`}, true, false},
		{"malformed ack", &models.AssessmentRecord{RecordType: models.RecordStepProgress, SchemaVersion: 2, Payload: `oops`}, false, false},
		{"star card", &models.AssessmentRecord{RecordType: models.RecordStarCard, SchemaVersion: 2, Payload: `{}`}, true, false},
		{"ia form", &models.AssessmentRecord{RecordType: models.RecordIAHigherPurpose, SchemaVersion: 2, Payload: `{}`}, false, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := recordBelongsTo(tc.record, models.WorkshopAllStarTeams); got != tc.ast {
				t.Errorf("ast: got %v, want %v", got, tc.ast)
			}
			if got := recordBelongsTo(tc.record, models.WorkshopImaginalAgility); got != tc.ia {
				t.Errorf("ia: got %v, want %v", got, tc.ia)
			}
		})
	}
}
