package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
	"go.uber.org/zap"
)

const UsersPerPage = 10

var ErrInvalidAssessment = errors.New("invalid assessment")

type UserListPage struct {
	Users       []*models.User `json:"users"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	HasPrev     bool           `json:"hasPrev"`
	HasNext     bool           `json:"hasNext"`
}

type WorkshopProgress struct {
	Workshop         models.WorkshopType `json:"workshop"`
	CurrentStepID    string              `json:"currentStepId"`
	CurrentStepTitle string              `json:"currentStepTitle"`
	CompletedStepIDs []string            `json:"completedStepIds"`
	TotalSteps       int                 `json:"totalSteps"`
	Completed        bool                `json:"completed"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
}

type UserDetails struct {
	User      *models.User       `json:"user"`
	Workshops []WorkshopProgress `json:"workshops"`
}

type UserManager struct {
	store  store.Store
	sync   *ProgressSyncService
	logger *zap.Logger
}

func NewUserManager(st store.Store, sync *ProgressSyncService, logger *zap.Logger) *UserManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserManager{store: st, sync: sync, logger: logger.Named("user_manager")}
}

func (m *UserManager) GetUserListPage(ctx context.Context, page int) (*UserListPage, error) {
	if page < 1 {
		page = 1
	}

	allUsers, err := m.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	totalUsers := len(allUsers)
	totalPages := (totalUsers + UsersPerPage - 1) / UsersPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * UsersPerPage
	end := min(start+UsersPerPage, totalUsers)

	pageUsers := []*models.User{}
	if start < totalUsers {
		pageUsers = allUsers[start:end]
	}

	return &UserListPage{
		Users:       pageUsers,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}, nil
}

// GetWorkshopProgress derives the user's live position in workshop.
func (m *UserManager) GetWorkshopProgress(ctx context.Context, userID int64, workshop models.WorkshopType) (WorkshopProgress, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return WorkshopProgress{}, err
	}
	return m.workshopProgress(ctx, user, workshop)
}

func (m *UserManager) workshopProgress(ctx context.Context, user *models.User, workshop models.WorkshopType) (WorkshopProgress, error) {
	derived, err := m.sync.ResolveProgress(ctx, user.ID, workshop)
	if err != nil {
		return WorkshopProgress{}, err
	}
	wp := WorkshopProgress{
		Workshop:         workshop,
		CurrentStepID:    derived.CurrentStepID,
		CompletedStepIDs: derived.CompletedStepIDs,
		TotalSteps:       len(catalog.StepsFor(workshop)),
		Completed:        user.WorkshopCompleted(workshop),
		CompletedAt:      user.WorkshopCompletedAt(workshop),
	}
	if step, ok := catalog.Lookup(workshop, derived.CurrentStepID); ok {
		wp.CurrentStepTitle = step.Title
	}
	return wp, nil
}

func (m *UserManager) GetUserDetails(ctx context.Context, userID int64) (*UserDetails, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := &UserDetails{User: user}
	for _, workshop := range models.WorkshopTypes {
		wp, err := m.workshopProgress(ctx, user, workshop)
		if err != nil {
			return nil, err
		}
		details.Workshops = append(details.Workshops, wp)
	}
	return details, nil
}

// SubmitAssessment stores a record in the current payload schema and re-syncs
// the user's progress.
func (m *UserManager) SubmitAssessment(ctx context.Context, userID int64, recordType string, payload json.RawMessage) (*models.AssessmentRecord, error) {
	if !models.IsKnownRecordType(recordType) {
		return nil, fmt.Errorf("%w: unknown record type %q", ErrInvalidAssessment, recordType)
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidAssessment)
	}

	record := &models.AssessmentRecord{
		UserID:        userID,
		RecordType:    recordType,
		SchemaVersion: models.RecordSchemaCurrent,
		Payload:       string(payload),
	}
	if _, err := m.store.CreateAssessmentRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}
	if !m.sync.SyncUserProgress(ctx, userID) {
		m.logger.Warn("progress sync after submission failed", zap.Int64("user_id", userID))
	}
	return record, nil
}

// ResetWorkshopProgress removes every record that counts towards workshop,
// its stored navigation progress and the completion flag. Step acknowledgements
// belonging to other workshops are kept.
func (m *UserManager) ResetWorkshopProgress(ctx context.Context, userID int64, workshop models.WorkshopType) error {
	if _, err := m.store.GetUser(ctx, userID); err != nil {
		return err
	}
	records, err := m.store.GetAssessmentRecords(ctx, userID)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	var ids []int64
	for _, r := range records {
		if recordBelongsTo(r, workshop) {
			ids = append(ids, r.ID)
		}
	}
	if err := m.store.ResetWorkshop(ctx, userID, workshop, ids); err != nil {
		return fmt.Errorf("reset %s: %w", workshop, err)
	}
	m.logger.Info("workshop reset",
		zap.Int64("user_id", userID), zap.String("workshop", string(workshop)), zap.Int("records", len(ids)))
	return nil
}

func recordBelongsTo(r *models.AssessmentRecord, workshop models.WorkshopType) bool {
	if r.RecordType == models.RecordStepProgress {
		fields, ok := r.Fields()
		if !ok {
			return false
		}
		stepID, _ := fields["stepId"].(string)
		_, found := catalog.Lookup(workshop, stepID)
		return found
	}
	for _, step := range catalog.StepsFor(workshop) {
		if step.Completion.RecordType == r.RecordType {
			return true
		}
	}
	return false
}
