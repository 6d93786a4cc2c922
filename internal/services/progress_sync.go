package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
	"go.uber.org/zap"
)

const maxReportErrors = 100

type SyncReport struct {
	TotalUsers     int        `json:"totalUsers"`
	ProcessedUsers int        `json:"processedUsers"`
	ChangedUsers   int        `json:"changedUsers"`
	ErrorCount     int        `json:"errorCount"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
}

type ProgressSyncService struct {
	store    store.ProgressStore
	notifier CompletionNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewProgressSyncService(st store.ProgressStore, notifier CompletionNotifier, logger *zap.Logger) *ProgressSyncService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressSyncService{
		store:    st,
		notifier: notifier,
		logger:   logger.Named("progress_sync"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveProgress derives the user's current position without writing.
func (s *ProgressSyncService) ResolveProgress(ctx context.Context, userID int64, workshop models.WorkshopType) (models.DerivedProgress, error) {
	records, err := s.store.GetAssessmentRecords(ctx, userID)
	if err != nil {
		return models.DerivedProgress{}, fmt.Errorf("load records: %w", err)
	}
	return DeriveProgress(workshop, catalog.StepsFor(workshop), records), nil
}

// SyncUserProgress recomputes every workshop's progress for userID and stores
// whatever changed. Failures are logged and reported as false.
func (s *ProgressSyncService) SyncUserProgress(ctx context.Context, userID int64) bool {
	if _, err := s.syncUser(ctx, userID); err != nil {
		s.logger.Error("sync failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return true
}

// SyncAllUsersProgress runs SyncUserProgress over every user, one at a time,
// and returns how many users had their stored state changed.
func (s *ProgressSyncService) SyncAllUsersProgress(ctx context.Context) int {
	return s.SyncAllUsersProgressReport(ctx).ChangedUsers
}

func (s *ProgressSyncService) SyncAllUsersProgressReport(ctx context.Context) *SyncReport {
	report := &SyncReport{StartTime: s.now()}
	defer func() {
		end := s.now()
		report.EndTime = &end
	}()

	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		report.recordError(fmt.Sprintf("list users: %v", err))
		s.logger.Error("list users failed", zap.Error(err))
		return report
	}
	report.TotalUsers = len(ids)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			s.logger.Warn("bulk sync cancelled",
				zap.Int("processed", report.ProcessedUsers), zap.Int("total", report.TotalUsers))
			return report
		default:
		}

		changed, err := s.syncUserSafe(ctx, id)
		report.ProcessedUsers++
		if err != nil {
			report.recordError(fmt.Sprintf("user %d: %v", id, err))
			s.logger.Error("sync failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		if changed {
			report.ChangedUsers++
		}
	}

	s.logger.Info("bulk sync completed",
		zap.Int("total", report.TotalUsers),
		zap.Int("changed", report.ChangedUsers),
		zap.Int("errors", report.ErrorCount))
	return report
}

func (r *SyncReport) recordError(msg string) {
	r.ErrorCount++
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// syncUserSafe turns a panic while syncing one user into an error so the bulk
// run can continue.
func (s *ProgressSyncService) syncUserSafe(ctx context.Context, userID int64) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.syncUser(ctx, userID)
}

func (s *ProgressSyncService) syncUser(ctx context.Context, userID int64) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	records, err := s.store.GetAssessmentRecords(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load records: %w", err)
	}

	changed := false
	for _, workshop := range models.WorkshopTypes {
		steps := catalog.StepsFor(workshop)
		derived := DeriveProgress(workshop, steps, records)

		wrote, err := s.storeIfChanged(ctx, userID, workshop, steps, derived)
		if err != nil {
			return changed, err
		}
		changed = changed || wrote

		if derived.AllCompleted && !user.WorkshopCompleted(workshop) {
			at := s.now()
			set, err := s.store.MarkWorkshopCompleted(ctx, userID, workshop, at)
			if err != nil {
				return changed, fmt.Errorf("mark %s completed: %w", workshop, err)
			}
			if !set {
				// A concurrent sync got there first and owns the notice.
				continue
			}
			user.SetWorkshopCompleted(workshop, &at)
			changed = true
			s.logger.Info("workshop completed", zap.Int64("user_id", userID), zap.String("workshop", string(workshop)))
			if err := s.notifier.NotifyWorkshopCompleted(ctx, user, workshop); err != nil {
				s.logger.Warn("completion notification failed",
					zap.Int64("user_id", userID), zap.String("workshop", string(workshop)), zap.Error(err))
			}
		}
	}
	return changed, nil
}

// storeIfChanged compares derived with the stored row. A missing row counts as
// the untouched starting state, so users who never began a workshop are not
// written.
func (s *ProgressSyncService) storeIfChanged(ctx context.Context, userID int64, workshop models.WorkshopType, steps []models.StepDefinition, derived models.DerivedProgress) (bool, error) {
	stored, err := s.store.GetNavigationProgress(ctx, userID, workshop)
	switch {
	case errors.Is(err, store.ErrNotFound):
		baseline := DeriveProgress(workshop, steps, nil)
		stored = &models.NavigationProgress{CurrentStepID: baseline.CurrentStepID, CompletedStepIDs: baseline.CompletedStepIDs}
	case err != nil:
		return false, fmt.Errorf("load %s progress: %w", workshop, err)
	}
	if stored.Matches(derived) {
		return false, nil
	}

	progress := &models.NavigationProgress{
		UserID:           userID,
		Workshop:         workshop,
		CurrentStepID:    derived.CurrentStepID,
		CompletedStepIDs: derived.CompletedStepIDs,
		UpdatedAt:        s.now(),
	}
	if err := s.store.SaveNavigationProgress(ctx, progress); err != nil {
		return false, fmt.Errorf("save %s progress: %w", workshop, err)
	}
	s.logger.Debug("progress updated",
		zap.Int64("user_id", userID),
		zap.String("workshop", string(workshop)),
		zap.String("step", derived.CurrentStepID),
		zap.Int("completed", len(derived.CompletedStepIDs)))
	return true, nil
}
