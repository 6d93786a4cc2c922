package services

import (
	"context"
	"fmt"

	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/models"
)

type statisticsStore interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListNavigationProgress(ctx context.Context, workshop models.WorkshopType) ([]*models.NavigationProgress, error)
}

type WorkshopStatistics struct {
	Workshop         models.WorkshopType `json:"workshop"`
	TotalUsers       int                 `json:"totalUsers"`
	CompletedUsers   int                 `json:"completedUsers"`
	InProgressUsers  int                 `json:"inProgressUsers"`
	NotStartedUsers  int                 `json:"notStartedUsers"`
	StepDistribution map[string]int      `json:"stepDistribution"` // step id -> users currently on it
	StepTitles       map[string]string   `json:"stepTitles"`
}

type StatisticsService struct {
	store statisticsStore
}

func NewStatisticsService(st statisticsStore) *StatisticsService {
	return &StatisticsService{store: st}
}

// GetWorkshopStatistics buckets every user by the stored navigation progress
// of workshop. Only participants are counted.
func (s *StatisticsService) GetWorkshopStatistics(ctx context.Context, workshop models.WorkshopType) (*WorkshopStatistics, error) {
	steps := catalog.StepsFor(workshop)
	if steps == nil {
		return nil, fmt.Errorf("unknown workshop type %q", workshop)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	progress, err := s.store.ListNavigationProgress(ctx, workshop)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	byUser := make(map[int64]*models.NavigationProgress, len(progress))
	for _, p := range progress {
		byUser[p.UserID] = p
	}

	stats := &WorkshopStatistics{
		Workshop:         workshop,
		StepDistribution: make(map[string]int),
		StepTitles:       make(map[string]string),
	}
	for _, step := range steps {
		stats.StepTitles[step.ID] = step.Title
	}
	if terminal, ok := catalog.TerminalStepFor(workshop); ok {
		stats.StepTitles[terminal.ID] = terminal.Title
	}

	for _, user := range users {
		if user.Role != models.RoleParticipant {
			continue
		}
		stats.TotalUsers++

		p := byUser[user.ID]
		switch {
		case user.WorkshopCompleted(workshop):
			stats.CompletedUsers++
		case p == nil || len(p.CompletedStepIDs) == 0:
			stats.NotStartedUsers++
		default:
			stats.InProgressUsers++
			stats.StepDistribution[p.CurrentStepID]++
		}
	}
	return stats, nil
}
