package services

import (
	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/models"
)

// DeriveProgress walks steps in order and stops at the first step no record
// satisfies. Records that cannot be decoded are treated as absent.
func DeriveProgress(workshop models.WorkshopType, steps []models.StepDefinition, records []*models.AssessmentRecord) models.DerivedProgress {
	decoded := make(map[string][]map[string]any)
	for _, r := range records {
		fields, ok := r.Fields()
		if !ok {
			continue
		}
		decoded[r.RecordType] = append(decoded[r.RecordType], fields)
	}

	completed := make([]string, 0, len(steps))
	for _, step := range steps {
		if !stepCompleted(step, decoded[step.Completion.RecordType]) {
			return models.DerivedProgress{
				CurrentStepID:    step.ID,
				CompletedStepIDs: completed,
			}
		}
		completed = append(completed, step.ID)
	}

	current := ""
	if terminal, ok := catalog.TerminalStepFor(workshop); ok {
		current = terminal.ID
	} else if len(steps) > 0 {
		current = steps[len(steps)-1].ID
	}
	return models.DerivedProgress{
		CurrentStepID:    current,
		CompletedStepIDs: completed,
		AllCompleted:     true,
	}
}

func stepCompleted(step models.StepDefinition, candidates []map[string]any) bool {
	for _, fields := range candidates {
		if step.SatisfiedBy(step.Completion.RecordType, fields) {
			return true
		}
	}
	return false
}
