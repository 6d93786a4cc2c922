// Package catalog holds the fixed, ordered curricula for every workshop type.
package catalog

import (
	"slices"

	"github.com/ad/go-workshop-progress/internal/models"
)

type stepSpec struct {
	id     string
	title  string
	record string
	fields []string
}

func ack(id, title string) stepSpec {
	return stepSpec{id: id, title: title, record: models.RecordStepProgress}
}

func form(id, title, record string, fields ...string) stepSpec {
	return stepSpec{id: id, title: title, record: record, fields: fields}
}

var astSteps = build(models.WorkshopAllStarTeams, []stepSpec{
	ack("1-1", "Introduction"),
	ack("2-1", "Intro to Strengths"),
	form("2-2", "Star Strengths Self-Assessment", models.RecordStarCard, "thinking", "acting", "feeling", "planning"),
	form("2-3", "Reflect on Your Strengths", models.RecordStepByStepReflection, "strength1"),
	ack("3-1", "Intro to Flow"),
	form("3-2", "Flow Assessment", models.RecordFlowAssessment, "flowScore"),
	form("3-3", "Rounding Out", models.RecordRoundingOutReflection, "strengths"),
	form("3-4", "Add Flow to Your Star Card", models.RecordFlowAttributes, "attributes"),
	form("4-1", "Ladder of Well-being", models.RecordCantrilLadder, "wellBeingLevel"),
	form("4-2", "Well-being Reflections", models.RecordCantrilLadderReflection, "currentFactors"),
	form("4-3", "Future Self", models.RecordFutureSelfReflection, "twentyYearVision"),
	form("4-4", "Final Reflection", models.RecordFinalReflection, "futureLetterText"),
})

var iaSteps = build(models.WorkshopImaginalAgility, []stepSpec{
	ack("ia-1-1", "Introduction to Imaginal Agility"),
	form("ia-2-1", "I4C Self-Assessment", models.RecordIACoreCapabilities, "imagination", "curiosity", "empathy", "creativity", "courage"),
	form("ia-3-1", "Ladder of Imagination", models.RecordIALadderReflection, "reflection"),
	form("ia-4-1", "Autoflow Mindfulness", models.RecordIAAutoflowReflection, "reflection"),
	form("ia-5-1", "Higher Purpose", models.RecordIAHigherPurpose, "purpose"),
	form("ia-6-1", "Inspiration", models.RecordIAInspirationReflection, "moment"),
	form("ia-7-1", "Final Reflection", models.RecordIAFinalReflection, "insight"),
})

var terminalSteps = map[models.WorkshopType]models.StepDefinition{
	models.WorkshopAllStarTeams:    {ID: "5-1", Workshop: models.WorkshopAllStarTeams, Order: len(astSteps) + 1, Title: "Workshop Review"},
	models.WorkshopImaginalAgility: {ID: "ia-8-1", Workshop: models.WorkshopImaginalAgility, Order: len(iaSteps) + 1, Title: "Workshop Review"},
}

func build(w models.WorkshopType, specs []stepSpec) []models.StepDefinition {
	steps := make([]models.StepDefinition, len(specs))
	for i, s := range specs {
		steps[i] = models.StepDefinition{
			ID:       s.id,
			Workshop: w,
			Order:    i + 1,
			Title:    s.title,
			Completion: models.Completion{
				RecordType:     s.record,
				RequiredFields: s.fields,
				Acknowledge:    s.record == models.RecordStepProgress,
			},
		}
	}
	return steps
}

// StepsFor returns the gating steps of w in curriculum order. The slice is a
// copy; callers may modify it. Unknown workshop types yield nil.
func StepsFor(w models.WorkshopType) []models.StepDefinition {
	var src []models.StepDefinition
	switch w {
	case models.WorkshopAllStarTeams:
		src = astSteps
	case models.WorkshopImaginalAgility:
		src = iaSteps
	default:
		return nil
	}
	out := make([]models.StepDefinition, len(src))
	for i, step := range src {
		step.Completion.RequiredFields = slices.Clone(step.Completion.RequiredFields)
		out[i] = step
	}
	return out
}

// TerminalStepFor returns the review step a user resumes at once every gating
// step is complete.
func TerminalStepFor(w models.WorkshopType) (models.StepDefinition, bool) {
	s, ok := terminalSteps[w]
	return s, ok
}

// Lookup finds a gating or terminal step by id.
func Lookup(w models.WorkshopType, stepID string) (models.StepDefinition, bool) {
	for _, s := range StepsFor(w) {
		if s.ID == stepID {
			return s, true
		}
	}
	if t, ok := TerminalStepFor(w); ok && t.ID == stepID {
		return t, true
	}
	return models.StepDefinition{}, false
}
