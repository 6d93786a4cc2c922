package models

import (
	"slices"
	"time"
)

// DerivedProgress is the deriver's output for one workshop.
type DerivedProgress struct {
	CurrentStepID    string
	CompletedStepIDs []string
	AllCompleted     bool
}

type NavigationProgress struct {
	UserID           int64
	Workshop         WorkshopType
	CurrentStepID    string
	CompletedStepIDs []string
	UpdatedAt        time.Time
}

func (p *NavigationProgress) Matches(d DerivedProgress) bool {
	return p.CurrentStepID == d.CurrentStepID && slices.Equal(p.CompletedStepIDs, d.CompletedStepIDs)
}
