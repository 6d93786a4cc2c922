package models

// Completion describes which record marks a step as done. Acknowledge steps
// are satisfied by a step_progress record naming the step; the others need a
// record of RecordType with every RequiredFields entry filled in.
type Completion struct {
	RecordType     string
	RequiredFields []string
	Acknowledge    bool
}

type StepDefinition struct {
	ID         string
	Workshop   WorkshopType
	Order      int
	Title      string
	Completion Completion
}

func (s StepDefinition) SatisfiedBy(recordType string, fields map[string]any) bool {
	if recordType != s.Completion.RecordType || fields == nil {
		return false
	}
	if s.Completion.Acknowledge {
		id, _ := fields["stepId"].(string)
		return id == s.ID
	}
	for _, name := range s.Completion.RequiredFields {
		if !HasValue(fields[name]) {
			return false
		}
	}
	return true
}
