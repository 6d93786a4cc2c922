package models

type WorkshopType string

const (
	WorkshopAllStarTeams    WorkshopType = "ast"
	WorkshopImaginalAgility WorkshopType = "ia"
)

// WorkshopTypes lists every curriculum in the order they are synced.
var WorkshopTypes = []WorkshopType{WorkshopAllStarTeams, WorkshopImaginalAgility}

func ParseWorkshopType(s string) (WorkshopType, bool) {
	switch WorkshopType(s) {
	case WorkshopAllStarTeams, WorkshopImaginalAgility:
		return WorkshopType(s), true
	}
	return "", false
}

func (w WorkshopType) DisplayName() string {
	switch w {
	case WorkshopAllStarTeams:
		return "AllStarTeams"
	case WorkshopImaginalAgility:
		return "Imaginal Agility"
	}
	return string(w)
}

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleFacilitator Role = "facilitator"
	RoleParticipant Role = "participant"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleFacilitator, RoleParticipant:
		return true
	}
	return false
}

// Record types written by the workshop client. The acknowledgement type marks
// video and reading steps that have no form of their own.
const (
	RecordStepProgress            = "step_progress"
	RecordStarCard                = "starCard"
	RecordStepByStepReflection    = "stepByStepReflection"
	RecordFlowAssessment          = "flowAssessment"
	RecordRoundingOutReflection   = "roundingOutReflection"
	RecordFlowAttributes          = "flowAttributes"
	RecordCantrilLadder           = "cantrilLadder"
	RecordCantrilLadderReflection = "cantrilLadderReflection"
	RecordFutureSelfReflection    = "futureSelfReflection"
	RecordFinalReflection         = "finalReflection"

	RecordIACoreCapabilities      = "iaCoreCapabilities"
	RecordIALadderReflection      = "iaLadderReflection"
	RecordIAAutoflowReflection    = "iaAutoflowReflection"
	RecordIAHigherPurpose         = "iaHigherPurpose"
	RecordIAInspirationReflection = "iaInspirationReflection"
	RecordIAFinalReflection       = "iaFinalReflection"
)

var knownRecordTypes = map[string]bool{
	RecordStepProgress: true, RecordStarCard: true, RecordStepByStepReflection: true,
	RecordFlowAssessment: true, RecordRoundingOutReflection: true, RecordFlowAttributes: true,
	RecordCantrilLadder: true, RecordCantrilLadderReflection: true, RecordFutureSelfReflection: true,
	RecordFinalReflection: true, RecordIACoreCapabilities: true, RecordIALadderReflection: true,
	RecordIAAutoflowReflection: true, RecordIAHigherPurpose: true, RecordIAInspirationReflection: true,
	RecordIAFinalReflection: true,
}

func IsKnownRecordType(t string) bool {
	return knownRecordTypes[t]
}
