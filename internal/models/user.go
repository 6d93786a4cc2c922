package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID                   int64      `json:"id"`
	Email                string     `json:"email"`
	Name                 string     `json:"name"`
	Role                 Role       `json:"role"`
	PasswordHash         string     `json:"-"`
	ASTWorkshopCompleted bool       `json:"astWorkshopCompleted"`
	IAWorkshopCompleted  bool       `json:"iaWorkshopCompleted"`
	ASTCompletedAt       *time.Time `json:"astCompletedAt,omitempty"`
	IACompletedAt        *time.Time `json:"iaCompletedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func (u *User) DisplayName() string {
	var parts []string
	if u.Name != "" {
		parts = append(parts, u.Name)
	}
	if u.Email != "" {
		parts = append(parts, fmt.Sprintf("<%s>", u.Email))
	}
	parts = append(parts, fmt.Sprintf("[%d]", u.ID))
	return strings.Join(parts, " ")
}

func (u *User) WorkshopCompleted(w WorkshopType) bool {
	switch w {
	case WorkshopAllStarTeams:
		return u.ASTWorkshopCompleted
	case WorkshopImaginalAgility:
		return u.IAWorkshopCompleted
	}
	return false
}

func (u *User) WorkshopCompletedAt(w WorkshopType) *time.Time {
	switch w {
	case WorkshopAllStarTeams:
		return u.ASTCompletedAt
	case WorkshopImaginalAgility:
		return u.IACompletedAt
	}
	return nil
}

// SetWorkshopCompleted records completion for w. A nil at clears the flag.
func (u *User) SetWorkshopCompleted(w WorkshopType, at *time.Time) {
	switch w {
	case WorkshopAllStarTeams:
		u.ASTWorkshopCompleted = at != nil
		u.ASTCompletedAt = at
	case WorkshopImaginalAgility:
		u.IAWorkshopCompleted = at != nil
		u.IACompletedAt = at
	}
}
