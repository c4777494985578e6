package domain

import "time"

// Team is the top of the ownership hierarchy. Projects belong to
// exactly one team.
type Team struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
