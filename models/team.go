package models

import "time"

const (
	MinTeamRate = 0.01
	MaxTeamRate = 9.99
	// DefaultTeamRate is used when a team is created without an explicit strength.
	DefaultTeamRate = 1.0
)

// Team is a participant of one or more tournaments.
type Team struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      int       `json:"owner_id" db:"owner_id"`
	Name         string    `json:"name" db:"name"`
	ShortName    string    `json:"short_name" db:"short_name"`
	Abbreviation string    `json:"abbreviation" db:"abbreviation"`
	Rate         float64   `json:"rate" db:"rate"`
	FolderID     *string   `json:"folder_id,omitempty" db:"folder_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ClampRate keeps a strength rate inside the supported bounds.
func ClampRate(rate float64) float64 {
	if rate < MinTeamRate {
		return MinTeamRate
	}
	if rate > MaxTeamRate {
		return MaxTeamRate
	}
	return rate
}
