package models

import "time"

// TournamentFormat is the competition structure.
type TournamentFormat string

const (
	FormatLeague         TournamentFormat = "league"
	FormatGroupsKnockout TournamentFormat = "groups_knockout"
	FormatKnockout       TournamentFormat = "knockout"
	FormatSwiss          TournamentFormat = "swiss"
)

// TournamentStatus представляет статусы турнира.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
)

// Tournament представляет турнир.
type Tournament struct {
	ID        string           `json:"id" db:"id"`
	OwnerID   int              `json:"owner_id" db:"owner_id"`
	Name      string           `json:"name" db:"name"`
	Format    TournamentFormat `json:"format" db:"format"`
	Season    int              `json:"season" db:"season"`
	Status    TournamentStatus `json:"status" db:"status"`
	FolderID  *string          `json:"folder_id,omitempty" db:"folder_id"`
	TeamIDs   []string         `json:"team_ids" db:"team_ids"` // seed order
	Groups    [][]string       `json:"groups,omitempty" db:"team_groups"`
	Settings  Settings         `json:"settings" db:"settings"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}

// IsValidFormat reports whether f is a known format.
func IsValidFormat(f TournamentFormat) bool {
	switch f {
	case FormatLeague, FormatGroupsKnockout, FormatKnockout, FormatSwiss:
		return true
	}
	return false
}
