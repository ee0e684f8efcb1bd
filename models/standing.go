package models

// StandingRow is one line of a league or group table. It is always derived from
// matches and never stored.
type StandingRow struct {
	TeamID         string `json:"team_id"`
	Position       int    `json:"position"`
	Played         int    `json:"played"`
	Wins           int    `json:"wins"`
	Draws          int    `json:"draws"`
	Losses         int    `json:"losses"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
	Points         int    `json:"points"`
}
