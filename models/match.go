package models

import (
	"errors"
	"fmt"
	"time"
)

// MatchKind tells which role a match plays inside a tournament.
type MatchKind string

const (
	MatchKindLeague     MatchKind = "league"
	MatchKindGroup      MatchKind = "group"
	MatchKindKnockout   MatchKind = "knockout"
	MatchKindThirdPlace MatchKind = "third_place"
)

var (
	ErrMatchKindInvalid   = errors.New("invalid match kind")
	ErrMatchGroupInvalid  = errors.New("group number is only valid for group matches")
	ErrMatchStageInvalid  = errors.New("stage is only valid for knockout matches")
	ErrMatchTieInvalid    = errors.New("tie leg is only valid for knockout matches")
	ErrMatchLegInvalid    = errors.New("tie leg must be 1 or 2 and carry a pair id")
	ErrMatchSameTeam      = errors.New("a team cannot play itself")
	ErrMatchScoreNegative = errors.New("scores cannot be negative")
)

// Score is a home/away pair of goals.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// TieLeg marks a match as one leg of a two-legged knockout tie.
type TieLeg struct {
	PairID string `json:"pair_id"`
	Leg    int    `json:"leg"`
}

// Match is a single fixture. HomeScore and AwayScore always hold the regulation
// result; extra time and penalties are kept apart.
type Match struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Kind         MatchKind `json:"kind" db:"kind"`
	Round        int       `json:"round" db:"round"`
	Group        int       `json:"group,omitempty" db:"group_number"`
	Stage        string    `json:"stage,omitempty" db:"stage"`
	Tie          *TieLeg   `json:"tie,omitempty" db:"-"`

	HomeTeamID string `json:"home_team_id" db:"home_team_id"`
	AwayTeamID string `json:"away_team_id" db:"away_team_id"`

	HomeScore int    `json:"home_score" db:"home_score"`
	AwayScore int    `json:"away_score" db:"away_score"`
	ExtraTime *Score `json:"extra_time,omitempty" db:"-"`
	Penalties *Score `json:"penalties,omitempty" db:"-"`
	Played    bool   `json:"played" db:"played"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsKnockout reports whether the match belongs to the knockout bracket.
func (m *Match) IsKnockout() bool {
	return m.Kind == MatchKindKnockout || m.Kind == MatchKindThirdPlace
}

// IsBye reports whether one of the two slots is empty.
func (m *Match) IsBye() bool {
	return (m.HomeTeamID == "") != (m.AwayTeamID == "")
}

// HomeTotal returns regulation plus extra-time goals of the home side.
func (m *Match) HomeTotal() int {
	if m.ExtraTime == nil {
		return m.HomeScore
	}
	return m.HomeScore + m.ExtraTime.Home
}

// AwayTotal returns regulation plus extra-time goals of the away side.
func (m *Match) AwayTotal() int {
	if m.ExtraTime == nil {
		return m.AwayScore
	}
	return m.AwayScore + m.ExtraTime.Away
}

// HasTeam reports whether teamID plays in this match.
func (m *Match) HasTeam(teamID string) bool {
	return teamID != "" && (m.HomeTeamID == teamID || m.AwayTeamID == teamID)
}

// Validate rejects role combinations that make no sense for the match kind.
func (m *Match) Validate() error {
	switch m.Kind {
	case MatchKindLeague, MatchKindGroup, MatchKindKnockout, MatchKindThirdPlace:
	default:
		return fmt.Errorf("%w: %q", ErrMatchKindInvalid, m.Kind)
	}
	if m.Group != 0 && m.Kind != MatchKindGroup {
		return ErrMatchGroupInvalid
	}
	if m.Stage != "" && !m.IsKnockout() {
		return ErrMatchStageInvalid
	}
	if m.Tie != nil {
		if !m.IsKnockout() {
			return ErrMatchTieInvalid
		}
		if m.Tie.PairID == "" || (m.Tie.Leg != 1 && m.Tie.Leg != 2) {
			return ErrMatchLegInvalid
		}
	}
	if m.HomeTeamID != "" && m.HomeTeamID == m.AwayTeamID {
		return ErrMatchSameTeam
	}
	if m.HomeScore < 0 || m.AwayScore < 0 {
		return ErrMatchScoreNegative
	}
	for _, s := range []*Score{m.ExtraTime, m.Penalties} {
		if s != nil && (s.Home < 0 || s.Away < 0) {
			return ErrMatchScoreNegative
		}
	}
	return nil
}
