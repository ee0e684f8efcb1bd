package models

import (
	"errors"
	"fmt"
)

// Tiebreaker is one ranking criterion of a standings table.
type Tiebreaker string

const (
	TiebreakPoints         Tiebreaker = "points"
	TiebreakWins           Tiebreaker = "wins"
	TiebreakGoalDifference Tiebreaker = "goal_difference"
	TiebreakGoalsScored    Tiebreaker = "goals_scored"
	TiebreakHeadToHead     Tiebreaker = "head_to_head"
)

// LegMode selects single matches or home-and-away ties in the knockout stage.
type LegMode string

const (
	LegsSingle   LegMode = "single"
	LegsHomeAway LegMode = "home_away"
)

const (
	MinTurns = 1
	MaxTurns = 4
)

var ErrSettingsInvalid = errors.New("invalid tournament settings")

// Settings holds scoring rules, knockout rules and qualification parameters.
type Settings struct {
	PointsWin  int          `json:"points_win" yaml:"points_win"`
	PointsDraw int          `json:"points_draw" yaml:"points_draw"`
	PointsLoss int          `json:"points_loss" yaml:"points_loss"`
	Tiebreaks  []Tiebreaker `json:"tiebreakers" yaml:"tiebreakers"`

	AwayGoals     bool `json:"away_goals" yaml:"away_goals"`
	ExtraTime     bool `json:"extra_time" yaml:"extra_time"`
	GoldenGoal    bool `json:"golden_goal" yaml:"golden_goal"`
	RateInfluence bool `json:"rate_influence" yaml:"rate_influence"`

	KnockoutLegs    LegMode `json:"knockout_legs" yaml:"knockout_legs"`
	FinalSingleLeg  bool    `json:"final_single_leg" yaml:"final_single_leg"`
	ThirdPlaceMatch bool    `json:"third_place_match" yaml:"third_place_match"`
	StartingStage   string  `json:"starting_stage" yaml:"starting_stage"`

	Turns int `json:"turns" yaml:"turns"`

	GroupCount         int `json:"group_count" yaml:"group_count"`
	QualifiersPerGroup int `json:"qualifiers_per_group" yaml:"qualifiers_per_group"`
	// BestOfPosition/BestOfCount pick wildcard qualifiers among the teams finishing
	// at that position in their group.
	BestOfPosition int `json:"best_of_position" yaml:"best_of_position"`
	BestOfCount    int `json:"best_of_count" yaml:"best_of_count"`

	QualificationConfirmed bool     `json:"qualification_confirmed" yaml:"-"`
	ConfirmedQualifiers    []string `json:"confirmed_qualifiers,omitempty" yaml:"-"`
}

// DefaultSettings returns the 3/1/0 rules with the usual tiebreak order.
func DefaultSettings() Settings {
	return Settings{
		PointsWin:  3,
		PointsDraw: 1,
		PointsLoss: 0,
		Tiebreaks: []Tiebreaker{
			TiebreakPoints,
			TiebreakGoalDifference,
			TiebreakGoalsScored,
			TiebreakHeadToHead,
		},
		RateInfluence: true,
		KnockoutLegs:  LegsSingle,
		StartingStage: "1/8",
		Turns:         1,
		GroupCount:    4,
	}
}

// Normalize fills zero values with defaults and clamps ranges.
func (s *Settings) Normalize() {
	if s.KnockoutLegs == "" {
		s.KnockoutLegs = LegsSingle
	}
	if s.Turns < MinTurns {
		s.Turns = MinTurns
	}
	if s.Turns > MaxTurns {
		s.Turns = MaxTurns
	}
	if s.StartingStage == "" {
		s.StartingStage = "final"
	}
}

// Validate checks values that cannot be fixed by Normalize.
func (s Settings) Validate() error {
	if s.PointsWin < 0 || s.PointsDraw < 0 || s.PointsLoss < 0 {
		return fmt.Errorf("%w: points cannot be negative", ErrSettingsInvalid)
	}
	for _, tb := range s.Tiebreaks {
		switch tb {
		case TiebreakPoints, TiebreakWins, TiebreakGoalDifference, TiebreakGoalsScored, TiebreakHeadToHead:
		default:
			return fmt.Errorf("%w: unknown tiebreaker %q", ErrSettingsInvalid, tb)
		}
	}
	if s.KnockoutLegs != LegsSingle && s.KnockoutLegs != LegsHomeAway {
		return fmt.Errorf("%w: unknown knockout leg mode %q", ErrSettingsInvalid, s.KnockoutLegs)
	}
	if s.GroupCount < 0 || s.QualifiersPerGroup < 0 || s.BestOfPosition < 0 || s.BestOfCount < 0 {
		return fmt.Errorf("%w: qualification parameters cannot be negative", ErrSettingsInvalid)
	}
	return nil
}
