package brackets

import (
	"github.com/Dosada05/tournament-organizer/models"
)

type KnockoutGenerator struct{}

func NewKnockoutGenerator() FixtureGenerator {
	return &KnockoutGenerator{}
}

func (g *KnockoutGenerator) Name() string {
	return "Knockout"
}

func (g *KnockoutGenerator) Generate(params GenerateParams) []*models.Match {
	return Seed(params.TeamIDs, params.Settings)
}

// Seed builds the opening knockout stage from ids in seed order.
//
// The bracket is padded with empty slots to the next power of two, bounded by
// the capacity of the configured starting stage (ids beyond it are dropped from
// the bottom). Slot i meets slot size-1-i. A pairing with one real team is a bye:
// a single played match won 1-0 by the present team. Rounds start at 1.
func Seed(teamIDs []string, s models.Settings) []*models.Match {
	if len(teamIDs) < 2 {
		return nil
	}
	size := nextPow2(len(teamIDs))
	if limit := StageCapacity(s.StartingStage); limit > 0 && size > limit {
		size = limit
	}
	stage := StageForSize(size)
	if stage == "" {
		return nil
	}

	slots := make([]string, size)
	copy(slots, teamIDs)

	mode := legModeFor(stage, s)
	var matches []*models.Match
	for i := 0; i < size/2; i++ {
		home, away := slots[i], slots[size-1-i]
		switch {
		case home == "" && away == "":
			continue
		case home == "" || away == "":
			present := home
			if present == "" {
				present = away
			}
			matches = append(matches, &models.Match{
				Kind:       models.MatchKindKnockout,
				Stage:      stage,
				Round:      1,
				HomeTeamID: present,
				HomeScore:  1,
				Played:     true,
			})
		default:
			matches = append(matches, newTie(stage, models.MatchKindKnockout, i+1, 1, home, away, mode)...)
		}
	}
	return matches
}

// ShiftRounds moves generated matches after the rounds already played.
func ShiftRounds(matches []*models.Match, offset int) {
	for _, m := range matches {
		m.Round += offset
	}
}

// MaxRound returns the highest round number among matches.
func MaxRound(matches []*models.Match) int {
	round := 0
	for _, m := range matches {
		round = max(round, m.Round)
	}
	return round
}

func nextPow2(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}
