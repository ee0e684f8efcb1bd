package brackets

import (
	"slices"

	"github.com/Dosada05/tournament-organizer/models"
)

// byeSlot fills the circle when the team count is odd.
const byeSlot = ""

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() FixtureGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Name() string {
	return "RoundRobin"
}

func (g *RoundRobinGenerator) Generate(params GenerateParams) []*models.Match {
	return RoundRobin(params.TeamIDs, params.Settings.Turns)
}

// RoundRobin builds a league schedule with the circle method.
//
// Slot 0 stays fixed while the other slots rotate clockwise, and round r pairs
// slot i with slot n-1-i. Pairings against the bye slot are dropped. Every turn
// repeats the first turn's pairings with rounds shifted by (t-1)*(n-1); even
// turns swap home and away. Inside a turn the fixed slot changes venue on odd
// rounds so it is not at home every week.
func RoundRobin(teamIDs []string, turns int) []*models.Match {
	if len(teamIDs) < 2 {
		return nil
	}
	turns = max(models.MinTurns, min(turns, models.MaxTurns))

	slots := slices.Clone(teamIDs)
	if len(slots)%2 == 1 {
		slots = append(slots, byeSlot)
	}
	n := len(slots)
	roundsPerTurn := n - 1

	firstTurn := make([]*models.Match, 0, roundsPerTurn*n/2)
	for r := 0; r < roundsPerTurn; r++ {
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == byeSlot || away == byeSlot {
				continue
			}
			if i == 0 && r%2 == 1 {
				home, away = away, home
			}
			firstTurn = append(firstTurn, &models.Match{
				Kind:       models.MatchKindLeague,
				Round:      r + 1,
				HomeTeamID: home,
				AwayTeamID: away,
			})
		}

		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	matches := make([]*models.Match, 0, len(firstTurn)*turns)
	for t := 1; t <= turns; t++ {
		for _, p := range firstTurn {
			m := &models.Match{
				Kind:       models.MatchKindLeague,
				Round:      p.Round + (t-1)*roundsPerTurn,
				HomeTeamID: p.HomeTeamID,
				AwayTeamID: p.AwayTeamID,
			}
			if t%2 == 0 {
				m.HomeTeamID, m.AwayTeamID = m.AwayTeamID, m.HomeTeamID
			}
			matches = append(matches, m)
		}
	}
	return matches
}
