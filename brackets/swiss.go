package brackets

import (
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/standings"
)

type SwissGenerator struct{}

func NewSwissGenerator() FixtureGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) Name() string {
	return "Swiss"
}

// Generate produces the next Swiss round from the matches already played.
// Nothing is produced while the latest round is unfinished.
func (g *SwissGenerator) Generate(params GenerateParams) []*models.Match {
	for _, m := range params.Existing {
		if !m.Played {
			return nil
		}
	}
	table := standings.Calculate(params.TeamIDs, params.Existing, params.Settings)
	return SwissRound(table, params.Existing)
}

// SwissRound pairs teams in table order, each with the highest-ranked opponent
// it has not met yet (a rematch only when nothing else is left). With an odd
// count the lowest-ranked team without a previous bye sits out and gets a
// played bye match, which earns no points.
func SwissRound(table []models.StandingRow, played []*models.Match) []*models.Match {
	if len(table) < 2 {
		return nil
	}
	round := MaxRound(played) + 1

	met := make(map[string]map[string]bool)
	hadBye := make(map[string]bool)
	for _, m := range played {
		if m.IsBye() {
			hadBye[m.HomeTeamID+m.AwayTeamID] = true
			continue
		}
		markMet(met, m.HomeTeamID, m.AwayTeamID)
		markMet(met, m.AwayTeamID, m.HomeTeamID)
	}

	ranked := make([]string, 0, len(table))
	for _, row := range table {
		ranked = append(ranked, row.TeamID)
	}

	var matches []*models.Match
	if len(ranked)%2 == 1 {
		byeIdx := len(ranked) - 1
		for i := len(ranked) - 1; i >= 0; i-- {
			if !hadBye[ranked[i]] {
				byeIdx = i
				break
			}
		}
		matches = append(matches, &models.Match{
			Kind:       models.MatchKindLeague,
			Round:      round,
			HomeTeamID: ranked[byeIdx],
			Played:     true,
		})
		ranked = append(ranked[:byeIdx:byeIdx], ranked[byeIdx+1:]...)
	}

	paired := make([]bool, len(ranked))
	for i, home := range ranked {
		if paired[i] {
			continue
		}
		opponent := -1
		for j := i + 1; j < len(ranked); j++ {
			if paired[j] {
				continue
			}
			if opponent < 0 {
				opponent = j
			}
			if !met[home][ranked[j]] {
				opponent = j
				break
			}
		}
		if opponent < 0 {
			break
		}
		paired[i], paired[opponent] = true, true
		matches = append(matches, &models.Match{
			Kind:       models.MatchKindLeague,
			Round:      round,
			HomeTeamID: home,
			AwayTeamID: ranked[opponent],
		})
	}
	return matches
}

func markMet(met map[string]map[string]bool, a, b string) {
	if met[a] == nil {
		met[a] = make(map[string]bool)
	}
	met[a][b] = true
}
