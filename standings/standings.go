// Package standings folds match results into ranked league and group tables.
package standings

import (
	"cmp"
	"slices"

	"github.com/Dosada05/tournament-organizer/models"
)

// Calculate builds the table for teamIDs from matches.
//
// Only played matches count and matches involving a team outside teamIDs are
// skipped, so byes never reach the table. Outcomes come from the regulation
// score alone. Rows are ranked by s.Tiebreaks in order with a stable sort, so an
// empty list keeps the input order. Positions are 1-based.
func Calculate(teamIDs []string, matches []*models.Match, s models.Settings) []models.StandingRow {
	rows := make([]models.StandingRow, len(teamIDs))
	index := make(map[string]int, len(teamIDs))
	for i, id := range teamIDs {
		rows[i].TeamID = id
		index[id] = i
	}

	// headToHead[a][b] counts a's wins over b.
	headToHead := make(map[string]map[string]int)

	for _, m := range matches {
		if m == nil || !m.Played {
			continue
		}
		hi, okHome := index[m.HomeTeamID]
		ai, okAway := index[m.AwayTeamID]
		if !okHome || !okAway || hi == ai {
			continue
		}
		home, away := &rows[hi], &rows[ai]

		home.Played++
		away.Played++
		home.GoalsFor += m.HomeScore
		home.GoalsAgainst += m.AwayScore
		away.GoalsFor += m.AwayScore
		away.GoalsAgainst += m.HomeScore

		switch {
		case m.HomeScore > m.AwayScore:
			home.Wins++
			away.Losses++
			home.Points += s.PointsWin
			away.Points += s.PointsLoss
			addWin(headToHead, m.HomeTeamID, m.AwayTeamID)
		case m.HomeScore < m.AwayScore:
			away.Wins++
			home.Losses++
			away.Points += s.PointsWin
			home.Points += s.PointsLoss
			addWin(headToHead, m.AwayTeamID, m.HomeTeamID)
		default:
			home.Draws++
			away.Draws++
			home.Points += s.PointsDraw
			away.Points += s.PointsDraw
		}
	}

	for i := range rows {
		rows[i].GoalDifference = rows[i].GoalsFor - rows[i].GoalsAgainst
	}

	slices.SortStableFunc(rows, func(a, b models.StandingRow) int {
		for _, tb := range s.Tiebreaks {
			if c := compareBy(tb, a, b, headToHead); c != 0 {
				return c
			}
		}
		return 0
	})

	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}

func addWin(h2h map[string]map[string]int, winner, loser string) {
	if h2h[winner] == nil {
		h2h[winner] = make(map[string]int)
	}
	h2h[winner][loser]++
}

// compareBy orders a before b (negative) when a ranks higher on tb.
func compareBy(tb models.Tiebreaker, a, b models.StandingRow, h2h map[string]map[string]int) int {
	switch tb {
	case models.TiebreakPoints:
		return cmp.Compare(b.Points, a.Points)
	case models.TiebreakWins:
		return cmp.Compare(b.Wins, a.Wins)
	case models.TiebreakGoalDifference:
		return cmp.Compare(b.GoalDifference, a.GoalDifference)
	case models.TiebreakGoalsScored:
		return cmp.Compare(b.GoalsFor, a.GoalsFor)
	case models.TiebreakHeadToHead:
		return cmp.Compare(h2h[b.TeamID][a.TeamID], h2h[a.TeamID][b.TeamID])
	}
	return 0
}

// ForGroup returns the group-stage matches of one group.
func ForGroup(matches []*models.Match, group int) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Kind == models.MatchKindGroup && m.Group == group {
			out = append(out, m)
		}
	}
	return out
}

// LeagueMatches returns the matches that feed a league table.
func LeagueMatches(matches []*models.Match) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Kind == models.MatchKindLeague {
			out = append(out, m)
		}
	}
	return out
}

// GroupTables calculates one table per group, group 1 first.
func GroupTables(groups [][]string, matches []*models.Match, s models.Settings) [][]models.StandingRow {
	tables := make([][]models.StandingRow, 0, len(groups))
	for g, teamIDs := range groups {
		tables = append(tables, Calculate(teamIDs, ForGroup(matches, g+1), s))
	}
	return tables
}
