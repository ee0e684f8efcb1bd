package brackets

import (
	"github.com/Dosada05/tournament-organizer/models"
)

type GroupStageGenerator struct{}

func NewGroupStageGenerator() FixtureGenerator {
	return &GroupStageGenerator{}
}

func (g *GroupStageGenerator) Name() string {
	return "GroupStage"
}

func (g *GroupStageGenerator) Generate(params GenerateParams) []*models.Match {
	groups := params.Groups
	if len(groups) == 0 {
		groups = DrawGroups(params.TeamIDs, params.Settings.GroupCount)
	}
	return GroupStage(groups, params.Settings.Turns)
}

// GroupStage runs an independent round robin inside every group. Group numbers
// are 1-based; groups share round numbers so matchdays line up.
func GroupStage(groups [][]string, turns int) []*models.Match {
	var matches []*models.Match
	for g, teamIDs := range groups {
		for _, m := range RoundRobin(teamIDs, turns) {
			m.Kind = models.MatchKindGroup
			m.Group = g + 1
			matches = append(matches, m)
		}
	}
	return matches
}

// DrawGroups distributes teams in seed order over groupCount groups, snaking
// back on every pass (1-2-3-4-4-3-2-1...) so pot strength is balanced.
func DrawGroups(teamIDs []string, groupCount int) [][]string {
	if groupCount <= 0 || len(teamIDs) == 0 {
		return nil
	}
	groupCount = min(groupCount, len(teamIDs))
	groups := make([][]string, groupCount)
	for i, id := range teamIDs {
		pass, idx := i/groupCount, i%groupCount
		if pass%2 == 1 {
			idx = groupCount - 1 - idx
		}
		groups[idx] = append(groups[idx], id)
	}
	return groups
}
