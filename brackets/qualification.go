package brackets

import (
	"cmp"
	"slices"

	"github.com/Dosada05/tournament-organizer/models"
)

// Qualifier is a team leaving the group stage with its seeding key.
type Qualifier struct {
	TeamID   string `json:"team_id"`
	Group    int    `json:"group"`
	Position int    `json:"position"`
	Wildcard bool   `json:"wildcard,omitempty"`
}

// WildcardSelector picks extra qualifiers among the teams that did not get a
// direct slot.
type WildcardSelector interface {
	Select(tables [][]models.StandingRow, direct int, s models.Settings) []Qualifier
}

// BestOfPositionSelector takes the BestOfCount best teams among those that
// finished at BestOfPosition in their group, ranked by points, goal difference
// and goals scored. Positions already covered by direct slots are ignored.
type BestOfPositionSelector struct{}

func (BestOfPositionSelector) Select(tables [][]models.StandingRow, direct int, s models.Settings) []Qualifier {
	if s.BestOfPosition <= direct || s.BestOfCount <= 0 {
		return nil
	}
	var candidates []Qualifier
	rows := make(map[string]models.StandingRow)
	for g, table := range tables {
		if s.BestOfPosition > len(table) {
			continue
		}
		row := table[s.BestOfPosition-1]
		rows[row.TeamID] = row
		candidates = append(candidates, Qualifier{
			TeamID:   row.TeamID,
			Group:    g + 1,
			Position: s.BestOfPosition,
			Wildcard: true,
		})
	}
	slices.SortStableFunc(candidates, func(a, b Qualifier) int {
		ra, rb := rows[a.TeamID], rows[b.TeamID]
		return cmp.Or(
			cmp.Compare(rb.Points, ra.Points),
			cmp.Compare(rb.GoalDifference, ra.GoalDifference),
			cmp.Compare(rb.GoalsFor, ra.GoalsFor),
		)
	})
	if len(candidates) > s.BestOfCount {
		candidates = candidates[:s.BestOfCount]
	}
	return candidates
}

// DefaultQualifiers computes the qualifying field from ranked group tables.
// Each group sends QualifiersPerGroup teams, or ceil(target/groups) when that
// is unset, plus whatever the selector adds. The result is in seed order and
// never longer than target.
func DefaultQualifiers(tables [][]models.StandingRow, target int, s models.Settings, selector WildcardSelector) []Qualifier {
	if len(tables) == 0 || target <= 0 {
		return nil
	}
	perGroup := s.QualifiersPerGroup
	if perGroup <= 0 {
		perGroup = (target + len(tables) - 1) / len(tables)
	}

	var qualifiers []Qualifier
	for g, table := range tables {
		for i, row := range table {
			if i >= perGroup {
				break
			}
			qualifiers = append(qualifiers, Qualifier{TeamID: row.TeamID, Group: g + 1, Position: i + 1})
		}
	}
	if selector != nil {
		qualifiers = append(qualifiers, selector.Select(tables, perGroup, s)...)
	}

	slices.SortStableFunc(qualifiers, compareQualifiers)
	if len(qualifiers) > target {
		qualifiers = qualifiers[:target]
	}
	return qualifiers
}

// Resolve returns the qualifying team ids: the confirmed list verbatim once
// qualification is confirmed, otherwise the live default.
func Resolve(s models.Settings, tables [][]models.StandingRow, target int) []string {
	if s.QualificationConfirmed {
		return slices.Clone(s.ConfirmedQualifiers)
	}
	qualifiers := DefaultQualifiers(tables, target, s, BestOfPositionSelector{})
	ids := make([]string, 0, len(qualifiers))
	for _, q := range qualifiers {
		ids = append(ids, q.TeamID)
	}
	return ids
}

// SeedOrder sorts ids by (group position, group number). Ids that do not
// appear in any table go last in their input order.
func SeedOrder(teamIDs []string, tables [][]models.StandingRow) []string {
	keys := make(map[string]Qualifier)
	for g, table := range tables {
		for _, row := range table {
			keys[row.TeamID] = Qualifier{TeamID: row.TeamID, Group: g + 1, Position: row.Position}
		}
	}
	ordered := slices.Clone(teamIDs)
	slices.SortStableFunc(ordered, func(a, b string) int {
		qa, okA := keys[a]
		qb, okB := keys[b]
		switch {
		case okA && okB:
			return compareQualifiers(qa, qb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return ordered
}

// TargetSize is the knockout field entering the starting stage.
func TargetSize(s models.Settings) int {
	return StageCapacity(s.StartingStage)
}

func compareQualifiers(a, b Qualifier) int {
	return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.Group, b.Group))
}
