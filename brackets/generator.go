package brackets

import (
	"fmt"

	"github.com/Dosada05/tournament-organizer/models"
)

type GenerateParams struct {
	TeamIDs  []string
	Groups   [][]string
	Settings models.Settings
	// Existing matches of the tournament; only the Swiss generator looks at them.
	Existing []*models.Match
}

// FixtureGenerator produces the opening matches of a tournament format.
// Generators never fail: not enough teams yields an empty slice.
type FixtureGenerator interface {
	Generate(params GenerateParams) []*models.Match

	Name() string
}

// NewGenerator picks the generator for a tournament format.
func NewGenerator(format models.TournamentFormat) (FixtureGenerator, error) {
	switch format {
	case models.FormatLeague:
		return NewRoundRobinGenerator(), nil
	case models.FormatGroupsKnockout:
		return NewGroupStageGenerator(), nil
	case models.FormatKnockout:
		return NewKnockoutGenerator(), nil
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported tournament format '%s'", format)
	}
}
