package brackets

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-organizer/models"
)

// stamp gives generated matches stable ids, continuing after existing.
func stamp(existing, created []*models.Match) []*models.Match {
	for i, m := range created {
		m.ID = fmt.Sprintf("m%d", len(existing)+i+1)
	}
	return append(existing, created...)
}

func play(m *models.Match, home, away int) {
	m.HomeScore, m.AwayScore, m.Played = home, away, true
}

func knockoutSettings() models.Settings {
	s := models.DefaultSettings()
	s.StartingStage = "1/8"
	s.ThirdPlaceMatch = true
	return s
}

func TestStageHelpers(t *testing.T) {
	assert.Equal(t, 2, StageCapacity(StageFinal))
	assert.Equal(t, 4, StageCapacity(StageSemifinal))
	assert.Equal(t, 16, StageCapacity("1/8"))
	assert.Equal(t, 128, StageCapacity("1/64"))
	assert.Zero(t, StageCapacity(StageThirdPlace))

	assert.Equal(t, "1/4", StageForSize(8))
	assert.Empty(t, StageForSize(6))

	next, ok := NextStage(StageSemifinal)
	assert.True(t, ok)
	assert.Equal(t, StageFinal, next)
	_, ok = NextStage(StageFinal)
	assert.False(t, ok)

	assert.Equal(t, []string{"1/4", "1/2", "final"}, StageSequence("1/4"))
	assert.True(t, IsValidStage("1/16"))
	assert.False(t, IsValidStage(StageThirdPlace))
}

func TestResolveTie_SingleLeg(t *testing.T) {
	s := models.DefaultSettings()
	m := &models.Match{ID: "m1", Kind: models.MatchKindKnockout, Stage: StageFinal, HomeTeamID: "a", AwayTeamID: "b"}
	tie := Ties([]*models.Match{m}, StageFinal)[0]

	_, ok := ResolveTie(tie, s)
	assert.False(t, ok, "unplayed tie is undetermined")

	play(m, 1, 1)
	_, ok = ResolveTie(tie, s)
	assert.False(t, ok, "a level tie without penalties is undetermined")

	m.ExtraTime = &models.Score{Home: 0, Away: 1}
	winner, ok := ResolveTie(tie, s)
	require.True(t, ok)
	assert.Equal(t, "b", winner)

	m.ExtraTime = &models.Score{}
	m.Penalties = &models.Score{Home: 5, Away: 3}
	winner, ok = ResolveTie(tie, s)
	require.True(t, ok)
	assert.Equal(t, "a", winner)
	assert.Equal(t, "b", tie.Loser(winner))
}

func twoLegTie(s models.Settings) ([]*models.Match, Tie) {
	legs := newTie(StageSemifinal, models.MatchKindKnockout, 1, 1, "a", "b", models.LegsHomeAway)
	legs[0].ID, legs[1].ID = "leg1", "leg2"
	// Second leg listed first: ordering comes from the leg number.
	matches := []*models.Match{legs[1], legs[0]}
	return matches, Ties(matches, StageSemifinal)[0]
}

func TestResolveTie_TwoLegs(t *testing.T) {
	s := models.DefaultSettings()
	s.KnockoutLegs = models.LegsHomeAway

	t.Run("aggregate", func(t *testing.T) {
		matches, tie := twoLegTie(s)
		require.Len(t, tie.Legs, 2)
		assert.Equal(t, "a", tie.HomeTeamID)
		assert.Equal(t, "leg1", tie.Legs[0].ID)

		play(matches[1], 3, 1) // a 3-1 b
		_, ok := ResolveTie(tie, s)
		assert.False(t, ok, "second leg still to play")

		play(matches[0], 1, 0) // b 1-0 a
		home, away := tie.Aggregate()
		assert.Equal(t, 3, home)
		assert.Equal(t, 2, away)
		winner, ok := ResolveTie(tie, s)
		require.True(t, ok)
		assert.Equal(t, "a", winner)
	})

	t.Run("away goals", func(t *testing.T) {
		s := s
		s.AwayGoals = true
		matches, tie := twoLegTie(s)
		play(matches[1], 2, 1) // a 2-1 b
		play(matches[0], 1, 0) // b 1-0 a, 2-2 on aggregate, b scored once away

		winner, ok := ResolveTie(tie, s)
		require.True(t, ok)
		assert.Equal(t, "b", winner)
	})

	t.Run("away goals in extra time", func(t *testing.T) {
		s := s
		s.AwayGoals = true
		matches, tie := twoLegTie(s)
		play(matches[1], 1, 0) // a 1-0 b
		play(matches[0], 1, 0) // b 1-0 a
		matches[0].ExtraTime = &models.Score{Home: 1, Away: 1}

		winner, ok := ResolveTie(tie, s)
		require.True(t, ok)
		assert.Equal(t, "a", winner)
	})

	t.Run("penalties without away goals", func(t *testing.T) {
		matches, tie := twoLegTie(s)
		play(matches[1], 2, 1)
		play(matches[0], 1, 0)
		_, ok := ResolveTie(tie, s)
		assert.False(t, ok)

		matches[0].Penalties = &models.Score{Home: 3, Away: 4}
		winner, ok := ResolveTie(tie, s)
		require.True(t, ok)
		assert.Equal(t, "a", winner)
	})
}

func TestResolveTie_Bye(t *testing.T) {
	m := &models.Match{ID: "m1", Kind: models.MatchKindKnockout, Stage: "1/4", HomeTeamID: "a", HomeScore: 1, Played: true}
	tie := Ties([]*models.Match{m}, "1/4")[0]

	assert.True(t, tie.IsBye())
	winner, ok := ResolveTie(tie, models.DefaultSettings())
	require.True(t, ok)
	assert.Equal(t, "a", winner)
	assert.Empty(t, tie.Loser(winner))
}

func TestAdvance_FourTeams(t *testing.T) {
	s := knockoutSettings()
	matches := stamp(nil, Seed([]string{"a", "b", "c", "d"}, s))
	require.Len(t, matches, 2)
	assert.Equal(t, StageSemifinal, CurrentStage(matches))

	assert.Nil(t, Advance(matches, StageSemifinal, s), "unresolved stage yields nothing")

	play(matches[0], 2, 0) // a v d
	play(matches[1], 1, 1) // b v c
	matches[1].Penalties = &models.Score{Home: 5, Away: 4}

	created := Advance(matches, StageSemifinal, s)
	require.Len(t, created, 2)
	final, third := created[0], created[1]
	assert.Equal(t, StageFinal, final.Stage)
	assert.Equal(t, models.MatchKindKnockout, final.Kind)
	assert.Equal(t, "a", final.HomeTeamID)
	assert.Equal(t, "b", final.AwayTeamID)
	assert.Equal(t, 2, final.Round)
	assert.Equal(t, StageThirdPlace, third.Stage)
	assert.Equal(t, models.MatchKindThirdPlace, third.Kind)
	assert.Equal(t, "d", third.HomeTeamID)
	assert.Equal(t, "c", third.AwayTeamID)

	matches = stamp(matches, created)
	assert.Nil(t, Advance(matches, StageSemifinal, s), "advancing twice creates nothing")
	assert.Equal(t, StageFinal, CurrentStage(matches))

	_, ok := Champion(matches, s)
	assert.False(t, ok)

	play(matches[2], 0, 1)
	champion, ok := Champion(matches, s)
	require.True(t, ok)
	assert.Equal(t, "b", champion)
	assert.Nil(t, Advance(matches, StageFinal, s), "nothing follows the final")

	view := Bracket(matches, s)
	require.Len(t, view, 3)
	assert.Equal(t, []string{StageSemifinal, StageFinal, StageThirdPlace},
		[]string{view[0].Stage, view[1].Stage, view[2].Stage})
	assert.True(t, view[0].Resolved)
	assert.True(t, view[1].Resolved)
	assert.False(t, view[2].Resolved)
	assert.Equal(t, "b", view[1].Ties[0].WinnerID)
	assert.Equal(t, 2, view[0].Ties[0].HomeAggregate)
}

func TestAdvance_NoThirdPlace(t *testing.T) {
	s := knockoutSettings()
	s.ThirdPlaceMatch = false
	matches := stamp(nil, Seed([]string{"a", "b", "c", "d"}, s))
	play(matches[0], 1, 0)
	play(matches[1], 0, 1)

	created := Advance(matches, StageSemifinal, s)
	require.Len(t, created, 1)
	assert.Equal(t, "a", created[0].HomeTeamID)
	assert.Equal(t, "c", created[0].AwayTeamID)
}

func TestAdvance_TwoLegsWithSingleLegFinal(t *testing.T) {
	s := knockoutSettings()
	s.KnockoutLegs = models.LegsHomeAway
	s.FinalSingleLeg = true
	s.ThirdPlaceMatch = false

	matches := stamp(nil, Seed([]string{"a", "b", "c", "d"}, s))
	require.Len(t, matches, 4)
	for _, m := range matches {
		require.NotNil(t, m.Tie)
		assert.Equal(t, m.Tie.Leg, m.Round, "the return leg is played a round later")
		play(m, 1, 0)
	}
	// Each tie is 1-1 on aggregate: settle it on penalties in the second leg.
	for _, tie := range Ties(matches, StageSemifinal) {
		tie.Legs[1].Penalties = &models.Score{Home: 4, Away: 2}
	}

	created := Advance(matches, StageSemifinal, s)
	require.Len(t, created, 1)
	assert.Nil(t, created[0].Tie)
	assert.Equal(t, 3, created[0].Round, "the final follows both legs")
	assert.Equal(t, "d", created[0].HomeTeamID)
	assert.Equal(t, "c", created[0].AwayTeamID)
}

func TestCurrentStage_Empty(t *testing.T) {
	assert.Empty(t, CurrentStage(nil))
	assert.Empty(t, CurrentStage([]*models.Match{{ID: "x", Kind: models.MatchKindLeague, HomeTeamID: "a", AwayTeamID: "b"}}))
}
