package brackets

import (
	"fmt"
	"slices"

	"github.com/Dosada05/tournament-organizer/models"
)

const (
	StageFinal      = "final"
	StageSemifinal  = "1/2"
	StageThirdPlace = "3rd"
)

// stageOrder lists knockout stages from the widest to the final.
var stageOrder = []string{"1/64", "1/32", "1/16", "1/8", "1/4", StageSemifinal, StageFinal}

// IsValidStage reports whether stage is a bracket stage label.
func IsValidStage(stage string) bool {
	return slices.Contains(stageOrder, stage)
}

// StageCapacity is the number of teams entering a stage (final = 2, 1/2 = 4, ...).
func StageCapacity(stage string) int {
	idx := slices.Index(stageOrder, stage)
	if idx < 0 {
		return 0
	}
	return 2 << (len(stageOrder) - 1 - idx)
}

// StageForSize returns the stage whose capacity equals size, or "" if none does.
func StageForSize(size int) string {
	for _, stage := range stageOrder {
		if StageCapacity(stage) == size {
			return stage
		}
	}
	return ""
}

// NextStage returns the stage played after stage.
func NextStage(stage string) (string, bool) {
	idx := slices.Index(stageOrder, stage)
	if idx < 0 || idx == len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[idx+1], true
}

// StageSequence returns the stages from start down to the final.
func StageSequence(start string) []string {
	idx := slices.Index(stageOrder, start)
	if idx < 0 {
		return nil
	}
	return slices.Clone(stageOrder[idx:])
}

// Tie is the pairing of one or two legs between the same two teams.
// HomeTeamID is the home side of the first leg.
type Tie struct {
	PairID     string          `json:"pair_id"`
	Stage      string          `json:"stage"`
	HomeTeamID string          `json:"home_team_id"`
	AwayTeamID string          `json:"away_team_id"`
	Legs       []*models.Match `json:"legs"`
}

// IsBye reports whether the tie has only one real team.
func (t Tie) IsBye() bool {
	return (t.HomeTeamID == "") != (t.AwayTeamID == "")
}

// Played reports whether every leg has a result.
func (t Tie) Played() bool {
	for _, leg := range t.Legs {
		if !leg.Played {
			return false
		}
	}
	return len(t.Legs) > 0
}

// Aggregate returns goals (regulation plus extra time) of the tie's home and
// away sides summed over the legs, attributing each leg's goals to the right side.
func (t Tie) Aggregate() (home, away int) {
	for _, leg := range t.Legs {
		if leg.HomeTeamID == t.HomeTeamID {
			home += leg.HomeTotal()
			away += leg.AwayTotal()
		} else {
			home += leg.AwayTotal()
			away += leg.HomeTotal()
		}
	}
	return home, away
}

// Loser returns the side that did not win, "" if there is none.
func (t Tie) Loser(winnerID string) string {
	switch winnerID {
	case t.HomeTeamID:
		return t.AwayTeamID
	case t.AwayTeamID:
		return t.HomeTeamID
	}
	return ""
}

// Ties groups the knockout matches of one stage into ties, in the order their
// first leg appears.
func Ties(matches []*models.Match, stage string) []Tie {
	var ties []Tie
	index := make(map[string]int)
	for i, m := range matches {
		if m == nil || !m.IsKnockout() || m.Stage != stage {
			continue
		}
		key := tieKey(m, i)
		if pos, ok := index[key]; ok {
			ties[pos].Legs = append(ties[pos].Legs, m)
			continue
		}
		index[key] = len(ties)
		ties = append(ties, Tie{PairID: key, Stage: stage, Legs: []*models.Match{m}})
	}
	for i := range ties {
		slices.SortStableFunc(ties[i].Legs, func(a, b *models.Match) int {
			return legNumber(a) - legNumber(b)
		})
		first := ties[i].Legs[0]
		ties[i].HomeTeamID = first.HomeTeamID
		ties[i].AwayTeamID = first.AwayTeamID
	}
	return ties
}

func tieKey(m *models.Match, position int) string {
	if m.Tie != nil {
		return m.Tie.PairID
	}
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("match#%d", position)
}

func legNumber(m *models.Match) int {
	if m.Tie == nil {
		return 1
	}
	return m.Tie.Leg
}

// ResolveTie decides the winner of a tie from its recorded results.
//
// Single leg: regulation plus extra time, then penalties. Two legs: aggregate,
// then away goals (extra-time goals count as away goals) when enabled, then the
// second leg's penalties. A tie with one empty slot goes to the present team.
// Anything else is undetermined, which is a normal state, not an error.
func ResolveTie(t Tie, s models.Settings) (string, bool) {
	if len(t.Legs) == 0 || (t.HomeTeamID == "" && t.AwayTeamID == "") {
		return "", false
	}
	if t.HomeTeamID == "" {
		return t.AwayTeamID, true
	}
	if t.AwayTeamID == "" {
		return t.HomeTeamID, true
	}
	if !t.Played() {
		return "", false
	}

	if len(t.Legs) == 1 {
		m := t.Legs[0]
		if winner, ok := compare(m.HomeTotal(), m.AwayTotal(), m.HomeTeamID, m.AwayTeamID); ok {
			return winner, true
		}
		return penaltyWinner(m)
	}

	first, second := t.Legs[0], t.Legs[1]
	home, away := t.Aggregate()
	if winner, ok := compare(home, away, t.HomeTeamID, t.AwayTeamID); ok {
		return winner, true
	}
	if s.AwayGoals {
		// Each side's goals scored while travelling.
		homeAway, awayAway := second.AwayTotal(), first.AwayTotal()
		if second.HomeTeamID == t.HomeTeamID {
			homeAway, awayAway = first.AwayTotal(), second.AwayTotal()
		}
		if winner, ok := compare(homeAway, awayAway, t.HomeTeamID, t.AwayTeamID); ok {
			return winner, true
		}
	}
	return penaltyWinner(second)
}

func compare(home, away int, homeID, awayID string) (string, bool) {
	switch {
	case home > away:
		return homeID, true
	case away > home:
		return awayID, true
	}
	return "", false
}

func penaltyWinner(m *models.Match) (string, bool) {
	if m.Penalties == nil {
		return "", false
	}
	return compare(m.Penalties.Home, m.Penalties.Away, m.HomeTeamID, m.AwayTeamID)
}

// StageResolved reports whether every tie of a non-empty stage has a winner.
func StageResolved(ties []Tie, s models.Settings) bool {
	if len(ties) == 0 {
		return false
	}
	for _, t := range ties {
		if _, ok := ResolveTie(t, s); !ok {
			return false
		}
	}
	return true
}

// Advance builds the next stage from a fully resolved stage. Winners are paired
// in tie order (0 v 1, 2 v 3, ...). Leaving the semifinal it also creates the
// third-place tie when enabled. It returns nil when the stage is unresolved or
// everything it would create already exists, so calling it twice is harmless.
func Advance(matches []*models.Match, stage string, s models.Settings) []*models.Match {
	ties := Ties(matches, stage)
	if !StageResolved(ties, s) {
		return nil
	}

	winners := make([]string, 0, len(ties))
	losers := make([]string, 0, len(ties))
	round := 0
	for _, t := range ties {
		w, _ := ResolveTie(t, s)
		winners = append(winners, w)
		losers = append(losers, t.Loser(w))
		for _, leg := range t.Legs {
			round = max(round, leg.Round)
		}
	}
	round++

	next, ok := NextStage(stage)
	if !ok {
		return nil
	}
	mode := legModeFor(next, s)

	var created []*models.Match
	if len(Ties(matches, next)) == 0 {
		for i := 0; i+1 < len(winners); i += 2 {
			created = append(created, newTie(next, models.MatchKindKnockout, i/2+1, round, winners[i], winners[i+1], mode)...)
		}
	}

	if stage == StageSemifinal && s.ThirdPlaceMatch && len(ties) == 2 &&
		losers[0] != "" && losers[1] != "" && len(Ties(matches, StageThirdPlace)) == 0 {
		created = append(created, newTie(StageThirdPlace, models.MatchKindThirdPlace, 1, round, losers[0], losers[1], mode)...)
	}

	if len(created) == 0 {
		return nil
	}
	return created
}

func legModeFor(stage string, s models.Settings) models.LegMode {
	if stage == StageFinal && s.FinalSingleLeg {
		return models.LegsSingle
	}
	if s.KnockoutLegs == "" {
		return models.LegsSingle
	}
	return s.KnockoutLegs
}

// newTie creates one match, or two legs with the return leg a round later.
func newTie(stage string, kind models.MatchKind, index, round int, home, away string, mode models.LegMode) []*models.Match {
	if mode != models.LegsHomeAway {
		return []*models.Match{{
			Kind:       kind,
			Stage:      stage,
			Round:      round,
			HomeTeamID: home,
			AwayTeamID: away,
		}}
	}
	pairID := fmt.Sprintf("%s#%d", stage, index)
	return []*models.Match{
		{
			Kind:       kind,
			Stage:      stage,
			Round:      round,
			Tie:        &models.TieLeg{PairID: pairID, Leg: 1},
			HomeTeamID: home,
			AwayTeamID: away,
		},
		{
			Kind:       kind,
			Stage:      stage,
			Round:      round + 1,
			Tie:        &models.TieLeg{PairID: pairID, Leg: 2},
			HomeTeamID: away,
			AwayTeamID: home,
		},
	}
}

// CurrentStage returns the latest bracket stage that has matches, "" if none.
func CurrentStage(matches []*models.Match) string {
	current := ""
	for _, stage := range stageOrder {
		if len(Ties(matches, stage)) > 0 {
			current = stage
		}
	}
	return current
}

// Champion returns the winner of the final once it is decided.
func Champion(matches []*models.Match, s models.Settings) (string, bool) {
	ties := Ties(matches, StageFinal)
	if len(ties) != 1 {
		return "", false
	}
	return ResolveTie(ties[0], s)
}

// TieView is a display-ready tie.
type TieView struct {
	Tie
	HomeAggregate int    `json:"home_aggregate"`
	AwayAggregate int    `json:"away_aggregate"`
	WinnerID      string `json:"winner_id,omitempty"`
}

// StageView is one column of the bracket.
type StageView struct {
	Stage    string    `json:"stage"`
	Ties     []TieView `json:"ties"`
	Resolved bool      `json:"resolved"`
}

// Bracket lays out every stage that has matches, third place last.
func Bracket(matches []*models.Match, s models.Settings) []StageView {
	stages := append(slices.Clone(stageOrder), StageThirdPlace)
	var views []StageView
	for _, stage := range stages {
		ties := Ties(matches, stage)
		if len(ties) == 0 {
			continue
		}
		view := StageView{Stage: stage, Resolved: StageResolved(ties, s)}
		for _, t := range ties {
			home, away := t.Aggregate()
			winner, _ := ResolveTie(t, s)
			view.Ties = append(view.Ties, TieView{Tie: t, HomeAggregate: home, AwayAggregate: away, WinnerID: winner})
		}
		views = append(views, view)
	}
	return views
}
