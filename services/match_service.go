package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/brackets"
	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/realtime"
	"github.com/Dosada05/tournament-organizer/repositories"
	"github.com/Dosada05/tournament-organizer/simulator"
)

const (
	sourceRecorded  = "recorded"
	sourceSimulated = "simulated"
)

// ResultInput is a match result as entered by the organizer. Scores are
// regulation goals; extra time and penalties are optional.
type ResultInput struct {
	HomeScore int           `json:"home_score"`
	AwayScore int           `json:"away_score"`
	ExtraTime *models.Score `json:"extra_time,omitempty"`
	Penalties *models.Score `json:"penalties,omitempty"`
}

type MatchService interface {
	ListByTournament(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error)
	RecordResult(ctx context.Context, ownerID int, matchID string, input ResultInput) (*models.Match, error)
	Simulate(ctx context.Context, ownerID int, matchID string) (*models.Match, error)
	// SimulateRound plays every unplayed match of round; round 0 means the
	// earliest round that still has unplayed matches.
	SimulateRound(ctx context.Context, ownerID int, tournamentID string, round int) ([]*models.Match, error)
}

type matchService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	tx             repositories.TxRunner
	sim            *simulator.Simulator
	notifier       realtime.Notifier
	metrics        *metrics.Metrics
	clock          clockwork.Clock
	logger         *slog.Logger
}

func NewMatchService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	tx repositories.TxRunner,
	sim *simulator.Simulator,
	notifier realtime.Notifier,
	m *metrics.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		tx:             tx,
		sim:            sim,
		notifier:       notifier,
		metrics:        m,
		clock:          clock,
		logger:         logger,
	}
}

func (s *matchService) ListByTournament(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, ownerID, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("%w: tournament %s: %w", ErrMatchesListFailed, tournamentID, err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, ownerID int, matchID string, input ResultInput) (*models.Match, error) {
	data, m, err := s.locate(ctx, ownerID, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(data.Matches, m); err != nil {
		return nil, err
	}
	if err := applyResult(data, m, input, s.clock); err != nil {
		return nil, err
	}
	if err := s.save(ctx, data, []*models.Match{m}, sourceRecorded); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *matchService) Simulate(ctx context.Context, ownerID int, matchID string) (*models.Match, error) {
	data, m, err := s.locate(ctx, ownerID, matchID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(data.Matches, m); err != nil {
		return nil, err
	}
	if err := applyResult(data, m, s.simulate(data, m), s.clock); err != nil {
		return nil, err
	}
	if err := s.save(ctx, data, []*models.Match{m}, sourceSimulated); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *matchService) SimulateRound(ctx context.Context, ownerID int, tournamentID string, round int) ([]*models.Match, error) {
	data, err := loadTournamentData(ctx, s.tournamentRepo, s.teamRepo, s.matchRepo, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if round <= 0 {
		round = earliestOpenRound(data.Matches)
	}

	var played []*models.Match
	for _, m := range data.Matches {
		if m.Round != round || m.Played || m.IsBye() {
			continue
		}
		if err := checkEditable(data.Matches, m); err != nil {
			return nil, err
		}
		if err := applyResult(data, m, s.simulate(data, m), s.clock); err != nil {
			return nil, err
		}
		played = append(played, m)
	}
	if len(played) == 0 {
		return nil, ErrNothingToSimulate
	}
	if err := s.save(ctx, data, played, sourceSimulated); err != nil {
		return nil, err
	}
	return played, nil
}

// locate loads the match together with its tournament, scoped to the owner.
func (s *matchService) locate(ctx context.Context, ownerID int, matchID string) (*tournamentData, *models.Match, error) {
	stored, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, nil, handleRepositoryError(err)
	}
	data, err := loadTournamentData(ctx, s.tournamentRepo, s.teamRepo, s.matchRepo, ownerID, stored.TournamentID)
	if err != nil {
		if errors.Is(err, ErrTournamentNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	for _, m := range data.Matches {
		if m.ID == matchID {
			return data, m, nil
		}
	}
	return nil, nil, ErrMatchNotFound
}

// simulate draws a result for m. Extra time and penalties are only drawn when
// m decides a tie that is still level.
func (s *matchService) simulate(data *tournamentData, m *models.Match) ResultInput {
	settings := data.Tournament.Settings
	homeRate, awayRate := teamRate(data.Teams, m.HomeTeamID), teamRate(data.Teams, m.AwayTeamID)

	regulation := s.sim.Regulation(homeRate, awayRate, settings.RateInfluence)
	input := ResultInput{HomeScore: regulation.Home, AwayScore: regulation.Away}
	if !m.IsKnockout() {
		return input
	}

	candidate := *m
	candidate.HomeScore, candidate.AwayScore = regulation.Home, regulation.Away
	candidate.ExtraTime, candidate.Penalties = nil, nil
	candidate.Played = true
	tie, ok := tieOf(data.Matches, &candidate)
	if !ok || !decidingLeg(tie, &candidate) {
		return input
	}
	if _, decided := brackets.ResolveTie(tie, settings); decided {
		return input
	}

	if settings.ExtraTime {
		extra := s.sim.ExtraTime(homeRate, awayRate, settings.RateInfluence, settings.GoldenGoal)
		candidate.ExtraTime = &extra
		input.ExtraTime = &extra
		if _, decided := brackets.ResolveTie(tie, settings); decided {
			return input
		}
	}
	penalties := s.sim.Penalties()
	input.Penalties = &penalties
	return input
}

// save persists results and the tournament status in one transaction, then
// reports them.
func (s *matchService) save(ctx context.Context, data *tournamentData, played []*models.Match, source string) error {
	t := data.Tournament
	statusChanged := refreshStatus(t, data.Matches, s.clock)

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, m := range played {
			if err := s.matchRepo.UpdateResult(ctx, exec, m); err != nil {
				return err
			}
		}
		if statusChanged {
			return s.tournamentRepo.Update(ctx, exec, t)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save results of tournament %s: %w", t.ID, handleRepositoryError(err))
	}

	s.metrics.MatchesPlayed.WithLabelValues(source).Add(float64(len(played)))
	for _, m := range played {
		s.logger.Info("match result saved",
			slog.String("tournament_id", t.ID),
			slog.String("match_id", m.ID),
			slog.String("source", source),
			slog.Int("home_score", m.HomeScore),
			slog.Int("away_score", m.AwayScore))
		s.notifier.Notify(t.ID, realtime.MessageMatchUpdated, m)
	}
	if statusChanged {
		s.logger.Info("tournament status changed", slog.String("tournament_id", t.ID), slog.String("status", string(t.Status)))
	}
	return nil
}

// checkEditable rejects byes and results whose outcome already fed a later stage.
func checkEditable(matches []*models.Match, m *models.Match) error {
	if m.IsBye() {
		return ErrByeMatch
	}
	switch m.Kind {
	case models.MatchKindGroup:
		for _, other := range matches {
			if other.IsKnockout() {
				return ErrStageAlreadyAdvanced
			}
		}
	case models.MatchKindKnockout:
		if brackets.CurrentStage(matches) != m.Stage {
			return ErrStageAlreadyAdvanced
		}
	}
	return nil
}

// applyResult validates input against the tie m belongs to and stores it on m.
func applyResult(data *tournamentData, m *models.Match, input ResultInput, clock clockwork.Clock) error {
	settings := data.Tournament.Settings
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
	}
	for _, extra := range []*models.Score{input.ExtraTime, input.Penalties} {
		if extra != nil && (extra.Home < 0 || extra.Away < 0) {
			return fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
		}
	}

	if input.ExtraTime != nil || input.Penalties != nil {
		if !m.IsKnockout() {
			return ErrExtraTimeNotAllowed
		}
		candidate := *m
		candidate.HomeScore, candidate.AwayScore = input.HomeScore, input.AwayScore
		candidate.ExtraTime, candidate.Penalties = nil, nil
		candidate.Played = true

		tie, ok := tieOf(data.Matches, &candidate)
		if !ok || !decidingLeg(tie, &candidate) {
			return ErrExtraTimeNotAllowed
		}
		if input.ExtraTime != nil {
			if !settings.ExtraTime {
				return fmt.Errorf("%w: extra time is disabled", ErrExtraTimeNotAllowed)
			}
			if settings.GoldenGoal && input.ExtraTime.Home+input.ExtraTime.Away > 1 {
				return fmt.Errorf("%w: golden goal ends extra time after one goal", ErrInvalidScore)
			}
			if _, decided := brackets.ResolveTie(tie, settings); decided {
				return fmt.Errorf("%w: tie is decided in regulation", ErrExtraTimeNotAllowed)
			}
			candidate.ExtraTime = input.ExtraTime
		}
		if input.Penalties != nil {
			if _, decided := brackets.ResolveTie(tie, settings); decided {
				return ErrPenaltiesNotLevel
			}
			if input.Penalties.Home == input.Penalties.Away {
				return fmt.Errorf("%w: a shootout needs a winner", ErrInvalidScore)
			}
		}
	}

	m.HomeScore, m.AwayScore = input.HomeScore, input.AwayScore
	m.ExtraTime, m.Penalties = input.ExtraTime, input.Penalties
	m.Played = true
	m.UpdatedAt = clock.Now()
	return nil
}

// tieOf returns the tie of m's stage with m standing in for its stored version.
func tieOf(matches []*models.Match, m *models.Match) (brackets.Tie, bool) {
	substituted := make([]*models.Match, len(matches))
	for i, cur := range matches {
		substituted[i] = cur
		if cur.ID == m.ID {
			substituted[i] = m
		}
	}
	for _, t := range brackets.Ties(substituted, m.Stage) {
		for _, leg := range t.Legs {
			if leg == m {
				return t, true
			}
		}
	}
	return brackets.Tie{}, false
}

// decidingLeg: m is the last leg and every earlier leg has a result.
func decidingLeg(t brackets.Tie, m *models.Match) bool {
	return len(t.Legs) > 0 && t.Legs[len(t.Legs)-1] == m && t.Played()
}

// refreshStatus completes a league once every match is played and reopens a
// knockout tournament whose final was edited into an undecided state.
func refreshStatus(t *models.Tournament, matches []*models.Match, clock clockwork.Clock) bool {
	next := t.Status
	switch t.Format {
	case models.FormatLeague:
		next = models.StatusCompleted
		for _, m := range matches {
			if !m.Played {
				next = models.StatusActive
				break
			}
		}
	case models.FormatKnockout, models.FormatGroupsKnockout:
		if _, decided := brackets.Champion(matches, t.Settings); t.Status == models.StatusCompleted && !decided {
			next = models.StatusActive
		}
	}
	if next == t.Status {
		return false
	}
	t.Status = next
	t.UpdatedAt = clock.Now()
	return true
}

func earliestOpenRound(matches []*models.Match) int {
	round := 0
	for _, m := range matches {
		if m.Played || m.IsBye() {
			continue
		}
		if round == 0 || m.Round < round {
			round = m.Round
		}
	}
	return round
}

func teamRate(teams map[string]models.Team, id string) float64 {
	if team, ok := teams[id]; ok {
		return team.Rate
	}
	return models.DefaultTeamRate
}
