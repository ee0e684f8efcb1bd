package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/brackets"
	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/realtime"
	"github.com/Dosada05/tournament-organizer/repositories"
	"github.com/Dosada05/tournament-organizer/standings"
)

type StandingsView struct {
	League []models.StandingRow   `json:"league,omitempty"`
	Groups [][]models.StandingRow `json:"groups,omitempty"`
}

type QualificationView struct {
	Target     int                  `json:"target"`
	Confirmed  bool                 `json:"confirmed"`
	Qualifiers []brackets.Qualifier `json:"qualifiers"`
}

type BracketView struct {
	Stages       []brackets.StageView `json:"stages"`
	CurrentStage string               `json:"current_stage,omitempty"`
	ChampionID   string               `json:"champion_id,omitempty"`
}

type AdvanceResult struct {
	Stage      string          `json:"stage,omitempty"`
	Round      int             `json:"round,omitempty"`
	Matches    []*models.Match `json:"matches"`
	ChampionID string          `json:"champion_id,omitempty"`
}

// FixturesPayload is pushed to subscribers when matches are created.
type FixturesPayload struct {
	TournamentID string          `json:"tournament_id"`
	Stage        string          `json:"stage,omitempty"`
	Matches      []*models.Match `json:"matches"`
}

type BracketService interface {
	GenerateFixtures(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error)
	Standings(ctx context.Context, ownerID int, tournamentID string) (*StandingsView, error)
	Qualification(ctx context.Context, ownerID int, tournamentID string) (*QualificationView, error)
	ConfirmQualification(ctx context.Context, ownerID int, tournamentID string, teamIDs []string) (*QualificationView, error)
	StartKnockout(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error)
	Advance(ctx context.Context, ownerID int, tournamentID string) (*AdvanceResult, error)
	Bracket(ctx context.Context, ownerID int, tournamentID string) (*BracketView, error)
}

type bracketService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	tx             repositories.TxRunner
	notifier       realtime.Notifier
	metrics        *metrics.Metrics
	clock          clockwork.Clock
	newID          IDGenerator
	logger         *slog.Logger
}

func NewBracketService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	tx repositories.TxRunner,
	notifier realtime.Notifier,
	m *metrics.Metrics,
	clock clockwork.Clock,
	newID IDGenerator,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		tx:             tx,
		notifier:       notifier,
		metrics:        m,
		clock:          clock,
		newID:          newID,
		logger:         logger,
	}
}

func (s *bracketService) load(ctx context.Context, ownerID int, tournamentID string) (*tournamentData, error) {
	return loadTournamentData(ctx, s.tournamentRepo, s.teamRepo, s.matchRepo, ownerID, tournamentID)
}

// GenerateFixtures creates the opening matches for the tournament format. For
// Swiss tournaments every call creates the next round once the previous one is
// finished.
func (s *bracketService) GenerateFixtures(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	t := data.Tournament

	if len(t.TeamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}
	if t.Format != models.FormatSwiss && len(data.Matches) > 0 {
		return nil, ErrFixturesAlreadyGenerated
	}

	generator, err := brackets.NewGenerator(t.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if t.Format == models.FormatGroupsKnockout && len(t.Groups) == 0 {
		t.Groups = brackets.DrawGroups(t.TeamIDs, t.Settings.GroupCount)
	}
	return s.createFixtures(ctx, data, generator)
}

// createFixtures runs generator over the loaded tournament and saves the new
// matches together with the tournament in one transaction.
func (s *bracketService) createFixtures(ctx context.Context, data *tournamentData, generator brackets.FixtureGenerator) ([]*models.Match, error) {
	t := data.Tournament
	created := generator.Generate(brackets.GenerateParams{
		TeamIDs:  t.TeamIDs,
		Groups:   t.Groups,
		Settings: t.Settings,
		Existing: data.Matches,
	})
	if len(created) == 0 {
		if t.Format == models.FormatSwiss && len(data.Matches) > 0 {
			return nil, ErrRoundInProgress
		}
		return nil, ErrNotEnoughTeams
	}

	now := s.clock.Now()
	stampMatches(created, t.ID, now, s.newID)
	t.Status = models.StatusActive
	t.UpdatedAt = now

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.CreateBatch(ctx, exec, created); err != nil {
			return err
		}
		return s.tournamentRepo.Update(ctx, exec, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save fixtures of tournament %s: %w", t.ID, handleRepositoryError(err))
	}

	s.metrics.FixturesGenerated.WithLabelValues(string(t.Format)).Add(float64(len(created)))
	s.logger.Info("fixtures generated",
		slog.String("tournament_id", t.ID),
		slog.String("generator", generator.Name()),
		slog.Int("matches", len(created)))
	s.notifier.Notify(t.ID, realtime.MessageFixturesGenerated, FixturesPayload{TournamentID: t.ID, Matches: created})
	return created, nil
}

func (s *bracketService) Standings(ctx context.Context, ownerID int, tournamentID string) (*StandingsView, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	return standingsOf(data), nil
}

func standingsOf(data *tournamentData) *StandingsView {
	t := data.Tournament
	view := &StandingsView{}
	switch t.Format {
	case models.FormatLeague, models.FormatSwiss:
		view.League = standings.Calculate(t.TeamIDs, standings.LeagueMatches(data.Matches), t.Settings)
	case models.FormatGroupsKnockout:
		view.Groups = standings.GroupTables(t.Groups, data.Matches, t.Settings)
	}
	return view
}

func (s *bracketService) Qualification(ctx context.Context, ownerID int, tournamentID string) (*QualificationView, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	if data.Tournament.Format != models.FormatGroupsKnockout {
		return nil, ErrNotGroupsKnockout
	}
	return qualificationOf(data.Tournament, data.Matches), nil
}

// qualificationOf shows the frozen set once confirmed and the live default before.
func qualificationOf(t *models.Tournament, matches []*models.Match) *QualificationView {
	tables := standings.GroupTables(t.Groups, matches, t.Settings)
	target := brackets.TargetSize(t.Settings)
	view := &QualificationView{Target: target, Confirmed: t.Settings.QualificationConfirmed}

	if !t.Settings.QualificationConfirmed {
		view.Qualifiers = brackets.DefaultQualifiers(tables, target, t.Settings, brackets.BestOfPositionSelector{})
		return view
	}

	positions := make(map[string]brackets.Qualifier)
	for g, table := range tables {
		for _, row := range table {
			positions[row.TeamID] = brackets.Qualifier{TeamID: row.TeamID, Group: g + 1, Position: row.Position}
		}
	}
	for _, id := range brackets.Resolve(t.Settings, tables, target) {
		q, ok := positions[id]
		if !ok {
			q = brackets.Qualifier{TeamID: id}
		}
		view.Qualifiers = append(view.Qualifiers, q)
	}
	return view
}

// ConfirmQualification freezes the qualifying set. An empty list confirms the
// current default.
func (s *bracketService) ConfirmQualification(ctx context.Context, ownerID int, tournamentID string, teamIDs []string) (*QualificationView, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	t := data.Tournament
	if t.Format != models.FormatGroupsKnockout {
		return nil, ErrNotGroupsKnockout
	}
	if t.Settings.QualificationConfirmed {
		return nil, ErrQualificationConfirmed
	}

	if len(teamIDs) == 0 {
		tables := standings.GroupTables(t.Groups, data.Matches, t.Settings)
		teamIDs = brackets.Resolve(t.Settings, tables, brackets.TargetSize(t.Settings))
	}
	if err := validateTeamSet(teamIDs, toSet(t.TeamIDs)); err != nil {
		return nil, err
	}
	if len(teamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}

	s.freezeQualification(t, teamIDs)
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("failed to confirm qualification of tournament %s: %w", t.ID, handleRepositoryError(err))
	}

	view := qualificationOf(t, data.Matches)
	s.logger.Info("qualification confirmed", slog.String("tournament_id", t.ID), slog.Int("qualifiers", len(teamIDs)))
	s.notifier.Notify(t.ID, realtime.MessageQualificationConfirmed, view)
	return view, nil
}

func (s *bracketService) freezeQualification(t *models.Tournament, teamIDs []string) {
	t.Settings.QualificationConfirmed = true
	t.Settings.ConfirmedQualifiers = append([]string{}, teamIDs...)
	t.UpdatedAt = s.clock.Now()
}

// StartKnockout seeds the knockout stage from the finished group stage. If
// qualification was not confirmed yet, the default set is confirmed now.
func (s *bracketService) StartKnockout(ctx context.Context, ownerID int, tournamentID string) ([]*models.Match, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	t := data.Tournament
	if t.Format != models.FormatGroupsKnockout {
		return nil, ErrNotGroupsKnockout
	}

	groupMatches := 0
	for _, m := range data.Matches {
		switch {
		case m.IsKnockout():
			return nil, ErrFixturesAlreadyGenerated
		case m.Kind == models.MatchKindGroup:
			groupMatches++
			if !m.Played {
				return nil, ErrStageNotResolved
			}
		}
	}
	if groupMatches == 0 {
		return nil, ErrFixturesNotGenerated
	}

	tables := standings.GroupTables(t.Groups, data.Matches, t.Settings)
	qualified := brackets.Resolve(t.Settings, tables, brackets.TargetSize(t.Settings))
	if !t.Settings.QualificationConfirmed {
		s.freezeQualification(t, qualified)
	}

	created := brackets.Seed(brackets.SeedOrder(qualified, tables), t.Settings)
	if len(created) == 0 {
		return nil, ErrNotEnoughTeams
	}
	brackets.ShiftRounds(created, brackets.MaxRound(data.Matches))

	now := s.clock.Now()
	stampMatches(created, t.ID, now, s.newID)
	t.UpdatedAt = now

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.CreateBatch(ctx, exec, created); err != nil {
			return err
		}
		return s.tournamentRepo.Update(ctx, exec, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save knockout stage of tournament %s: %w", t.ID, handleRepositoryError(err))
	}

	stage := created[0].Stage
	s.metrics.StagesAdvanced.WithLabelValues(stage).Inc()
	s.logger.Info("knockout stage started",
		slog.String("tournament_id", t.ID),
		slog.String("stage", stage),
		slog.Int("qualifiers", len(qualified)))
	s.notifier.Notify(t.ID, realtime.MessageStageAdvanced, FixturesPayload{TournamentID: t.ID, Stage: stage, Matches: created})
	return created, nil
}

// Advance creates the next knockout stage once the current one is resolved.
// On a resolved final it completes the tournament and reports the champion.
// Swiss tournaments get their next round instead.
func (s *bracketService) Advance(ctx context.Context, ownerID int, tournamentID string) (*AdvanceResult, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	t := data.Tournament

	if t.Format == models.FormatSwiss {
		if len(data.Matches) == 0 {
			return nil, ErrFixturesNotGenerated
		}
		created, err := s.createFixtures(ctx, data, brackets.NewSwissGenerator())
		if err != nil {
			return nil, err
		}
		return &AdvanceResult{Round: created[0].Round, Matches: created}, nil
	}

	stage := brackets.CurrentStage(data.Matches)
	if stage == "" {
		return nil, ErrFixturesNotGenerated
	}
	if !brackets.StageResolved(brackets.Ties(data.Matches, stage), t.Settings) {
		return nil, ErrStageNotResolved
	}

	if stage == brackets.StageFinal {
		return s.complete(ctx, t, data.Matches)
	}

	created := brackets.Advance(data.Matches, stage, t.Settings)
	if len(created) == 0 {
		return nil, ErrStageAlreadyAdvanced
	}
	stampMatches(created, t.ID, s.clock.Now(), s.newID)
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.matchRepo.CreateBatch(ctx, exec, created)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save next stage of tournament %s: %w", t.ID, handleRepositoryError(err))
	}

	next, _ := brackets.NextStage(stage)
	s.metrics.StagesAdvanced.WithLabelValues(next).Inc()
	s.logger.Info("knockout stage advanced",
		slog.String("tournament_id", t.ID),
		slog.String("from", stage),
		slog.String("to", next),
		slog.Int("matches", len(created)))
	s.notifier.Notify(t.ID, realtime.MessageStageAdvanced, FixturesPayload{TournamentID: t.ID, Stage: next, Matches: created})
	return &AdvanceResult{Stage: next, Matches: created}, nil
}

// complete marks the tournament finished once the final and, if present, the
// third-place match are decided.
func (s *bracketService) complete(ctx context.Context, t *models.Tournament, matches []*models.Match) (*AdvanceResult, error) {
	if third := brackets.Ties(matches, brackets.StageThirdPlace); len(third) > 0 && !brackets.StageResolved(third, t.Settings) {
		return nil, ErrStageNotResolved
	}
	champion, _ := brackets.Champion(matches, t.Settings)

	if t.Status != models.StatusCompleted {
		t.Status = models.StatusCompleted
		t.UpdatedAt = s.clock.Now()
		if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
			return nil, fmt.Errorf("failed to complete tournament %s: %w", t.ID, handleRepositoryError(err))
		}
		s.logger.Info("tournament completed", slog.String("tournament_id", t.ID), slog.String("champion_id", champion))
	}
	return &AdvanceResult{Stage: brackets.StageFinal, Matches: []*models.Match{}, ChampionID: champion}, nil
}

func (s *bracketService) Bracket(ctx context.Context, ownerID int, tournamentID string) (*BracketView, error) {
	data, err := s.load(ctx, ownerID, tournamentID)
	if err != nil {
		return nil, err
	}
	return bracketOf(data), nil
}

func bracketOf(data *tournamentData) *BracketView {
	settings := data.Tournament.Settings
	view := &BracketView{
		Stages:       brackets.Bracket(data.Matches, settings),
		CurrentStage: brackets.CurrentStage(data.Matches),
	}
	if view.Stages == nil {
		view.Stages = []brackets.StageView{}
	}
	view.ChampionID, _ = brackets.Champion(data.Matches, settings)
	return view
}
