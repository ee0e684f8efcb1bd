package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/brackets"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
)

type CreateTournamentInput struct {
	Name     string                  `json:"name"`
	Format   models.TournamentFormat `json:"format"`
	FolderID *string                 `json:"folder_id,omitempty"`
	TeamIDs  []string                `json:"team_ids"`
	Settings *models.Settings        `json:"settings,omitempty"`
}

type UpdateTournamentInput struct {
	Name     *string          `json:"name,omitempty"`
	FolderID *string          `json:"folder_id,omitempty"`
	TeamIDs  []string         `json:"team_ids,omitempty"`
	Settings *models.Settings `json:"settings,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, ownerID int, id string) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, ownerID int, id string, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, ownerID int, id string) error
	ResetSeason(ctx context.Context, ownerID int, id string) (*models.Tournament, error)
	DrawGroups(ctx context.Context, ownerID int, id string) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	folderRepo     repositories.FolderRepository
	tx             repositories.TxRunner
	clock          clockwork.Clock
	newID          IDGenerator
	defaults       models.Settings
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	folderRepo repositories.FolderRepository,
	tx repositories.TxRunner,
	clock clockwork.Clock,
	newID IDGenerator,
	defaults models.Settings,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		folderRepo:     folderRepo,
		tx:             tx,
		clock:          clock,
		newID:          newID,
		defaults:       defaults,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !models.IsValidFormat(input.Format) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, input.Format)
	}

	settings := s.defaults
	if input.Settings != nil {
		settings = *input.Settings
	}
	settings.QualificationConfirmed = false
	settings.ConfirmedQualifiers = nil
	if err := normalizeSettings(&settings); err != nil {
		return nil, err
	}

	if err := s.checkFolder(ctx, ownerID, input.FolderID); err != nil {
		return nil, err
	}
	if err := s.checkTeams(ctx, ownerID, input.TeamIDs); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &models.Tournament{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      name,
		Format:    input.Format,
		Season:    1,
		Status:    models.StatusDraft,
		FolderID:  input.FolderID,
		TeamIDs:   append([]string{}, input.TeamIDs...),
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", handleRepositoryError(err))
	}

	s.logger.Info("tournament created",
		slog.String("tournament_id", t.ID),
		slog.Int("owner_id", ownerID),
		slog.String("format", string(t.Format)),
		slog.Int("teams", len(t.TeamIDs)))
	return t, nil
}

// GetByID returns the tournament with its teams (in seed order) and matches.
func (s *tournamentService) GetByID(ctx context.Context, ownerID int, id string) (*models.Tournament, error) {
	data, err := loadTournamentData(ctx, s.tournamentRepo, s.teamRepo, s.matchRepo, ownerID, id)
	if err != nil {
		return nil, err
	}
	return data.expanded(), nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

// Update changes name, folder, settings and, before fixtures exist, the team
// list. The qualification decision is not editable here.
func (s *tournamentService) Update(ctx context.Context, ownerID int, id string, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		t.Name = name
	}
	if input.FolderID != nil {
		folderID := input.FolderID
		if *folderID == "" {
			folderID = nil
		}
		if err := s.checkFolder(ctx, ownerID, folderID); err != nil {
			return nil, err
		}
		t.FolderID = folderID
	}
	if input.Settings != nil {
		settings := *input.Settings
		settings.QualificationConfirmed = t.Settings.QualificationConfirmed
		settings.ConfirmedQualifiers = t.Settings.ConfirmedQualifiers
		if err := normalizeSettings(&settings); err != nil {
			return nil, err
		}
		t.Settings = settings
	}
	if input.TeamIDs != nil {
		matches, err := s.matchRepo.ListByTournament(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load matches of tournament %s: %w", t.ID, err)
		}
		if len(matches) > 0 {
			return nil, ErrFixturesAlreadyGenerated
		}
		if err := s.checkTeams(ctx, ownerID, input.TeamIDs); err != nil {
			return nil, err
		}
		t.TeamIDs = append([]string{}, input.TeamIDs...)
		t.Groups = nil
	}

	t.UpdatedAt = s.clock.Now()
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("failed to update tournament %s: %w", id, handleRepositoryError(err))
	}
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, ownerID int, id string) error {
	if err := s.tournamentRepo.Delete(ctx, ownerID, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.Info("tournament deleted", slog.String("tournament_id", id), slog.Int("owner_id", ownerID))
	return nil
}

// ResetSeason clears every match, unfreezes qualification and starts the next
// season with the same teams and settings.
func (s *tournamentService) ResetSeason(ctx context.Context, ownerID int, id string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	t.Season++
	t.Status = models.StatusDraft
	t.Groups = nil
	t.Settings.QualificationConfirmed = false
	t.Settings.ConfirmedQualifiers = nil
	t.UpdatedAt = s.clock.Now()

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.DeleteByTournament(ctx, exec, t.ID); err != nil {
			return err
		}
		return s.tournamentRepo.Update(ctx, exec, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset season of tournament %s: %w", id, handleRepositoryError(err))
	}

	s.logger.Info("tournament season reset", slog.String("tournament_id", t.ID), slog.Int("season", t.Season))
	return t, nil
}

// DrawGroups distributes the seeded teams over the configured number of groups.
func (s *tournamentService) DrawGroups(ctx context.Context, ownerID int, id string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Format != models.FormatGroupsKnockout {
		return nil, ErrNotGroupsKnockout
	}
	matches, err := s.matchRepo.ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches of tournament %s: %w", t.ID, err)
	}
	if len(matches) > 0 {
		return nil, ErrFixturesAlreadyGenerated
	}
	if len(t.TeamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}

	t.Settings.Normalize()
	t.Groups = brackets.DrawGroups(t.TeamIDs, t.Settings.GroupCount)
	t.UpdatedAt = s.clock.Now()
	if err := s.tournamentRepo.Update(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("failed to save groups of tournament %s: %w", id, handleRepositoryError(err))
	}
	return t, nil
}

func (s *tournamentService) checkFolder(ctx context.Context, ownerID int, folderID *string) error {
	if folderID == nil {
		return nil
	}
	if _, err := s.folderRepo.GetByID(ctx, ownerID, *folderID); err != nil {
		return handleRepositoryError(err)
	}
	return nil
}

func (s *tournamentService) checkTeams(ctx context.Context, ownerID int, teamIDs []string) error {
	if err := validateTeamSet(teamIDs, nil); err != nil {
		return err
	}
	teams, err := s.teamRepo.ListByIDs(ctx, ownerID, teamIDs)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	owned := make(map[string]bool, len(teams))
	for _, team := range teams {
		owned[team.ID] = true
	}
	return validateTeamSet(teamIDs, owned)
}

func normalizeSettings(s *models.Settings) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if !brackets.IsValidStage(s.StartingStage) {
		return fmt.Errorf("%w: unknown starting stage %q", ErrInvalidSettings, s.StartingStage)
	}
	return nil
}
