package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
)

type TeamInput struct {
	Name         string   `json:"name"`
	ShortName    string   `json:"short_name"`
	Abbreviation string   `json:"abbreviation"`
	Rate         *float64 `json:"rate,omitempty"`
	FolderID     *string  `json:"folder_id,omitempty"`
}

type TeamService interface {
	Create(ctx context.Context, ownerID int, input TeamInput) (*models.Team, error)
	GetByID(ctx context.Context, ownerID int, id string) (*models.Team, error)
	List(ctx context.Context, ownerID int, folderID *string) ([]models.Team, error)
	Search(ctx context.Context, ownerID int, query string) ([]models.Team, error)
	Update(ctx context.Context, ownerID int, id string, input TeamInput) (*models.Team, error)
	Delete(ctx context.Context, ownerID int, id string) error
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	folderRepo repositories.FolderRepository
	clock      clockwork.Clock
	newID      IDGenerator
	logger     *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	folderRepo repositories.FolderRepository,
	clock clockwork.Clock,
	newID IDGenerator,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		folderRepo: folderRepo,
		clock:      clock,
		newID:      newID,
		logger:     logger,
	}
}

func (s *teamService) Create(ctx context.Context, ownerID int, input TeamInput) (*models.Team, error) {
	now := s.clock.Now()
	team := &models.Team{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Rate:      models.DefaultTeamRate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, team, input); err != nil {
		return nil, err
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", handleRepositoryError(err))
	}
	s.logger.Info("team created", slog.String("team_id", team.ID), slog.Int("owner_id", ownerID))
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, ownerID int, id string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context, ownerID int, folderID *string) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByOwner(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// Search matches query fuzzily against name, short name and abbreviation and
// returns the owner's teams best match first.
func (s *teamService) Search(ctx context.Context, ownerID int, query string) ([]models.Team, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	teams, err := s.teamRepo.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	if query == "" {
		return teams, nil
	}

	var targets []string
	owners := make([]int, 0, len(teams)*3)
	for i, team := range teams {
		for _, label := range []string{team.Name, team.ShortName, team.Abbreviation} {
			if label == "" {
				continue
			}
			targets = append(targets, strings.ToLower(label))
			owners = append(owners, i)
		}
	}

	ranks := fuzzy.RankFind(query, targets)
	sort.Sort(ranks)

	seen := make(map[int]bool)
	result := make([]models.Team, 0)
	for _, rank := range ranks {
		idx := owners[rank.OriginalIndex]
		if seen[idx] {
			continue
		}
		seen[idx] = true
		result = append(result, teams[idx])
	}
	return result, nil
}

func (s *teamService) Update(ctx context.Context, ownerID int, id string, input TeamInput) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := s.apply(ctx, team, input); err != nil {
		return nil, err
	}
	team.UpdatedAt = s.clock.Now()
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to update team %s: %w", id, handleRepositoryError(err))
	}
	return team, nil
}

// Delete fails with ErrTeamInUse while any match references the team.
func (s *teamService) Delete(ctx context.Context, ownerID int, id string) error {
	if err := s.teamRepo.Delete(ctx, ownerID, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.Info("team deleted", slog.String("team_id", id), slog.Int("owner_id", ownerID))
	return nil
}

func (s *teamService) apply(ctx context.Context, team *models.Team, input TeamInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrTeamNameRequired
	}
	team.Name = name
	team.ShortName = strings.TrimSpace(input.ShortName)
	team.Abbreviation = strings.ToUpper(strings.TrimSpace(input.Abbreviation))
	if input.Rate != nil {
		team.Rate = models.ClampRate(*input.Rate)
	}

	team.FolderID = nil
	if input.FolderID != nil && *input.FolderID != "" {
		if _, err := s.folderRepo.GetByID(ctx, team.OwnerID, *input.FolderID); err != nil {
			return handleRepositoryError(err)
		}
		team.FolderID = input.FolderID
	}
	return nil
}
