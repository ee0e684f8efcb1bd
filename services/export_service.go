package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
)

const exportVersion = 1

// ExportDocument is the portable form of an owner's teams and tournaments.
// Tournaments carry their matches; ids only need to be consistent inside the
// document.
type ExportDocument struct {
	Version     int                 `json:"version"`
	Teams       []models.Team       `json:"teams"`
	Tournaments []models.Tournament `json:"tournaments"`
}

type ImportResult struct {
	Teams       int `json:"teams"`
	Tournaments int `json:"tournaments"`
	Matches     int `json:"matches"`
}

type ExportService interface {
	Export(ctx context.Context, ownerID int) (*ExportDocument, error)
	Import(ctx context.Context, ownerID int, doc ExportDocument) (*ImportResult, error)
}

type exportService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	tx             repositories.TxRunner
	clock          clockwork.Clock
	newID          IDGenerator
	logger         *slog.Logger
}

func NewExportService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	tx repositories.TxRunner,
	clock clockwork.Clock,
	newID IDGenerator,
	logger *slog.Logger,
) ExportService {
	return &exportService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		tx:             tx,
		clock:          clock,
		newID:          newID,
		logger:         logger,
	}
}

func (s *exportService) Export(ctx context.Context, ownerID int) (*ExportDocument, error) {
	doc := &ExportDocument{Version: exportVersion}

	teams, err := s.teamRepo.ListByOwner(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range tournaments {
		t := &tournaments[i]
		g.Go(func() error {
			matches, err := s.matchRepo.ListByTournament(gCtx, t.ID)
			if err != nil {
				return fmt.Errorf("%w: tournament %s: %w", ErrMatchesListFailed, t.ID, err)
			}
			t.Matches = derefMatches(matches)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc.Teams = teams
	doc.Tournaments = tournaments
	if doc.Teams == nil {
		doc.Teams = []models.Team{}
	}
	if doc.Tournaments == nil {
		doc.Tournaments = []models.Tournament{}
	}
	return doc, nil
}

// Import creates every team and tournament of doc under fresh ids in a single
// transaction. Folder assignments are not carried over.
func (s *exportService) Import(ctx context.Context, ownerID int, doc ExportDocument) (*ImportResult, error) {
	now := s.clock.Now()
	teamIDs := make(map[string]string, len(doc.Teams))
	teams := make([]*models.Team, 0, len(doc.Teams))

	for _, src := range doc.Teams {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImport, ErrTeamNameRequired)
		}
		if _, dup := teamIDs[src.ID]; dup || src.ID == "" {
			return nil, fmt.Errorf("%w: team id %q is missing or repeated", ErrInvalidImport, src.ID)
		}
		team := src
		team.ID = s.newID()
		team.OwnerID = ownerID
		team.Name = name
		team.Rate = models.ClampRate(src.Rate)
		team.FolderID = nil
		team.CreatedAt, team.UpdatedAt = now, now
		teamIDs[src.ID] = team.ID
		teams = append(teams, &team)
	}

	tournaments := make([]*models.Tournament, 0, len(doc.Tournaments))
	var matches []*models.Match
	for _, src := range doc.Tournaments {
		t, tMatches, err := s.remapTournament(src, ownerID, teamIDs)
		if err != nil {
			return nil, err
		}
		stampMatches(tMatches, t.ID, now, s.newID)
		t.CreatedAt, t.UpdatedAt = now, now
		tournaments = append(tournaments, t)
		matches = append(matches, tMatches...)
	}

	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		for _, team := range teams {
			if err := s.teamRepo.Create(ctx, exec, team); err != nil {
				return err
			}
		}
		for _, t := range tournaments {
			if err := s.tournamentRepo.Create(ctx, exec, t); err != nil {
				return err
			}
		}
		return s.matchRepo.CreateBatch(ctx, exec, matches)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import document: %w", handleRepositoryError(err))
	}

	result := &ImportResult{Teams: len(teams), Tournaments: len(tournaments), Matches: len(matches)}
	s.logger.Info("document imported",
		slog.Int("owner_id", ownerID),
		slog.Int("teams", result.Teams),
		slog.Int("tournaments", result.Tournaments),
		slog.Int("matches", result.Matches))
	return result, nil
}

// remapTournament validates one imported tournament and rewrites every team
// reference through teamIDs.
func (s *exportService) remapTournament(src models.Tournament, ownerID int, teamIDs map[string]string) (*models.Tournament, []*models.Match, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidImport, ErrTournamentNameRequired)
	}
	if !models.IsValidFormat(src.Format) {
		return nil, nil, fmt.Errorf("%w: %w %q", ErrInvalidImport, ErrInvalidFormat, src.Format)
	}
	settings := src.Settings
	if err := normalizeSettings(&settings); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	remap := func(ids []string) ([]string, error) {
		if ids == nil {
			return nil, nil
		}
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			mapped, ok := teamIDs[id]
			if !ok {
				return nil, fmt.Errorf("%w: tournament %q references unknown team %q", ErrInvalidImport, name, id)
			}
			out = append(out, mapped)
		}
		return out, nil
	}

	t := &models.Tournament{
		ID:       s.newID(),
		OwnerID:  ownerID,
		Name:     name,
		Format:   src.Format,
		Season:   max(src.Season, 1),
		Status:   src.Status,
		Settings: settings,
	}
	if t.Status == "" {
		t.Status = models.StatusDraft
	}

	var err error
	if t.TeamIDs, err = remap(src.TeamIDs); err != nil {
		return nil, nil, err
	}
	if t.TeamIDs == nil {
		t.TeamIDs = []string{}
	}
	if err := validateTeamSet(t.TeamIDs, nil); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if t.Settings.ConfirmedQualifiers, err = remap(src.Settings.ConfirmedQualifiers); err != nil {
		return nil, nil, err
	}
	for _, group := range src.Groups {
		mapped, err := remap(group)
		if err != nil {
			return nil, nil, err
		}
		t.Groups = append(t.Groups, mapped)
	}

	members := toSet(t.TeamIDs)
	matches := make([]*models.Match, 0, len(src.Matches))
	for _, srcMatch := range src.Matches {
		m := srcMatch
		for _, side := range []*string{&m.HomeTeamID, &m.AwayTeamID} {
			if *side == "" {
				continue
			}
			mapped, ok := teamIDs[*side]
			if !ok || !members[mapped] {
				return nil, nil, fmt.Errorf("%w: match of tournament %q references team %q outside it", ErrInvalidImport, name, *side)
			}
			*side = mapped
		}
		if err := m.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
		}
		matches = append(matches, &m)
	}
	return t, matches, nil
}
