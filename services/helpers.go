package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
)

// IDGenerator issues identifiers for new entities.
type IDGenerator func() string

// NewUUID is the production IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrFolderNotFound),
		errors.Is(err, repositories.ErrFolderInvalidParent),
		errors.Is(err, repositories.ErrTeamInvalidFolder),
		errors.Is(err, repositories.ErrTournamentInvalidFolder):
		return ErrFolderNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	case errors.Is(err, repositories.ErrTeamInUse):
		return ErrTeamInUse
	case errors.Is(err, repositories.ErrMatchTeamInvalid):
		return ErrUnknownTeam
	}
	return err
}

// tournamentData is a tournament with everything the engine needs.
type tournamentData struct {
	Tournament *models.Tournament
	Teams      map[string]models.Team
	Matches    []*models.Match
}

// loadTournamentData fetches the tournament and its matches in parallel, then
// the teams it references.
func loadTournamentData(
	ctx context.Context,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	ownerID int,
	tournamentID string,
) (*tournamentData, error) {
	data := &tournamentData{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := tournamentRepo.GetByID(gCtx, ownerID, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load tournament %s: %w", tournamentID, handleRepositoryError(err))
		}
		data.Tournament = t
		return nil
	})
	g.Go(func() error {
		matches, err := matchRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load matches of tournament %s: %w", tournamentID, err)
		}
		data.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Tournament.Settings.Normalize()

	teams, err := teamRepo.ListByIDs(ctx, ownerID, data.Tournament.TeamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams of tournament %s: %w", tournamentID, err)
	}
	data.Teams = make(map[string]models.Team, len(teams))
	for _, team := range teams {
		data.Teams[team.ID] = team
	}
	return data, nil
}

// expanded returns the tournament with its teams (in seed order) and matches attached.
func (d *tournamentData) expanded() *models.Tournament {
	t := d.Tournament
	t.Teams = make([]models.Team, 0, len(t.TeamIDs))
	for _, teamID := range t.TeamIDs {
		if team, ok := d.Teams[teamID]; ok {
			t.Teams = append(t.Teams, team)
		}
	}
	t.Matches = derefMatches(d.Matches)
	return t
}

// stampMatches assigns ids, the tournament and timestamps to generated matches.
func stampMatches(matches []*models.Match, tournamentID string, now time.Time, newID IDGenerator) {
	for _, m := range matches {
		m.ID = newID()
		m.TournamentID = tournamentID
		m.CreatedAt = now
		m.UpdatedAt = now
	}
}

// validateTeamSet rejects duplicates and ids outside allowed (when allowed is non-nil).
func validateTeamSet(ids []string, allowed map[string]bool) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateTeam, id)
		}
		seen[id] = true
		if allowed != nil && !allowed[id] {
			return fmt.Errorf("%w: %s", ErrUnknownTeam, id)
		}
	}
	return nil
}

func derefMatches(matches []*models.Match) []models.Match {
	result := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			result = append(result, *m)
		}
	}
	return result
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
