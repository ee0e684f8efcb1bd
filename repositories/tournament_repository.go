package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/Dosada05/tournament-organizer/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentNameConflict  = errors.New("tournament name conflict for this owner")
	ErrTournamentInvalidFolder = errors.New("invalid folder reference")
)

type ListTournamentsFilter struct {
	OwnerID  int
	FolderID *string
	Format   *models.TournamentFormat
	Status   *models.TournamentStatus
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, ownerID int, id string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, ownerID int, id string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, owner_id, name, format, season, status, folder_id, team_ids, team_groups, settings, created_at, updated_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	groups, settings, err := encodeTournamentJSON(t)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.getExecutor(exec).ExecContext(ctx, query,
		t.ID, t.OwnerID, t.Name, t.Format, t.Season, t.Status, nullString(t.FolderID),
		pq.Array(t.TeamIDs), groups, settings, t.CreatedAt, t.UpdatedAt,
	)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, ownerID int, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 AND owner_id = $2`

	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE owner_id = $1`
	args := []interface{}{filter.OwnerID}
	argID := 2

	if filter.FolderID != nil {
		query += fmt.Sprintf(" AND folder_id = $%d", argID)
		args = append(args, *filter.FolderID)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", scanErr)
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	groups, settings, err := encodeTournamentJSON(t)
	if err != nil {
		return err
	}
	query := `
		UPDATE tournaments SET
			name = $1,
			format = $2,
			season = $3,
			status = $4,
			folder_id = $5,
			team_ids = $6,
			team_groups = $7,
			settings = $8,
			updated_at = $9
		WHERE id = $10 AND owner_id = $11`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		t.Name, t.Format, t.Season, t.Status, nullString(t.FolderID),
		pq.Array(t.TeamIDs), groups, settings, t.UpdatedAt,
		t.ID, t.OwnerID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete removes the tournament; its matches go with it (ON DELETE CASCADE).
func (r *postgresTournamentRepository) Delete(ctx context.Context, ownerID int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func encodeTournamentJSON(t *models.Tournament) (groups, settings pqtype.NullRawMessage, err error) {
	g := t.Groups
	if g == nil {
		g = [][]string{}
	}
	if groups, err = nullJSON(&g); err != nil {
		return groups, settings, fmt.Errorf("failed to encode tournament groups: %w", err)
	}
	if settings, err = nullJSON(&t.Settings); err != nil {
		return groups, settings, fmt.Errorf("failed to encode tournament settings: %w", err)
	}
	return groups, settings, nil
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var (
		t           models.Tournament
		folderID    sql.NullString
		teamIDs     pq.StringArray
		groupsRaw   pqtype.NullRawMessage
		settingsRaw pqtype.NullRawMessage
	)
	if err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Format, &t.Season, &t.Status, &folderID,
		&teamIDs, &groupsRaw, &settingsRaw, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.FolderID = stringPtr(folderID)
	t.TeamIDs = []string(teamIDs)

	groups, err := fromNullJSON[[][]string](groupsRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tournament groups: %w", err)
	}
	if groups != nil {
		t.Groups = *groups
	}
	settings, err := fromNullJSON[models.Settings](settingsRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tournament settings: %w", err)
	}
	if settings != nil {
		t.Settings = *settings
	}
	return &t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr := pqError(err); pqErr != nil {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_owner_id_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_folder_id_fkey" {
				return ErrTournamentInvalidFolder
			}
		}
	}
	return err
}
