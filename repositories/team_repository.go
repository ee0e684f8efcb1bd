package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/tournament-organizer/models"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamNameConflict  = errors.New("team name already exists for this owner")
	ErrTeamInUse         = errors.New("team is referenced by matches")
	ErrTeamInvalidFolder = errors.New("invalid folder reference")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, ownerID int, id string) (*models.Team, error)
	ListByOwner(ctx context.Context, ownerID int, folderID *string) ([]models.Team, error)
	ListByIDs(ctx context.Context, ownerID int, ids []string) ([]models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, ownerID int, id string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const teamColumns = `id, owner_id, name, short_name, abbreviation, rate, folder_id, created_at, updated_at`

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Team) error {
	query := `
		INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		t.ID, t.OwnerID, t.Name, t.ShortName, t.Abbreviation, t.Rate, nullString(t.FolderID), t.CreatedAt, t.UpdatedAt,
	)
	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, ownerID int, id string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 AND owner_id = $2`

	t, err := scanTeam(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTeamRepository) ListByOwner(ctx context.Context, ownerID int, folderID *string) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if folderID != nil {
		query += ` AND folder_id = $2`
		args = append(args, *folderID)
	}
	query += ` ORDER BY name ASC`

	return r.list(ctx, query, args...)
}

// ListByIDs returns the owner's teams among ids, in no particular order.
func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ownerID int, ids []string) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE owner_id = $1 AND id::text = ANY($2)`
	return r.list(ctx, query, ownerID, pq.Array(ids))
}

func (r *postgresTeamRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		t, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan team: %w", scanErr)
		}
		teams = append(teams, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, t *models.Team) error {
	query := `
		UPDATE teams SET
			name = $1,
			short_name = $2,
			abbreviation = $3,
			rate = $4,
			folder_id = $5,
			updated_at = $6
		WHERE id = $7 AND owner_id = $8`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.ShortName, t.Abbreviation, t.Rate, nullString(t.FolderID), t.UpdatedAt,
		t.ID, t.OwnerID,
	)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, ownerID int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var (
		t        models.Team
		folderID sql.NullString
	)
	if err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.ShortName, &t.Abbreviation, &t.Rate, &folderID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.FolderID = stringPtr(folderID)
	return &t, nil
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr := pqError(err); pqErr != nil {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "teams_owner_id_name_key" {
				return ErrTeamNameConflict
			}
		case "23503":
			if pqErr.Constraint == "teams_folder_id_fkey" {
				return ErrTeamInvalidFolder
			}
			// Команда участвует в матчах (ON DELETE RESTRICT).
			return ErrTeamInUse
		}
	}
	return err
}
