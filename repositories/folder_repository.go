package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-organizer/models"
)

var (
	ErrFolderNotFound      = errors.New("folder not found")
	ErrFolderInvalidParent = errors.New("invalid parent folder reference")
)

type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, ownerID int, id string) (*models.Folder, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	Delete(ctx context.Context, ownerID int, id string) error
}

type postgresFolderRepository struct {
	db *sql.DB
}

func NewPostgresFolderRepository(db *sql.DB) FolderRepository {
	return &postgresFolderRepository{db: db}
}

func (r *postgresFolderRepository) Create(ctx context.Context, f *models.Folder) error {
	query := `INSERT INTO folders (id, owner_id, name, parent_id, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.OwnerID, f.Name, nullString(f.ParentID), f.CreatedAt)
	return r.handleFolderError(err)
}

func (r *postgresFolderRepository) GetByID(ctx context.Context, ownerID int, id string) (*models.Folder, error) {
	query := `SELECT id, owner_id, name, parent_id, created_at FROM folders WHERE id = $1 AND owner_id = $2`

	var (
		f        models.Folder
		parentID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&f.ID, &f.OwnerID, &f.Name, &parentID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder %s: %w", id, err)
	}
	f.ParentID = stringPtr(parentID)
	return &f, nil
}

func (r *postgresFolderRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.Folder, error) {
	query := `SELECT id, owner_id, name, parent_id, created_at FROM folders WHERE owner_id = $1 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	folders := make([]models.Folder, 0)
	for rows.Next() {
		var (
			f        models.Folder
			parentID sql.NullString
		)
		if scanErr := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &parentID, &f.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", scanErr)
		}
		f.ParentID = stringPtr(parentID)
		folders = append(folders, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *postgresFolderRepository) Update(ctx context.Context, f *models.Folder) error {
	query := `UPDATE folders SET name = $1, parent_id = $2 WHERE id = $3 AND owner_id = $4`
	result, err := r.db.ExecContext(ctx, query, f.Name, nullString(f.ParentID), f.ID, f.OwnerID)
	if err != nil {
		return r.handleFolderError(err)
	}
	return checkAffectedRows(result, ErrFolderNotFound)
}

// Delete removes the folder and its subfolders; teams and tournaments inside
// are kept and moved to the root.
func (r *postgresFolderRepository) Delete(ctx context.Context, ownerID int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return r.handleFolderError(err)
	}
	return checkAffectedRows(result, ErrFolderNotFound)
}

func (r *postgresFolderRepository) handleFolderError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr := pqError(err); pqErr != nil && pqErr.Code == "23503" {
		return ErrFolderInvalidParent
	}
	return err
}
