package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
)

type FolderInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type FolderService interface {
	Create(ctx context.Context, ownerID int, input FolderInput) (*models.Folder, error)
	List(ctx context.Context, ownerID int) ([]models.Folder, error)
	Update(ctx context.Context, ownerID int, id string, input FolderInput) (*models.Folder, error)
	Delete(ctx context.Context, ownerID int, id string) error
}

type folderService struct {
	folderRepo repositories.FolderRepository
	clock      clockwork.Clock
	newID      IDGenerator
}

func NewFolderService(folderRepo repositories.FolderRepository, clock clockwork.Clock, newID IDGenerator) FolderService {
	return &folderService{folderRepo: folderRepo, clock: clock, newID: newID}
}

func (s *folderService) Create(ctx context.Context, ownerID int, input FolderInput) (*models.Folder, error) {
	folder := &models.Folder{
		ID:        s.newID(),
		OwnerID:   ownerID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.apply(ctx, folder, input); err != nil {
		return nil, err
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", handleRepositoryError(err))
	}
	return folder, nil
}

func (s *folderService) List(ctx context.Context, ownerID int) ([]models.Folder, error) {
	folders, err := s.folderRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

func (s *folderService) Update(ctx context.Context, ownerID int, id string, input FolderInput) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := s.apply(ctx, folder, input); err != nil {
		return nil, err
	}
	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to update folder %s: %w", id, handleRepositoryError(err))
	}
	return folder, nil
}

func (s *folderService) Delete(ctx context.Context, ownerID int, id string) error {
	return handleRepositoryError(s.folderRepo.Delete(ctx, ownerID, id))
}

// apply validates the name and walks up from the new parent to make sure the
// folder does not end up inside itself.
func (s *folderService) apply(ctx context.Context, folder *models.Folder, input FolderInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ErrFolderNameRequired
	}
	folder.Name = name

	folder.ParentID = nil
	if input.ParentID == nil || *input.ParentID == "" {
		return nil
	}
	for cursor := input.ParentID; cursor != nil; {
		if *cursor == folder.ID {
			return ErrFolderCycle
		}
		parent, err := s.folderRepo.GetByID(ctx, folder.OwnerID, *cursor)
		if err != nil {
			return handleRepositoryError(err)
		}
		cursor = parent.ParentID
	}
	folder.ParentID = input.ParentID
	return nil
}
