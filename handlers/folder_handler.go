package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-organizer/services"
)

type FolderHandler struct {
	folderService services.FolderService
}

func NewFolderHandler(fs services.FolderService) *FolderHandler {
	return &FolderHandler{folderService: fs}
}

// CreateHandler godoc
// @Summary Создать папку
// @Tags folders
// @Accept json
// @Produce json
// @Param body body services.FolderInput true "Folder"
// @Success 201 {object} models.Folder
// @Security BearerAuth
// @Router /folders [post]
func (h *FolderHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input services.FolderInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	folder, err := h.folderService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"folder": folder}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler godoc
// @Summary Папки владельца
// @Tags folders
// @Produce json
// @Success 200 {array} models.Folder
// @Security BearerAuth
// @Router /folders [get]
func (h *FolderHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	folders, err := h.folderService.List(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"folders": folders}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler godoc
// @Summary Переименовать или переместить папку
// @Tags folders
// @Accept json
// @Produce json
// @Param folderID path string true "Folder ID"
// @Param body body services.FolderInput true "Folder"
// @Success 200 {object} models.Folder
// @Security BearerAuth
// @Router /folders/{folderID} [put]
func (h *FolderHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "folderID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.FolderInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	folder, err := h.folderService.Update(r.Context(), userID, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"folder": folder}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler godoc
// @Summary Удалить папку
// @Tags folders
// @Param folderID path string true "Folder ID"
// @Success 204
// @Security BearerAuth
// @Router /folders/{folderID} [delete]
func (h *FolderHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "folderID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.folderService.Delete(r.Context(), userID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
