package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

// CreateHandler godoc
// @Summary Создать команду
// @Tags teams
// @Accept json
// @Produce json
// @Param body body services.TeamInput true "Team"
// @Success 201 {object} models.Team
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input services.TeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler godoc
// @Summary Команда по ID
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} models.Team
// @Security BearerAuth
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetByID(r.Context(), userID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler godoc
// @Summary Команды владельца, с нечетким поиском по q
// @Tags teams
// @Produce json
// @Param q query string false "Search by name, short name or abbreviation"
// @Param folder_id query string false "Folder ID"
// @Success 200 {array} models.Team
// @Security BearerAuth
// @Router /teams [get]
func (h *TeamHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var (
		teams []models.Team
		err   error
	)
	if q := query.Get("q"); q != "" {
		teams, err = h.teamService.Search(r.Context(), userID, q)
	} else {
		var folderID *string
		if f := query.Get("folder_id"); f != "" {
			folderID = &f
		}
		teams, err = h.teamService.List(r.Context(), userID, folderID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler godoc
// @Summary Изменить команду
// @Tags teams
// @Accept json
// @Produce json
// @Param teamID path string true "Team ID"
// @Param body body services.TeamInput true "Team"
// @Success 200 {object} models.Team
// @Security BearerAuth
// @Router /teams/{teamID} [put]
func (h *TeamHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.TeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Update(r.Context(), userID, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler godoc
// @Summary Удалить команду
// @Description Команду, сыгравшую хотя бы один матч, удалить нельзя (409).
// @Tags teams
// @Param teamID path string true "Team ID"
// @Success 204
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /teams/{teamID} [delete]
func (h *TeamHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.Delete(r.Context(), userID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
