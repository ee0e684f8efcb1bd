package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-organizer/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

type confirmQualificationRequest struct {
	TeamIDs []string `json:"team_ids"`
}

// GenerateFixturesHandler godoc
// @Summary Сгенерировать матчи
// @Description Для швейцарской системы каждый вызов создает следующий тур.
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 201 {array} models.Match
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/fixtures [post]
func (h *BracketHandler) GenerateFixturesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.GenerateFixtures(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler godoc
// @Summary Турнирная таблица (лига или группы)
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} services.StandingsView
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/standings [get]
func (h *BracketHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.Standings(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// QualificationHandler godoc
// @Summary Текущий список квалифицировавшихся
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} services.QualificationView
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/qualification [get]
func (h *BracketHandler) QualificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.Qualification(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"qualification": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmQualificationHandler godoc
// @Summary Зафиксировать квалификацию
// @Description Пустое тело или пустой team_ids подтверждает список по умолчанию.
// @Tags bracket
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body confirmQualificationRequest false "Qualified teams"
// @Success 200 {object} services.QualificationView
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/qualification/confirm [post]
func (h *BracketHandler) ConfirmQualificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input confirmQualificationRequest
	if err := readJSON(w, r, &input); err != nil && !errors.Is(err, errEmptyBody) {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.ConfirmQualification(r.Context(), userID, tournamentID, input.TeamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"qualification": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartKnockoutHandler godoc
// @Summary Начать плей-офф после группового этапа
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 201 {array} models.Match
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/knockout [post]
func (h *BracketHandler) StartKnockoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.StartKnockout(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceHandler godoc
// @Summary Перейти к следующей стадии плей-офф (или следующему туру швейцарской системы)
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} services.AdvanceResult
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/advance [post]
func (h *BracketHandler) AdvanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.bracketService.Advance(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"advance": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracketHandler godoc
// @Summary Сетка плей-офф
// @Tags bracket
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} services.BracketView
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *BracketHandler) GetBracketHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.Bracket(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
