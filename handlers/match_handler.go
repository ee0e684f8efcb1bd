package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-organizer/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// ListByTournamentHandler godoc
// @Summary Матчи турнира в порядке создания
// @Tags matches
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {array} models.Match
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordResultHandler godoc
// @Summary Записать результат матча
// @Description Дополнительное время и пенальти допускаются только в решающем матче равного противостояния.
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.ResultInput true "Result"
// @Success 200 {object} models.Match
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/result [put]
func (h *MatchHandler) RecordResultHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.RecordResult(r.Context(), userID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SimulateHandler godoc
// @Summary Сыграть матч симулятором
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} models.Match
// @Failure 429 {object} map[string]string
// @Security BearerAuth
// @Router /matches/{matchID}/simulate [post]
func (h *MatchHandler) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Simulate(r.Context(), userID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SimulateRoundHandler godoc
// @Summary Сыграть все несыгранные матчи тура
// @Tags matches
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round query int false "Round, earliest unfinished by default"
// @Success 200 {array} models.Match
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/rounds/simulate [post]
func (h *MatchHandler) SimulateRoundHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIntQuery(r, "round", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.SimulateRound(r.Context(), userID, tournamentID, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
