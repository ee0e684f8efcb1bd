package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-organizer/services"
)

// DataHandler serves import/export documents and published snapshots.
type DataHandler struct {
	exportService  services.ExportService
	publishService services.PublishService
}

func NewDataHandler(es services.ExportService, ps services.PublishService) *DataHandler {
	return &DataHandler{exportService: es, publishService: ps}
}

// ExportHandler godoc
// @Summary Выгрузить команды и турниры владельца
// @Tags data
// @Produce json
// @Success 200 {object} services.ExportDocument
// @Security BearerAuth
// @Router /export [get]
func (h *DataHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	doc, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	headers := http.Header{}
	headers.Set("Content-Disposition", `attachment; filename="tournaments.json"`)
	if err := writeJSON(w, http.StatusOK, doc, headers); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ImportHandler godoc
// @Summary Загрузить документ экспорта
// @Description Все сущности создаются с новыми идентификаторами в одной транзакции.
// @Tags data
// @Accept json
// @Produce json
// @Param body body services.ExportDocument true "Document"
// @Success 201 {object} services.ImportResult
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /import [post]
func (h *DataHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var doc services.ExportDocument
	if err := readJSON(w, r, &doc); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.exportService.Import(r.Context(), userID, doc)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"imported": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PublishHandler godoc
// @Summary Опубликовать снимок турнира
// @Description Снимок загружается в фоне; ответ содержит будущий публичный URL.
// @Tags data
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 202 {object} services.PublishReceipt
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/publish [post]
func (h *DataHandler) PublishHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	receipt, err := h.publishService.Publish(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"publish": receipt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UnpublishHandler godoc
// @Summary Удалить опубликованный снимок текущего сезона
// @Tags data
// @Param tournamentID path string true "Tournament ID"
// @Success 204
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/publish [delete]
func (h *DataHandler) UnpublishHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.publishService.Unpublish(r.Context(), userID, tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
