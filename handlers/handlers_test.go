package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-organizer/middleware"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/services"
)

// Stubs embed the service interface; calling a method a test did not set up panics.
type stubTeamService struct {
	services.TeamService
	create func(ownerID int, input services.TeamInput) (*models.Team, error)
	search func(ownerID int, query string) ([]models.Team, error)
	list   func(ownerID int, folderID *string) ([]models.Team, error)
	delete func(ownerID int, id string) error
}

func (s stubTeamService) Create(_ context.Context, ownerID int, input services.TeamInput) (*models.Team, error) {
	return s.create(ownerID, input)
}

func (s stubTeamService) Search(_ context.Context, ownerID int, query string) ([]models.Team, error) {
	return s.search(ownerID, query)
}

func (s stubTeamService) List(_ context.Context, ownerID int, folderID *string) ([]models.Team, error) {
	return s.list(ownerID, folderID)
}

func (s stubTeamService) Delete(_ context.Context, ownerID int, id string) error {
	return s.delete(ownerID, id)
}

type stubMatchService struct {
	services.MatchService
	record        func(ownerID int, matchID string, input services.ResultInput) (*models.Match, error)
	simulateRound func(ownerID int, tournamentID string, round int) ([]*models.Match, error)
}

func (s stubMatchService) RecordResult(_ context.Context, ownerID int, matchID string, input services.ResultInput) (*models.Match, error) {
	return s.record(ownerID, matchID, input)
}

func (s stubMatchService) SimulateRound(_ context.Context, ownerID int, tournamentID string, round int) ([]*models.Match, error) {
	return s.simulateRound(ownerID, tournamentID, round)
}

type stubPublishService struct {
	services.PublishService
	publish func(ownerID int, tournamentID string) (*services.PublishReceipt, error)
}

func (s stubPublishService) Publish(_ context.Context, ownerID int, tournamentID string) (*services.PublishReceipt, error) {
	return s.publish(ownerID, tournamentID)
}

const testUser = 42

func serve(t *testing.T, router http.Handler, method, target, body string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authenticated {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), testUser))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTeamHandler_Create(t *testing.T) {
	var gotOwner int
	var gotInput services.TeamInput
	h := NewTeamHandler(stubTeamService{
		create: func(ownerID int, input services.TeamInput) (*models.Team, error) {
			gotOwner, gotInput = ownerID, input
			return &models.Team{ID: "t1", OwnerID: ownerID, Name: input.Name}, nil
		},
	})
	router := chi.NewRouter()
	router.Post("/teams", h.CreateHandler)

	rec := serve(t, router, http.MethodPost, "/teams", `{"name":"Arsenal","abbreviation":"ars"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, testUser, gotOwner)
	assert.Equal(t, "ars", gotInput.Abbreviation)

	var team models.Team
	require.NoError(t, json.Unmarshal(decode(t, rec)["team"], &team))
	assert.Equal(t, "t1", team.ID)

	rec = serve(t, router, http.MethodPost, "/teams", `{"name":"Arsenal"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, body := range []string{``, `{"name":`, `{"name":"A","colour":"red"}`, `{"name":"A"}{}`, `{"rate":"high"}`} {
		rec = serve(t, router, http.MethodPost, "/teams", body, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Contains(t, decode(t, rec), "error")
	}
}

func TestTeamHandler_ListAndSearch(t *testing.T) {
	var searched string
	var folder *string
	h := NewTeamHandler(stubTeamService{
		search: func(_ int, query string) ([]models.Team, error) {
			searched = query
			return []models.Team{{ID: "t1"}}, nil
		},
		list: func(_ int, folderID *string) ([]models.Team, error) {
			folder = folderID
			return []models.Team{}, nil
		},
	})
	router := chi.NewRouter()
	router.Get("/teams", h.ListHandler)

	rec := serve(t, router, http.MethodGet, "/teams?q=arsnl", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "arsnl", searched)

	rec = serve(t, router, http.MethodGet, "/teams?folder_id=f1", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, folder)
	assert.Equal(t, "f1", *folder)
	assert.JSONEq(t, `[]`, string(decode(t, rec)["teams"]))
}

func TestTeamHandler_Delete(t *testing.T) {
	h := NewTeamHandler(stubTeamService{
		delete: func(_ int, id string) error {
			if id == "busy" {
				return fmt.Errorf("delete: %w", services.ErrTeamInUse)
			}
			return nil
		},
	})
	router := chi.NewRouter()
	router.Delete("/teams/{teamID}", h.DeleteHandler)

	assert.Equal(t, http.StatusNoContent, serve(t, router, http.MethodDelete, "/teams/free", "", true).Code)
	assert.Equal(t, http.StatusConflict, serve(t, router, http.MethodDelete, "/teams/busy", "", true).Code)
}

func TestMatchHandler_RecordResult(t *testing.T) {
	var got services.ResultInput
	h := NewMatchHandler(stubMatchService{
		record: func(_ int, matchID string, input services.ResultInput) (*models.Match, error) {
			if matchID == "missing" {
				return nil, services.ErrMatchNotFound
			}
			if input.Penalties != nil && input.Penalties.Home == input.Penalties.Away {
				return nil, fmt.Errorf("%w: a shootout needs a winner", services.ErrInvalidScore)
			}
			got = input
			return &models.Match{ID: matchID, HomeScore: input.HomeScore, AwayScore: input.AwayScore, Played: true}, nil
		},
	})
	router := chi.NewRouter()
	router.Put("/matches/{matchID}/result", h.RecordResultHandler)

	rec := serve(t, router, http.MethodPut, "/matches/m1/result", `{"home_score":1,"away_score":1,"penalties":{"home":4,"away":3}}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Penalties)
	assert.Equal(t, 4, got.Penalties.Home)

	rec = serve(t, router, http.MethodPut, "/matches/m1/result", `{"home_score":1,"away_score":1,"penalties":{"home":3,"away":3}}`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, router, http.MethodPut, "/matches/missing/result", `{"home_score":0,"away_score":0}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchHandler_SimulateRound(t *testing.T) {
	var gotRound int
	h := NewMatchHandler(stubMatchService{
		simulateRound: func(_ int, _ string, round int) ([]*models.Match, error) {
			gotRound = round
			if round == 9 {
				return nil, services.ErrNothingToSimulate
			}
			return []*models.Match{{ID: "m1"}}, nil
		},
	})
	router := chi.NewRouter()
	router.Post("/tournaments/{tournamentID}/rounds/simulate", h.SimulateRoundHandler)

	rec := serve(t, router, http.MethodPost, "/tournaments/x/rounds/simulate", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, gotRound, "no round means the earliest open one")

	rec = serve(t, router, http.MethodPost, "/tournaments/x/rounds/simulate?round=9", "", true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 9, gotRound)

	rec = serve(t, router, http.MethodPost, "/tournaments/x/rounds/simulate?round=-1", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataHandler_Publish(t *testing.T) {
	enabled := true
	h := NewDataHandler(nil, stubPublishService{
		publish: func(_ int, tournamentID string) (*services.PublishReceipt, error) {
			if !enabled {
				return nil, services.ErrPublishingDisabled
			}
			key := "tournaments/" + tournamentID + "/season-1.json"
			return &services.PublishReceipt{Key: key, URL: "https://cdn.example.com/" + key}, nil
		},
	})
	router := chi.NewRouter()
	router.Post("/tournaments/{tournamentID}/publish", h.PublishHandler)

	rec := serve(t, router, http.MethodPost, "/tournaments/x/publish", "", true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var receipt services.PublishReceipt
	require.NoError(t, json.Unmarshal(decode(t, rec)["publish"], &receipt))
	assert.Equal(t, "tournaments/x/season-1.json", receipt.Key)

	enabled = false
	rec = serve(t, router, http.MethodPost, "/tournaments/x/publish", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", services.ErrFolderNotFound), http.StatusNotFound},
		{services.ErrInvalidSettings, http.StatusUnprocessableEntity},
		{services.ErrExtraTimeNotAllowed, http.StatusUnprocessableEntity},
		{services.ErrInvalidImport, http.StatusUnprocessableEntity},
		{services.ErrTeamNameConflict, http.StatusConflict},
		{services.ErrStageNotResolved, http.StatusConflict},
		{services.ErrByeMatch, http.StatusConflict},
		{services.ErrPublishingDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("list: %w", services.ErrMatchesListFailed), http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws/tournaments/x", nil)
	assert.True(t, check(req), "requests without an Origin header are allowed")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
