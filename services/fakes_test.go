package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Dosada05/tournament-organizer/metrics"
	"github.com/Dosada05/tournament-organizer/models"
	"github.com/Dosada05/tournament-organizer/repositories"
	"github.com/Dosada05/tournament-organizer/simulator"
	"github.com/Dosada05/tournament-organizer/storage"
)

// memStore backs every fake repository. Values go in and out as copies, the
// way rows do.
type memStore struct {
	mu          sync.Mutex
	folders     map[string]models.Folder
	teams       map[string]models.Team
	tournaments map[string]models.Tournament
	matches     []models.Match

	// failOnInsert fails the match insert with that number, counted across
	// batches from one; inserts counts the attempts.
	failOnInsert int
	inserts      int
	listErr      error
}

var errInsertFailed = errors.New("insert failed")

func newMemStore() *memStore {
	return &memStore{
		folders:     make(map[string]models.Folder),
		teams:       make(map[string]models.Team),
		tournaments: make(map[string]models.Tournament),
	}
}

func cloneTournament(t models.Tournament) models.Tournament {
	t.TeamIDs = slices.Clone(t.TeamIDs)
	groups := make([][]string, 0, len(t.Groups))
	for _, g := range t.Groups {
		groups = append(groups, slices.Clone(g))
	}
	if t.Groups != nil {
		t.Groups = groups
	}
	t.Settings.Tiebreaks = slices.Clone(t.Settings.Tiebreaks)
	t.Settings.ConfirmedQualifiers = slices.Clone(t.Settings.ConfirmedQualifiers)
	t.Teams, t.Matches = nil, nil
	return t
}

func cloneMatch(m models.Match) *models.Match {
	if m.Tie != nil {
		tie := *m.Tie
		m.Tie = &tie
	}
	if m.ExtraTime != nil {
		extra := *m.ExtraTime
		m.ExtraTime = &extra
	}
	if m.Penalties != nil {
		pens := *m.Penalties
		m.Penalties = &pens
	}
	return &m
}

type fakeFolderRepo struct{ s *memStore }

func (r fakeFolderRepo) Create(_ context.Context, folder *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.folders[folder.ID] = *folder
	return nil
}

func (r fakeFolderRepo) GetByID(_ context.Context, ownerID int, id string) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	folder, ok := r.s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, repositories.ErrFolderNotFound
	}
	return &folder, nil
}

func (r fakeFolderRepo) ListByOwner(_ context.Context, ownerID int) ([]models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Folder
	for _, folder := range r.s.folders {
		if folder.OwnerID == ownerID {
			out = append(out, folder)
		}
	}
	slices.SortFunc(out, func(a, b models.Folder) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	if _, err := r.GetByID(ctx, folder.OwnerID, folder.ID); err != nil {
		return err
	}
	return r.Create(ctx, folder)
}

func (r fakeFolderRepo) Delete(_ context.Context, ownerID int, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	folder, ok := r.s.folders[id]
	if !ok || folder.OwnerID != ownerID {
		return repositories.ErrFolderNotFound
	}
	delete(r.s.folders, id)
	return nil
}

type fakeTeamRepo struct{ s *memStore }

func (r fakeTeamRepo) conflict(team *models.Team) bool {
	for _, other := range r.s.teams {
		if other.ID != team.ID && other.OwnerID == team.OwnerID && strings.EqualFold(other.Name, team.Name) {
			return true
		}
	}
	return false
}

func (r fakeTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.conflict(team) {
		return repositories.ErrTeamNameConflict
	}
	r.s.teams[team.ID] = *team
	return nil
}

func (r fakeTeamRepo) GetByID(_ context.Context, ownerID int, id string) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team, ok := r.s.teams[id]
	if !ok || team.OwnerID != ownerID {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

func (r fakeTeamRepo) ListByOwner(_ context.Context, ownerID int, folderID *string) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Team
	for _, team := range r.s.teams {
		if team.OwnerID != ownerID {
			continue
		}
		if folderID != nil && (team.FolderID == nil || *team.FolderID != *folderID) {
			continue
		}
		out = append(out, team)
	}
	slices.SortFunc(out, func(a, b models.Team) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r fakeTeamRepo) ListByIDs(_ context.Context, ownerID int, ids []string) ([]models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Team
	for _, id := range ids {
		if team, ok := r.s.teams[id]; ok && team.OwnerID == ownerID {
			out = append(out, team)
		}
	}
	return out, nil
}

func (r fakeTeamRepo) Update(_ context.Context, team *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.teams[team.ID]
	if !ok || stored.OwnerID != team.OwnerID {
		return repositories.ErrTeamNotFound
	}
	if r.conflict(team) {
		return repositories.ErrTeamNameConflict
	}
	r.s.teams[team.ID] = *team
	return nil
}

func (r fakeTeamRepo) Delete(_ context.Context, ownerID int, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	team, ok := r.s.teams[id]
	if !ok || team.OwnerID != ownerID {
		return repositories.ErrTeamNotFound
	}
	for _, m := range r.s.matches {
		if m.HasTeam(id) {
			return repositories.ErrTeamInUse
		}
	}
	delete(r.s.teams, id)
	return nil
}

type fakeTournamentRepo struct{ s *memStore }

func (r fakeTournamentRepo) conflict(t *models.Tournament) bool {
	for _, other := range r.s.tournaments {
		if other.ID != t.ID && other.OwnerID == t.OwnerID && other.Name == t.Name {
			return true
		}
	}
	return false
}

func (r fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.conflict(t) {
		return repositories.ErrTournamentNameConflict
	}
	r.s.tournaments[t.ID] = cloneTournament(*t)
	return nil
}

func (r fakeTournamentRepo) GetByID(_ context.Context, ownerID int, id string) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.OwnerID != ownerID {
		return nil, repositories.ErrTournamentNotFound
	}
	t = cloneTournament(t)
	return &t, nil
}

func (r fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.s.tournaments {
		switch {
		case t.OwnerID != filter.OwnerID,
			filter.Format != nil && t.Format != *filter.Format,
			filter.Status != nil && t.Status != *filter.Status,
			filter.FolderID != nil && (t.FolderID == nil || *t.FolderID != *filter.FolderID):
			continue
		}
		out = append(out, cloneTournament(t))
	}
	slices.SortFunc(out, func(a, b models.Tournament) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r fakeTournamentRepo) Update(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tournaments[t.ID]
	if !ok || stored.OwnerID != t.OwnerID {
		return repositories.ErrTournamentNotFound
	}
	if r.conflict(t) {
		return repositories.ErrTournamentNameConflict
	}
	r.s.tournaments[t.ID] = cloneTournament(*t)
	return nil
}

func (r fakeTournamentRepo) Delete(_ context.Context, ownerID int, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.OwnerID != ownerID {
		return repositories.ErrTournamentNotFound
	}
	delete(r.s.tournaments, id)
	r.s.matches = slices.DeleteFunc(r.s.matches, func(m models.Match) bool { return m.TournamentID == id })
	return nil
}

type fakeMatchRepo struct{ s *memStore }

func (r fakeMatchRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range matches {
		r.s.inserts++
		if r.s.inserts == r.s.failOnInsert {
			return errInsertFailed
		}
		if m.HomeTeamID != "" {
			if _, ok := r.s.teams[m.HomeTeamID]; !ok {
				return repositories.ErrMatchTeamInvalid
			}
		}
		r.s.matches = append(r.s.matches, *cloneMatch(*m))
	}
	return nil
}

func (r fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.ID == id {
			return cloneMatch(m), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.listErr != nil {
		return nil, r.s.listErr
	}
	var out []*models.Match
	for _, m := range r.s.matches {
		if m.TournamentID == tournamentID {
			out = append(out, cloneMatch(m))
		}
	}
	return out, nil
}

func (r fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.matches {
		if r.s.matches[i].ID == m.ID {
			r.s.matches[i] = *cloneMatch(*m)
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.matches = slices.DeleteFunc(r.s.matches, func(m models.Match) bool { return m.TournamentID == tournamentID })
	return nil
}

// fakeTx runs the unit of work directly and restores the store when it
// fails, like a rollback. The fakes ignore the executor.
type fakeTx struct{ s *memStore }

func (tx fakeTx) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx.s.mu.Lock()
	teams := maps.Clone(tx.s.teams)
	tournaments := maps.Clone(tx.s.tournaments)
	matches := slices.Clone(tx.s.matches)
	tx.s.mu.Unlock()

	if err := fn(nil); err != nil {
		tx.s.mu.Lock()
		tx.s.teams, tx.s.tournaments, tx.s.matches = teams, tournaments, matches
		tx.s.mu.Unlock()
		return err
	}
	return nil
}

type notification struct {
	Room    string
	Type    string
	Payload any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) Notify(roomID, messageType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{Room: roomID, Type: messageType, Payload: payload})
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Type)
	}
	return out
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

var _ storage.FileUploader = (*fakeUploader)(nil)

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if u.fail != nil {
		return nil, u.fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (u *fakeUploader) object(key string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	body, ok := u.objects[key]
	return body, ok
}

// sequentialIDs returns an IDGenerator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) IDGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

const owner = 7

// env wires every service against one in-memory store.
type env struct {
	store    *memStore
	clock    *clockwork.FakeClock
	notifier *fakeNotifier
	uploader *fakeUploader

	folders     FolderService
	teams       TeamService
	tournaments TournamentService
	brackets    BracketService
	matches     MatchService
	exports     ExportService
	publisher   PublishService
}

type sequenceSource struct {
	values []float64
	next   int
}

func (s *sequenceSource) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := newMemStore()
	folderRepo, teamRepo := fakeFolderRepo{store}, fakeTeamRepo{store}
	tournamentRepo, matchRepo := fakeTournamentRepo{store}, fakeMatchRepo{store}
	tx := fakeTx{store}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewNop()
	newID := sequentialIDs("id")
	notifier := &fakeNotifier{}
	uploader := newFakeUploader()
	sim := simulator.New(&sequenceSource{values: []float64{0.42, 0.17, 0.93, 0.58, 0.05, 0.71, 0.36}})

	e := &env{
		store:       store,
		clock:       clock,
		notifier:    notifier,
		uploader:    uploader,
		folders:     NewFolderService(folderRepo, clock, newID),
		teams:       NewTeamService(teamRepo, folderRepo, clock, newID, logger),
		tournaments: NewTournamentService(tournamentRepo, teamRepo, matchRepo, folderRepo, tx, clock, newID, models.DefaultSettings(), logger),
		brackets:    NewBracketService(tournamentRepo, teamRepo, matchRepo, tx, notifier, m, clock, newID, logger),
		matches:     NewMatchService(tournamentRepo, teamRepo, matchRepo, tx, sim, notifier, m, clock, logger),
		exports:     NewExportService(tournamentRepo, teamRepo, matchRepo, tx, clock, newID, logger),
		publisher:   NewPublishService(tournamentRepo, teamRepo, matchRepo, uploader, 2, m, clock, logger),
	}
	t.Cleanup(e.publisher.Stop)
	return e
}

// createTeams registers teams named after names and returns their ids in order.
func (e *env) createTeams(t *testing.T, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		team, err := e.teams.Create(context.Background(), owner, TeamInput{Name: name})
		if err != nil {
			t.Fatalf("create team %s: %v", name, err)
		}
		ids = append(ids, team.ID)
	}
	return ids
}

func (e *env) createTournament(t *testing.T, format models.TournamentFormat, teamIDs []string, settings *models.Settings) *models.Tournament {
	t.Helper()
	tournament, err := e.tournaments.Create(context.Background(), owner, CreateTournamentInput{
		Name:     "Cup " + string(format),
		Format:   format,
		TeamIDs:  teamIDs,
		Settings: settings,
	})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tournament
}

// record stores a regulation result and fails the test on error.
func (e *env) record(t *testing.T, matchID string, home, away int) *models.Match {
	t.Helper()
	m, err := e.matches.RecordResult(context.Background(), owner, matchID, ResultInput{HomeScore: home, AwayScore: away})
	if err != nil {
		t.Fatalf("record %s: %v", matchID, err)
	}
	return m
}

func (e *env) storedTournament(t *testing.T, id string) models.Tournament {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	stored, ok := e.store.tournaments[id]
	if !ok {
		t.Fatalf("tournament %s not stored", id)
	}
	return stored
}
