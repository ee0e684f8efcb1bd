package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-organizer/models"
)

func rate(v float64) *float64 { return &v }

func TestCreateTeam(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	team, err := e.teams.Create(ctx, owner, TeamInput{Name: " Arsenal ", ShortName: "Arsenal", Abbreviation: "ars"})
	require.NoError(t, err)
	assert.Equal(t, "Arsenal", team.Name)
	assert.Equal(t, "ARS", team.Abbreviation)
	assert.Equal(t, models.DefaultTeamRate, team.Rate)
	assert.Equal(t, owner, team.OwnerID)

	strong, err := e.teams.Create(ctx, owner, TeamInput{Name: "Giants", Rate: rate(20)})
	require.NoError(t, err)
	assert.Equal(t, models.MaxTeamRate, strong.Rate)

	weak, err := e.teams.Create(ctx, owner, TeamInput{Name: "Minnows", Rate: rate(0)})
	require.NoError(t, err)
	assert.Equal(t, models.MinTeamRate, weak.Rate)

	_, err = e.teams.Create(ctx, owner, TeamInput{Name: "ARSENAL"})
	assert.ErrorIs(t, err, ErrTeamNameConflict)
	_, err = e.teams.Create(ctx, owner, TeamInput{Name: "  "})
	assert.ErrorIs(t, err, ErrTeamNameRequired)

	missing := "nope"
	_, err = e.teams.Create(ctx, owner, TeamInput{Name: "Lost", FolderID: &missing})
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestUpdateTeam(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	folder, err := e.folders.Create(ctx, owner, FolderInput{Name: "Premier"})
	require.NoError(t, err)
	team, err := e.teams.Create(ctx, owner, TeamInput{Name: "Chelsea", Rate: rate(2.5)})
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	updated, err := e.teams.Update(ctx, owner, team.ID, TeamInput{Name: "Chelsea FC", Abbreviation: "che", FolderID: &folder.ID})
	require.NoError(t, err)
	assert.Equal(t, "Chelsea FC", updated.Name)
	assert.Equal(t, 2.5, updated.Rate, "an omitted rate keeps the stored one")
	assert.Equal(t, e.clock.Now(), updated.UpdatedAt)

	inFolder, err := e.teams.List(ctx, owner, &folder.ID)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, team.ID, inFolder[0].ID)

	_, err = e.teams.Update(ctx, owner+1, team.ID, TeamInput{Name: "Hijacked"})
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = e.teams.GetByID(ctx, owner+1, team.ID)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestSearchTeams(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	for _, in := range []TeamInput{
		{Name: "Arsenal", Abbreviation: "ARS"},
		{Name: "Aston Villa", ShortName: "Villa", Abbreviation: "AVL"},
		{Name: "Chelsea", Abbreviation: "CHE"},
	} {
		_, err := e.teams.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	found, err := e.teams.Search(ctx, owner, "arsnl")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Arsenal", found[0].Name)

	found, err = e.teams.Search(ctx, owner, "VILLA")
	require.NoError(t, err)
	require.Len(t, found, 1, "a team matching several labels is listed once")
	assert.Equal(t, "Aston Villa", found[0].Name)

	found, err = e.teams.Search(ctx, owner, "che")
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "Chelsea", found[0].Name)

	found, err = e.teams.Search(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	found, err = e.teams.Search(ctx, owner+1, "arsenal")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDeleteTeam_InUse(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	ids := e.createTeams(t, "One", "Two", "Spare")
	tournament := e.createTournament(t, models.FormatLeague, ids[:2], nil)
	_, err := e.brackets.GenerateFixtures(ctx, owner, tournament.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.teams.Delete(ctx, owner, ids[0]), ErrTeamInUse)
	assert.NoError(t, e.teams.Delete(ctx, owner, ids[2]))
	assert.ErrorIs(t, e.teams.Delete(ctx, owner, ids[2]), ErrTeamNotFound)
}

func TestFolders(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.folders.Create(ctx, owner, FolderInput{Name: ""})
	assert.ErrorIs(t, err, ErrFolderNameRequired)

	root, err := e.folders.Create(ctx, owner, FolderInput{Name: "Seasons"})
	require.NoError(t, err)
	child, err := e.folders.Create(ctx, owner, FolderInput{Name: "2024", ParentID: &root.ID})
	require.NoError(t, err)
	grandchild, err := e.folders.Create(ctx, owner, FolderInput{Name: "Spring", ParentID: &child.ID})
	require.NoError(t, err)
	require.NotNil(t, grandchild.ParentID)

	_, err = e.folders.Update(ctx, owner, root.ID, FolderInput{Name: "Seasons", ParentID: &grandchild.ID})
	assert.ErrorIs(t, err, ErrFolderCycle)
	_, err = e.folders.Update(ctx, owner, root.ID, FolderInput{Name: "Seasons", ParentID: &root.ID})
	assert.ErrorIs(t, err, ErrFolderCycle)

	missing := "nope"
	_, err = e.folders.Create(ctx, owner, FolderInput{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, ErrFolderNotFound)

	moved, err := e.folders.Update(ctx, owner, grandchild.ID, FolderInput{Name: "Spring"})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	list, err := e.folders.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	assert.ErrorIs(t, e.folders.Delete(ctx, owner+1, root.ID), ErrFolderNotFound)
	assert.NoError(t, e.folders.Delete(ctx, owner, grandchild.ID))
}
