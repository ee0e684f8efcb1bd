package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-organizer/models"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tournaments")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("R2_BUCKET_NAME", "snapshots")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/tournaments", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "snapshots", cfg.R2.BucketName)
	assert.False(t, cfg.R2.Enabled())
	assert.Equal(t, 4, cfg.PublishWorkers)
	assert.Equal(t, models.DefaultSettings(), cfg.DefaultSettings)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")
	os.Unsetenv("DATABASE_URL")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tournaments")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoadSettingsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
points_win: 2
away_goals: true
knockout_legs: home_away
starting_stage: "1/4"
turns: 9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadSettingsDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, 2, s.PointsWin)
	assert.Equal(t, 1, s.PointsDraw, "keys missing from the file keep defaults")
	assert.True(t, s.AwayGoals)
	assert.Equal(t, models.LegsHomeAway, s.KnockoutLegs)
	assert.Equal(t, "1/4", s.StartingStage)
	assert.Equal(t, models.MaxTurns, s.Turns)
}

func TestLoadSettingsDefaults_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tiebreakers: [coin_toss]\n"), 0o600))

	_, err := LoadSettingsDefaults(path)
	require.ErrorIs(t, err, models.ErrSettingsInvalid)
}
