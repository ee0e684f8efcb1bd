package repositories

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-organizer/models"
)

// fakeRow hands column values to Scan the way database/sql does for the types
// used here: Scanners get the raw value, plain fields a converted copy.
type fakeRow []interface{}

func (r fakeRow) Scan(dest ...interface{}) error {
	for i, d := range dest {
		if scanner, ok := d.(sql.Scanner); ok {
			if err := scanner.Scan(r[i]); err != nil {
				return err
			}
			continue
		}
		target := reflect.ValueOf(d).Elem()
		target.Set(reflect.ValueOf(r[i]).Convert(target.Type()))
	}
	return nil
}

func TestNullJSON(t *testing.T) {
	empty, err := nullJSON[models.Score](nil)
	require.NoError(t, err)
	assert.False(t, empty.Valid)
	value, err := empty.Value()
	require.NoError(t, err)
	assert.Nil(t, value, "a missing score is stored as NULL")

	pens, err := nullJSON(&models.Score{Home: 4, Away: 3})
	require.NoError(t, err)
	assert.True(t, pens.Valid)
	value, err = pens.Value()
	require.NoError(t, err)
	raw, ok := value.([]byte)
	require.True(t, ok)
	assert.JSONEq(t, `{"home":4,"away":3}`, string(raw))

	decoded, err := fromNullJSON[models.Score](pens)
	require.NoError(t, err)
	assert.Equal(t, &models.Score{Home: 4, Away: 3}, decoded)

	decoded, err = fromNullJSON[models.Score](empty)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestScanMatch_OptionalColumns(t *testing.T) {
	extra, err := nullJSON(&models.Score{Home: 1})
	require.NoError(t, err)
	extraValue, err := extra.Value()
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m, err := scanMatch(fakeRow{
		"m1", "cup", "knockout", 2, 0, "1/2", "1/2#1", int64(2),
		"b", nil, 0, 1, extraValue, nil,
		true, now, now,
	})
	require.NoError(t, err)

	require.NotNil(t, m.Tie)
	assert.Equal(t, models.TieLeg{PairID: "1/2#1", Leg: 2}, *m.Tie)
	assert.Equal(t, "b", m.HomeTeamID)
	assert.Empty(t, m.AwayTeamID)
	assert.Equal(t, &models.Score{Home: 1}, m.ExtraTime)
	assert.Nil(t, m.Penalties)

	_, err = scanMatch(fakeRow{
		"m2", "cup", "knockout", 1, 0, "1/2", nil, nil,
		"a", "b", 1, 1, nil, []byte(`{"home":`),
		true, now, now,
	})
	assert.ErrorContains(t, err, "failed to decode penalties")
}

func TestTournamentJSONColumns(t *testing.T) {
	tournament := &models.Tournament{Settings: models.DefaultSettings()}
	groups, settings, err := encodeTournamentJSON(tournament)
	require.NoError(t, err)
	assert.True(t, groups.Valid)
	assert.JSONEq(t, `[]`, string(groups.RawMessage), "no groups is an empty list, never NULL")

	groupsValue, err := groups.Value()
	require.NoError(t, err)
	settingsValue, err := settings.Value()
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	decoded, err := scanTournament(fakeRow{
		"cup", 7, "Cup", "league", 1, "draft", nil,
		[]byte(`{a,b}`), groupsValue, settingsValue, now, now,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, decoded.TeamIDs)
	assert.NotNil(t, decoded.Groups)
	assert.Empty(t, decoded.Groups)
	assert.Equal(t, tournament.Settings, decoded.Settings)
	assert.Nil(t, decoded.FolderID)
}
