package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/Dosada05/tournament-organizer/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament reference is invalid")
	ErrMatchTeamInvalid       = errors.New("match team reference is invalid")
)

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, kind, round, group_number, stage, pair_id, leg,
	home_team_id, away_team_id, home_score, away_score, extra_time, penalties, played, created_at, updated_at`

// CreateBatch inserts matches one by one on exec; pass a transaction to make
// the batch atomic.
func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	executor := r.getExecutor(exec)
	for _, m := range matches {
		extraTime, err := nullJSON(m.ExtraTime)
		if err != nil {
			return fmt.Errorf("failed to encode extra time of match %s: %w", m.ID, err)
		}
		penalties, err := nullJSON(m.Penalties)
		if err != nil {
			return fmt.Errorf("failed to encode penalties of match %s: %w", m.ID, err)
		}
		pairID, leg := tieColumns(m.Tie)

		_, err = executor.ExecContext(ctx, query,
			m.ID, m.TournamentID, m.Kind, m.Round, m.Group, m.Stage, pairID, leg,
			nullableID(m.HomeTeamID), nullableID(m.AwayTeamID), m.HomeScore, m.AwayScore,
			extraTime, penalties, m.Played, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return r.handleMatchError(err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

// ListByTournament returns matches in insertion order; the bracket engine
// relies on it to keep ties in seeding order.
func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	extraTime, err := nullJSON(m.ExtraTime)
	if err != nil {
		return fmt.Errorf("failed to encode extra time of match %s: %w", m.ID, err)
	}
	penalties, err := nullJSON(m.Penalties)
	if err != nil {
		return fmt.Errorf("failed to encode penalties of match %s: %w", m.ID, err)
	}

	query := `
		UPDATE matches SET
			home_score = $1,
			away_score = $2,
			extra_time = $3,
			penalties = $4,
			played = $5,
			updated_at = $6
		WHERE id = $7`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		m.HomeScore, m.AwayScore, extraTime, penalties, m.Played, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// DeleteByTournament clears every match of a tournament (season reset).
func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches of tournament %s: %w", tournamentID, err)
	}
	return nil
}

func tieColumns(tie *models.TieLeg) (sql.NullString, sql.NullInt32) {
	if tie == nil {
		return sql.NullString{}, sql.NullInt32{}
	}
	return sql.NullString{String: tie.PairID, Valid: true}, sql.NullInt32{Int32: int32(tie.Leg), Valid: true}
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m            models.Match
		pairID       sql.NullString
		leg          sql.NullInt32
		homeTeamID   sql.NullString
		awayTeamID   sql.NullString
		extraTimeRaw pqtype.NullRawMessage
		penaltiesRaw pqtype.NullRawMessage
	)
	if err := row.Scan(
		&m.ID, &m.TournamentID, &m.Kind, &m.Round, &m.Group, &m.Stage, &pairID, &leg,
		&homeTeamID, &awayTeamID, &m.HomeScore, &m.AwayScore, &extraTimeRaw, &penaltiesRaw,
		&m.Played, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if pairID.Valid {
		m.Tie = &models.TieLeg{PairID: pairID.String, Leg: int(leg.Int32)}
	}
	m.HomeTeamID = homeTeamID.String
	m.AwayTeamID = awayTeamID.String

	var err error
	if m.ExtraTime, err = fromNullJSON[models.Score](extraTimeRaw); err != nil {
		return nil, fmt.Errorf("failed to decode extra time: %w", err)
	}
	if m.Penalties, err = fromNullJSON[models.Score](penaltiesRaw); err != nil {
		return nil, fmt.Errorf("failed to decode penalties: %w", err)
	}
	return &m, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr := pqError(err); pqErr != nil && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
