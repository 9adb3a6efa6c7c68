package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardacey/Lexo/domain"
	"github.com/ardacey/Lexo/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

// RecordGameResult implements game.StatsRecorder. The history row and the
// aggregate move together; a result already stored for the room and user
// is ignored so retries do not count a game twice.
func (pgr *PostgresRepo) RecordGameResult(ctx context.Context, record game.GameRecord) error {
	tx, err := pgr.pool.Begin(ctx)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO game_history
			(user_id, room_id, game_mode, result, score, words_played, final_position, total_players, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (room_id, user_id) DO NOTHING`,
		record.UserID, record.RoomID, string(record.Mode), string(record.Result), record.Score,
		record.WordsPlayed, record.FinalPosition, record.TotalPlayers, record.StartedAt, record.EndedAt,
	)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	win, loss, draw := 0, 0, 0
	switch record.Result {
	case game.OutcomeWin:
		win = 1
	case game.OutcomeDraw:
		draw = 1
	default:
		loss = 1
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_stats (user_id, games_played, wins, losses, draws, total_score, highest_score, words_played)
		VALUES ($1, 1, $2, $3, $4, $5, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			games_played  = user_stats.games_played + 1,
			wins          = user_stats.wins + EXCLUDED.wins,
			losses        = user_stats.losses + EXCLUDED.losses,
			draws         = user_stats.draws + EXCLUDED.draws,
			total_score   = user_stats.total_score + EXCLUDED.total_score,
			highest_score = GREATEST(user_stats.highest_score, EXCLUDED.highest_score),
			words_played  = user_stats.words_played + EXCLUDED.words_played,
			updated_at    = now()`,
		record.UserID, win, loss, draw, record.Score, record.WordsPlayed,
	)
	if err != nil {
		return wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap(err)
	}
	return nil
}

// UserStats returns the aggregate of a user. A user without games gets
// zeroes.
func (pgr *PostgresRepo) UserStats(ctx context.Context, userID string) (game.UserStats, error) {
	stats := game.UserStats{UserID: userID}

	row := pgr.pool.QueryRow(ctx, `
		SELECT games_played, wins, losses, draws, total_score, highest_score, words_played
		FROM user_stats WHERE user_id = $1`, userID)

	err := row.Scan(&stats.GamesPlayed, &stats.Wins, &stats.Losses, &stats.Draws,
		&stats.TotalScore, &stats.HighestScore, &stats.WordsPlayed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, nil
		}
		return game.UserStats{}, wrap(err)
	}
	return stats, nil
}

// Words implements game.WordSource.
func (pgr *PostgresRepo) Words(ctx context.Context) ([]string, error) {
	rows, err := pgr.pool.Query(ctx, "SELECT word FROM words")
	if err != nil {
		return nil, wrap(err)
	}

	words, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap(err)
	}
	return words, nil
}
