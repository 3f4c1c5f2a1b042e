package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scythe504/mafia-backend/internal"
	"go.uber.org/zap"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// RecordGame stores a finished game and its roster.
	RecordGame(ctx context.Context, rec internal.GameRecord) error

	// RecentGames returns up to limit games, newest first.
	RecentGames(ctx context.Context, limit int) ([]internal.GameRecord, error)

	// Close terminates the database connection.
	Close() error
}

type service struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var ErrNoURL = errors.New("database url is empty")

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         BIGSERIAL PRIMARY KEY,
	room_code  TEXT        NOT NULL,
	winner     TEXT        NOT NULL,
	rounds     INTEGER     NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS game_players (
	game_id   BIGINT  NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	player_id TEXT    NOT NULL,
	name      TEXT    NOT NULL,
	role      TEXT    NOT NULL,
	alive     BOOLEAN NOT NULL,
	PRIMARY KEY (game_id, player_id)
);

CREATE INDEX IF NOT EXISTS games_ended_at_idx ON games (ended_at DESC);
`

func New(ctx context.Context, databaseURL string, logger *zap.Logger) (Service, error) {
	if databaseURL == "" {
		return nil, ErrNoURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("Connected to database", zap.String("database", pool.Config().ConnConfig.Database))
	return &service{pool: pool, logger: logger}, nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.logger.Error("[Health] database ping failed", zap.Error(err))
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	st := s.pool.Stat()
	stats["total_connections"] = strconv.Itoa(int(st.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(st.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(st.AcquiredConns()))
	stats["max_connections"] = strconv.Itoa(int(st.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(st.AcquireCount(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(st.EmptyAcquireCount(), 10)

	if st.MaxConns() > 0 && st.AcquiredConns() == st.MaxConns() {
		stats["message"] = "The database is experiencing heavy load."
	}
	if st.EmptyAcquireCount() > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) RecordGame(ctx context.Context, rec internal.GameRecord) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO games (room_code, winner, rounds, started_at, ended_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			rec.RoomCode, string(rec.Winner), rec.Rounds, rec.StartedAt, rec.EndedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		batch := &pgx.Batch{}
		for _, p := range rec.Players {
			batch.Queue(
				`INSERT INTO game_players (game_id, player_id, name, role, alive)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, p.ID, p.Username, string(p.Role), p.IsAlive,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert players: %w", err)
		}
		return nil
	})
}

func (s *service) RecentGames(ctx context.Context, limit int) ([]internal.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, room_code, winner, rounds, started_at, ended_at
		 FROM games ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.GameRecord, error) {
		var g internal.GameRecord
		var winner string
		err := row.Scan(&g.ID, &g.RoomCode, &winner, &g.Rounds, &g.StartedAt, &g.EndedAt)
		g.Winner = internal.Faction(winner)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan games: %w", err)
	}
	if len(games) == 0 {
		return games, nil
	}

	ids := make([]int64, len(games))
	byID := make(map[int64]int, len(games))
	for i, g := range games {
		ids[i] = g.ID
		byID[g.ID] = i
	}

	rows, err = s.pool.Query(ctx,
		`SELECT game_id, player_id, name, role, alive
		 FROM game_players WHERE game_id = ANY($1) ORDER BY game_id, name`, ids)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gameID int64
		var p internal.FinalPlayer
		var role string
		if err := rows.Scan(&gameID, &p.ID, &p.Username, &role, &p.IsAlive); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.Role = internal.Role(role)
		i := byID[gameID]
		games[i].Players = append(games[i].Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

// Close closes the database connection pool.
func (s *service) Close() error {
	s.logger.Info("Disconnected from database")
	s.pool.Close()
	return nil
}
