package database

import (
	"context"
	"testing"
	"time"

	"github.com/scythe504/mafia-backend/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func mustStartPostgres(t *testing.T) Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	dbContainer, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mafia"),
		postgres.WithUsername("mafia"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	testcontainers.CleanupContainer(t, dbContainer)
	require.NoError(t, err)

	url, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	srv, err := New(ctx, url, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNew_EmptyURL(t *testing.T) {
	_, err := New(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestHealth(t *testing.T) {
	srv := mustStartPostgres(t)

	stats := srv.Health()

	assert.Equal(t, "up", stats["status"])
	assert.NotContains(t, stats, "error")
	assert.Equal(t, "It's healthy", stats["message"])
}

func TestRecordGame_RoundTrip(t *testing.T) {
	srv := mustStartPostgres(t)
	ctx := context.Background()

	started := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	first := internal.GameRecord{
		RoomCode:  "ABCDE",
		Winner:    internal.FactionTown,
		Rounds:    3,
		StartedAt: started,
		EndedAt:   started.Add(15 * time.Minute),
		Players: []internal.FinalPlayer{
			{ID: "p1", Username: "Alice", Role: internal.RoleMafia, IsAlive: false},
			{ID: "p2", Username: "Bob", Role: internal.RoleDoctor, IsAlive: true},
			{ID: "p3", Username: "Cara", Role: internal.RoleTown, IsAlive: true},
		},
	}
	second := internal.GameRecord{
		RoomCode:  "FGHJK",
		Winner:    internal.FactionMafia,
		Rounds:    2,
		StartedAt: started.Add(time.Hour),
		EndedAt:   started.Add(time.Hour + 10*time.Minute),
		Players: []internal.FinalPlayer{
			{ID: "q1", Username: "Dan", Role: internal.RoleMafia, IsAlive: true},
		},
	}
	require.NoError(t, srv.RecordGame(ctx, first))
	require.NoError(t, srv.RecordGame(ctx, second))

	games, err := srv.RecentGames(ctx, 10)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "FGHJK", games[0].RoomCode)
	assert.Equal(t, internal.FactionMafia, games[0].Winner)
	assert.Len(t, games[0].Players, 1)

	got := games[1]
	assert.NotZero(t, got.ID)
	assert.Equal(t, "ABCDE", got.RoomCode)
	assert.Equal(t, internal.FactionTown, got.Winner)
	assert.Equal(t, 3, got.Rounds)
	assert.True(t, got.StartedAt.Equal(first.StartedAt))
	assert.True(t, got.EndedAt.Equal(first.EndedAt))
	assert.ElementsMatch(t, first.Players, got.Players)

	limited, err := srv.RecentGames(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordGame_DuplicatePlayerRollsBack(t *testing.T) {
	srv := mustStartPostgres(t)
	ctx := context.Background()

	now := time.Now().UTC()
	err := srv.RecordGame(ctx, internal.GameRecord{
		RoomCode:  "ZZZZZ",
		Winner:    internal.FactionTown,
		Rounds:    1,
		StartedAt: now,
		EndedAt:   now,
		Players: []internal.FinalPlayer{
			{ID: "dup", Username: "A", Role: internal.RoleTown},
			{ID: "dup", Username: "B", Role: internal.RoleTown},
		},
	})
	require.Error(t, err)

	games, err := srv.RecentGames(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, games)
}
