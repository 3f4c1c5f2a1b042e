package game

import (
	"context"
	"time"

	"github.com/scythe504/mafia-backend/internal"
	"go.uber.org/zap"
)

const archiveTimeout = 5 * time.Second

// =============================================================================
// GAME RESULTS
// =============================================================================

// buildGameOver reveals every role. Caller holds room.Mu.
func buildGameOver(room *internal.Room) internal.GameOverData {
	return internal.GameOverData{
		Winner:       room.Winner,
		RoundsPlayed: room.RoundNumber,
		Players:      finalPlayers(room),
	}
}

func finalPlayers(room *internal.Room) []internal.FinalPlayer {
	players := make([]internal.FinalPlayer, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p.ToFinalPlayer())
	}
	return players
}

// archiveGame stores the finished game in the background. Caller holds room.Mu.
func (r *Registry) archiveGame(room *internal.Room) {
	if r.archive == nil {
		return
	}
	rec := internal.GameRecord{
		RoomCode:  room.Code,
		Winner:    room.Winner,
		Rounds:    room.RoundNumber,
		StartedAt: room.StartedAt,
		EndedAt:   r.clock.Now(),
		Players:   finalPlayers(room),
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := r.archive.RecordGame(ctx, rec); err != nil {
			r.logger.Error("[archiveGame] failed to archive game", zap.String("room", rec.RoomCode), zap.Error(err))
			return
		}
		r.logger.Info("[archiveGame] game archived", zap.String("room", rec.RoomCode))
	}()
}
