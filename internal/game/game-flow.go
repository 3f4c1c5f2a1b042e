package game

import (
	"fmt"

	"github.com/scythe504/mafia-backend/internal"
	"go.uber.org/zap"
)

// =============================================================================
// GAME FLOW - PHASE TRANSITIONS
// =============================================================================

// advancePhase moves a room out of its expired phase. Resolution happens
// only on DAY_VOTING -> SLEEP and EXECUTION -> ANNOUNCEMENT. Caller holds room.Mu.
func (r *Registry) advancePhase(room *internal.Room) {
	switch room.Phase {
	case internal.PhaseDayDiscussion:
		r.enterPhase(room, internal.PhaseDayVoting)

	case internal.PhaseDayVoting:
		result := ResolveDay(room)
		room.Announcement = dayAnnouncement(room, result)
		if winner := EvaluateWinner(room.Players); winner != internal.FactionNone {
			r.endGame(room, winner)
			return
		}
		r.enterPhase(room, internal.PhaseSleep)

	case internal.PhaseSleep:
		r.enterPhase(room, internal.PhaseDoctor)

	case internal.PhaseDoctor:
		r.enterPhase(room, internal.PhaseMafia)

	case internal.PhaseMafia:
		r.enterPhase(room, internal.PhaseExecution)

	case internal.PhaseExecution:
		outcome := ResolveNight(room)
		room.Announcement = nightAnnouncement(outcome)
		if winner := EvaluateWinner(room.Players); winner != internal.FactionNone {
			r.endGame(room, winner)
			return
		}
		r.enterPhase(room, internal.PhaseAnnouncement)

	case internal.PhaseAnnouncement:
		room.RoundNumber++
		r.enterPhase(room, internal.PhaseDayDiscussion)

	default:
		// lobby waits for the host; ended is terminal
	}
}

// enterPhase applies the entry resets of phase, arms its deadline and
// broadcasts the new state. Caller holds room.Mu.
func (r *Registry) enterPhase(room *internal.Room, phase internal.GamePhase) {
	prev := room.Phase
	room.Phase = phase

	switch phase {
	case internal.PhaseDayDiscussion:
		room.DetectiveUsed = false
		room.DetectiveTarget = ""
	case internal.PhaseDayVoting:
		room.DayVotes = make(map[string]string)
	case internal.PhaseDoctor:
		room.DoctorTarget = ""
	case internal.PhaseMafia:
		room.NightVotes = make(map[string]string)
	}

	r.schedulePhaseTimer(room, r.durations.For(phase))
	r.metrics.PhaseEntered(string(phase))

	r.logger.Info("[enterPhase] phase changed",
		zap.String("room", room.Code),
		zap.String("from", string(prev)),
		zap.String("phase", string(phase)),
		zap.Int("round", room.RoundNumber))

	r.broadcastState(room)
}

// endGame moves the room to ENDED, reveals every role and archives the result.
// Caller holds room.Mu.
func (r *Registry) endGame(room *internal.Room, winner internal.Faction) {
	r.cancelPhaseTimer(room)
	room.Phase = internal.PhaseEnded
	room.Winner = winner
	room.LastActivity = r.clock.Now()

	verdict := "The Town wins!"
	if winner == internal.FactionMafia {
		verdict = "The Mafia wins!"
	}
	if room.Announcement != "" {
		room.Announcement = fmt.Sprintf("%s %s", room.Announcement, verdict)
	} else {
		room.Announcement = verdict
	}

	r.metrics.PhaseEntered(string(internal.PhaseEnded))
	r.metrics.GameFinished(string(winner))
	r.logger.Info("[endGame] game over",
		zap.String("room", room.Code),
		zap.String("winner", string(winner)),
		zap.Int("rounds", room.RoundNumber))

	r.broadcastState(room)
	r.transport.BroadcastToRoom(room.Code, internal.Message[internal.GameOverData]{
		Type: internal.MsgGameOver,
		Data: buildGameOver(room),
	})
	r.archiveGame(room)
}
