package game

import (
	"time"

	"github.com/scythe504/mafia-backend/internal"
	"go.uber.org/zap"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// schedulePhaseTimer arms the single wake-up for the current phase, replacing
// any pending one. Caller holds room.Mu.
func (r *Registry) schedulePhaseTimer(room *internal.Room, d time.Duration) {
	r.cancelPhaseTimer(room)

	room.TimerSeq++
	gen := room.TimerSeq
	code := room.Code
	deadline := r.clock.Now().Add(d)

	handle := r.clock.AfterFunc(d, func() {
		r.onPhaseTimeout(code, gen)
	})
	room.Timer = &internal.GameTimer{
		Generation: gen,
		Handle:     handle,
	}
	room.PhaseEndsAt = &deadline
}

// cancelPhaseTimer stops the pending wake-up, if any. Caller holds room.Mu.
func (r *Registry) cancelPhaseTimer(room *internal.Room) {
	if room.Timer != nil {
		room.Timer.Handle.Stop()
		room.Timer = nil
	}
	room.PhaseEndsAt = nil
}

// onPhaseTimeout is the wake-up callback. A wake-up whose generation no
// longer matches the room's timer is stale and does nothing.
func (r *Registry) onPhaseTimeout(code string, gen uint64) {
	room := r.Lookup(code)
	if room == nil {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Closed || room.Timer == nil || room.Timer.Generation != gen {
		r.logger.Debug("[onPhaseTimeout] stale wake-up ignored",
			zap.String("room", code), zap.Uint64("generation", gen))
		return
	}
	room.Timer = nil
	r.advancePhase(room)
}
