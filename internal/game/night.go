package game

import (
	"fmt"

	"github.com/scythe504/mafia-backend/internal"
)

// NightOutcome describes what the Mafia's choice did.
type NightOutcome struct {
	Votes  VoteResult
	Target *internal.Player
	Saved  bool
}

func (o NightOutcome) Killed() bool {
	return o.Target != nil && !o.Saved
}

// =============================================================================
// NIGHT ACTIONS
// =============================================================================

// ProtectTarget records the Doctor's choice for tonight. Self-protection is allowed.
func (r *Registry) ProtectTarget(connID, code, targetID string) error {
	return r.withPlayer(internal.ReqProtect, connID, code, func(room *internal.Room, p *internal.Player) error {
		if room.Phase != internal.PhaseDoctor {
			return fmt.Errorf("%w: the Doctor acts in the doctor phase", ErrWrongPhase)
		}
		if !p.IsAlive {
			return ErrActorNotAlive
		}
		if p.Role != internal.RoleDoctor {
			return ErrLacksRole
		}
		if !room.IsAlive(targetID) {
			return ErrInvalidTarget
		}
		room.DoctorTarget = targetID
		r.touch(room)
		return nil
	})
}

// CastMafiaVote records a Mafia member's kill choice. A later vote replaces an earlier one.
func (r *Registry) CastMafiaVote(connID, code, targetID string) error {
	return r.withPlayer(internal.ReqMafiaVote, connID, code, func(room *internal.Room, p *internal.Player) error {
		if room.Phase != internal.PhaseMafia {
			return fmt.Errorf("%w: the Mafia acts in the mafia phase", ErrWrongPhase)
		}
		if !p.IsAlive {
			return ErrActorNotAlive
		}
		if !p.IsMafia() {
			return ErrLacksRole
		}
		if !room.IsAlive(targetID) {
			return ErrInvalidTarget
		}
		room.NightVotes[p.Id] = targetID
		r.touch(room)
		return nil
	})
}

// ResolveNight applies the Mafia's kill unless the living Doctor protected
// the same player. Caller holds room.Mu.
func ResolveNight(room *internal.Room) NightOutcome {
	votes := ResolveVotes(room.NightVotes, room.IsAliveMafia, room.IsAlive)
	out := NightOutcome{Votes: votes}
	if !votes.HasResult() {
		return out
	}

	out.Target = room.GetPlayer(votes.Target)
	if room.DoctorTarget == votes.Target && room.AlivePlayer(internal.RoleDoctor) != nil {
		out.Saved = true
		return out
	}
	out.Target.IsAlive = false
	return out
}

func nightAnnouncement(out NightOutcome) string {
	switch {
	case out.Target == nil:
		return "The night passed quietly. Nobody was killed."
	case out.Saved:
		return "The Mafia struck, but the Doctor saved their target. Nobody was killed."
	default:
		return fmt.Sprintf("%s was killed during the night. They were %s.",
			out.Target.Username, roleLabel(out.Target.Role))
	}
}
