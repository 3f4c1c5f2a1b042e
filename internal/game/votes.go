package game

import (
	"fmt"

	"github.com/scythe504/mafia-backend/internal"
)

// VoteResult is the outcome of a tally. Target is empty when nobody reached a
// strict, unique, positive maximum.
type VoteResult struct {
	Target string
	Tally  map[string]int
	Tie    bool
}

func (v VoteResult) HasResult() bool {
	return v.Target != ""
}

// ResolveVotes counts one vote per distinct voter, skipping votes whose voter
// or target is not eligible right now. Ties at the top and empty tallies
// produce no result.
func ResolveVotes(votes map[string]string, eligibleVoter, eligibleTarget func(id string) bool) VoteResult {
	tally := make(map[string]int)
	for voter, target := range votes {
		if !eligibleVoter(voter) || !eligibleTarget(target) {
			continue
		}
		tally[target]++
	}

	best, leaders := 0, 0
	var leader string
	for target, count := range tally {
		switch {
		case count > best:
			best, leaders, leader = count, 1, target
		case count == best:
			leaders++
		}
	}

	res := VoteResult{Tally: tally}
	switch {
	case best == 0:
	case leaders > 1:
		res.Tie = true
	default:
		res.Target = leader
	}
	return res
}

// =============================================================================
// DAY VOTING
// =============================================================================

// CastDayVote records the caller's elimination choice. A later vote replaces
// an earlier one.
func (r *Registry) CastDayVote(connID, code, targetID string) error {
	return r.withPlayer(internal.ReqDayVote, connID, code, func(room *internal.Room, p *internal.Player) error {
		if room.Phase != internal.PhaseDayVoting {
			return fmt.Errorf("%w: voting is closed", ErrWrongPhase)
		}
		if !p.IsAlive {
			return ErrActorNotAlive
		}
		if !room.IsAlive(targetID) {
			return ErrInvalidTarget
		}
		room.DayVotes[p.Id] = targetID
		r.touch(room)
		return nil
	})
}

// ResolveDay eliminates the day's vote winner, if any. Caller holds room.Mu.
func ResolveDay(room *internal.Room) VoteResult {
	res := ResolveVotes(room.DayVotes, room.IsAlive, room.IsAlive)
	if res.HasResult() {
		room.GetPlayer(res.Target).IsAlive = false
	}
	return res
}

func dayAnnouncement(room *internal.Room, res VoteResult) string {
	if !res.HasResult() {
		if res.Tie {
			return "The vote was tied. Nobody was eliminated."
		}
		return "The town did not vote. Nobody was eliminated."
	}
	p := room.GetPlayer(res.Target)
	return fmt.Sprintf("%s was voted out with %d votes. They were %s.",
		p.Username, res.Tally[res.Target], roleLabel(p.Role))
}
