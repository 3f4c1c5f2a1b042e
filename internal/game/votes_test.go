package game

import (
	"testing"

	"github.com/scythe504/mafia-backend/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anyone(string) bool { return true }

func TestResolveVotes(t *testing.T) {
	tests := []struct {
		name   string
		votes  map[string]string
		voter  func(string) bool
		target func(string) bool
		want   string
		tie    bool
	}{
		{
			name:   "unique maximum wins",
			votes:  map[string]string{"a": "x", "b": "x", "c": "y"},
			voter:  anyone,
			target: anyone,
			want:   "x",
		},
		{
			name:   "tie at the top",
			votes:  map[string]string{"a": "x", "b": "y"},
			voter:  anyone,
			target: anyone,
			tie:    true,
		},
		{
			name:   "no votes",
			votes:  map[string]string{},
			voter:  anyone,
			target: anyone,
		},
		{
			name:   "ineligible voters ignored",
			votes:  map[string]string{"a": "x", "dead1": "y", "dead2": "y"},
			voter:  func(id string) bool { return id == "a" },
			target: anyone,
			want:   "x",
		},
		{
			name:   "ineligible target ignored",
			votes:  map[string]string{"a": "x", "b": "x", "c": "y"},
			voter:  anyone,
			target: func(id string) bool { return id != "x" },
			want:   "y",
		},
		{
			name:   "every vote ineligible",
			votes:  map[string]string{"a": "x"},
			voter:  func(string) bool { return false },
			target: anyone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveVotes(tt.votes, tt.voter, tt.target)
			assert.Equal(t, tt.want, res.Target)
			assert.Equal(t, tt.tie, res.Tie)
			assert.Equal(t, tt.want != "", res.HasResult())
		})
	}
}

func TestCastDayVote_LatestVoteOnly(t *testing.T) {
	h := startedGame(t, 6)
	h.advanceTo(internal.PhaseDayVoting)

	p1, p2, p3 := h.players[0], h.players[1], h.players[2]
	require.NoError(t, h.reg.CastDayVote(p1, h.code, h.id(p2)))
	require.NoError(t, h.reg.CastDayVote(p1, h.code, h.id(p3)))

	room := h.room()
	room.Mu.Lock()
	res := ResolveVotes(room.DayVotes, room.IsAlive, room.IsAlive)
	room.Mu.Unlock()

	assert.Equal(t, h.id(p3), res.Target)
	assert.Equal(t, 1, res.Tally[h.id(p3)])
	assert.Zero(t, res.Tally[h.id(p2)])
}

func TestCastDayVote_Rejections(t *testing.T) {
	h := startedGame(t, 6)
	p1, p2 := h.players[0], h.players[1]

	err := h.reg.CastDayVote(p1, h.code, h.id(p2))
	assert.ErrorIs(t, err, ErrWrongPhase, "discussion is not voting")

	h.advanceTo(internal.PhaseDayVoting)

	err = h.reg.CastDayVote(p1, h.code, "no-such-player")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	err = h.reg.CastDayVote(hostConn, h.code, h.id(p2))
	assert.ErrorIs(t, err, ErrLacksRole, "the host cannot vote")

	err = h.reg.CastDayVote("conn-stranger", h.code, h.id(p2))
	assert.ErrorIs(t, err, ErrNotInRoom)

	err = h.reg.CastDayVote(p1, "QQQQQ", h.id(p2))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	room := h.room()
	room.Mu.Lock()
	assert.Empty(t, room.DayVotes)
	room.Mu.Unlock()
}

func TestCastDayVote_DeadTargetRejected(t *testing.T) {
	h := startedGame(t, 6)
	town := h.nonMafia()
	require.NoError(t, h.reg.Leave(town[0], h.code))
	h.advanceTo(internal.PhaseDayVoting)

	err := h.reg.CastDayVote(town[1], h.code, h.id(town[0]))
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

// Scenario: six players, two Mafia. The town votes three to one to eliminate
// a Mafia member, who dies with the role revealed; one Mafia remains so the
// game goes on into the night.
func TestDayElimination_RevealsMafia(t *testing.T) {
	h := startedGame(t, 6)
	mafia := h.withRole(internal.RoleMafia)
	town := h.nonMafia()
	require.Len(t, mafia, 2)
	require.Len(t, town, 4)

	h.advanceTo(internal.PhaseDayVoting)
	for _, c := range town[:3] {
		require.NoError(t, h.reg.CastDayVote(c, h.code, h.id(mafia[0])))
	}
	require.NoError(t, h.reg.CastDayVote(town[3], h.code, h.id(town[0])))
	require.NoError(t, h.reg.CastDayVote(mafia[0], h.code, h.id(town[0])))
	require.NoError(t, h.reg.CastDayVote(mafia[1], h.code, h.id(town[1])))

	h.step()

	assert.Equal(t, internal.PhaseSleep, h.phase())
	assert.False(t, h.alive(mafia[0]))
	for _, c := range town {
		assert.True(t, h.alive(c))
	}

	state := h.lastState()
	assert.Equal(t, internal.RoleMafia, publicPlayer(state, h.id(mafia[0])).Role)
	assert.Empty(t, publicPlayer(state, h.id(mafia[1])).Role)
	assert.Contains(t, state.Announcement, h.player(mafia[0]).Username)
	assert.Contains(t, state.Announcement, "Mafia")
}

func TestDayVote_TieEliminatesNobody(t *testing.T) {
	h := startedGame(t, 6)
	p := h.players
	h.advanceTo(internal.PhaseDayVoting)

	require.NoError(t, h.reg.CastDayVote(p[0], h.code, h.id(p[1])))
	require.NoError(t, h.reg.CastDayVote(p[1], h.code, h.id(p[0])))
	h.step()

	assert.Equal(t, internal.PhaseSleep, h.phase())
	for _, c := range p {
		assert.True(t, h.alive(c))
	}
	assert.Contains(t, h.lastState().Announcement, "tied")
}
