package game

import (
	"github.com/scythe504/mafia-backend/internal"
)

// =============================================================================
// BROADCAST HELPERS
// =============================================================================

// snapshot is the public view of room: no living player's role, no votes.
// Caller holds room.Mu.
func snapshot(room *internal.Room) internal.RoomStateData {
	players := make([]internal.PublicPlayer, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p.ToPublicPlayer())
	}

	state := internal.RoomStateData{
		Code:         room.Code,
		HostPresent:  room.HostPresent(),
		Phase:        room.Phase,
		RoundNumber:  room.RoundNumber,
		Announcement: room.Announcement,
		Players:      players,
		CanStart:     room.Phase == internal.PhaseLobby && len(room.Players) >= internal.MinPlayersToStart,
	}
	if room.Host != nil {
		state.HostName = room.Host.Name
	}
	if room.PhaseEndsAt != nil {
		deadline := *room.PhaseEndsAt
		state.PhaseEndsAt = &deadline
	}
	return state
}

// broadcastState pushes the room snapshot to every member. Caller holds room.Mu.
func (r *Registry) broadcastState(room *internal.Room) {
	r.transport.BroadcastToRoom(room.Code, internal.Message[internal.RoomStateData]{
		Type: internal.MsgRoomState,
		Data: snapshot(room),
	})
}

// sendRoleReveal tells p its role; Mafia also learn their teammates.
func (r *Registry) sendRoleReveal(room *internal.Room, p *internal.Player) {
	reveal := internal.RoleRevealData{Role: p.Role}
	if p.IsMafia() {
		for _, m := range room.MafiaMembers() {
			reveal.MafiaRoster = append(reveal.MafiaRoster, m.ToPublicPlayer())
		}
	}
	r.sendTo(p.ConnID, internal.Message[internal.RoleRevealData]{
		Type: internal.MsgRoleReveal,
		Data: reveal,
	})
}

func (r *Registry) sendTo(connID string, msg any) {
	if connID == "" {
		return
	}
	r.transport.SendToConn(connID, msg)
}
