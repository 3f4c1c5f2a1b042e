package game

import (
	"fmt"
	"strings"
	"sync"

	"github.com/scythe504/mafia-backend/internal"
	"github.com/scythe504/mafia-backend/internal/utils"
	"go.uber.org/zap"
)

// Binding is the identity a connection currently speaks for.
type Binding struct {
	RoomCode string
	PlayerID string
	IsHost   bool
}

// Sessions maps transient connection ids to durable identities. Its lock is
// a leaf: it may be taken under a room lock, never the other way around.
type Sessions struct {
	mu    sync.RWMutex
	conns map[string]Binding
}

func NewSessions() *Sessions {
	return &Sessions{conns: make(map[string]Binding)}
}

func (s *Sessions) Bind(connID string, b Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = b
}

func (s *Sessions) Lookup(connID string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.conns[connID]
	return b, ok
}

func (s *Sessions) Unbind(connID string) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.conns[connID]
	if ok {
		delete(s.conns, connID)
	}
	return b, ok
}

// UnbindRoom drops every connection bound to code and returns their ids.
func (s *Sessions) UnbindRoom(code string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for connID, b := range s.conns {
		if b.RoomCode == code {
			ids = append(ids, connID)
			delete(s.conns, connID)
		}
	}
	return ids
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// =============================================================================
// RECONNECTION
// =============================================================================

// RestoreSession rebinds the identity owning token to connID. The durable
// token, role and alive status of that identity never change.
func (r *Registry) RestoreSession(connID, code, token string) (internal.RestoreSessionResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		err := fmt.Errorf("%w: token", ErrEmptyInput)
		r.reject(internal.ReqRestoreSession, code, err)
		return internal.RestoreSessionResult{}, err
	}

	var identity Binding
	err := r.withRoom(code, func(room *internal.Room) error {
		b, ok := matchToken(room, token)
		if !ok {
			return ErrUnknownSession
		}
		identity = b
		return nil
	})
	if err != nil {
		r.reject(internal.ReqRestoreSession, code, err)
		return internal.RestoreSessionResult{}, err
	}

	if current, ok := r.sessions.Lookup(connID); ok && current != identity {
		r.Disconnect(connID)
	}

	var res internal.RestoreSessionResult
	err = r.withRoom(code, func(room *internal.Room) error {
		b, ok := matchToken(room, token)
		if !ok {
			return ErrUnknownSession
		}
		r.rebind(room, b, connID)
		res = internal.RestoreSessionResult{RoomCode: room.Code, IsHost: b.IsHost, PlayerID: b.PlayerID}
		return nil
	})
	if err != nil {
		r.reject(internal.ReqRestoreSession, code, err)
		return internal.RestoreSessionResult{}, err
	}
	return res, nil
}

func matchToken(room *internal.Room, token string) (Binding, bool) {
	if room.Host != nil && room.Host.Token == token {
		return Binding{RoomCode: room.Code, IsHost: true}, true
	}
	if p := room.GetPlayerByToken(token); p != nil {
		return Binding{RoomCode: room.Code, PlayerID: p.Id}, true
	}
	return Binding{}, false
}

// rebind points identity b at connID and detaches whatever connection held
// it before. Caller holds room.Mu.
func (r *Registry) rebind(room *internal.Room, b Binding, connID string) {
	var previous string
	var player *internal.Player
	if b.IsHost {
		previous = room.Host.ConnID
		room.Host.ConnID = connID
	} else {
		player = room.GetPlayer(b.PlayerID)
		previous = player.ConnID
		player.ConnID = connID
		player.IsConnected = true
	}

	if previous != "" && previous != connID {
		r.sessions.Unbind(previous)
		r.transport.LeaveGroup(room.Code, previous)
	}
	r.sessions.Bind(connID, b)
	r.transport.JoinGroup(room.Code, connID)
	r.touch(room)

	if player != nil && player.Role != "" {
		r.sendRoleReveal(room, player)
	}
	if room.Phase == internal.PhaseEnded {
		r.sendTo(connID, internal.Message[internal.GameOverData]{
			Type: internal.MsgGameOver,
			Data: buildGameOver(room),
		})
	}
	r.broadcastState(room)

	r.logger.Info("[RestoreSession] session restored",
		zap.String("room", room.Code),
		zap.Bool("host", b.IsHost),
		zap.String("player", b.PlayerID))
}

// =============================================================================
// DISCONNECTION & LEAVING
// =============================================================================

// Disconnect detaches connID from whatever identity it holds. Players stay in
// the game, alive, until they restore or the room is evicted; a host
// disconnect only empties the host slot.
func (r *Registry) Disconnect(connID string) {
	b, ok := r.sessions.Unbind(connID)
	if !ok {
		return
	}
	r.transport.LeaveGroup(b.RoomCode, connID)

	room := r.Lookup(b.RoomCode)
	if room == nil {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Closed {
		return
	}

	changed := false
	if b.IsHost {
		if room.Host != nil && room.Host.ConnID == connID {
			room.Host.ConnID = ""
			changed = true
		}
	} else if p := room.GetPlayer(b.PlayerID); p != nil && p.ConnID == connID {
		p.ConnID = ""
		p.IsConnected = false
		changed = true
	}
	if !changed {
		return
	}

	r.touch(room)
	r.broadcastState(room)
	r.logger.Info("[Disconnect] connection dropped",
		zap.String("room", room.Code),
		zap.Bool("host", b.IsHost),
		zap.String("player", b.PlayerID))
}

// Leave is a voluntary departure. In the lobby the player is removed; during
// a game the player dies with their role revealed and the win check runs.
// A host leaving closes the room.
func (r *Registry) Leave(connID, code string) error {
	if b, ok := r.sessions.Lookup(connID); ok && b.IsHost && b.RoomCode == utils.NormalizeRoomCode(code) {
		return r.CloseRoom(connID, code)
	}

	var removedToken string
	err := r.withPlayer(internal.ReqLeaveRoom, connID, code, func(room *internal.Room, p *internal.Player) error {
		r.sessions.Unbind(connID)
		r.transport.LeaveGroup(room.Code, connID)
		p.ConnID = ""
		p.IsConnected = false
		r.touch(room)

		switch room.Phase {
		case internal.PhaseLobby:
			room.RemovePlayer(p.Id)
			removedToken = p.Token
		case internal.PhaseEnded:
		default:
			if p.IsAlive {
				p.IsAlive = false
				room.Announcement = fmt.Sprintf("%s left the game. They were %s.", p.Username, roleLabel(p.Role))
				if winner := EvaluateWinner(room.Players); winner != internal.FactionNone {
					r.endGame(room, winner)
					return nil
				}
			}
		}

		r.broadcastState(room)
		r.logger.Info("[Leave] player left",
			zap.String("room", room.Code),
			zap.String("player", p.Id),
			zap.String("phase", string(room.Phase)))
		return nil
	})
	if removedToken != "" {
		r.deleteDirectory(removedToken)
	}
	return err
}
