package game

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scythe504/mafia-backend/internal"
	"github.com/scythe504/mafia-backend/internal/utils"
	"go.uber.org/zap"
)

// =============================================================================
// GAME FLOW - LOBBY & INITIALIZATION
// =============================================================================

// CreateRoom opens a new lobby hosted by connID.
func (r *Registry) CreateRoom(connID, hostName string) (internal.CreateRoomResult, error) {
	name, err := validateName(hostName)
	if err != nil {
		r.reject(internal.ReqCreateRoom, "", err)
		return internal.CreateRoomResult{}, err
	}

	// one identity per connection
	r.Disconnect(connID)

	host := &internal.Host{
		Name:   name,
		Token:  utils.GenerateToken(),
		ConnID: connID,
	}
	room, err := r.insertRoom(host)
	if err != nil {
		r.reject(internal.ReqCreateRoom, "", err)
		return internal.CreateRoomResult{}, err
	}
	code := room.Code

	r.sessions.Bind(connID, Binding{RoomCode: code, IsHost: true})
	r.transport.JoinGroup(code, connID)

	room.Mu.Lock()
	r.broadcastState(room)
	room.Mu.Unlock()

	r.putDirectory(host.Token, code)
	r.metrics.RoomCreated()
	r.logger.Info("[CreateRoom] room created", zap.String("room", code), zap.String("host", name))

	return internal.CreateRoomResult{RoomCode: code, HostToken: host.Token}, nil
}

// JoinRoom adds a player to a lobby.
func (r *Registry) JoinRoom(connID, code, playerName string) (internal.JoinRoomResult, error) {
	name, err := validateName(playerName)
	if err != nil {
		r.reject(internal.ReqJoinRoom, code, err)
		return internal.JoinRoomResult{}, err
	}

	// validate before detaching the connection from anything it held
	if err := r.withRoom(code, func(room *internal.Room) error {
		return canJoin(room, name)
	}); err != nil {
		r.reject(internal.ReqJoinRoom, code, err)
		return internal.JoinRoomResult{}, err
	}
	r.Disconnect(connID)

	var res internal.JoinRoomResult
	err = r.withRoom(code, func(room *internal.Room) error {
		if err := canJoin(room, name); err != nil {
			return err
		}
		p := &internal.Player{
			Id:          utils.GenerateID(),
			Token:       utils.GenerateToken(),
			ConnID:      connID,
			Username:    name,
			IsAlive:     true,
			IsConnected: true,
			JoinedAt:    r.clock.Now(),
		}
		room.Players = append(room.Players, p)
		r.touch(room)

		r.sessions.Bind(connID, Binding{RoomCode: room.Code, PlayerID: p.Id})
		r.transport.JoinGroup(room.Code, connID)
		r.broadcastState(room)

		res = internal.JoinRoomResult{RoomCode: room.Code, PlayerID: p.Id, PlayerToken: p.Token}
		r.logger.Info("[JoinRoom] player joined",
			zap.String("room", room.Code),
			zap.String("player", p.Id),
			zap.Int("players", len(room.Players)))
		return nil
	})
	if err != nil {
		r.reject(internal.ReqJoinRoom, code, err)
		return internal.JoinRoomResult{}, err
	}

	r.putDirectory(res.PlayerToken, res.RoomCode)
	return res, nil
}

func canJoin(room *internal.Room, name string) error {
	if room.Phase != internal.PhaseLobby {
		return ErrGameStarted
	}
	if room.HasPlayerNamed(name) {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	return nil
}

// StartGame deals roles and opens the first day. Host only.
func (r *Registry) StartGame(connID, code string) error {
	return r.withHost(internal.ReqStartGame, connID, code, func(room *internal.Room) error {
		if room.Phase != internal.PhaseLobby {
			return ErrGameStarted
		}
		if len(room.Players) < internal.MinPlayersToStart {
			return fmt.Errorf("%w: %d/%d", ErrNotEnoughPlayers, len(room.Players), internal.MinPlayersToStart)
		}

		r.assignRoles(room)
		room.RoundNumber = 1
		room.StartedAt = r.clock.Now()
		r.touch(room)

		for _, p := range room.Players {
			r.sendRoleReveal(room, p)
		}

		r.logger.Info("[StartGame] game started",
			zap.String("room", room.Code),
			zap.Int("players", len(room.Players)),
			zap.Int("mafia", MafiaCount(len(room.Players))))

		r.enterPhase(room, internal.PhaseDayDiscussion)
		return nil
	})
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name", ErrEmptyInput)
	}
	if utf8.RuneCountInString(name) > internal.MaxNameLength {
		return "", fmt.Errorf("%w: name over %d characters", ErrInputTooLong, internal.MaxNameLength)
	}
	return name, nil
}
