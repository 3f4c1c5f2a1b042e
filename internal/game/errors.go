package game

import "errors"

// Validation failures returned to the caller alone. None of them mutate room state.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrWrongPhase       = errors.New("wrong phase for this action")
	ErrActorNotAlive    = errors.New("actor is not alive")
	ErrLacksRole        = errors.New("actor lacks the required role")
	ErrNotHost          = errors.New("only the host can do this")
	ErrInvalidTarget    = errors.New("target not alive or not found")
	ErrEmptyInput       = errors.New("empty input")
	ErrInputTooLong     = errors.New("input too long")
	ErrNameTaken        = errors.New("name already taken in this room")
	ErrAllowanceUsed    = errors.New("investigation allowance already used")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrGameStarted      = errors.New("game already started")
	ErrUnknownSession   = errors.New("unknown session")
	ErrNotInRoom        = errors.New("connection is not in this room")
	ErrUnknownChannel   = errors.New("unknown chat channel")
	ErrShuttingDown     = errors.New("server is shutting down")
)

// Reason maps an error to a short metric label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrActorNotAlive):
		return "not_alive"
	case errors.Is(err, ErrLacksRole):
		return "lacks_role"
	case errors.Is(err, ErrNotHost):
		return "not_host"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInputTooLong):
		return "bad_input"
	case errors.Is(err, ErrNameTaken):
		return "name_taken"
	case errors.Is(err, ErrAllowanceUsed):
		return "allowance_used"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, ErrGameStarted):
		return "game_started"
	case errors.Is(err, ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, ErrUnknownChannel):
		return "unknown_channel"
	case errors.Is(err, ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ErrShuttingDown):
		return "shutting_down"
	default:
		return "internal"
	}
}
