package internal

import (
	"encoding/json"
	"time"
)

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Outbound message types
const (
	MsgAck                 = "ack"
	MsgRoomState           = "room_state"
	MsgRoleReveal          = "role_reveal"
	MsgInvestigationResult = "investigation_result"
	MsgGameOver            = "game_over"
	MsgRoomClosed          = "room_closed"
	MsgChatMessage         = "chat_message"
)

// Inbound message types
const (
	ReqCreateRoom     = "create_room"
	ReqJoinRoom       = "join_room"
	ReqStartGame      = "start_game"
	ReqDayVote        = "day_vote"
	ReqProtect        = "protect"
	ReqMafiaVote      = "mafia_vote"
	ReqInvestigate    = "investigate"
	ReqRestoreSession = "restore_session"
	ReqChat           = "chat"
	ReqLeaveRoom      = "leave_room"
	ReqCloseRoom      = "close_room"
)

type ChatChannel string

const (
	ChannelPublic ChatChannel = "public"
	ChannelMafia  ChatChannel = "mafia"
)

// Request is the inbound envelope; Data is decoded per Type.
type Request struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

type CreateRoomData struct {
	HostName string `json:"host_name"`
}

type JoinRoomData struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type RoomActionData struct {
	RoomCode string `json:"room_code"`
}

type TargetActionData struct {
	RoomCode string `json:"room_code"`
	TargetID string `json:"target_id"`
}

type RestoreSessionData struct {
	RoomCode string `json:"room_code"`
	Token    string `json:"token"`
}

type ChatRequestData struct {
	RoomCode string      `json:"room_code"`
	Channel  ChatChannel `json:"channel"`
	Text     string      `json:"text"`
}

type AckData struct {
	RequestID string `json:"request_id,omitempty"`
	Request   string `json:"request"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	Result    any    `json:"result,omitempty"`
}

type CreateRoomResult struct {
	RoomCode  string `json:"room_code"`
	HostToken string `json:"host_token"`
}

type JoinRoomResult struct {
	RoomCode    string `json:"room_code"`
	PlayerID    string `json:"player_id"`
	PlayerToken string `json:"player_token"`
}

type RestoreSessionResult struct {
	RoomCode string `json:"room_code"`
	IsHost   bool   `json:"is_host"`
	PlayerID string `json:"player_id,omitempty"`
}

type InvestigationResultData struct {
	TargetID string `json:"target_id"`
	Username string `json:"username"`
	IsMafia  bool   `json:"is_mafia"`
}

type RoomStateData struct {
	Code         string         `json:"code"`
	HostName     string         `json:"host_name"`
	HostPresent  bool           `json:"host_present"`
	Phase        GamePhase      `json:"phase"`
	PhaseEndsAt  *time.Time     `json:"phase_ends_at,omitempty"`
	RoundNumber  int            `json:"round_number"`
	Announcement string         `json:"announcement,omitempty"`
	Players      []PublicPlayer `json:"players"`
	CanStart     bool           `json:"can_start"`
}

type RoleRevealData struct {
	Role        Role           `json:"role"`
	MafiaRoster []PublicPlayer `json:"mafia_roster,omitempty"`
}

type GameOverData struct {
	Winner       Faction       `json:"winner"`
	RoundsPlayed int           `json:"rounds_played"`
	Players      []FinalPlayer `json:"players"`
}

type RoomClosedData struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason"`
}

type ChatMessageData struct {
	RoomCode string      `json:"room_code"`
	Channel  ChatChannel `json:"channel"`
	SenderID string      `json:"sender_id,omitempty"`
	Sender   string      `json:"sender"`
	Text     string      `json:"text"`
	SentAt   time.Time   `json:"sent_at"`
}
