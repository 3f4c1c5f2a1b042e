package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scythe504/mafia-backend/internal"
	"github.com/scythe504/mafia-backend/internal/utils"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMissingData = errors.New("missing message data")
)

// Engine is the game behind the socket.
type Engine interface {
	CreateRoom(connID, hostName string) (internal.CreateRoomResult, error)
	JoinRoom(connID, code, playerName string) (internal.JoinRoomResult, error)
	StartGame(connID, code string) error
	CastDayVote(connID, code, targetID string) error
	ProtectTarget(connID, code, targetID string) error
	CastMafiaVote(connID, code, targetID string) error
	Investigate(connID, code, targetID string) (internal.InvestigationResultData, error)
	RestoreSession(connID, code, token string) (internal.RestoreSessionResult, error)
	SendChat(connID, code string, channel internal.ChatChannel, text string) error
	Leave(connID, code string) error
	CloseRoom(connID, code string) error
	Disconnect(connID string)
}

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

type Handler struct {
	hub      *Hub
	engine   Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, engine Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("[ServeHTTP] upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		ID:   utils.GenerateID(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.hub.register(c)
	h.logger.Debug("[ServeHTTP] connection opened", zap.String("conn", c.ID))

	go h.writePump(c)
	h.readPump(c)
}

// readPump processes inbound frames one at a time; when the socket dies the
// connection's identity is released.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.engine.Disconnect(c.ID)
		h.hub.unregister(c.ID)
		c.conn.Close()
		h.logger.Debug("[readPump] connection closed", zap.String("conn", c.ID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("[readPump] unexpected close", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		h.dispatch(c, raw)
	}
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("[writePump] write failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// =============================================================================
// MESSAGE ROUTING
// =============================================================================

// dispatch routes one inbound request and acknowledges it to the sender only.
func (h *Handler) dispatch(c *Client, raw []byte) {
	var req internal.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.ack(c.ID, req, nil, fmt.Errorf("malformed message: %w", err))
		return
	}

	result, err := h.handle(c.ID, req)
	h.ack(c.ID, req, result, err)
}

func (h *Handler) handle(connID string, req internal.Request) (any, error) {
	switch req.Type {
	case internal.ReqCreateRoom:
		var d internal.CreateRoomData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return h.engine.CreateRoom(connID, d.HostName)

	case internal.ReqJoinRoom:
		var d internal.JoinRoomData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return h.engine.JoinRoom(connID, d.RoomCode, d.PlayerName)

	case internal.ReqStartGame:
		var d internal.RoomActionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return nil, h.engine.StartGame(connID, d.RoomCode)

	case internal.ReqDayVote, internal.ReqProtect, internal.ReqMafiaVote:
		var d internal.TargetActionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		switch req.Type {
		case internal.ReqDayVote:
			return nil, h.engine.CastDayVote(connID, d.RoomCode, d.TargetID)
		case internal.ReqProtect:
			return nil, h.engine.ProtectTarget(connID, d.RoomCode, d.TargetID)
		default:
			return nil, h.engine.CastMafiaVote(connID, d.RoomCode, d.TargetID)
		}

	case internal.ReqInvestigate:
		var d internal.TargetActionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		// the result itself arrives as a private investigation_result
		_, err := h.engine.Investigate(connID, d.RoomCode, d.TargetID)
		return nil, err

	case internal.ReqRestoreSession:
		var d internal.RestoreSessionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return h.engine.RestoreSession(connID, d.RoomCode, d.Token)

	case internal.ReqChat:
		var d internal.ChatRequestData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return nil, h.engine.SendChat(connID, d.RoomCode, d.Channel, d.Text)

	case internal.ReqLeaveRoom:
		var d internal.RoomActionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return nil, h.engine.Leave(connID, d.RoomCode)

	case internal.ReqCloseRoom:
		var d internal.RoomActionData
		if err := decodeData(req.Data, &d); err != nil {
			return nil, err
		}
		return nil, h.engine.CloseRoom(connID, d.RoomCode)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
}

func (h *Handler) ack(connID string, req internal.Request, result any, err error) {
	data := internal.AckData{
		RequestID: req.RequestID,
		Request:   req.Type,
		OK:        err == nil,
	}
	if err != nil {
		data.Error = err.Error()
		h.logger.Debug("[dispatch] request failed",
			zap.String("conn", connID),
			zap.String("type", req.Type),
			zap.Error(err))
	} else {
		data.Result = result
	}
	h.hub.SendToConn(connID, internal.Message[internal.AckData]{Type: internal.MsgAck, Data: data})
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return ErrMissingData
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid message data: %w", err)
	}
	return nil
}
