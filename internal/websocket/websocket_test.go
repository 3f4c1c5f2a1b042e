package websocket

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scythe504/mafia-backend/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errNope = errors.New("nope")

// stubEngine records calls and answers with canned values.
type stubEngine struct {
	mu           sync.Mutex
	calls        []string
	disconnected []string
}

func (s *stubEngine) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubEngine) CreateRoom(connID, hostName string) (internal.CreateRoomResult, error) {
	s.record("create:" + hostName)
	return internal.CreateRoomResult{RoomCode: "ABCDE", HostToken: "host-token"}, nil
}

func (s *stubEngine) JoinRoom(connID, code, name string) (internal.JoinRoomResult, error) {
	s.record("join:" + code + ":" + name)
	return internal.JoinRoomResult{RoomCode: code, PlayerID: "p1", PlayerToken: "tok"}, nil
}

func (s *stubEngine) StartGame(connID, code string) error {
	s.record("start:" + code)
	return errNope
}

func (s *stubEngine) CastDayVote(connID, code, target string) error {
	s.record("day:" + target)
	return nil
}

func (s *stubEngine) ProtectTarget(connID, code, target string) error {
	s.record("protect:" + target)
	return nil
}

func (s *stubEngine) CastMafiaVote(connID, code, target string) error {
	s.record("mafia:" + target)
	return nil
}

func (s *stubEngine) Investigate(connID, code, target string) (internal.InvestigationResultData, error) {
	s.record("investigate:" + target)
	return internal.InvestigationResultData{TargetID: target, IsMafia: true}, nil
}

func (s *stubEngine) RestoreSession(connID, code, token string) (internal.RestoreSessionResult, error) {
	s.record("restore:" + token)
	return internal.RestoreSessionResult{RoomCode: code}, nil
}

func (s *stubEngine) SendChat(connID, code string, channel internal.ChatChannel, text string) error {
	s.record("chat:" + string(channel) + ":" + text)
	return nil
}

func (s *stubEngine) Leave(connID, code string) error {
	s.record("leave:" + code)
	return nil
}

func (s *stubEngine) CloseRoom(connID, code string) error {
	s.record("close:" + code)
	return nil
}

func (s *stubEngine) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = append(s.disconnected, connID)
}

func (s *stubEngine) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...), len(s.disconnected)
}

func newClient(id string) *Client {
	return &Client{ID: id, send: make(chan []byte, sendBuffer)}
}

func TestHub_GroupDelivery(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	a, b, c := newClient("a"), newClient("b"), newClient("c")
	hub.register(a)
	hub.register(b)
	hub.register(c)

	hub.JoinGroup("ROOM1", "a")
	hub.JoinGroup("ROOM1", "b")
	hub.JoinGroup("ROOM1", "ghost")

	hub.BroadcastToRoom("ROOM1", map[string]string{"hello": "room"})
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)
	assert.Len(t, c.send, 0)

	hub.LeaveGroup("ROOM1", "b")
	hub.SendToConn("c", "direct")
	hub.BroadcastToRoom("ROOM1", "again")
	assert.Len(t, a.send, 2)
	assert.Len(t, b.send, 1)
	assert.Len(t, c.send, 1)

	hub.CloseGroup("ROOM1")
	hub.BroadcastToRoom("ROOM1", "gone")
	assert.Len(t, a.send, 2)
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{ID: "a", send: make(chan []byte, 1)}
	hub.register(a)

	done := make(chan struct{})
	go func() {
		hub.SendToConn("a", 1)
		hub.SendToConn("a", 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a full buffer")
	}
	assert.Len(t, a.send, 1)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil)
	a := newClient("a")
	hub.register(a)
	hub.JoinGroup("R", "a")

	hub.unregister("a")
	hub.unregister("a")

	_, open := <-a.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())
	hub.BroadcastToRoom("R", "nobody home")
}

type wsAck struct {
	Type string           `json:"type"`
	Data internal.AckData `json:"data"`
}

func dial(t *testing.T, engine Engine) (*websocket.Conn, *Hub) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(NewHandler(hub, engine, zaptest.NewLogger(t)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, hub
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) wsAck {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack wsAck
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, internal.MsgAck, ack.Type)
	return ack
}

func TestHandler_DispatchAndAck(t *testing.T) {
	engine := &stubEngine{}
	conn, _ := dial(t, engine)

	ack := roundTrip(t, conn, `{"type":"create_room","request_id":"r1","data":{"host_name":"Ann"}}`)
	assert.True(t, ack.Data.OK)
	assert.Equal(t, "r1", ack.Data.RequestID)
	assert.Equal(t, "create_room", ack.Data.Request)
	result, err := json.Marshal(ack.Data.Result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"room_code":"ABCDE","host_token":"host-token"}`, string(result))

	ack = roundTrip(t, conn, `{"type":"start_game","request_id":"r2","data":{"room_code":"ABCDE"}}`)
	assert.False(t, ack.Data.OK)
	assert.Equal(t, "nope", ack.Data.Error)

	ack = roundTrip(t, conn, `{"type":"mafia_vote","data":{"room_code":"ABCDE","target_id":"t9"}}`)
	assert.True(t, ack.Data.OK)

	ack = roundTrip(t, conn, `{"type":"investigate","data":{"room_code":"ABCDE","target_id":"t3"}}`)
	assert.True(t, ack.Data.OK)
	assert.Nil(t, ack.Data.Result, "the verdict is not part of the ack")

	ack = roundTrip(t, conn, `{"type":"chat","data":{"room_code":"ABCDE","channel":"mafia","text":"hi"}}`)
	assert.True(t, ack.Data.OK)

	calls, _ := engine.snapshot()
	assert.Equal(t, []string{"create:Ann", "start:ABCDE", "mafia:t9", "investigate:t3", "chat:mafia:hi"}, calls)
}

func TestHandler_BadRequests(t *testing.T) {
	engine := &stubEngine{}
	conn, _ := dial(t, engine)

	ack := roundTrip(t, conn, `not json`)
	assert.False(t, ack.Data.OK)
	assert.Contains(t, ack.Data.Error, "malformed")

	ack = roundTrip(t, conn, `{"type":"dance","request_id":"r9"}`)
	assert.False(t, ack.Data.OK)
	assert.Equal(t, "r9", ack.Data.RequestID)
	assert.Contains(t, ack.Data.Error, ErrUnknownType.Error())

	ack = roundTrip(t, conn, `{"type":"day_vote"}`)
	assert.False(t, ack.Data.OK)
	assert.Equal(t, ErrMissingData.Error(), ack.Data.Error)

	calls, _ := engine.snapshot()
	assert.Empty(t, calls)
}

func TestHandler_CloseReleasesIdentity(t *testing.T) {
	engine := &stubEngine{}
	conn, hub := dial(t, engine)

	roundTrip(t, conn, `{"type":"leave_room","data":{"room_code":"ABCDE"}}`)
	require.Equal(t, 1, hub.Len())
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		_, n := engine.snapshot()
		return n == 1 && hub.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
