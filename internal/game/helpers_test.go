package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scythe504/mafia-backend/internal"
	"github.com/scythe504/mafia-backend/internal/clock"
	"github.com/scythe504/mafia-backend/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const hostConn = "conn-host"

var testStart = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

// envelope is an outbound message after a JSON round trip, as a client sees it.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// recorder is an in-memory Transport.
type recorder struct {
	mu     sync.Mutex
	direct map[string][]envelope
	rooms  map[string][]envelope
	groups map[string]map[string]bool
	closed map[string]bool
}

func newRecorder() *recorder {
	return &recorder{
		direct: make(map[string][]envelope),
		rooms:  make(map[string][]envelope),
		groups: make(map[string]map[string]bool),
		closed: make(map[string]bool),
	}
}

func encode(msg any) envelope {
	raw, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		panic(err)
	}
	return env
}

func (r *recorder) SendToConn(connID string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[connID] = append(r.direct[connID], encode(msg))
}

func (r *recorder) BroadcastToRoom(code string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[code] = append(r.rooms[code], encode(msg))
}

func (r *recorder) JoinGroup(code, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[code] == nil {
		r.groups[code] = make(map[string]bool)
	}
	r.groups[code][connID] = true
}

func (r *recorder) LeaveGroup(code, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[code], connID)
}

func (r *recorder) CloseGroup(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, code)
	r.closed[code] = true
}

func (r *recorder) inGroup(code, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[code][connID]
}

func (r *recorder) directOf(connID, typ string) []envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []envelope
	for _, env := range r.direct[connID] {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func (r *recorder) roomOf(code, typ string) []envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []envelope
	for _, env := range r.rooms[code] {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type fakeArchive struct {
	mu      sync.Mutex
	records []internal.GameRecord
}

func (a *fakeArchive) RecordGame(_ context.Context, rec internal.GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *fakeArchive) all() []internal.GameRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]internal.GameRecord(nil), a.records...)
}

type fakeDirectory struct {
	mu      sync.Mutex
	entries map[string]string
	wait    func() // drains queued writes before a read
}

func (d *fakeDirectory) Put(_ context.Context, token, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[token] = code
	return nil
}

func (d *fakeDirectory) Delete(_ context.Context, tokens ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tok := range tokens {
		delete(d.entries, tok)
	}
	return nil
}

func (d *fakeDirectory) get(token string) (string, bool) {
	if d.wait != nil {
		d.wait()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	code, ok := d.entries[token]
	return code, ok
}

type harness struct {
	t         *testing.T
	reg       *Registry
	clock     *clock.Fake
	rec       *recorder
	archive   *fakeArchive
	dir       *fakeDirectory
	metrics   *metrics.Metrics
	code      string
	hostToken string
	players   []string          // connection ids in join order
	tokens    map[string]string // connection id -> durable token
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   clock.NewFake(testStart),
		rec:     newRecorder(),
		archive: &fakeArchive{},
		dir:     &fakeDirectory{entries: make(map[string]string)},
		metrics: metrics.New(prometheus.NewRegistry()),
		tokens:  make(map[string]string),
	}
	h.reg = NewRegistry(Options{
		Clock:     h.clock,
		Transport: h.rec,
		Archive:   h.archive,
		Directory: h.dir,
		Metrics:   h.metrics,
		Logger:    zaptest.NewLogger(t),
		Rand:      rand.New(rand.NewSource(42)),
	})
	h.dir.wait = h.reg.Wait
	return h
}

// lobby creates a room hosted by hostConn with n joined players.
func lobby(t *testing.T, n int) *harness {
	t.Helper()
	h := newHarness(t)
	res, err := h.reg.CreateRoom(hostConn, "Host")
	require.NoError(t, err)
	h.code = res.RoomCode
	h.hostToken = res.HostToken
	for i := 1; i <= n; i++ {
		h.join(fmt.Sprintf("conn-p%d", i), fmt.Sprintf("Player%d", i))
	}
	return h
}

// startedGame is a lobby of n players that the host has started.
func startedGame(t *testing.T, n int) *harness {
	t.Helper()
	h := lobby(t, n)
	require.NoError(t, h.reg.StartGame(hostConn, h.code))
	require.Equal(t, internal.PhaseDayDiscussion, h.phase())
	return h
}

func (h *harness) join(connID, name string) {
	h.t.Helper()
	res, err := h.reg.JoinRoom(connID, h.code, name)
	require.NoError(h.t, err)
	h.players = append(h.players, connID)
	h.tokens[connID] = res.PlayerToken
}

func (h *harness) room() *internal.Room {
	h.t.Helper()
	room := h.reg.Lookup(h.code)
	require.NotNil(h.t, room)
	return room
}

func (h *harness) phase() internal.GamePhase {
	room := h.room()
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.Phase
}

func (h *harness) player(connID string) internal.Player {
	h.t.Helper()
	room := h.room()
	room.Mu.Lock()
	defer room.Mu.Unlock()
	for _, p := range room.Players {
		if h.tokens[connID] == p.Token {
			return *p
		}
	}
	h.t.Fatalf("no player for %s", connID)
	return internal.Player{}
}

func (h *harness) id(connID string) string {
	return h.player(connID).Id
}

func (h *harness) alive(connID string) bool {
	return h.player(connID).IsAlive
}

// withRole returns the connections of players holding role, in join order.
func (h *harness) withRole(role internal.Role) []string {
	var conns []string
	for _, c := range h.players {
		if h.player(c).Role == role {
			conns = append(conns, c)
		}
	}
	return conns
}

// nonMafia returns the connections of every non-Mafia player, in join order.
func (h *harness) nonMafia() []string {
	var conns []string
	for _, c := range h.players {
		if h.player(c).Role != internal.RoleMafia {
			conns = append(conns, c)
		}
	}
	return conns
}

// plainTown returns players with no special role.
func (h *harness) plainTown() []string {
	return h.withRole(internal.RoleTown)
}

// advanceTo fires wake-ups until the room reaches phase.
func (h *harness) advanceTo(phase internal.GamePhase) {
	h.t.Helper()
	for i := 0; i < 40; i++ {
		if h.phase() == phase {
			return
		}
		require.True(h.t, h.clock.FireNext(), "no pending wake-up before reaching %s", phase)
	}
	h.t.Fatalf("room never reached %s", phase)
}

// step fires exactly one wake-up.
func (h *harness) step() {
	h.t.Helper()
	require.True(h.t, h.clock.FireNext())
}

func (h *harness) lastState() internal.RoomStateData {
	h.t.Helper()
	states := h.rec.roomOf(h.code, internal.MsgRoomState)
	require.NotEmpty(h.t, states)
	return decode[internal.RoomStateData](h.t, states[len(states)-1])
}

func publicPlayer(state internal.RoomStateData, id string) internal.PublicPlayer {
	for _, p := range state.Players {
		if p.ID == id {
			return p
		}
	}
	return internal.PublicPlayer{}
}
