package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/scythe504/mafia-backend/internal"
	"github.com/scythe504/mafia-backend/internal/clock"
	"github.com/scythe504/mafia-backend/internal/metrics"
	"github.com/scythe504/mafia-backend/internal/utils"
	"go.uber.org/zap"
)

// Transport delivers outbound messages to connections and room groups.
// Implementations must not block: the registry calls them under room locks.
type Transport interface {
	SendToConn(connID string, msg any)
	BroadcastToRoom(roomCode string, msg any)
	JoinGroup(roomCode, connID string)
	LeaveGroup(roomCode, connID string)
	CloseGroup(roomCode string)
}

// Archive stores finished games.
type Archive interface {
	RecordGame(ctx context.Context, rec internal.GameRecord) error
}

// Directory maps durable tokens to room codes outside the registry.
type Directory interface {
	Put(ctx context.Context, token, roomCode string) error
	Delete(ctx context.Context, tokens ...string) error
}

type EvictReason string

const (
	EvictClosedByHost EvictReason = "closed_by_host"
	EvictEnded        EvictReason = "ended"
	EvictAbandoned    EvictReason = "abandoned"
)

const directoryTimeout = 2 * time.Second

type Options struct {
	Clock     clock.Clock
	Durations internal.PhaseDurations
	Transport Transport
	Archive   Archive
	Directory Directory
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Rand      *rand.Rand

	AbandonedTTL time.Duration
	EndedTTL     time.Duration
}

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// Registry owns every live room. Each room is guarded by its own mutex; the
// registry map and the sessions table are never held while a room lock is taken.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*internal.Room
	sessions *Sessions

	clock     clock.Clock
	durations internal.PhaseDurations
	transport Transport
	archive   Archive
	directory Directory
	metrics   *metrics.Metrics
	logger    *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	abandonedTTL time.Duration
	endedTTL     time.Duration

	closed bool // guarded by mu

	// directory writes run in order on a single background drainer
	dirMu      sync.Mutex
	dirOps     []func()
	dirRunning bool

	bg sync.WaitGroup
}

func NewRegistry(opts Options) *Registry {
	r := &Registry{
		rooms:        make(map[string]*internal.Room),
		sessions:     NewSessions(),
		clock:        opts.Clock,
		durations:    opts.Durations,
		transport:    opts.Transport,
		archive:      opts.Archive,
		directory:    opts.Directory,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		rng:          opts.Rand,
		abandonedTTL: opts.AbandonedTTL,
		endedTTL:     opts.EndedTTL,
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	if r.durations == (internal.PhaseDurations{}) {
		r.durations = internal.DefaultPhaseDurations()
	}
	if r.transport == nil {
		r.transport = noopTransport{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.abandonedTTL <= 0 {
		r.abandonedTTL = 30 * time.Minute
	}
	if r.endedTTL <= 0 {
		r.endedTTL = 10 * time.Minute
	}
	return r
}

// Lookup returns the live room for code, or nil. Codes are case-insensitive.
func (r *Registry) Lookup(code string) *internal.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[utils.NormalizeRoomCode(code)]
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sessions exposes the connection binding table.
func (r *Registry) Sessions() *Sessions {
	return r.sessions
}

// Snapshot returns the public view of a room.
func (r *Registry) Snapshot(code string) (internal.RoomStateData, error) {
	var snap internal.RoomStateData
	err := r.withRoom(code, func(room *internal.Room) error {
		snap = snapshot(room)
		return nil
	})
	return snap, err
}

// Wait blocks until background archive and directory writes have finished.
func (r *Registry) Wait() {
	r.bg.Wait()
}

// Close shuts every room and cancels its pending wake-up so no game can end,
// and no archive write can start, after it returns. New rooms are refused.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	rooms := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	for _, room := range rooms {
		room.Mu.Lock()
		room.Closed = true
		r.cancelPhaseTimer(room)
		room.Mu.Unlock()
	}
	r.logger.Info("[Close] registry closed", zap.Int("rooms", len(rooms)))
}

// insertRoom allocates a unique code and stores a fresh lobby.
func (r *Registry) insertRoom(host *internal.Host) (*internal.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrShuttingDown
	}

	var code string
	for {
		c, err := utils.GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := r.rooms[c]; !taken {
			code = c
			break
		}
	}

	now := r.clock.Now()
	room := &internal.Room{
		Code:         code,
		Phase:        internal.PhaseLobby,
		RoundNumber:  1,
		Host:         host,
		Players:      make([]*internal.Player, 0, internal.MinPlayersToStart),
		DayVotes:     make(map[string]string),
		NightVotes:   make(map[string]string),
		CreatedAt:    now,
		LastActivity: now,
	}
	r.rooms[code] = room
	return room, nil
}

// =============================================================================
// LOCKED ACCESS
// =============================================================================

func (r *Registry) withRoom(code string, fn func(room *internal.Room) error) error {
	room := r.Lookup(code)
	if room == nil {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, utils.NormalizeRoomCode(code))
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Closed {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, room.Code)
	}
	return fn(room)
}

// withPlayer runs fn for the player bound to connID in room code.
func (r *Registry) withPlayer(action, connID, code string, fn func(room *internal.Room, p *internal.Player) error) error {
	err := r.withRoom(code, func(room *internal.Room) error {
		b, ok := r.sessions.Lookup(connID)
		if !ok || b.RoomCode != room.Code {
			return ErrNotInRoom
		}
		if b.IsHost {
			return fmt.Errorf("%w: the host does not play", ErrLacksRole)
		}
		p := room.GetPlayer(b.PlayerID)
		if p == nil || p.ConnID != connID {
			return ErrNotInRoom
		}
		return fn(room, p)
	})
	r.reject(action, code, err)
	return err
}

// withHost runs fn when connID holds the host slot of room code.
func (r *Registry) withHost(action, connID, code string, fn func(room *internal.Room) error) error {
	err := r.withRoom(code, func(room *internal.Room) error {
		b, ok := r.sessions.Lookup(connID)
		if !ok || b.RoomCode != room.Code {
			return ErrNotInRoom
		}
		if !b.IsHost || room.Host == nil || room.Host.ConnID != connID {
			return ErrNotHost
		}
		return fn(room)
	})
	r.reject(action, code, err)
	return err
}

func (r *Registry) reject(action, code string, err error) {
	if err == nil {
		return
	}
	r.metrics.ActionRejected(action, Reason(err))
	r.logger.Debug("[reject] action rejected",
		zap.String("action", action),
		zap.String("room", utils.NormalizeRoomCode(code)),
		zap.Error(err))
}

// touch records participant activity for the eviction sweep.
func (r *Registry) touch(room *internal.Room) {
	room.LastActivity = r.clock.Now()
}

// =============================================================================
// EVICTION
// =============================================================================

// CloseRoom lets the host end the room for everyone.
func (r *Registry) CloseRoom(connID, code string) error {
	if err := r.withHost("close_room", connID, code, func(*internal.Room) error { return nil }); err != nil {
		return err
	}
	r.Evict(code, EvictClosedByHost)
	return nil
}

// Evict removes a room, cancels its wake-up and tells every member it is gone.
func (r *Registry) Evict(code string, reason EvictReason) bool {
	code = utils.NormalizeRoomCode(code)

	r.mu.Lock()
	room, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	room.Mu.Lock()
	room.Closed = true
	r.cancelPhaseTimer(room)
	r.transport.BroadcastToRoom(code, internal.Message[internal.RoomClosedData]{
		Type: internal.MsgRoomClosed,
		Data: internal.RoomClosedData{RoomCode: code, Reason: string(reason)},
	})
	tokens := room.Tokens()
	room.Mu.Unlock()

	r.sessions.UnbindRoom(code)
	r.transport.CloseGroup(code)
	r.deleteDirectory(tokens...)
	r.metrics.RoomEvicted(string(reason))
	r.logger.Info("[Evict] room removed", zap.String("room", code), zap.String("reason", string(reason)))
	return true
}

// Sweep evicts ended rooms idle past the ended TTL and rooms nobody has
// been connected to for the abandoned TTL. It returns the evicted codes.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.RLock()
	rooms := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	var evicted []string
	for _, room := range rooms {
		room.Mu.Lock()
		idle := now.Sub(room.LastActivity)
		var reason EvictReason
		switch {
		case room.Phase == internal.PhaseEnded && idle >= r.endedTTL:
			reason = EvictEnded
		case !room.HasConnections() && idle >= r.abandonedTTL:
			reason = EvictAbandoned
		}
		code := room.Code
		room.Mu.Unlock()

		if reason != "" && r.Evict(code, reason) {
			evicted = append(evicted, code)
		}
	}
	return evicted
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (r *Registry) putDirectory(token, code string) {
	if r.directory == nil {
		return
	}
	r.enqueueDirectory(func(ctx context.Context) {
		if err := r.directory.Put(ctx, token, code); err != nil {
			r.logger.Warn("[putDirectory] session directory write failed", zap.String("room", code), zap.Error(err))
		}
	})
}

func (r *Registry) deleteDirectory(tokens ...string) {
	if r.directory == nil || len(tokens) == 0 {
		return
	}
	r.enqueueDirectory(func(ctx context.Context) {
		if err := r.directory.Delete(ctx, tokens...); err != nil {
			r.logger.Warn("[deleteDirectory] session directory delete failed", zap.Error(err))
		}
	})
}

// enqueueDirectory queues op behind earlier directory writes and returns at
// once. A put followed by a delete of the same token lands in that order.
func (r *Registry) enqueueDirectory(op func(ctx context.Context)) {
	r.bg.Add(1)
	r.dirMu.Lock()
	r.dirOps = append(r.dirOps, func() {
		ctx, cancel := context.WithTimeout(context.Background(), directoryTimeout)
		defer cancel()
		op(ctx)
	})
	start := !r.dirRunning
	r.dirRunning = true
	r.dirMu.Unlock()

	if start {
		go r.drainDirectory()
	}
}

func (r *Registry) drainDirectory() {
	for {
		r.dirMu.Lock()
		if len(r.dirOps) == 0 {
			r.dirRunning = false
			r.dirMu.Unlock()
			return
		}
		op := r.dirOps[0]
		r.dirOps[0] = nil
		r.dirOps = r.dirOps[1:]
		r.dirMu.Unlock()

		op()
		r.bg.Done()
	}
}

type noopTransport struct{}

func (noopTransport) SendToConn(string, any)      {}
func (noopTransport) BroadcastToRoom(string, any) {}
func (noopTransport) JoinGroup(string, string)    {}
func (noopTransport) LeaveGroup(string, string)   {}
func (noopTransport) CloseGroup(string)           {}
