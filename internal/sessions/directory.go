// Package sessions keeps a token -> room directory so a client holding only
// its durable token can find its way back to a room.
package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

type Entry struct {
	RoomCode string    `json:"room_code"`
	IssuedAt time.Time `json:"issued_at"`
}

type Directory interface {
	Put(ctx context.Context, token, roomCode string) error
	Get(ctx context.Context, token string) (Entry, error)
	Delete(ctx context.Context, tokens ...string) error
	Close() error
}

// =============================================================================
// IN-MEMORY DIRECTORY
// =============================================================================

type memoryEntry struct {
	Entry
	expires time.Time
}

type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryDirectory(ttl time.Duration) *MemoryDirectory {
	return &MemoryDirectory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (d *MemoryDirectory) Put(_ context.Context, token, roomCode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	d.entries[token] = memoryEntry{
		Entry:   Entry{RoomCode: roomCode, IssuedAt: now},
		expires: now.Add(d.ttl),
	}
	return nil
}

func (d *MemoryDirectory) Get(_ context.Context, token string) (Entry, error) {
	d.mu.RLock()
	e, ok := d.entries[token]
	d.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	if d.now().After(e.expires) {
		d.mu.Lock()
		delete(d.entries, token)
		d.mu.Unlock()
		return Entry{}, ErrNotFound
	}
	return e.Entry, nil
}

func (d *MemoryDirectory) Delete(_ context.Context, tokens ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, tok := range tokens {
		delete(d.entries, tok)
	}
	return nil
}

func (d *MemoryDirectory) Close() error {
	return nil
}
