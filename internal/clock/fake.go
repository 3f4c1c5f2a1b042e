package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced clock. Callbacks run on the goroutine that
// calls Advance or FireNext, with no Fake lock held.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	fake *Fake
	at   time.Time
	seq  uint64
	f    func()
	done bool
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{fake: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.fake.remove(t)
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due
// in deadline order. Timers armed by a callback fire too if they are due.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.earliest()
		if next == nil || next.at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.fire(next)
		c.mu.Unlock()
		next.f()
	}
}

// FireNext jumps to the earliest pending deadline and runs that timer.
// It returns false when nothing is pending.
func (c *Fake) FireNext() bool {
	c.mu.Lock()
	next := c.earliest()
	if next == nil {
		c.mu.Unlock()
		return false
	}
	c.fire(next)
	c.mu.Unlock()
	next.f()
	return true
}

// Pending returns the number of armed timers.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Fake) fire(t *fakeTimer) {
	if t.at.After(c.now) {
		c.now = t.at
	}
	t.done = true
	c.remove(t)
}

func (c *Fake) earliest() *fakeTimer {
	var next *fakeTimer
	for _, t := range c.timers {
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (c *Fake) remove(t *fakeTimer) {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}
