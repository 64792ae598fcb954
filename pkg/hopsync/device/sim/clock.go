package sim

import "sync"

// Clock is a virtual microsecond counter. It only moves when told to, which
// makes timing scenarios reproducible. Now wraps at 2^32 like a hardware
// counter; the full count is kept internally so transmit schedules survive
// the wrap.
type Clock struct {
	mu  sync.Mutex
	now uint64
}

func NewClock(start uint32) *Clock {
	return &Clock{now: uint64(start)}
}

func (c *Clock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(c.now)
}

// Advance moves the clock forward and returns the new reading.
func (c *Clock) Advance(us uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += uint64(us)
	return uint32(c.now)
}

// Set jumps the low 32 bits of the counter to t.
func (c *Clock) Set(t uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now&^0xFFFFFFFF | uint64(t)
}

func (c *Clock) micros() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) setMicros(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
