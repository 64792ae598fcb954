package hopsync

import "time"

// Clock is a free-running microsecond counter that wraps at 2^32.
type Clock interface {
	Now() uint32
}

// MonotonicClock counts microseconds since it was created.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Now() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

const wrapHalf = 1 << 31

// Elapsed returns how long after before the instant after occurred. A
// numerically smaller after counts as a counter wrap only when the two values
// sit more than half the range apart; any other out-of-order pair yields 0.
func Elapsed(after, before uint32) uint32 {
	if after >= before {
		return after - before
	}
	if before-after <= wrapHalf {
		return 0
	}
	return (0xFFFFFFFF - before) + after + 1
}
