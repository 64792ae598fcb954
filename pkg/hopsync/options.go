package hopsync

import (
	"context"
	"fmt"
	"time"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/config"
)

const (
	defaultQueueSize     = 8
	defaultPollInterval  = 500 * time.Microsecond
	defaultStatsInterval = time.Minute
)

// Timing holds the protocol timing constants, in microseconds.
type Timing struct {
	// TuneIn is the lead time needed to get on channel before a frame. It
	// also covers sleep->rx and tx->rx turnaround.
	TuneIn uint32
	// LatePacket is how long past TuneIn a frame may arrive before it is
	// counted as missed.
	LatePacket uint32
	// DiscoveryStep is how long to listen on one channel for an
	// unsynchronized station before hopping.
	DiscoveryStep uint32
	// ResyncThreshold is the number of consecutive misses tolerated before
	// a station goes back to discovery.
	ResyncThreshold uint32
}

var DefaultTiming = Timing{
	TuneIn:          15000,
	LatePacket:      7500,
	DiscoveryStep:   150000000,
	ResyncThreshold: 49,
}

// TimingFromConfig fills unset values with DefaultTiming.
func TimingFromConfig(c config.Timing) Timing {
	t := Timing{
		TuneIn:          uint32(c.TuneIn.Microseconds()),
		LatePacket:      uint32(c.LatePacket.Microseconds()),
		DiscoveryStep:   uint32(c.DiscoveryStep.Microseconds()),
		ResyncThreshold: uint32(c.ResyncThreshold),
	}
	return t.withDefaults()
}

func (t Timing) withDefaults() Timing {
	if t.TuneIn == 0 {
		t.TuneIn = DefaultTiming.TuneIn
	}
	if t.LatePacket == 0 {
		t.LatePacket = DefaultTiming.LatePacket
	}
	if t.DiscoveryStep == 0 {
		t.DiscoveryStep = DefaultTiming.DiscoveryStep
	}
	if t.ResyncThreshold == 0 {
		t.ResyncThreshold = DefaultTiming.ResyncThreshold
	}
	return t
}

// validate checks that the longest reception window, reached just before a
// resync, stays within the half range of the counter so Elapsed can order it.
func (t Timing) validate() error {
	if t.DiscoveryStep > wrapHalf {
		return fmt.Errorf("%w: discovery step %dus exceeds %dus", ErrInvalidTiming, t.DiscoveryStep, uint32(wrapHalf))
	}
	window := uint64(t.LatePacket) + uint64(t.TuneIn)
	if span := (1 + uint64(t.ResyncThreshold)) * window; span > wrapHalf {
		return fmt.Errorf("%w: reception window %dus after %d misses exceeds %dus",
			ErrInvalidTiming, span, t.ResyncThreshold, uint32(wrapHalf))
	}
	return nil
}

type Options struct {
	Band          davis.Band
	Stations      []config.Station
	QueueSize     int
	PollInterval  time.Duration
	StatsInterval time.Duration
	Timing        Timing
	Outputs       []Output
}

// Output consumes decoded records.
type Output interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that receives decoded records.
	Receive() chan<- *Record
}
