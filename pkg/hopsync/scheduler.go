package hopsync

import (
	"github.com/norasector/davishop/pkg/hopsync/device"
	"github.com/norasector/davishop/pkg/util"
)

// Poll decides where the receiver should be right now. Every decision is
// derived from absolute timestamps and the current time, so a late or
// irregular caller loses accuracy but never corrupts state. Poll never blocks.
func (e *Engine) Poll() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poll(e.clock.Now())
}

func (e *Engine) poll(now uint32) (State, error) {
	if len(e.stations) == 0 {
		e.state = StateIdle
		return e.state, nil
	}

	// A committed reception either is still pending or has been missed.
	if e.state == StateReceiving {
		st := &e.stations[e.current]
		deadline := (1 + st.LostCount) * (e.timing.LatePacket + e.timing.TuneIn)
		if Elapsed(now, st.RecvBegan) <= deadline {
			return e.state, nil
		}

		e.recordMiss(st)
		e.current = -1
		e.state = StateIdle
		if err := e.radio.SetMode(device.ModeStandby); err != nil {
			return e.state, err
		}
	}

	// Arm the first station that is about to transmit.
	for i := range e.stations {
		st := &e.stations[i]
		if !st.Synchronized() {
			continue
		}

		if Elapsed(st.LastRx+st.Interval, now) < (1+st.LostCount)*e.timing.TuneIn {
			st.RecvBegan = now
			e.current = i
			e.state = StateReceiving

			e.logger.Debug().
				Uint8("station_id", st.ID).
				Int("channel", st.Channel).
				Uint32("lost_count", st.LostCount).
				Msg("tune to station")

			return e.state, e.tune(st.Channel)
		}
	}

	// Nothing due: listen for the first station without a timing model.
	// Only one station can be searched at a time; later unsynchronized
	// stations wait until the earlier ones are found.
	for i := range e.stations {
		st := &e.stations[i]
		if st.Synchronized() {
			continue
		}
		e.state = StateSearching
		return e.state, e.discover(now, st)
	}

	e.state = StateSynchronized
	return e.state, e.radio.SetMode(device.ModeSleep)
}

func (e *Engine) recordMiss(st *Station) {
	e.counters.LostPackets++
	st.LostCount++
	st.TotalLost++
	st.LastRx += st.Interval
	st.Channel = e.band.Next(st.Channel)

	e.logger.Debug().
		Uint8("station_id", st.ID).
		Int("next_channel", st.Channel).
		Uint32("lost_count", st.LostCount).
		Msg("missed packet")

	if st.LostCount > e.timing.ResyncThreshold {
		st.LostCount = 0
		st.Interval = 0
		st.TotalResyncs++

		e.counters.Resyncs++
		e.counters.LostStations++
		if e.counters.StationsFound > 0 {
			e.counters.StationsFound--
		}

		e.logger.Info().
			Uint8("station_id", st.ID).
			Uint32("resyncs", st.TotalResyncs).
			Msg("station lost")
	}
}

func (e *Engine) discover(now uint32, st *Station) error {
	elapsed := Elapsed(now, st.SyncStartedAt)

	switch {
	case st.SyncStartedAt == 0:
		st.SyncStartedAt = timestamp(now)
		st.Progress = 0
		e.logger.Debug().
			Uint8("station_id", st.ID).
			Int("channel", st.Channel).
			Msg("begin sync to station")
		return e.tune(st.Channel)

	case elapsed > e.timing.DiscoveryStep:
		st.Channel = e.band.Next(st.Channel)
		st.SyncStartedAt = timestamp(now)
		st.Progress = 0
		e.logger.Debug().
			Uint8("station_id", st.ID).
			Int("channel", st.Channel).
			Msg("sync fail, begin sync on next channel")
		return e.tune(st.Channel)

	default:
		st.Progress = uint8(uint64(elapsed) * 100 / uint64(e.timing.DiscoveryStep))
		if e.channel != st.Channel {
			if err := e.tune(st.Channel); err != nil {
				return err
			}
		}
		// Waiting to hear from this station; don't tune away.
		return e.radio.SetMode(device.ModeReceive)
	}
}

// tune also re-arms continuous receive.
func (e *Engine) tune(channel int) error {
	e.channel = channel
	if freq, ok := e.band.Frequency(channel); ok {
		e.logger.Trace().Int("channel", channel).Str("frequency", util.MHzToString(freq)).Msg("set channel")
	}
	return e.radio.SetChannel(channel)
}

// timestamp keeps a start time distinguishable from "not started".
func timestamp(now uint32) uint32 {
	if now == 0 {
		return 1
	}
	return now
}
