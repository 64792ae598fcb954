package hopsync

import (
	"time"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/device"
)

// handleInterrupt is registered with the transceiver as its completion
// handler.
func (e *Engine) handleInterrupt() {
	frame, err := e.radio.TakeFrame()
	if err != nil {
		e.fail(err)
		return
	}
	if err := e.HandleFrame(frame); err != nil {
		e.fail(err)
	}
}

// HandleFrame authenticates a completed reception and, if it belongs to a
// configured station, updates that station's timing and queues a record.
// Anything else re-arms the receiver on the current channel and is otherwise
// ignored.
func (e *Engine) HandleFrame(raw device.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	frame := davis.FromAir(raw.Data)

	kind := davis.Validate(frame)
	if kind == davis.NoMatch {
		e.counters.Noise++
		return e.radio.SetChannel(e.channel)
	}

	// A checksum can validate under the wrong layout for foreign traffic, so
	// the layout has to agree with the station's repeater setting.
	idx := findStation(e.stations, frame.StationID())
	if idx < 0 || (kind == davis.RepeaterMatch) != (e.stations[idx].RepeaterID != 0) {
		e.counters.Foreign++
		return e.radio.SetChannel(e.channel)
	}
	st := &e.stations[idx]

	if !st.Synchronized() && e.counters.StationsFound < len(e.stations) {
		st.Interval = StationInterval(st.ID)
		st.SyncStartedAt = 0
		st.Progress = 100
		e.counters.StationsFound++
		if e.counters.LostStations > 0 {
			e.counters.LostStations--
		}

		e.logger.Info().
			Uint8("station_id", st.ID).
			Str("station_type", st.Type.String()).
			Int("channel", e.channel).
			Uint32("interval_us", st.Interval).
			Msg("found station")
	}

	e.counters.Packets++
	st.TotalPackets++

	if st.Active {
		var delta time.Duration
		if st.TotalPackets > 1 {
			delta = time.Duration(Elapsed(now, st.LastSeen)) * time.Microsecond
		}

		if !e.queue.Push(&Record{
			StationID:   st.ID,
			StationType: st.Type,
			Frame:       frame,
			Channel:     e.channel,
			RSSI:        raw.RSSI,
			FreqError:   raw.FreqError,
			Delta:       delta,
			Repeated:    kind == davis.RepeaterMatch,
			ReceivedAt:  now,
		}) {
			e.logger.Debug().Uint8("station_id", st.ID).Msg("record queue full, dropping packet")
		}
	}

	if e.state == StateReceiving && e.current == idx {
		st.EarlyAmount = Elapsed(now, st.RecvBegan)
	}

	st.Channel = e.band.Next(e.channel)
	st.LostCount = 0
	st.LastRx = now
	st.LastSeen = now

	e.current = -1
	e.state = StateIdle
	return e.radio.SetMode(device.ModeStandby)
}
