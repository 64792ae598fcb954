package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/device"
)

var (
	ErrInvalidChannel = errors.New("invalid channel")
	ErrNoFrame        = errors.New("no frame latched")
)

// Transmitter is a simulated station. It hops one channel per Interval and
// sends whether or not anyone is listening.
type Transmitter struct {
	ID uint8
	// Repeater makes the transmitter send relayed frames. Ids 0x8-0xF stand
	// for repeaters A-H.
	Repeater uint8
	// Interval defaults to the station period for ID.
	Interval uint32
	Channel  int
	// Offset is the delay from AddTransmitter to the first transmission.
	Offset uint32
	// Payloads are sent in turn. The station id is always forced into the
	// first byte.
	Payloads  [][davis.PayloadLength]byte
	RSSI      int
	FreqError int16
	// Silent transmitters keep hopping but send nothing.
	Silent bool

	next uint64
	sent int
}

func (t *Transmitter) frame() [davis.FrameLength]byte {
	var payload [davis.PayloadLength]byte
	if len(t.Payloads) > 0 {
		payload = t.Payloads[t.sent%len(t.Payloads)]
	} else {
		payload = [davis.PayloadLength]byte{byte(davis.PacketTemp) << 4, byte(t.sent), 0x7f, 0x20, 0x00, 0x01}
	}
	payload[0] = payload[0]&^0x07 | t.ID&0x07

	repeater := [2]byte{t.Repeater << 4, byte(t.sent)}
	return davis.ToAir(davis.EncodeFrame(payload, repeater, t.Repeater != 0))
}

// Radio is a transceiver backed by simulated transmitters. It receives a
// transmission only when it is in receive mode on the transmitter's channel at
// the moment the frame is sent.
type Radio struct {
	clock *Clock
	band  davis.Band

	mu           sync.Mutex
	handler      func()
	channel      int
	mode         device.Mode
	latched      *device.Frame
	transmitters []*Transmitter
	tunes        int
	delivered    int
	realtime     bool
}

func New(clock *Clock, band davis.Band) *Radio {
	return &Radio{
		clock:   clock,
		band:    band,
		channel: -1,
		mode:    device.ModeStandby,
	}
}

// Realtime makes Start drive the virtual clock from wall time.
func (r *Radio) Realtime(enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.realtime = enable
}

func (r *Radio) AddTransmitter(t *Transmitter) {
	if t.Interval == 0 {
		t.Interval = (41 + uint32(t.ID)) * 1000000 / 16
	}
	t.next = r.clock.micros() + uint64(t.Offset)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transmitters = append(r.transmitters, t)
}

func (r *Radio) SetChannel(idx int) error {
	if idx < 0 || idx >= r.band.Channels() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, idx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = idx
	r.mode = device.ModeReceive
	r.tunes++
	return nil
}

func (r *Radio) SetMode(m device.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
	return nil
}

func (r *Radio) TakeFrame() (device.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latched == nil {
		return device.Frame{}, ErrNoFrame
	}
	f := *r.latched
	r.latched = nil
	return f, nil
}

func (r *Radio) OnReceive(handler func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// Deliver latches raw as if it had just been received on the current channel
// and signals completion, regardless of mode.
func (r *Radio) Deliver(raw [davis.FrameLength]byte, rssi int, freqError int16) {
	r.mu.Lock()
	r.latched = &device.Frame{Data: raw, RSSI: rssi, FreqError: freqError}
	r.delivered++
	handler := r.handler
	r.mu.Unlock()

	// The handler calls back into the radio.
	if handler != nil {
		handler()
	}
}

// Advance moves the clock forward by us, emitting every transmission that
// falls due in order. The clock reads the transmit instant while the
// completion handler runs.
func (r *Radio) Advance(us uint32) {
	target := r.clock.micros() + uint64(us)

	for {
		r.mu.Lock()
		var due *Transmitter
		for _, t := range r.transmitters {
			if t.next <= target && (due == nil || t.next < due.next) {
				due = t
			}
		}
		if due == nil {
			r.mu.Unlock()
			break
		}

		r.clock.setMicros(due.next)
		heard := !due.Silent && r.mode == device.ModeReceive && r.channel == due.Channel
		var raw [davis.FrameLength]byte
		if !due.Silent {
			raw = due.frame()
			due.sent++
		}
		rssi, freqError := due.RSSI, due.FreqError
		due.Channel = r.band.Next(due.Channel)
		due.next += uint64(due.Interval)
		r.mu.Unlock()

		if heard {
			r.Deliver(raw, rssi, freqError)
		}
	}

	r.clock.setMicros(target)
}

// Channel is the channel last tuned, or -1.
func (r *Radio) Channel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel
}

func (r *Radio) Mode() device.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Tunes counts SetChannel calls.
func (r *Radio) Tunes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tunes
}

// Delivered counts completion signals.
func (r *Radio) Delivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered
}

// Start blocks until ctx is done. In realtime mode it also drives the clock.
func (r *Radio) Start(ctx context.Context) error {
	r.mu.Lock()
	realtime := r.realtime
	r.mu.Unlock()

	if realtime {
		return r.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Run advances the clock by the wall time elapsed on every millisecond tick.
func (r *Radio) Run(ctx context.Context) error {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	r.mu.Lock()
	count := len(r.transmitters)
	r.mu.Unlock()
	log.Debug().Str("band", string(r.band)).Int("transmitters", count).Msg("simulated radio running")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tick.C:
			r.Advance(uint32(now.Sub(last).Microseconds()))
			last = now
		}
	}
}

func (r *Radio) Stop() error {
	return r.SetMode(device.ModeSleep)
}
