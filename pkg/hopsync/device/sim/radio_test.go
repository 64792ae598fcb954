package sim

import (
	"errors"
	"testing"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/device"
)

func TestClockWraps(t *testing.T) {
	c := NewClock(0xFFFFFFF0)
	if got := c.Advance(0x20); got != 0x10 {
		t.Errorf("Advance() = %#x, want 0x10", got)
	}
	if c.micros() != 0x100000010 {
		t.Errorf("micros() = %#x, want 0x100000010", c.micros())
	}
}

func TestRadioHearsOnlyOwnChannel(t *testing.T) {
	clock := NewClock(0)
	r := New(clock, davis.BandUS)
	tx := &Transmitter{ID: 2, Offset: 100, RSSI: -55}
	r.AddTransmitter(tx)

	var got []device.Frame
	r.OnReceive(func() {
		f, err := r.TakeFrame()
		if err != nil {
			t.Fatalf("TakeFrame() error = %v", err)
		}
		got = append(got, f)
	})

	// Wrong channel: the transmission is missed but the transmitter still hops.
	if err := r.SetChannel(5); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}
	r.Advance(200)
	if len(got) != 0 || tx.Channel != 1 {
		t.Fatalf("heard %d frames, transmitter on channel %d", len(got), tx.Channel)
	}

	if err := r.SetChannel(1); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}
	r.Advance(tx.Interval)
	if len(got) != 1 {
		t.Fatalf("heard %d frames, want 1", len(got))
	}

	frame := davis.FromAir(got[0].Data)
	if davis.Validate(frame) != davis.DirectMatch || frame.StationID() != 2 || got[0].RSSI != -55 {
		t.Errorf("frame = %x rssi %d", frame, got[0].RSSI)
	}
	if clock.Now() != 200+tx.Interval {
		t.Errorf("clock = %d, want %d", clock.Now(), 200+tx.Interval)
	}
}

func TestRadioIgnoresWhenNotReceiving(t *testing.T) {
	r := New(NewClock(0), davis.BandEU)
	r.AddTransmitter(&Transmitter{ID: 0, Offset: 10})
	calls := 0
	r.OnReceive(func() { calls++ })

	if err := r.SetChannel(0); err != nil {
		t.Fatalf("SetChannel() error = %v", err)
	}
	if err := r.SetMode(device.ModeSleep); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	r.Advance(100)
	if calls != 0 {
		t.Errorf("handler called %d times while asleep", calls)
	}
}

func TestRadioRepeatedFrames(t *testing.T) {
	r := New(NewClock(0), davis.BandUS)
	r.AddTransmitter(&Transmitter{ID: 1, Repeater: 0x9, Offset: 10})
	var frame davis.Frame
	r.OnReceive(func() {
		f, _ := r.TakeFrame()
		frame = davis.FromAir(f.Data)
	})
	r.SetChannel(0)
	r.Advance(20)

	if got := davis.Validate(frame); got != davis.RepeaterMatch {
		t.Errorf("Validate() = %v, want repeater", got)
	}
}

func TestRadioErrors(t *testing.T) {
	r := New(NewClock(0), davis.BandEU)
	if err := r.SetChannel(5); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("SetChannel(5) error = %v, want ErrInvalidChannel", err)
	}
	if _, err := r.TakeFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("TakeFrame() error = %v, want ErrNoFrame", err)
	}
}
