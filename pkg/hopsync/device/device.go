package device

import (
	"context"

	"github.com/norasector/davishop/pkg/davis"
)

type Mode int

const (
	ModeSleep Mode = iota
	ModeStandby
	ModeReceive
	ModeTransmit
)

func (m Mode) String() string {
	switch m {
	case ModeSleep:
		return "sleep"
	case ModeStandby:
		return "standby"
	case ModeReceive:
		return "receive"
	case ModeTransmit:
		return "transmit"
	default:
		return "unknown"
	}
}

// Frame is a completed reception as delivered by the transceiver. Data is in
// over-the-air bit order; RSSI and FreqError are captured when the payload
// completes, while the carrier is still up.
type Frame struct {
	Data      [davis.FrameLength]byte
	RSSI      int
	FreqError int16
}

// Transceiver is a narrowband radio that must be retuned for every hop.
type Transceiver interface {
	// SetChannel programs hop table entry idx of the configured band and
	// re-arms continuous receive.
	SetChannel(idx int) error
	// SetMode is a no-op if the radio is already in mode m.
	SetMode(m Mode) error
	// TakeFrame returns the payload latched by the last completion signal.
	TakeFrame() (Frame, error)
	// OnReceive registers the completion handler. It may be invoked from a
	// different goroutine than the one polling the engine.
	OnReceive(handler func())
	Start(ctx context.Context) error
	Stop() error
}
