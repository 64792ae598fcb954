package hopsync

import (
	"fmt"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/config"
)

// MaxStations is the number of distinct ids a frame can carry.
const MaxStations = 8

// Station is the timing and health state of one tracked transmitter. All
// times are Clock microseconds.
type Station struct {
	ID         uint8
	Type       davis.StationType
	Active     bool
	RepeaterID uint8

	// LastRx is the last reception, or the instant one was expected when it
	// was missed.
	LastRx uint32
	// LastSeen is the last actual reception.
	LastSeen uint32
	// Interval is the transmit period; 0 until the station is found.
	Interval  uint32
	LostCount uint32
	// Channel is the hop the next frame is expected on.
	Channel       int
	SyncStartedAt uint32
	RecvBegan     uint32
	// EarlyAmount is how long the receiver was armed before the last frame
	// arrived.
	EarlyAmount uint32
	Progress    uint8

	TotalPackets uint32
	TotalLost    uint32
	TotalResyncs uint32
}

func (s Station) Synchronized() bool {
	return s.Interval > 0
}

// StationInterval is the transmit period of a transmitter: (41+id)/16 seconds.
func StationInterval(id uint8) uint32 {
	return (41 + uint32(id)) * 1000000 / 16
}

func newStations(cfgs []config.Station) ([]Station, error) {
	if len(cfgs) > MaxStations {
		return nil, fmt.Errorf("%w: %d configured, at most %d", ErrTooManyStations, len(cfgs), MaxStations)
	}

	stations := make([]Station, 0, len(cfgs))
	seen := make(map[uint8]struct{})
	for _, cfg := range cfgs {
		if cfg.ID >= MaxStations {
			return nil, fmt.Errorf("%w: %d", ErrInvalidStation, cfg.ID)
		}
		if _, ok := seen[cfg.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateStation, cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		repeater, err := cfg.RepeaterID()
		if err != nil {
			return nil, fmt.Errorf("%w: station %d: %v", ErrInvalidRepeater, cfg.ID, err)
		}

		stations = append(stations, Station{
			ID:         cfg.ID,
			Type:       cfg.Type,
			Active:     cfg.Active,
			RepeaterID: repeater,
		})
	}
	return stations, nil
}

func findStation(stations []Station, id uint8) int {
	for i := range stations {
		if stations[i].ID == id {
			return i
		}
	}
	return -1
}
