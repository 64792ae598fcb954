package output

import (
	"context"
	"fmt"
	"io"

	"github.com/norasector/davishop/pkg/hopsync"
)

const recordBufferLength int = 8

// SimpleOutput prints one line per record.
type SimpleOutput struct {
	dest          io.Writer
	recvChan      chan *hopsync.Record
	stationFilter map[uint8]struct{}
}

// NewSimpleOutput prints records from the given stations, or from every
// station if none are given.
func NewSimpleOutput(dest io.Writer, stations []uint8) *SimpleOutput {
	ret := &SimpleOutput{
		dest:          dest,
		recvChan:      make(chan *hopsync.Record, recordBufferLength),
		stationFilter: make(map[uint8]struct{}),
	}

	for _, id := range stations {
		ret.stationFilter[id] = struct{}{}
	}

	return ret
}

func (s *SimpleOutput) Receive() chan<- *hopsync.Record {
	return s.recvChan
}

func (s *SimpleOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case rec := <-s.recvChan:
			if len(s.stationFilter) > 0 {
				if _, ok := s.stationFilter[rec.StationID]; !ok {
					continue
				}
			}

			if _, err := io.WriteString(s.dest, FormatRecord(rec)+"\n"); err != nil {
				return err
			}
		}
	}
}

// FormatRecord renders a record on a single line.
func FormatRecord(rec *hopsync.Record) string {
	return fmt.Sprintf("%x station=%d type=%s packet=%q channel=%d rssi=%d fei=%d delta=%s repeated=%t",
		rec.Frame[:], rec.StationID, rec.StationType, rec.Frame.PacketType(),
		rec.Channel, rec.RSSI, rec.FreqError, rec.Delta, rec.Repeated)
}
