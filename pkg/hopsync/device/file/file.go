package file

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/config"
	"github.com/norasector/davishop/pkg/hopsync/device/sim"
)

// transmitterSpacing staggers replayed stations so they don't all start at
// once.
const transmitterSpacing = 300000

// NewFileDevice builds a realtime simulated radio that replays captured
// payloads. Each non-empty line of the capture is
//
//	<station id> <payload hex> [repeater letter]
//
// and lines starting with # are ignored. Every station in the capture gets a
// transmitter that cycles through its payloads in file order.
func NewFileDevice(path string, clock *sim.Clock, band davis.Band) (*sim.Radio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	transmitters, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	radio := sim.New(clock, band)
	for idx, t := range transmitters {
		t.Offset = uint32(idx+1) * transmitterSpacing
		radio.AddTransmitter(t)
	}
	radio.Realtime(true)
	return radio, nil
}

// Parse reads a capture and returns one transmitter per station, ordered by
// first appearance.
func Parse(r io.Reader) ([]*sim.Transmitter, error) {
	var ret []*sim.Transmitter
	byID := make(map[uint8]*sim.Transmitter)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: want <id> <payload> [repeater]", lineNo)
		}

		id, err := strconv.ParseUint(fields[0], 10, 8)
		if err != nil || id > 7 {
			return nil, fmt.Errorf("line %d: invalid station id %q", lineNo, fields[0])
		}

		raw, err := hex.DecodeString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if len(raw) < davis.PayloadLength {
			return nil, fmt.Errorf("line %d: payload has %d bytes, want at least %d", lineNo, len(raw), davis.PayloadLength)
		}
		var payload [davis.PayloadLength]byte
		copy(payload[:], raw)

		st := config.Station{ID: uint8(id)}
		if len(fields) == 3 {
			st.Repeater = fields[2]
		}
		repeater, err := st.RepeaterID()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		t, ok := byID[st.ID]
		if !ok {
			t = &sim.Transmitter{ID: st.ID, Repeater: repeater, RSSI: -60}
			byID[st.ID] = t
			ret = append(ret, t)
		} else if t.Repeater != repeater {
			return nil, fmt.Errorf("line %d: station %d changes repeater", lineNo, st.ID)
		}
		t.Payloads = append(t.Payloads, payload)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
