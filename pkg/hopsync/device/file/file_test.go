package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/device/sim"
)

const capture = `
# id payload repeater
0 8000d82d7107
2 52066b280001
0 e000a1000000
1 81049e3b2109 a
`

func TestParse(t *testing.T) {
	txs, err := Parse(strings.NewReader(capture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("Parse() = %d transmitters, want 3", len(txs))
	}

	tests := []struct {
		id       uint8
		repeater uint8
		payloads int
	}{
		{0, 0, 2},
		{2, 0, 1},
		{1, 0x8, 1},
	}
	for idx, tt := range tests {
		tx := txs[idx]
		if tx.ID != tt.id || tx.Repeater != tt.repeater || len(tx.Payloads) != tt.payloads {
			t.Errorf("transmitter %d = id %d repeater %#x payloads %d", idx, tx.ID, tx.Repeater, len(tx.Payloads))
		}
	}
	if txs[0].Payloads[1][0] != 0xe0 {
		t.Errorf("second payload = %x", txs[0].Payloads[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing payload", "3\n"},
		{"bad id", "9 8000d82d7107\n"},
		{"bad hex", "0 80zz\n"},
		{"short payload", "0 8000\n"},
		{"bad repeater", "0 8000d82d7107 q\n"},
		{"repeater changes", "0 8000d82d7107\n0 8000d82d7107 b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Errorf("Parse(%q) succeeded", tt.input)
			}
		})
	}
}

func TestNewFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	if err := os.WriteFile(path, []byte(capture), 0o644); err != nil {
		t.Fatal(err)
	}

	radio, err := NewFileDevice(path, sim.NewClock(0), davis.BandUS)
	if err != nil {
		t.Fatalf("NewFileDevice() error = %v", err)
	}

	heard := 0
	radio.OnReceive(func() {
		if _, err := radio.TakeFrame(); err == nil {
			heard++
		}
	})
	radio.SetChannel(0)
	radio.Advance(3 * transmitterSpacing)
	if heard != 3 {
		t.Errorf("heard %d frames, want 3", heard)
	}
}
