package hopsync

import "testing"

func TestElapsed(t *testing.T) {
	tests := []struct {
		name   string
		after  uint32
		before uint32
		want   uint32
	}{
		{"forward", 2000, 500, 1500},
		{"equal", 42, 42, 0},
		{"wrap", 0x54, 0xFFFFFFF0, 100},
		{"wrap to zero", 0, 0xFFFFFFFF, 1},
		{"slightly behind", 1000, 1500, 0},
		{"half range behind", 0, 1 << 31, 0},
		{"just past half range", 0, 1<<31 + 1, 1<<31 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Elapsed(tt.after, tt.before); got != tt.want {
				t.Errorf("Elapsed(%#x, %#x) = %d, want %d", tt.after, tt.before, got, tt.want)
			}
		})
	}
}

func TestStationInterval(t *testing.T) {
	tests := []struct {
		id   uint8
		want uint32
	}{
		{0, 2562500},
		{1, 2625000},
		{7, 3000000},
	}
	for _, tt := range tests {
		if got := StationInterval(tt.id); got != tt.want {
			t.Errorf("StationInterval(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestTimestamp(t *testing.T) {
	if got := timestamp(0); got != 1 {
		t.Errorf("timestamp(0) = %d, want 1", got)
	}
	if got := timestamp(77); got != 77 {
		t.Errorf("timestamp(77) = %d, want 77", got)
	}
}
