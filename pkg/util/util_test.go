package util

import (
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
)

func TestMHzToString(t *testing.T) {
	tests := []struct {
		hz   int
		want string
	}{
		{911952597, "911.9526 MHz"},
		{911450847, "911.4508 MHz"},
	}
	for _, tt := range tests {
		if got := MHzToString(tt.hz); got != tt.want {
			t.Errorf("MHzToString(%d) = %q, want %q", tt.hz, got, tt.want)
		}
	}
}

func TestMockWriteAPI(t *testing.T) {
	m := &MockWriteAPI{}
	m.WritePoint(influxdb2.NewPoint("a", nil, map[string]interface{}{"v": 1}, time.Now()))
	m.WritePoint(influxdb2.NewPoint("b", nil, map[string]interface{}{"v": 2}, time.Now()))
	m.WritePoint(influxdb2.NewPoint("a", nil, map[string]interface{}{"v": 3}, time.Now()))

	if n := len(m.Points("a")); n != 2 {
		t.Errorf("Points(a) = %d, want 2", n)
	}
	if n := len(m.Points("")); n != 3 {
		t.Errorf("Points() = %d, want 3", n)
	}
	m.Reset()
	if n := len(m.Points("")); n != 0 {
		t.Errorf("Points() after Reset() = %d, want 0", n)
	}
}
