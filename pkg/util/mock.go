package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for an InfluxDB write API when none is configured.
// It keeps the points it is given so tests can inspect them.
type MockWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
	lines  []string
}

func (m *MockWriteAPI) WriteRecord(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
}

func (m *MockWriteAPI) WritePoint(point *write.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, point)
}

// Points returns the points written so far with the given measurement name,
// or all of them if name is empty.
func (m *MockWriteAPI) Points(name string) []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []*write.Point
	for _, p := range m.points {
		if name == "" || p.Name() == name {
			ret = append(ret, p)
		}
	}
	return ret
}

// Reset discards everything recorded so far.
func (m *MockWriteAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = nil
	m.lines = nil
}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

func (m *MockWriteAPI) Errors() <-chan error { return nil }
