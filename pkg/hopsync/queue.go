package hopsync

import (
	"sync/atomic"
	"time"

	"github.com/norasector/davishop/pkg/davis"
)

// Record is a validated frame. It is not modified after it is queued.
type Record struct {
	StationID   uint8
	StationType davis.StationType
	Frame       davis.Frame
	Channel     int
	RSSI        int
	FreqError   int16
	// Delta is the time since the previous frame from the same station, or
	// 0 for its first frame.
	Delta      time.Duration
	Repeated   bool
	ReceivedAt uint32
}

// Queue is a bounded single-producer, single-consumer record queue. Pushing
// to a full queue drops the new record.
type Queue struct {
	dropped uint64
	records chan *Record
}

func NewQueue(size int) *Queue {
	return &Queue{records: make(chan *Record, size)}
}

// Push never blocks. It reports whether the record was queued.
func (q *Queue) Push(r *Record) bool {
	select {
	case q.records <- r:
		return true
	default:
		atomic.AddUint64(&q.dropped, 1)
		return false
	}
}

// Pop returns the oldest record, or false if the queue is empty.
func (q *Queue) Pop() (*Record, bool) {
	select {
	case r := <-q.records:
		return r, true
	default:
		return nil, false
	}
}

// Records exposes the queue for consumers that want to block in a select.
func (q *Queue) Records() <-chan *Record {
	return q.records
}

func (q *Queue) Len() int {
	return len(q.records)
}

func (q *Queue) Cap() int {
	return cap(q.records)
}

func (q *Queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}
