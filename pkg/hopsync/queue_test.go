package hopsync

import "testing"

func TestQueueOverflow(t *testing.T) {
	q := NewQueue(8)

	for i := 0; i < 9; i++ {
		ok := q.Push(&Record{ReceivedAt: uint32(i)})
		if want := i < 8; ok != want {
			t.Fatalf("Push(%d) = %v, want %v", i, ok, want)
		}
	}
	if q.Len() != 8 || q.Dropped() != 1 {
		t.Fatalf("Len() = %d Dropped() = %d, want 8 and 1", q.Len(), q.Dropped())
	}

	r, ok := q.Pop()
	if !ok || r.ReceivedAt != 0 {
		t.Fatalf("Pop() = %+v, %v, want oldest record", r, ok)
	}
	if !q.Push(&Record{ReceivedAt: 9}) {
		t.Errorf("Push() after Pop() was dropped")
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestQueueOrder(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 3; i++ {
		q.Push(&Record{StationID: uint8(i)})
	}
	for i := 0; i < 3; i++ {
		r, ok := q.Pop()
		if !ok || r.StationID != uint8(i) {
			t.Fatalf("Pop() #%d = %+v, %v", i, r, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Errorf("Pop() on empty queue reported a record")
	}
}
