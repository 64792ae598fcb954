package output

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync"
	"github.com/norasector/davishop/pkg/hopsync/config"
	"github.com/norasector/davishop/pkg/util"
)

func testRecord(id uint8) *hopsync.Record {
	payload := [davis.PayloadLength]byte{0x80 | id, 0x00, 0xd8, 0x2d, 0x71, 0x07}
	return &hopsync.Record{
		StationID:   id,
		StationType: davis.StationVue,
		Frame:       davis.EncodeFrame(payload, [2]byte{}, false),
		Channel:     17,
		RSSI:        -71,
		FreqError:   -3,
		Delta:       2562500 * time.Microsecond,
		ReceivedAt:  123456,
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatRecord(t *testing.T) {
	got := FormatRecord(testRecord(0))
	if !strings.HasPrefix(got, "8000d82d7107") {
		t.Errorf("FormatRecord() = %q, want frame hex first", got)
	}
	for _, part := range []string{"station=0", "type=vue", `packet="Temperature"`, "channel=17", "rssi=-71", "fei=-3", "delta=2.5625s", "repeated=false"} {
		if !strings.Contains(got, part) {
			t.Errorf("FormatRecord() = %q, missing %q", got, part)
		}
	}
}

func TestSimpleOutputFilters(t *testing.T) {
	var buf syncBuffer
	out := NewSimpleOutput(&buf, []uint8{2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- out.Start(ctx) }()

	out.Receive() <- testRecord(1)
	out.Receive() <- testRecord(2)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "station=2") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	got := buf.String()
	if strings.Contains(got, "station=1") || strings.Count(got, "\n") != 1 {
		t.Errorf("output = %q, want only station 2", got)
	}
}

func TestEncodeRecord(t *testing.T) {
	msg, err := EncodeRecord(testRecord(3))
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	if int(msg[0])|int(msg[1])<<8 != len(msg)-2 {
		t.Fatalf("length prefix %x does not match %d byte body", msg[:2], len(msg)-2)
	}

	pb, err := DecodeRecord(msg)
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	fields := pb.AsMap()
	if fields["station_id"] != float64(3) || fields["channel"] != float64(17) || fields["delta_us"] != float64(2562500) {
		t.Errorf("decoded = %v", fields)
	}
	if fields["station_type"] != "vue" || fields["repeated"] != false {
		t.Errorf("decoded = %v", fields)
	}

	if _, err := DecodeRecord(msg[:len(msg)-1]); err == nil {
		t.Errorf("DecodeRecord() accepted a truncated datagram")
	}
}

func TestRecordUDPOutput(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer listener.Close()

	metrics := &util.MockWriteAPI{}
	out := NewRecordUDPOutput([]config.OutputDestination{{
		Host: "127.0.0.1",
		Port: listener.LocalAddr().(*net.UDPAddr).Port,
	}}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- out.Start(ctx) }()

	out.Receive() <- testRecord(5)

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1500)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}

	pb, err := DecodeRecord(buf[:n])
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if pb.AsMap()["station_id"] != float64(5) {
		t.Errorf("decoded = %v", pb.AsMap())
	}

	cancel()
	<-done
	if len(metrics.Points("davis.sent_record")) != 1 {
		t.Errorf("sent_record points = %d, want 1", len(metrics.Points("davis.sent_record")))
	}
}
