package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/norasector/davishop/pkg/hopsync"
	"github.com/norasector/davishop/pkg/hopsync/config"
)

const receiveChannels = 8

// RecordUDPOutput sends every record to a set of UDP destinations as a
// protobuf Struct preceded by its little-endian uint16 length.
type RecordUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan *hopsync.Record
	metrics  api.WriteAPI
}

func NewRecordUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *RecordUDPOutput {
	return &RecordUDPOutput{
		dests:    dests,
		recvChan: make(chan *hopsync.Record, receiveChannels),
		metrics:  metrics,
	}
}

func (s *RecordUDPOutput) Receive() chan<- *hopsync.Record {
	return s.recvChan
}

func (s *RecordUDPOutput) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	const numListeners int = 2

	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {

		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("stream output starting")
	}

	for i := 0; i < numListeners; i++ {
		eg.Go(func() error {

			conn, err := net.ListenUDP("udp", nil)
			if err != nil {
				return err
			}
			defer conn.Close()

			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case rec := <-s.recvChan:

					msg, err := EncodeRecord(rec)
					if err != nil {
						log.Warn().Err(err).Msg("error encoding record")
						continue
					}

					success := true
					var bytesWritten int
					for _, destAddr := range destAddrs {
						bytesWritten, err = conn.WriteToUDP(msg, destAddr)
						if err != nil {
							log.Error().Err(err).Msg("error writing")
							success = false
						}
					}

					s.metrics.WritePoint(influxdb2.NewPoint("davis.sent_record",
						map[string]string{
							"station_id": strconv.Itoa(int(rec.StationID)),
						},
						map[string]interface{}{
							"bytes_written": bytesWritten,
							"sent": func() int {
								if success {
									return 1
								}
								return 0
							}(),
							"dropped": func() int {
								if success {
									return 0
								}
								return 1
							}(),
						}, time.Now()))
				}
			}
		})
	}

	return eg.Wait()
}

// RecordStruct converts a record into its wire representation.
func RecordStruct(rec *hopsync.Record) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"station_id":   int(rec.StationID),
		"station_type": rec.StationType.String(),
		"packet_type":  rec.Frame.PacketType().String(),
		"frame":        rec.Frame[:],
		"channel":      rec.Channel,
		"rssi":         rec.RSSI,
		"freq_error":   int(rec.FreqError),
		"delta_us":     rec.Delta.Microseconds(),
		"repeated":     rec.Repeated,
		"received_at":  int64(rec.ReceivedAt),
	})
}

// EncodeRecord returns the length-prefixed datagram for a record.
func EncodeRecord(rec *hopsync.Record) ([]byte, error) {
	pb, err := RecordStruct(rec)
	if err != nil {
		return nil, err
	}

	encoded, err := proto.Marshal(pb)
	if err != nil {
		return nil, fmt.Errorf("marshaling protobuf: %w", err)
	}

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
		return nil, fmt.Errorf("encoding header size: %w", err)
	}
	msgBuf.Write(encoded)
	return msgBuf.Bytes(), nil
}

// DecodeRecord parses a datagram produced by EncodeRecord.
func DecodeRecord(msg []byte) (*structpb.Struct, error) {
	if len(msg) < 2 {
		return nil, fmt.Errorf("short datagram: %d bytes", len(msg))
	}
	size := int(binary.LittleEndian.Uint16(msg))
	if len(msg)-2 != size {
		return nil, fmt.Errorf("datagram length %d does not match header %d", len(msg)-2, size)
	}

	var pb structpb.Struct
	if err := proto.Unmarshal(msg[2:], &pb); err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}
	return &pb, nil
}
