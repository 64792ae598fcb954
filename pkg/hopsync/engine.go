package hopsync

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/davishop/pkg/davis"
	"github.com/norasector/davishop/pkg/hopsync/device"
	"github.com/norasector/davishop/pkg/util"
)

// State is the scheduler mode. It is derived again on every poll.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateSynchronized
	StateReceiving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateSynchronized:
		return "synchronized"
	case StateReceiving:
		return "receiving"
	default:
		return "unknown"
	}
}

// Engine tracks the hop timing of a fixed set of stations and keeps a single
// narrowband receiver on the right channel for each of them.
type Engine struct {
	radio    device.Transceiver
	clock    Clock
	band     davis.Band
	opts     Options
	timing   Timing
	queue    *Queue
	writeAPI api.WriteAPI
	logger   zerolog.Logger
	errChan  chan error

	mu       sync.Mutex
	stations []Station
	state    State
	current  int
	channel  int
	counters Counters

	// stopped is cancelled by Stop and ends any current or later Start.
	stopped context.Context
	cancel  context.CancelFunc
}

// Counters are engine-wide lifetime totals.
type Counters struct {
	Packets       uint32
	LostPackets   uint32
	LostStations  uint32
	Resyncs       uint32
	StationsFound int
	// Noise counts frames that failed both checksums; Foreign counts frames
	// from unknown ids or with the wrong repeater layout.
	Noise   uint32
	Foreign uint32
}

type EngineOption func(e *Engine) error

func WithInfluxDB(writeAPI api.WriteAPI) EngineOption {
	return func(e *Engine) error {
		e.writeAPI = writeAPI
		return nil
	}
}

func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

func WithClock(clock Clock) EngineOption {
	return func(e *Engine) error {
		if clock == nil {
			return fmt.Errorf("nil clock")
		}
		e.clock = clock
		return nil
	}
}

// NewEngine validates the station table and registers the engine as the
// transceiver's completion handler.
func NewEngine(radio device.Transceiver, options Options, opts ...EngineOption) (*Engine, error) {
	if options.Band == "" {
		options.Band = davis.BandUS
	}
	if options.Band.Channels() == 0 {
		return nil, fmt.Errorf("%w: %q", davis.ErrUnknownBand, options.Band)
	}
	if options.QueueSize <= 0 {
		options.QueueSize = defaultQueueSize
	}
	if options.PollInterval <= 0 {
		options.PollInterval = defaultPollInterval
	}
	if options.StatsInterval <= 0 {
		options.StatsInterval = defaultStatsInterval
	}

	timing := options.Timing.withDefaults()
	if err := timing.validate(); err != nil {
		return nil, err
	}

	stations, err := newStations(options.Stations)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		radio:    radio,
		clock:    NewMonotonicClock(),
		band:     options.Band,
		opts:     options,
		timing:   timing,
		queue:    NewQueue(options.QueueSize),
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		logger:   log.Logger,
		errChan:  make(chan error, 1),
		stations: stations,
		current:  -1,
	}
	e.stopped, e.cancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	radio.OnReceive(e.handleInterrupt)

	return e, nil
}

func (e *Engine) Queue() *Queue {
	return e.queue
}

func (e *Engine) Band() davis.Band {
	return e.band
}

// Stations returns a copy of the station table.
func (e *Engine) Stations() []Station {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]Station, len(e.stations))
	copy(ret, e.stations)
	return ret
}

type Stats struct {
	Counters
	State   State
	Channel int
	Queued  int
	Dropped uint64
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Counters: e.counters,
		State:    e.state,
		Channel:  e.channel,
		Queued:   e.queue.Len(),
		Dropped:  e.queue.Dropped(),
	}
}

func (e *Engine) Stop() error {
	e.cancel()
	return e.radio.Stop()
}

func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(e.stopped, cancel)()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return e.radio.Start(ctx)
	})
	eg.Go(func() error {
		return e.pollLoop(ctx)
	})
	eg.Go(func() error {
		return e.drainRecords(ctx)
	})
	eg.Go(func() error {
		return e.reportStats(ctx)
	})

	for _, output := range e.opts.Outputs {
		thisOutput := output
		eg.Go(func() error {
			return thisOutput.Start(ctx)
		})
	}

	e.logger.Info().
		Str("band", string(e.band)).
		Int("stations", len(e.stations)).
		Dur("poll_interval", e.opts.PollInterval).
		Msg("Starting")

	return eg.Wait()
}

func (e *Engine) pollLoop(ctx context.Context) error {
	tick := time.NewTicker(e.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-e.errChan:
			return err
		case <-tick.C:
			if _, err := e.Poll(); err != nil {
				return fmt.Errorf("poll: %w", err)
			}
		}
	}
}

// drainRecords is the queue's single consumer. Outputs that are not ready
// miss the record.
func (e *Engine) drainRecords(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-e.queue.Records():
			skippedOutputs := 0
			fanoutDuration := util.TimeOperationMicroseconds(func() {
				for _, output := range e.opts.Outputs {
					select {
					case output.Receive() <- rec:
					default:
						skippedOutputs++
					}
				}
			})

			e.writeAPI.WritePoint(influxdb2.NewPoint("davis.packet",
				map[string]string{
					"station_id":  strconv.Itoa(int(rec.StationID)),
					"channel":     strconv.Itoa(rec.Channel),
					"packet_type": rec.Frame.PacketType().String(),
					"repeated":    strconv.FormatBool(rec.Repeated),
				},
				map[string]interface{}{
					"rssi":            rec.RSSI,
					"freq_error":      int(rec.FreqError),
					"delta_us":        rec.Delta.Microseconds(),
					"skipped_outputs": skippedOutputs,
					"fanout_us":       fanoutDuration,
				}, time.Now()))
		}
	}
}

func (e *Engine) reportStats(ctx context.Context) error {
	tick := time.NewTicker(e.opts.StatsInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			e.writeStats(time.Now())
		}
	}
}

func (e *Engine) writeStats(ts time.Time) {
	stats := e.Stats()
	for _, st := range e.Stations() {
		e.writeAPI.WritePoint(influxdb2.NewPoint("davis.station",
			map[string]string{
				"station_id":   strconv.Itoa(int(st.ID)),
				"station_type": st.Type.String(),
			},
			map[string]interface{}{
				"synchronized":  st.Synchronized(),
				"interval_us":   int64(st.Interval),
				"lost_count":    int64(st.LostCount),
				"packets":       int64(st.TotalPackets),
				"lost":          int64(st.TotalLost),
				"resyncs":       int64(st.TotalResyncs),
				"early_us":      int64(st.EarlyAmount),
				"sync_progress": int(st.Progress),
			}, ts))
	}

	e.logger.Info().
		Str("state", stats.State.String()).
		Uint32("packets", stats.Packets).
		Uint32("lost_packets", stats.LostPackets).
		Uint32("lost_stations", stats.LostStations).
		Int("stations_found", stats.StationsFound).
		Uint64("dropped", stats.Dropped).
		Msg("receiver stats")
}

// fail hands a transceiver error from the completion handler to the poll
// loop. Only the first error is kept.
func (e *Engine) fail(err error) {
	e.logger.Warn().Err(err).Msg("transceiver error")
	select {
	case e.errChan <- err:
	default:
	}
}
