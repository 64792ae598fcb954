package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/davishop/pkg/hopsync"
)

const receiveChannels = 8

// Server serves engine status as JSON and Prometheus metrics. It is also an
// output, so it can summarise the signal quality of delivered records.
type Server struct {
	source   Source
	srv      *http.Server
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	recvChan chan *hopsync.Record

	mu      sync.RWMutex
	signals map[uint8]*signalHistory
	window  int
}

func NewServer(port int, source Source) (*Server, error) {
	s := &Server{
		source:   source,
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "davis_records_total",
			Help: "Records delivered to the status server, by station and packet type.",
		}, []string{"station_id", "packet_type"}),
		recvChan: make(chan *hopsync.Record, receiveChannels),
		signals:  make(map[uint8]*signalHistory),
		window:   defaultSignalWindow,
	}

	if err := s.registry.Register(NewCollector(source)); err != nil {
		return nil, fmt.Errorf("registering collector: %w", err)
	}
	if err := s.registry.Register(s.records); err != nil {
		return nil, fmt.Errorf("registering record counter: %w", err)
	}

	s.srv = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: s.Handler()}
	return s, nil
}

func (s *Server) Receive() chan<- *hopsync.Record {
	return s.recvChan
}

func (s *Server) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", s.srv.Addr).Msg("status server starting")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		return s.srv.Shutdown(context.Background())
	})

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rec := <-s.recvChan:
				s.observe(rec)
			}
		}
	})

	return eg.Wait()
}

func (s *Server) observe(rec *hopsync.Record) {
	s.records.WithLabelValues(strconv.Itoa(int(rec.StationID)), rec.Frame.PacketType().String()).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.signals[rec.StationID]
	if !ok {
		h = newSignalHistory(s.window)
		s.signals[rec.StationID] = h
	}
	h.add(rec.RSSI, rec.FreqError)
}

// StationStatus is the JSON view of one station.
type StationStatus struct {
	ID           uint8         `json:"id"`
	Type         string        `json:"type"`
	Active       bool          `json:"active"`
	RepeaterID   uint8         `json:"repeater_id"`
	Synchronized bool          `json:"synchronized"`
	Channel      int           `json:"channel"`
	IntervalUS   uint32        `json:"interval_us"`
	LostCount    uint32        `json:"lost_count"`
	EarlyUS      uint32        `json:"early_us"`
	Progress     uint8         `json:"sync_progress"`
	Packets      uint32        `json:"packets"`
	Lost         uint32        `json:"lost"`
	Resyncs      uint32        `json:"resyncs"`
	Signal       SignalSummary `json:"signal"`
}

// StatsStatus is the JSON view of the engine counters.
type StatsStatus struct {
	State         string `json:"state"`
	Channel       int    `json:"channel"`
	Packets       uint32 `json:"packets"`
	LostPackets   uint32 `json:"lost_packets"`
	LostStations  uint32 `json:"lost_stations"`
	Resyncs       uint32 `json:"resyncs"`
	StationsFound int    `json:"stations_found"`
	Noise         uint32 `json:"noise"`
	Foreign       uint32 `json:"foreign"`
	Queued        int    `json:"queued"`
	Dropped       uint64 `json:"dropped"`
}

func (s *Server) stationStatus(st hopsync.Station) StationStatus {
	ret := StationStatus{
		ID:           st.ID,
		Type:         st.Type.String(),
		Active:       st.Active,
		RepeaterID:   st.RepeaterID,
		Synchronized: st.Synchronized(),
		Channel:      st.Channel,
		IntervalUS:   st.Interval,
		LostCount:    st.LostCount,
		EarlyUS:      st.EarlyAmount,
		Progress:     st.Progress,
		Packets:      st.TotalPackets,
		Lost:         st.TotalLost,
		Resyncs:      st.TotalResyncs,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.signals[st.ID]; ok {
		ret.Signal = h.summary()
	}
	return ret
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()

	handler.GET("/stations", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		stations := s.source.Stations()
		ret := make([]StationStatus, 0, len(stations))
		for _, st := range stations {
			ret = append(ret, s.stationStatus(st))
		}
		writeJSON(w, ret)
	})

	handler.GET("/stations/:id", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		id, err := strconv.ParseUint(params.ByName("id"), 10, 8)
		if err != nil {
			http.Error(w, "invalid station id", http.StatusBadRequest)
			return
		}
		for _, st := range s.source.Stations() {
			if st.ID == uint8(id) {
				writeJSON(w, s.stationStatus(st))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	handler.GET("/stations/:id/rssi.png", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		id, err := strconv.ParseUint(params.ByName("id"), 10, 8)
		if err != nil {
			http.Error(w, "invalid station id", http.StatusBadRequest)
			return
		}

		s.mu.RLock()
		h, ok := s.signals[uint8(id)]
		var img []byte
		if ok {
			img, err = plotRSSI(uint8(id), h)
		}
		s.mu.RUnlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Warn().Err(err).Uint64("station_id", id).Msg("error plotting rssi")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	})

	handler.GET("/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		stats := s.source.Stats()
		writeJSON(w, StatsStatus{
			State:         stats.State.String(),
			Channel:       stats.Channel,
			Packets:       stats.Packets,
			LostPackets:   stats.LostPackets,
			LostStations:  stats.LostStations,
			Resyncs:       stats.Resyncs,
			StationsFound: stats.StationsFound,
			Noise:         stats.Noise,
			Foreign:       stats.Foreign,
			Queued:        stats.Queued,
			Dropped:       stats.Dropped,
		})
	})

	handler.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return handler
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error writing status response")
	}
}
