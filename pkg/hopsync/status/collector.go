package status

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/norasector/davishop/pkg/hopsync"
)

// Source is the engine state the status server reports on.
type Source interface {
	Stations() []hopsync.Station
	Stats() hopsync.Stats
}

// Collector exports engine counters and per-station health as Prometheus
// metrics. Values are read from the source on every scrape.
type Collector struct {
	source Source

	packets       *prometheus.Desc
	lostPackets   *prometheus.Desc
	lostStations  *prometheus.Desc
	resyncs       *prometheus.Desc
	stationsFound *prometheus.Desc
	discarded     *prometheus.Desc
	queued        *prometheus.Desc
	dropped       *prometheus.Desc

	stationPackets *prometheus.Desc
	stationLost    *prometheus.Desc
	stationResyncs *prometheus.Desc
	stationSynced  *prometheus.Desc
	stationEarly   *prometheus.Desc
}

func NewCollector(source Source) *Collector {
	stationLabels := []string{"station_id", "station_type"}
	return &Collector{
		source:        source,
		packets:       prometheus.NewDesc("davis_packets_total", "Frames accepted from configured stations.", nil, nil),
		lostPackets:   prometheus.NewDesc("davis_lost_packets_total", "Expected frames that never arrived.", nil, nil),
		lostStations:  prometheus.NewDesc("davis_lost_stations", "Stations that dropped out of sync and have not been found again.", nil, nil),
		resyncs:       prometheus.NewDesc("davis_resyncs_total", "Times a station went back to discovery.", nil, nil),
		stationsFound: prometheus.NewDesc("davis_stations_found", "Stations with a timing model.", nil, nil),
		discarded:     prometheus.NewDesc("davis_discarded_frames_total", "Frames discarded before reaching a station.", []string{"reason"}, nil),
		queued:        prometheus.NewDesc("davis_queue_length", "Records waiting to be consumed.", nil, nil),
		dropped:       prometheus.NewDesc("davis_queue_dropped_total", "Records dropped because the queue was full.", nil, nil),

		stationPackets: prometheus.NewDesc("davis_station_packets_total", "Frames received per station.", stationLabels, nil),
		stationLost:    prometheus.NewDesc("davis_station_lost_packets_total", "Frames missed per station.", stationLabels, nil),
		stationResyncs: prometheus.NewDesc("davis_station_resyncs_total", "Resyncs per station.", stationLabels, nil),
		stationSynced:  prometheus.NewDesc("davis_station_synchronized", "1 if the station has a timing model.", stationLabels, nil),
		stationEarly:   prometheus.NewDesc("davis_station_early_seconds", "How long the receiver waited on channel before the last frame.", stationLabels, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.packets, c.lostPackets, c.lostStations, c.resyncs, c.stationsFound,
		c.discarded, c.queued, c.dropped,
		c.stationPackets, c.stationLost, c.stationResyncs, c.stationSynced, c.stationEarly,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.packets, prometheus.CounterValue, float64(stats.Packets))
	ch <- prometheus.MustNewConstMetric(c.lostPackets, prometheus.CounterValue, float64(stats.LostPackets))
	ch <- prometheus.MustNewConstMetric(c.lostStations, prometheus.GaugeValue, float64(stats.LostStations))
	ch <- prometheus.MustNewConstMetric(c.resyncs, prometheus.CounterValue, float64(stats.Resyncs))
	ch <- prometheus.MustNewConstMetric(c.stationsFound, prometheus.GaugeValue, float64(stats.StationsFound))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(stats.Noise), "noise")
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(stats.Foreign), "foreign")
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(stats.Queued))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(stats.Dropped))

	for _, st := range c.source.Stations() {
		labels := []string{strconv.Itoa(int(st.ID)), st.Type.String()}
		synced := 0.0
		if st.Synchronized() {
			synced = 1
		}

		ch <- prometheus.MustNewConstMetric(c.stationPackets, prometheus.CounterValue, float64(st.TotalPackets), labels...)
		ch <- prometheus.MustNewConstMetric(c.stationLost, prometheus.CounterValue, float64(st.TotalLost), labels...)
		ch <- prometheus.MustNewConstMetric(c.stationResyncs, prometheus.CounterValue, float64(st.TotalResyncs), labels...)
		ch <- prometheus.MustNewConstMetric(c.stationSynced, prometheus.GaugeValue, synced, labels...)
		ch <- prometheus.MustNewConstMetric(c.stationEarly, prometheus.GaugeValue, float64(st.EarlyAmount)/1e6, labels...)
	}
}
