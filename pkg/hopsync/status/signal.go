package status

import "gonum.org/v1/gonum/stat"

const defaultSignalWindow = 64

// signalHistory keeps the most recent RSSI and frequency error readings of a
// station.
type signalHistory struct {
	rssi      []float64
	freqError []float64
	next      int
	size      int
}

func newSignalHistory(size int) *signalHistory {
	return &signalHistory{
		rssi:      make([]float64, 0, size),
		freqError: make([]float64, 0, size),
		size:      size,
	}
}

func (h *signalHistory) add(rssi int, freqError int16) {
	if len(h.rssi) < h.size {
		h.rssi = append(h.rssi, float64(rssi))
		h.freqError = append(h.freqError, float64(freqError))
		return
	}
	h.rssi[h.next] = float64(rssi)
	h.freqError[h.next] = float64(freqError)
	h.next = (h.next + 1) % h.size
}

// SignalSummary describes recent reception quality.
type SignalSummary struct {
	Samples         int     `json:"samples"`
	RSSIMean        float64 `json:"rssi_mean"`
	RSSIStdDev      float64 `json:"rssi_std_dev"`
	FreqErrorMean   float64 `json:"freq_error_mean"`
	FreqErrorStdDev float64 `json:"freq_error_std_dev"`
}

func (h *signalHistory) summary() SignalSummary {
	ret := SignalSummary{Samples: len(h.rssi)}
	if ret.Samples == 0 {
		return ret
	}
	ret.RSSIMean, ret.RSSIStdDev = stat.MeanStdDev(h.rssi, nil)
	ret.FreqErrorMean, ret.FreqErrorStdDev = stat.MeanStdDev(h.freqError, nil)
	if ret.Samples == 1 {
		// A single sample has no spread.
		ret.RSSIStdDev, ret.FreqErrorStdDev = 0, 0
	}
	return ret
}
