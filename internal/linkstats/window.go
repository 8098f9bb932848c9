// Package linkstats aggregates per-frame RSSI/SNR readings into a rolling
// quality picture, for applications that borrow the network layer's
// diagnostic link handle but want more than the single latest reading
// the wire protocol carries.
package linkstats

import (
	"sync"

	"github.com/montanaflynn/stats"
)

// Window keeps the last N RSSI/SNR samples and reports rolling statistics.
type Window struct {
	mu   sync.Mutex
	size int
	rssi []float64
	snr  []float64
}

// NewWindow creates a Window retaining up to size samples. size <= 0
// defaults to 32.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 32
	}
	return &Window{size: size}
}

// Observe records one frame's signal quality.
func (w *Window) Observe(rssi, snr int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rssi = append(w.rssi, float64(rssi))
	if len(w.rssi) > w.size {
		w.rssi = w.rssi[len(w.rssi)-w.size:]
	}
	w.snr = append(w.snr, float64(snr))
	if len(w.snr) > w.size {
		w.snr = w.snr[len(w.snr)-w.size:]
	}
}

// Summary is a rolling snapshot of link quality.
type Summary struct {
	Samples    int
	MeanRSSI   float64
	StdDevRSSI float64
	MeanSNR    float64
	StdDevSNR  float64
}

// Snapshot computes the current rolling statistics. Returns the zero
// Summary if no samples have been observed yet.
func (w *Window) Snapshot() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.rssi) == 0 {
		return Summary{}
	}

	meanRSSI, _ := stats.Mean(w.rssi)
	stdRSSI, _ := stats.StandardDeviation(w.rssi)
	meanSNR, _ := stats.Mean(w.snr)
	stdSNR, _ := stats.StandardDeviation(w.snr)

	return Summary{
		Samples:    len(w.rssi),
		MeanRSSI:   meanRSSI,
		StdDevRSSI: stdRSSI,
		MeanSNR:    meanSNR,
		StdDevSNR:  stdSNR,
	}
}
