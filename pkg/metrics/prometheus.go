package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	simulatedPrice *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	assetResults   *prometheus.CounterVec
	readyAssets    prometheus.Gauge
	trackedAssets  prometheus.Gauge
	ready          prometheus.Gauge
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricesim_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricesim_last_price",
				Help: "Last collected real price for an asset",
			},
			[]string{"asset"},
		),
		simulatedPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricesim_simulated_end_price",
				Help: "End price of the latest simulated path for an asset",
			},
			[]string{"asset"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricesim_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		assetResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricesim_asset_results_total",
				Help: "Per-asset simulation outcomes",
			},
			[]string{"outcome"},
		),
		readyAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricesim_history_full_windows",
			Help: "Tracked assets whose rolling window is full",
		}),
		trackedAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricesim_history_tracked_assets",
			Help: "Tracked assets expected in the rolling history",
		}),
		ready: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricesim_history_ready",
			Help: "1 when the history is ready for simulation",
		}),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last real price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordSimulatedPrice records the simulated end price for an asset.
func (r *Recorder) RecordSimulatedPrice(asset string, price float64) {
	r.simulatedPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordAssetResult counts a per-asset outcome ("present" or an absence reason).
func (r *Recorder) RecordAssetResult(outcome string) {
	r.assetResults.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetReadiness(total, full int, ready bool) {
	r.trackedAssets.Set(float64(total))
	r.readyAssets.Set(float64(full))
	if ready {
		r.ready.Set(1)
	} else {
		r.ready.Set(0)
	}
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordError(string) {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordSimulatedPrice(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordAssetResult(string) {}
func (Nop) SetReadiness(int, int, bool) {}
