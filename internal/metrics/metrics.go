package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the pipeline's operational metrics through Prometheus.
type Recorder struct {
	scanDuration     prometheus.Histogram
	scannedSymbols   prometheus.Histogram
	patternsDetected *prometheus.CounterVec
	signalsTotal     *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a recorder registered against the given registerer. Pass
// prometheus.DefaultRegisterer in main; tests use their own registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_scanner_scan_duration_seconds",
			Help:    "Wall-clock duration of multi-symbol scans",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		scannedSymbols: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_scanner_scan_symbols",
			Help:    "Symbols completed per scan",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		patternsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_scanner_patterns_detected_total",
			Help: "Pattern matches by symbol and kind",
		}, []string{"symbol", "pattern"}),
		signalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_scanner_signals_total",
			Help: "Scored signals by symbol and direction",
		}, []string{"symbol", "direction"}),
		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_scanner_upstream_errors_total",
			Help: "Upstream market-data failures by source",
		}, []string{"source"}),
		lastPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signal_scanner_last_price",
			Help: "Last observed price for a symbol",
		}, []string{"symbol"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_scanner_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signal_scanner_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
	}
}

// RecordScan records one completed multi-symbol scan.
func (r *Recorder) RecordScan(duration time.Duration, scannedSymbols int) {
	r.scanDuration.Observe(duration.Seconds())
	r.scannedSymbols.Observe(float64(scannedSymbols))
}

// RecordPatternDetected counts a single pattern match.
func (r *Recorder) RecordPatternDetected(symbol, pattern string) {
	r.patternsDetected.WithLabelValues(symbol, pattern).Inc()
}

// RecordSignal counts a scored signal.
func (r *Recorder) RecordSignal(symbol, direction string) {
	r.signalsTotal.WithLabelValues(symbol, direction).Inc()
}

// RecordUpstreamError counts a market-data failure.
func (r *Recorder) RecordUpstreamError(source string) {
	r.upstreamErrors.WithLabelValues(source).Inc()
}

// SetLastPrice records the most recent price for a symbol.
func (r *Recorder) SetLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordHTTPRequest records one served HTTP request.
func (r *Recorder) RecordHTTPRequest(route, method, status string, seconds float64) {
	r.httpRequests.WithLabelValues(route, method, status).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(seconds)
}
