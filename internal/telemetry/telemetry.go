// Package telemetry provides structured logging and Prometheus metrics for
// the trade-signing coordinator, in the style of the health-logging
// component this module was built from: a logrus logger paired with a
// registry of gauges and counters, exposed over an HTTP /metrics endpoint.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Snapshot captures a point-in-time view of the coordinator's load.
type Snapshot struct {
	ActiveTrades  int   `json:"active_trades"`
	MemAlloc      uint64 `json:"mem_alloc"`
	NumGoroutines int    `json:"goroutines"`
	Timestamp     int64  `json:"timestamp"`
}

// ActiveTradeCounter is satisfied by protocol.Store; kept as an interface
// here so telemetry doesn't import the protocol package.
type ActiveTradeCounter interface {
	Len() int
}

// Logger provides structured logging and Prometheus metrics for the
// coordinator process.
type Logger struct {
	trades ActiveTradeCounter

	log  *logrus.Logger
	file *os.File
	mu   sync.Mutex

	registry *prometheus.Registry

	activeTradesGauge prometheus.Gauge
	memAllocGauge     prometheus.Gauge
	goroutinesGauge   prometheus.Gauge
	errorCounter      prometheus.Counter
	roundsCounter     *prometheus.CounterVec
	nonceReuseCounter prometheus.Counter
	adaptorExtractCounter prometheus.Counter
}

// New configures a Logger writing JSON logs to w (os.Stdout is typical) and
// tracking trades registered in the given store.
func New(trades ActiveTradeCounter, w *os.File) *Logger {
	lg := logrus.New()
	lg.SetFormatter(&logrus.JSONFormatter{})
	lg.SetOutput(w)
	reg := prometheus.NewRegistry()

	h := &Logger{trades: trades, log: lg, file: w, registry: reg}

	h.activeTradesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "musigd_active_trades",
		Help: "Number of trades currently tracked by the coordinator",
	})
	h.memAllocGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "musigd_mem_alloc_bytes",
		Help: "Current memory allocation in bytes",
	})
	h.goroutinesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "musigd_goroutines",
		Help: "Number of running goroutines",
	})
	h.errorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musigd_log_errors_total",
		Help: "Total number of error events logged",
	})
	h.roundsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "musigd_rounds_completed_total",
		Help: "Total number of signing-protocol rounds completed, by round name",
	}, []string{"round"})
	h.nonceReuseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musigd_nonce_reuse_rejections_total",
		Help: "Total number of sign_partial calls rejected for reusing a consumed nonce",
	})
	h.adaptorExtractCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "musigd_adaptor_secrets_extracted_total",
		Help: "Total number of adaptor secrets recovered from a completed swap tx signature",
	})

	reg.MustRegister(
		h.activeTradesGauge,
		h.memAllocGauge,
		h.goroutinesGauge,
		h.errorCounter,
		h.roundsCounter,
		h.nonceReuseCounter,
		h.adaptorExtractCounter,
	)

	return h
}

// LogEvent records an arbitrary message with the specified log level.
func (h *Logger) LogEvent(level logrus.Level, msg string, fields logrus.Fields) {
	h.mu.Lock()
	if level >= logrus.ErrorLevel {
		h.errorCounter.Inc()
	}
	h.log.WithFields(fields).Log(level, msg)
	h.mu.Unlock()
}

// RecordRoundCompleted increments the per-round counter, e.g.
// "aggregate_key_shares" or "sign_partial".
func (h *Logger) RecordRoundCompleted(round string) {
	h.roundsCounter.WithLabelValues(round).Inc()
}

// RecordNonceReuseRejected increments the nonce-reuse counter.
func (h *Logger) RecordNonceReuseRejected() {
	h.nonceReuseCounter.Inc()
}

// RecordAdaptorSecretExtracted increments the adaptor-extraction counter.
func (h *Logger) RecordAdaptorSecretExtracted() {
	h.adaptorExtractCounter.Inc()
}

// Snapshot gathers current metrics from the trade store and the runtime.
func (h *Logger) Snapshot() Snapshot {
	s := Snapshot{Timestamp: time.Now().Unix(), NumGoroutines: runtime.NumGoroutine()}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.MemAlloc = mem.Alloc
	if h.trades != nil {
		s.ActiveTrades = h.trades.Len()
	}
	return s
}

// RecordSnapshot captures a Snapshot and updates the corresponding gauges.
func (h *Logger) RecordSnapshot() {
	s := h.Snapshot()
	h.activeTradesGauge.Set(float64(s.ActiveTrades))
	h.memAllocGauge.Set(float64(s.MemAlloc))
	h.goroutinesGauge.Set(float64(s.NumGoroutines))
}

// RunCollector periodically records a snapshot until ctx is canceled.
func (h *Logger) RunCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.RecordSnapshot()
		case <-ctx.Done():
			return
		}
	}
}

// StartMetricsServer exposes a Prometheus metrics endpoint on addr.
func (h *Logger) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.LogEvent(logrus.ErrorLevel, err.Error(), nil)
		}
	}()
	return srv
}

// ShutdownMetricsServer gracefully stops the metrics HTTP server.
func (h *Logger) ShutdownMetricsServer(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
