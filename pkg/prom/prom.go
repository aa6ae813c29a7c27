// Package prom mirrors the global-metrics pattern used across the rest of
// the stack: an Init() that's a no-op until called, package-level
// collectors guarded by a metrics bool so calling sites never need a nil
// check, and a Listen() that serves /metrics on its own address.
package prom

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "airdrop_trie_service"

const (
	statsSubsystem = "round"
	subsystemHTTP  = "http"
)

var (
	metrics bool

	roundsIngested  prometheus.Counter
	roundsCommitted prometheus.Counter
	roundsFailed    prometheus.Counter
	activeRounds    prometheus.Gauge

	tIngest prometheus.Histogram
	tBuild  prometheus.Histogram
	tCommit prometheus.Histogram
	tVerify prometheus.Histogram

	httpCount    prometheus.Counter
	httpDuration prometheus.Histogram
)

// Init registers all collectors. Calling any Set/Inc/Observe function
// before Init is a safe no-op.
func Init() {
	metrics = true

	roundsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "ingested_total",
		Help: "Number of rounds successfully ingested",
	})
	roundsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "committed_total",
		Help: "Number of rounds successfully committed on-chain",
	})
	roundsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "failed_total",
		Help: "Number of round operations that ended in a failed state",
	})
	activeRounds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "active",
		Help: "Number of rounds currently held under a write lock",
	})

	tIngest = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "ingest_seconds",
		Help: "Time to validate and persist an ingested round",
	})
	tBuild = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "build_seconds",
		Help: "Time to construct a trie from its entries",
	})
	tCommit = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "commit_seconds",
		Help: "Time to submit and confirm an on-chain root update",
	})
	tVerify = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: statsSubsystem, Name: "verify_seconds",
		Help: "Time to verify a membership proof",
	})

	httpCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystemHTTP, Name: "count",
		Help: "HTTP request count",
	})
	httpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystemHTTP, Name: "duration_seconds",
		Help: "HTTP request duration",
	})
}

// Listen starts a /metrics server on addr and returns it so the caller
// can shut it down.
func Listen(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("metrics server stopped")
		}
	}()
	return srv
}

// RegisterDBCollector attaches a DBStatsCollector for db under name.
func RegisterDBCollector(name string, db *sqlx.DB) {
	if metrics {
		prometheus.Register(NewDBStatsCollector(name, db))
	}
}

func IncRoundsIngested()  { if metrics { roundsIngested.Inc() } }
func IncRoundsCommitted() { if metrics { roundsCommitted.Inc() } }
func IncRoundsFailed()    { if metrics { roundsFailed.Inc() } }
func SetActiveRounds(n int) {
	if metrics {
		activeRounds.Set(float64(n))
	}
}

func ObserveIngest(seconds float64) { if metrics { tIngest.Observe(seconds) } }
func ObserveBuild(seconds float64)  { if metrics { tBuild.Observe(seconds) } }
func ObserveCommit(seconds float64) { if metrics { tCommit.Observe(seconds) } }
func ObserveVerify(seconds float64) { if metrics { tVerify.Observe(seconds) } }

// HTTPMiddleware counts requests and observes their duration.
func HTTPMiddleware(next http.Handler) http.Handler {
	if !metrics {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpCount.Inc()
		start := time.Now()
		next.ServeHTTP(w, r)
		httpDuration.Observe(time.Since(start).Seconds())
	})
}
