// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for exporting deskhand runtime metrics.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Internal state (source of truth for the JSON snapshot)
var (
	passes            int64
	passFailures      int64
	entriesRegistered int64
	iconsRegistered   int64
	decodeFailures    int64
	iconMisses        int64
	registryErrors    int64
	harvestSkips      int64
	lastRun           int64
)

// Prometheus collectors
var (
	promPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_sync_passes_total",
			Help: "Total completed synchronization passes",
		},
	)
	promPassFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhand_sync_failures_total",
			Help: "Total failed synchronization passes by stage",
		},
		[]string{"stage"},
	)
	promEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_entries_registered_total",
			Help: "Total desktop entries registered with the daemon",
		},
	)
	promIcons = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_icons_registered_total",
			Help: "Total icons registered with the daemon",
		},
	)
	promDecodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_decode_failures_total",
			Help: "Total desktop files skipped because they failed to decode",
		},
	)
	promIconMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_icon_misses_total",
			Help: "Total entries whose icon could not be resolved",
		},
	)
	promRegistryErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_registry_errors_total",
			Help: "Total failed registration protocol calls",
		},
	)
	promHarvestSkips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhand_harvest_skips_total",
			Help: "Total harvest sources skipped due to copy failures",
		},
	)
	promSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskhand_sync_duration_seconds",
			Help:    "Duration of per-container synchronization passes",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	promLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskhand_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last synchronization run",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promPasses,
		promPassFailures,
		promEntries,
		promIcons,
		promDecodeFailures,
		promIconMisses,
		promRegistryErrors,
		promHarvestSkips,
		promSyncDuration,
		promLastRun,
	)
}

// IncPass increments the counter for completed synchronization passes.
func IncPass() {
	atomic.AddInt64(&passes, 1)
	promPasses.Inc()
}

// IncPassFailure increments the failure counter for the given stage.
func IncPassFailure(stage string) {
	atomic.AddInt64(&passFailures, 1)
	promPassFailures.WithLabelValues(stage).Inc()
}

// IncEntryRegistered increments the counter for registered entries.
func IncEntryRegistered() {
	atomic.AddInt64(&entriesRegistered, 1)
	promEntries.Inc()
}

// IncIconRegistered increments the counter for registered icons.
func IncIconRegistered() {
	atomic.AddInt64(&iconsRegistered, 1)
	promIcons.Inc()
}

// IncDecodeFailure increments the counter for skipped undecodable files.
func IncDecodeFailure() {
	atomic.AddInt64(&decodeFailures, 1)
	promDecodeFailures.Inc()
}

// IncIconMiss increments the counter for unresolved icons.
func IncIconMiss() {
	atomic.AddInt64(&iconMisses, 1)
	promIconMisses.Inc()
}

// IncRegistryError increments the counter for failed registry calls.
func IncRegistryError() {
	atomic.AddInt64(&registryErrors, 1)
	promRegistryErrors.Inc()
}

// IncHarvestSkip increments the counter for skipped harvest sources.
func IncHarvestSkip() {
	atomic.AddInt64(&harvestSkips, 1)
	promHarvestSkips.Inc()
}

// ObserveSyncDuration records the duration (in seconds) of one pass.
func ObserveSyncDuration(seconds float64) {
	promSyncDuration.Observe(seconds)
}

// SetLastRun stores the provided time as the last run timestamp.
func SetLastRun(t time.Time) {
	atomic.StoreInt64(&lastRun, t.Unix())
	promLastRun.Set(float64(t.Unix()))
}

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Passes            int64  `json:"passes"`
	PassFailures      int64  `json:"pass_failures"`
	EntriesRegistered int64  `json:"entries_registered"`
	IconsRegistered   int64  `json:"icons_registered"`
	DecodeFailures    int64  `json:"decode_failures"`
	IconMisses        int64  `json:"icon_misses"`
	RegistryErrors    int64  `json:"registry_errors"`
	HarvestSkips      int64  `json:"harvest_skips"`
	LastRun           int64  `json:"last_run_timestamp"`
	LastRunHuman      string `json:"last_run_human"`
}

// GetSnapshot returns a StatsSnapshot with the current values of all
// internal counters and timestamps.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastRun)
	return StatsSnapshot{
		Passes:            atomic.LoadInt64(&passes),
		PassFailures:      atomic.LoadInt64(&passFailures),
		EntriesRegistered: atomic.LoadInt64(&entriesRegistered),
		IconsRegistered:   atomic.LoadInt64(&iconsRegistered),
		DecodeFailures:    atomic.LoadInt64(&decodeFailures),
		IconMisses:        atomic.LoadInt64(&iconMisses),
		RegistryErrors:    atomic.LoadInt64(&registryErrors),
		HarvestSkips:      atomic.LoadInt64(&harvestSkips),
		LastRun:           ts,
		LastRunHuman:      time.Unix(ts, 0).Format(time.RFC3339),
	}
}

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as
// a JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}
