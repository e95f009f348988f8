package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sbwatch_observations_total", Help: "Price observations ingested"},
	)
	StaleDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sbwatch_observations_stale_total", Help: "Observations dropped as stale"},
	)
	InvalidDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sbwatch_observations_invalid_total", Help: "Observations dropped as invalid"},
	)
	BarsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sbwatch_bars_finalized_total", Help: "Minute bars finalized"},
	)
	SignalsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sbwatch_signals_fired_total", Help: "Entry candidates fired"},
		[]string{"side"},
	)
	NotifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sbwatch_notify_failures_total", Help: "Signal notification delivery failures"},
	)
	qualifierState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "sbwatch_qualifier_state", Help: "Live qualifier state per side (0=idle 1=armed 2=fired)"},
		[]string{"side"},
	)
)

func init() {
	prometheus.MustRegister(
		ObservationsTotal, StaleDropped, InvalidDropped,
		BarsFinalized, SignalsFired, NotifyFailures, qualifierState,
	)
}

// SetQualifierState publishes the per-side state machine position.
func SetQualifierState(side string, state int) {
	qualifierState.WithLabelValues(side).Set(float64(state))
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
