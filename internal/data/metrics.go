package data

import (
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// Lookup results recorded by Metrics.
const (
	resultFound       = "found"
	resultNotFound    = "not_found"
	resultUnsupported = "unsupported"
	resultError       = "error"
)

// Metrics holds the Prometheus collectors for lookups and reloads.
type Metrics struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
	builtAt  prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sxgeo",
			Name:      "lookups_total",
			Help:      "Lookups by operation and result.",
		}, []string{"op", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sxgeo",
			Name:      "lookup_duration_seconds",
			Help:      "Lookup latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sxgeo",
			Name:      "reloads_total",
			Help:      "Database reloads by result.",
		}, []string{"result"}),
		builtAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "sxgeo",
			Name:      "database_build_timestamp_seconds",
			Help:      "Build time of the loaded database.",
		}),
	}
}

// ObserveReload records a reload attempt. Successful reloads also update the
// database build time from info.
func (m *Metrics) ObserveReload(info Info, err error) {
	if err != nil {
		m.reloads.WithLabelValues(resultError).Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
	m.builtAt.Set(float64(info.BuiltAt.Unix()))
}

// Instrument wraps next so every lookup is counted and timed.
func (m *Metrics) Instrument(next LocationLookup) *InstrumentedLookup {
	m.builtAt.Set(float64(next.Info().BuiltAt.Unix()))
	return &InstrumentedLookup{LocationLookup: next, m: m}
}

// InstrumentedLookup records Prometheus metrics around another lookup.
type InstrumentedLookup struct {
	LocationLookup
	m *Metrics
}

func (l *InstrumentedLookup) LookupCountry(ip net.IP) (string, error) {
	defer l.m.timer("country")()
	code, err := l.LocationLookup.LookupCountry(ip)
	l.m.observe("country", code != "", err)
	return code, err
}

func (l *InstrumentedLookup) LookupCountryID(ip net.IP) (int, error) {
	defer l.m.timer("country_id")()
	id, err := l.LocationLookup.LookupCountryID(ip)
	l.m.observe("country_id", id != 0, err)
	return id, err
}

func (l *InstrumentedLookup) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	defer l.m.timer("city")()
	loc, err := l.LocationLookup.LookupCity(ip)
	l.m.observe("city", loc != nil, err)
	return loc, err
}

func (l *InstrumentedLookup) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	defer l.m.timer("city_full")()
	loc, err := l.LocationLookup.LookupCityFull(ip)
	l.m.observe("city_full", loc != nil, err)
	return loc, err
}

func (m *Metrics) timer(op string) func() {
	start := time.Now()
	return func() {
		m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observe(op string, found bool, err error) {
	result := resultFound
	switch {
	case errors.Is(err, ErrUnsupportedAddress):
		result = resultUnsupported
	case err != nil:
		result = resultError
	case !found:
		result = resultNotFound
	}
	m.lookups.WithLabelValues(op, result).Inc()
}
