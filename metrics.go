package apigate

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the client's collectors. They are always live; they are
// only exported when a Registerer was supplied.
type metrics struct {
	reg prometheus.Registerer

	admissions    prometheus.Counter
	admissionWait prometheus.Histogram
	resets        prometheus.Counter
	refreshes     *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		reg: reg,
		admissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apigate_admissions_total",
			Help: "Permits granted by the window limiter.",
		}),
		admissionWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apigate_admission_wait_seconds",
			Help:    "Time spent waiting for a permit.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apigate_window_resets_total",
			Help: "Window boundaries at which the permit pool was restored.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apigate_token_refreshes_total",
			Help: "Calls to the token provider by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apigate_requests_total",
			Help: "Invoke calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
	}

	if reg == nil {
		return m, nil
	}

	var registered []prometheus.Collector
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return nil, &ConfigError{Field: "Metrics", Reason: err.Error()}
		}
		registered = append(registered, c)
	}
	return m, nil
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.admissions, m.admissionWait, m.resets, m.refreshes, m.requests}
}

func (m *metrics) unregister() {
	if m.reg == nil {
		return
	}
	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
}

func (m *metrics) admitted(waited time.Duration) {
	m.admissions.Inc()
	m.admissionWait.Observe(waited.Seconds())
}

func (m *metrics) refreshed(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *metrics) request(endpoint string, err error) {
	m.requests.WithLabelValues(endpoint, outcome(err)).Inc()
}

// outcome maps an Invoke error to a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrLimitExceeded):
		return "limited"
	case errors.Is(err, ErrConfiguration):
		return "config_error"
	case errors.Is(err, ErrAuthentication):
		return "auth_error"
	case errors.Is(err, ErrUnexpectedStatus):
		return "status_error"
	case errors.Is(err, ErrDecoding):
		return "decode_error"
	default:
		return "transport_error"
	}
}
