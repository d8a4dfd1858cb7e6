package ciba

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of the backchannel authentication engine.
// A nil *Metrics records nothing.
type Metrics struct {
	admitted      *prometheus.CounterVec
	reaped        *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// NewMetrics registers the collectors at reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		admitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ciba_requests_admitted_total",
			Help: "Backchannel authentication requests persisted, by delivery mode",
		}, []string{"mode"}),
		reaped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ciba_requests_reaped_total",
			Help: "Expired backchannel authentication requests finalized by the sweeper, by delivery mode",
		}, []string{"mode"}),
		callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ciba_callbacks_total",
			Help: "Calls to client notification endpoints, by kind and result",
		}, []string{"kind", "result"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ciba_end_user_notifications_total",
			Help: "Notifications sent to end-user devices, by result",
		}, []string{"result"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ciba_sweeper_in_flight",
			Help: "Expired requests currently processed by sweeper workers",
		}),
	}
}

func (m *Metrics) requestAdmitted(mode string) {
	if m != nil {
		m.admitted.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) requestReaped(mode string) {
	if m != nil {
		m.reaped.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) callback(kind string, err error) {
	if m != nil {
		m.callbacks.WithLabelValues(kind, result(err)).Inc()
	}
}

func (m *Metrics) notification(err error) {
	if m != nil {
		m.notifications.WithLabelValues(result(err)).Inc()
	}
}

func (m *Metrics) workerStarted() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) workerDone() {
	if m != nil {
		m.inFlight.Dec()
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
