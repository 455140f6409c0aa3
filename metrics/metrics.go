// Package metrics exports account lifecycle activity as Prometheus
// counters.
package metrics

import (
	"context"
	"net/http"

	account "github.com/goliatone/go-account"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "account"

// Sink counts activity events by type. It implements account.ActivitySink.
type Sink struct {
	events *prometheus.CounterVec
	swept  prometheus.Counter
}

var _ account.ActivitySink = (*Sink)(nil)

// NewSink registers the lifecycle collectors on reg. A nil registerer
// uses the default one.
func NewSink(reg prometheus.Registerer) (*Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &Sink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Account lifecycle events by type.",
		}, []string{"event"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unactivated_swept_total",
			Help:      "Unactivated accounts removed by the sweeper.",
		}),
	}

	for _, c := range []prometheus.Collector{s.events, s.swept} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Record implements account.ActivitySink
func (s *Sink) Record(_ context.Context, event account.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType)).Inc()

	if event.EventType == account.ActivityEventUnactivatedSwept {
		if n, ok := event.Metadata["count"].(int); ok && n > 0 {
			s.swept.Add(float64(n))
		}
	}
	return nil
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
