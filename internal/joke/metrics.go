package joke

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "joke_connected_sessions",
		Help: "Number of sessions currently held in the registry",
	})

	SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "joke_sessions_total",
		Help: "Total sessions started",
	})

	RepliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "joke_replies_total",
		Help: "Client replies handled by classification",
	}, []string{"kind"})

	SessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "joke_session_duration_seconds",
		Help:    "Lifetime of a session from greeting to close",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	RegistryEventDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "joke_registry_event_seconds",
		Help:    "Time to process each registry event type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(RepliesTotal)
	prometheus.MustRegister(SessionDuration)
	prometheus.MustRegister(RegistryEventDuration)
}
