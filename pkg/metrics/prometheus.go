package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rta"

const (
	subsystemWire         = "wire"
	subsystemSubscription = "subscription"
	subsystemConnection   = "connection"
)

const (
	LabelMessageType = "message_type"
	LabelKind        = "kind"
	LabelCode        = "code"
	LabelState       = "state"
	LabelOutcome     = "outcome"
)

// PrometheusCollector records measurements as prometheus metrics.
type PrometheusCollector struct {
	framesSent       *prometheus.CounterVec
	framesReceived   *prometheus.CounterVec
	eventsDelivered  *prometheus.CounterVec
	errors           *prometheus.CounterVec
	resubscribes     *prometheus.CounterVec
	resubscribeTime  prometheus.Histogram
	active           prometheus.Gauge
	connectionState  *prometheus.GaugeVec
	reconnectAttempt prometheus.Counter

	mu        sync.Mutex
	lastState string
}

// NewPrometheusCollector registers the client metrics with reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWire,
			Name:      "frames_sent_total",
			Help:      "number of RTA frames written to the websocket",
		}, []string{LabelMessageType}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWire,
			Name:      "frames_received_total",
			Help:      "number of RTA frames read from the websocket",
		}, []string{LabelMessageType}),
		eventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSubscription,
			Name:      "events_delivered_total",
			Help:      "number of typed events passed to subscription callbacks",
		}, []string{LabelKind}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSubscription,
			Name:      "errors_total",
			Help:      "number of error events raised on subscriptions",
		}, []string{LabelKind, LabelCode}),
		resubscribes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSubscription,
			Name:      "resubscribes_total",
			Help:      "number of subscriptions re-established after a reconnect",
		}, []string{LabelOutcome}),
		resubscribeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemSubscription,
			Name:      "resubscribe_duration_seconds",
			Help:      "time from reconnect until every resubscribe was answered",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSubscription,
			Name:      "active",
			Help:      "number of subscriptions in the subscribed state",
		}),
		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemConnection,
			Name:      "state",
			Help:      "1 for the current connection state, 0 otherwise",
		}, []string{LabelState}),
		reconnectAttempt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemConnection,
			Name:      "reconnect_attempts_total",
			Help:      "number of reconnect dials",
		}),
	}
}

func (c *PrometheusCollector) FrameSent(messageType string) {
	c.framesSent.WithLabelValues(messageType).Inc()
}

func (c *PrometheusCollector) FrameReceived(messageType string) {
	c.framesReceived.WithLabelValues(messageType).Inc()
}

func (c *PrometheusCollector) EventDelivered(kind string) {
	c.eventsDelivered.WithLabelValues(kind).Inc()
}

func (c *PrometheusCollector) SubscriptionError(kind string, code string) {
	c.errors.With(prometheus.Labels{LabelKind: kind, LabelCode: code}).Inc()
}

func (c *PrometheusCollector) ResubscribeCompleted(succeeded, failed int, duration time.Duration) {
	c.resubscribes.WithLabelValues("succeeded").Add(float64(succeeded))
	c.resubscribes.WithLabelValues("failed").Add(float64(failed))
	c.resubscribeTime.Observe(duration.Seconds())
}

func (c *PrometheusCollector) ActiveSubscriptions(n int) {
	c.active.Set(float64(n))
}

// ConnectionState sets the gauge for state to 1 and the previous state to 0.
func (c *PrometheusCollector) ConnectionState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastState != "" && c.lastState != state {
		c.connectionState.WithLabelValues(c.lastState).Set(0)
	}
	c.connectionState.WithLabelValues(state).Set(1)
	c.lastState = state
}

func (c *PrometheusCollector) ReconnectAttempt() {
	c.reconnectAttempt.Inc()
}

var _ Collector = (*PrometheusCollector)(nil)
