package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	messagesAppended     prometheus.Counter
	conversationsCreated prometheus.Counter
	resolverConflicts    prometheus.Counter
	activeSubscriptions  prometheus.Gauge
	subscriptionReplays  prometheus.Counter
	aggregationFailures  prometheus.Counter
	channelLength        *prometheus.GaugeVec
	channelCapacity      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messagesAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorchat_messages_appended_total",
			Help: "Messages persisted by the message store",
		}),
		conversationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorchat_conversations_created_total",
			Help: "Conversations created by the resolver",
		}),
		resolverConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorchat_resolver_conflicts_total",
			Help: "Creations that lost the race on the participant pair and were re-read",
		}),
		activeSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tutorchat_active_subscriptions",
			Help: "Open message channel subscriptions",
		}),
		subscriptionReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorchat_subscription_replays_total",
			Help: "Catch-up reads triggered by a lagging subscriber",
		}),
		aggregationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutorchat_aggregation_failures_total",
			Help: "Inbox rows that could not be assembled",
		}),
		channelLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tutorchat_channel_length",
			Help: "Events waiting in an internal queue",
		}, []string{"channel"}),
		channelCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tutorchat_channel_capacity",
			Help: "Size of an internal queue",
		}, []string{"channel"}),
	}
}

func (m *Metrics) MessageAppended() {
	if m != nil {
		m.messagesAppended.Inc()
	}
}

func (m *Metrics) ConversationCreated() {
	if m != nil {
		m.conversationsCreated.Inc()
	}
}

func (m *Metrics) ResolverConflict() {
	if m != nil {
		m.resolverConflicts.Inc()
	}
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.activeSubscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionClosed() {
	if m != nil {
		m.activeSubscriptions.Dec()
	}
}

func (m *Metrics) SubscriptionReplayed() {
	if m != nil {
		m.subscriptionReplays.Inc()
	}
}

func (m *Metrics) AggregationFailed(n int) {
	if m != nil && n > 0 {
		m.aggregationFailures.Add(float64(n))
	}
}

func (m *Metrics) ChannelSampled(name string, length, capacity int) {
	if m != nil {
		m.channelLength.WithLabelValues(name).Set(float64(length))
		m.channelCapacity.WithLabelValues(name).Set(float64(capacity))
	}
}
