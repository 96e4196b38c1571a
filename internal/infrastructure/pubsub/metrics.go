package pubsub

import (
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/stats"
)

const metricsSubscriberID = "metrics"

type metricsSubscriber struct{}

// NewMetricsSubscriber returns a subscriber that counts the events it's
// notified about. Subscribe it to AnyTopic to count them all.
func NewMetricsSubscriber() ports.Subscriber {
	return metricsSubscriber{}
}

func (metricsSubscriber) ID() string {
	return metricsSubscriberID
}

func (metricsSubscriber) Notify(event ports.Event) {
	stats.RecoveryEvents.WithLabelValues(string(event.Type())).Inc()
}
