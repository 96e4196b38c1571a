package pubsub

import (
	"github.com/google/uuid"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
)

// Subscription is the handle returned to a subscriber.
type Subscription struct {
	id         string
	event      ports.EventType
	subscriber ports.Subscriber
	cancel     func(*Subscription)
}

func newSubscription(
	event ports.EventType, subscriber ports.Subscriber,
	cancel func(*Subscription),
) *Subscription {
	return &Subscription{
		id:         uuid.New().String(),
		event:      event,
		subscriber: subscriber,
		cancel:     cancel,
	}
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) Topic() ports.EventType {
	return s.event
}

func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel(s)
	}
}

type subscriptions []*Subscription

func (s subscriptions) without(id string) subscriptions {
	list := make(subscriptions, 0, len(s))
	for _, sub := range s {
		if sub.id != id {
			list = append(list, sub)
		}
	}
	return list
}

// multiSubscription groups the subscriptions of one Subscribe call.
type multiSubscription struct {
	id   string
	subs subscriptions
}

func (m *multiSubscription) ID() string {
	return m.id
}

func (m *multiSubscription) Cancel() {
	for _, s := range m.subs {
		s.Cancel()
	}
}

type errorHandler struct {
	id      string
	handler ports.ErrorHandler
}
