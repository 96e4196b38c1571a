package pubsub

import (
	"sort"
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/ports"
)

// AnyTopic is used to subscribe for every kind of event.
const AnyTopic ports.EventType = "*"

type store struct {
	lock             sync.RWMutex
	subsByTopic      map[ports.EventType]subscriptions
	subsBySubscriber map[string]subscriptions
	errorHandlers    map[string]errorHandler
}

func newStore() *store {
	return &store{
		subsByTopic:      make(map[ports.EventType]subscriptions),
		subsBySubscriber: make(map[string]subscriptions),
		errorHandlers:    make(map[string]errorHandler),
	}
}

func (s *store) addSubscription(sub *Subscription) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.subsByTopic[sub.event] = append(s.subsByTopic[sub.event], sub)
	subscriberID := sub.subscriber.ID()
	s.subsBySubscriber[subscriberID] = append(
		s.subsBySubscriber[subscriberID], sub,
	)
}

func (s *store) removeSubscription(sub *Subscription) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.removeSubscriptionUnlocked(sub)
}

func (s *store) removeSubscriptionUnlocked(sub *Subscription) {
	subs := s.subsByTopic[sub.event].without(sub.id)
	if len(subs) <= 0 {
		delete(s.subsByTopic, sub.event)
	} else {
		s.subsByTopic[sub.event] = subs
	}

	subscriberID := sub.subscriber.ID()
	subs = s.subsBySubscriber[subscriberID].without(sub.id)
	if len(subs) <= 0 {
		delete(s.subsBySubscriber, subscriberID)
	} else {
		s.subsBySubscriber[subscriberID] = subs
	}
}

func (s *store) removeSubscriber(subscriberID string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, sub := range s.subsBySubscriber[subscriberID] {
		s.removeSubscriptionUnlocked(sub)
	}
	delete(s.errorHandlers, subscriberID)
}

func (s *store) setErrorHandler(subscriberID string, h errorHandler) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.errorHandlers[subscriberID] = h
}

func (s *store) removeErrorHandler(subscriberID, handlerID string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if h, ok := s.errorHandlers[subscriberID]; ok && h.id == handlerID {
		delete(s.errorHandlers, subscriberID)
	}
}

func (s *store) getErrorHandler(subscriberID string) (errorHandler, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	h, ok := s.errorHandlers[subscriberID]
	return h, ok
}

// subscribersForTopic returns the subscribers of the given topic, plus those
// subscribed for any topic, each listed once.
func (s *store) subscribersForTopic(topic ports.EventType) []ports.Subscriber {
	s.lock.RLock()
	defer s.lock.RUnlock()

	subs := make(subscriptions, 0)
	subs = append(subs, s.subsByTopic[topic]...)
	if topic != AnyTopic {
		subs = append(subs, s.subsByTopic[AnyTopic]...)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].id < subs[j].id
	})

	seen := make(map[string]bool)
	subscribers := make([]ports.Subscriber, 0, len(subs))
	for _, sub := range subs {
		id := sub.subscriber.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		subscribers = append(subscribers, sub.subscriber)
	}
	return subscribers
}
