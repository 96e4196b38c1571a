package pubsub

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type service struct {
	store *store

	lock   *sync.Mutex
	cond   *sync.Cond
	queue  []ports.Event
	closed bool
	done   chan struct{}
}

// NewService returns an in-process event bus. A single dispatcher goroutine
// delivers one event at a time to all its subscribers concurrently and waits
// for all of them before moving to the next one.
func NewService() ports.EventBus {
	lock := &sync.Mutex{}
	svc := &service{
		store: newStore(),
		lock:  lock,
		cond:  sync.NewCond(lock),
		queue: make([]ports.Event, 0),
		done:  make(chan struct{}),
	}
	go svc.dispatch()
	return svc
}

func (s *service) Subscribe(
	subscriber ports.Subscriber, topics ...ports.EventType,
) ports.Subscription {
	if len(topics) <= 0 {
		topics = []ports.EventType{AnyTopic}
	}

	subs := make(subscriptions, 0, len(topics))
	for _, topic := range topics {
		sub := newSubscription(topic, subscriber, s.store.removeSubscription)
		s.store.addSubscription(sub)
		subs = append(subs, sub)
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return &multiSubscription{id: uuid.New().String(), subs: subs}
}

func (s *service) Unsubscribe(subscriber ports.Subscriber) {
	s.store.removeSubscriber(subscriber.ID())
}

func (s *service) SetErrorHandler(
	subscriber ports.Subscriber, handler ports.ErrorHandler,
) ports.Subscription {
	subscriberID := subscriber.ID()
	h := errorHandler{id: uuid.New().String(), handler: handler}
	s.store.setErrorHandler(subscriberID, h)

	return &Subscription{
		id:         h.id,
		subscriber: subscriber,
		cancel: func(sub *Subscription) {
			s.store.removeErrorHandler(subscriberID, sub.id)
		},
	}
}

func (s *service) Publish(event ports.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		log.Warnf(
			"pubsub: event %s for wallet %s published after close",
			event.Type(), event.WalletID(),
		)
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
}

func (s *service) PublishError(subscriberID string, err error) bool {
	h, ok := s.store.getErrorHandler(subscriberID)
	if !ok {
		return false
	}
	stats.RecoveryErrors.Inc()
	h.handler(err)
	return true
}

func (s *service) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	s.cond.Signal()
	s.lock.Unlock()

	<-s.done
}

func (s *service) dispatch() {
	defer close(s.done)

	for {
		s.lock.Lock()
		for len(s.queue) <= 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) <= 0 && s.closed {
			s.lock.Unlock()
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.lock.Unlock()

		s.deliver(event)
	}
}

func (s *service) deliver(event ports.Event) {
	subscribers := s.store.subscribersForTopic(event.Type())

	eg := &errgroup.Group{}
	for i := range subscribers {
		subscriber := subscribers[i]
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf(
						"subscriber %s panicked on %s: %v",
						subscriber.ID(), event.Type(), r,
					)
				}
			}()
			subscriber.Notify(event)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.WithError(err).Warn("pubsub: event delivery failed")
	}
}
