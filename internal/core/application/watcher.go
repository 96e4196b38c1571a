package application

import (
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/ports"
)

// Watcher is the subscriber, along with its error handler, that an
// operation of the recovery service reports progress to.
// Every operation given a Watcher drops the subscriptions the subscriber
// had before and replaces them with the ones the operation needs. Stop
// drops them for good.
type Watcher struct {
	Subscriber ports.Subscriber
	OnError    ports.ErrorHandler

	lock          sync.Mutex
	subscriptions []ports.Subscription
	unwatch       func()
}

// Stop cancels the subscriptions and the error handler set up for the
// watcher by the last operation. Errors of background operations are no
// longer reported to the subscriber.
func (w *Watcher) Stop() {
	w.lock.Lock()
	subs := w.subscriptions
	unwatch := w.unwatch
	w.subscriptions = nil
	w.unwatch = nil
	w.lock.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
	if unwatch != nil {
		unwatch()
	}
}

func (w *Watcher) setSubscriptions(unwatch func(), subs ...ports.Subscription) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.subscriptions = subs
	w.unwatch = unwatch
}

// watch resets the environment of the watcher for the given wallet: previous
// subscriptions and error handler are removed, then the watcher is
// subscribed for the given event types. The subscriber stops receiving
// errors of any other wallet.
func (s *recoveryService) watch(
	walletID string, w *Watcher, types ...ports.EventType,
) {
	if w == nil || w.Subscriber == nil {
		return
	}

	s.bus.Unsubscribe(w.Subscriber)

	subs := make([]ports.Subscription, 0, 2)
	if w.OnError != nil {
		onError := w.OnError
		subs = append(subs, s.bus.SetErrorHandler(w.Subscriber, func(err error) {
			onError(TranslateError(err))
		}))
	}
	subs = append(subs, s.bus.Subscribe(w.Subscriber, types...))

	id := w.Subscriber.ID()
	s.lock.Lock()
	for wid, ids := range s.watchers {
		if wid != walletID {
			delete(ids, id)
		}
	}
	if _, ok := s.watchers[walletID]; !ok {
		s.watchers[walletID] = make(map[string]struct{})
	}
	s.watchers[walletID][id] = struct{}{}
	s.lock.Unlock()

	w.setSubscriptions(func() { s.unwatch(walletID, id) }, subs...)
}

func (s *recoveryService) unwatch(walletID, subscriberID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.watchers[walletID], subscriberID)
}

// reportError delivers the error of a background operation to everyone
// watching the wallet.
func (s *recoveryService) reportError(walletID string, err error) {
	s.lock.RLock()
	ids := make([]string, 0, len(s.watchers[walletID]))
	for id := range s.watchers[walletID] {
		ids = append(ids, id)
	}
	s.lock.RUnlock()

	for _, id := range ids {
		if !s.bus.PublishError(id, err) {
			s.lock.Lock()
			delete(s.watchers[walletID], id)
			s.lock.Unlock()
		}
	}
}
