package pubsub_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/pubsub"
	"github.com/stretchr/testify/require"
)

type testSubscriber struct {
	id string

	lock   sync.Mutex
	events []ports.Event
	onCall func(ports.Event)
}

func newTestSubscriber(id string) *testSubscriber {
	return &testSubscriber{id: id}
}

func (s *testSubscriber) ID() string { return s.id }

func (s *testSubscriber) Notify(event ports.Event) {
	if s.onCall != nil {
		s.onCall(event)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.events = append(s.events, event)
}

func (s *testSubscriber) received() []ports.Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]ports.Event{}, s.events...)
}

func TestPublishInOrder(t *testing.T) {
	bus := pubsub.NewService()

	sub := newTestSubscriber("sub")
	bus.Subscribe(sub)

	count := 200
	for i := 0; i < count; i++ {
		bus.Publish(ports.WalletAddressChanged{
			Wallet: "w", Address: string(rune('a' + i%26)),
		})
	}
	bus.Close()

	events := sub.received()
	require.Len(t, events, count)
	for i, e := range events {
		ev, ok := e.(ports.WalletAddressChanged)
		require.True(t, ok)
		require.Equal(t, string(rune('a'+i%26)), ev.Address)
	}
}

func TestSubscribeByType(t *testing.T) {
	bus := pubsub.NewService()

	addressSub := newTestSubscriber("address")
	bus.Subscribe(addressSub, ports.EventWalletAddressChanged)
	recoveredSub := newTestSubscriber("recovered")
	bus.Subscribe(
		recoveredSub,
		ports.EventWalletRecovered, ports.EventRecoveryTransactionHashIsKnown,
	)
	anySub := newTestSubscriber("any")
	bus.Subscribe(anySub)

	bus.Publish(ports.WalletAddressChanged{Wallet: "w"})
	bus.Publish(ports.RecoveryTransactionHashIsKnown{Wallet: "w", Hash: "0x1"})
	bus.Publish(ports.WalletRecovered{Wallet: "w"})
	bus.Close()

	require.Len(t, addressSub.received(), 1)
	require.Len(t, recoveredSub.received(), 2)
	require.Len(t, anySub.received(), 3)
}

func TestDeliveryWaitsForAllSubscribers(t *testing.T) {
	bus := pubsub.NewService()

	release := make(chan struct{})
	slow := newTestSubscriber("slow")
	slow.onCall = func(e ports.Event) {
		if e.Type() == ports.EventWalletAddressChanged {
			<-release
		}
	}
	fast := newTestSubscriber("fast")
	bus.Subscribe(slow)
	bus.Subscribe(fast)

	bus.Publish(ports.WalletAddressChanged{Wallet: "w"})
	bus.Publish(ports.WalletRecovered{Wallet: "w"})

	require.Eventually(t, func() bool {
		return len(fast.received()) == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, fast.received(), 1)

	close(release)
	bus.Close()
	require.Len(t, fast.received(), 2)
	require.Len(t, slow.received(), 2)
}

func TestSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	bus := pubsub.NewService()

	faulty := newTestSubscriber("faulty")
	faulty.onCall = func(ports.Event) { panic("boom") }
	healthy := newTestSubscriber("healthy")
	bus.Subscribe(faulty)
	bus.Subscribe(healthy)

	bus.Publish(ports.WalletAddressChanged{Wallet: "w"})
	bus.Publish(ports.WalletRecovered{Wallet: "w"})
	bus.Close()

	require.Len(t, healthy.received(), 2)
	require.Empty(t, faulty.received())
}

func TestUnsubscribe(t *testing.T) {
	bus := pubsub.NewService()
	defer bus.Close()

	sub := newTestSubscriber("sub")
	bus.Subscribe(sub, ports.EventWalletAddressChanged)
	bus.Subscribe(sub, ports.EventWalletRecovered)
	bus.SetErrorHandler(sub, func(error) {})

	bus.Unsubscribe(sub)
	require.False(t, bus.PublishError(sub.ID(), errors.New("err")))

	other := newTestSubscriber("other")
	bus.Subscribe(other)
	bus.Publish(ports.WalletAddressChanged{Wallet: "w"})
	bus.Publish(ports.WalletRecovered{Wallet: "w"})

	require.Eventually(t, func() bool {
		return len(other.received()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Empty(t, sub.received())
}

func TestCancelSubscription(t *testing.T) {
	bus := pubsub.NewService()

	sub := newTestSubscriber("sub")
	subscription := bus.Subscribe(
		sub, ports.EventWalletAddressChanged, ports.EventWalletRecovered,
	)
	require.NotEmpty(t, subscription.ID())
	subscription.Cancel()

	bus.Publish(ports.WalletAddressChanged{Wallet: "w"})
	bus.Close()
	require.Empty(t, sub.received())
}

func TestErrorHandler(t *testing.T) {
	bus := pubsub.NewService()
	defer bus.Close()

	sub := newTestSubscriber("sub")
	require.False(t, bus.PublishError(sub.ID(), errors.New("err")))

	var first, second []error
	firstSub := bus.SetErrorHandler(sub, func(err error) {
		first = append(first, err)
	})
	require.True(t, bus.PublishError(sub.ID(), errors.New("one")))

	secondSub := bus.SetErrorHandler(sub, func(err error) {
		second = append(second, err)
	})
	require.True(t, bus.PublishError(sub.ID(), errors.New("two")))
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	// Cancelling a replaced handler must not remove the current one.
	firstSub.Cancel()
	require.True(t, bus.PublishError(sub.ID(), errors.New("three")))
	require.Len(t, second, 2)

	secondSub.Cancel()
	require.False(t, bus.PublishError(sub.ID(), errors.New("four")))
}

func TestPublishAfterClose(t *testing.T) {
	bus := pubsub.NewService()
	sub := newTestSubscriber("sub")
	bus.Subscribe(sub)
	bus.Close()
	bus.Close()

	bus.Publish(ports.WalletRecovered{Wallet: "w"})
	require.Empty(t, sub.received())
}
