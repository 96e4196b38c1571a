package ports

import "github.com/safe-network/safe-recoveryd/internal/core/domain"

// EventType identifies a kind of recovery event.
type EventType string

const (
	EventWalletAddressChanged           EventType = "WalletAddressChanged"
	EventWalletRecoveryAccountsAccepted EventType = "WalletRecoveryAccountsAccepted"
	EventWalletBecameReadyForRecovery   EventType = "WalletBecameReadyForRecovery"
	EventAccountsBalancesUpdated        EventType = "AccountsBalancesUpdated"
	EventWalletRecovered                EventType = "WalletRecovered"
	EventRecoveryTransactionHashIsKnown EventType = "RecoveryTransactionHashIsKnown"
)

// Event is a notification about the progress of a wallet recovery.
type Event interface {
	Type() EventType
	WalletID() string
}

type WalletAddressChanged struct {
	Wallet  string
	Address string
}

func (e WalletAddressChanged) Type() EventType  { return EventWalletAddressChanged }
func (e WalletAddressChanged) WalletID() string { return e.Wallet }

type WalletRecoveryAccountsAccepted struct {
	Wallet   string
	Accounts []string
}

func (e WalletRecoveryAccountsAccepted) Type() EventType {
	return EventWalletRecoveryAccountsAccepted
}
func (e WalletRecoveryAccountsAccepted) WalletID() string { return e.Wallet }

type WalletBecameReadyForRecovery struct {
	Wallet        string
	TransactionID string
}

func (e WalletBecameReadyForRecovery) Type() EventType {
	return EventWalletBecameReadyForRecovery
}
func (e WalletBecameReadyForRecovery) WalletID() string { return e.Wallet }

type AccountsBalancesUpdated struct {
	Wallet   string
	Balances []domain.TokenAmount
}

func (e AccountsBalancesUpdated) Type() EventType {
	return EventAccountsBalancesUpdated
}
func (e AccountsBalancesUpdated) WalletID() string { return e.Wallet }

type WalletRecovered struct {
	Wallet        string
	TransactionID string
}

func (e WalletRecovered) Type() EventType  { return EventWalletRecovered }
func (e WalletRecovered) WalletID() string { return e.Wallet }

type RecoveryTransactionHashIsKnown struct {
	Wallet        string
	TransactionID string
	Hash          string
}

func (e RecoveryTransactionHashIsKnown) Type() EventType {
	return EventRecoveryTransactionHashIsKnown
}
func (e RecoveryTransactionHashIsKnown) WalletID() string { return e.Wallet }

// Subscriber receives the events it subscribed for. Its ID identifies it
// across subscriptions.
type Subscriber interface {
	ID() string
	Notify(event Event)
}

// ErrorHandler receives the errors of the operations started on behalf of a
// subscriber.
type ErrorHandler func(err error)

// Subscription is the handle of a subscription. Cancelling it stops the
// delivery of events, or errors, to the subscriber.
type Subscription interface {
	ID() string
	Cancel()
}

// EventBus delivers events in-process. Events of one Publish call are
// delivered to all the current subscribers before the delivery of the next
// one begins. Events are never dropped.
type EventBus interface {
	// Subscribe adds a subscription of the subscriber for the given types.
	Subscribe(subscriber Subscriber, types ...EventType) Subscription
	// Unsubscribe removes every subscription and the error handler of the
	// subscriber.
	Unsubscribe(subscriber Subscriber)
	// SetErrorHandler sets the only error handler of the subscriber,
	// replacing the previous one if any.
	SetErrorHandler(subscriber Subscriber, handler ErrorHandler) Subscription
	// Publish enqueues the event for delivery.
	Publish(event Event)
	// PublishError delivers the error to the handler of the given subscriber
	// and returns false if there is none.
	PublishError(subscriberID string, err error) bool
	// Close stops the delivery once the queued events have been dispatched.
	Close()
}
