package crawler

import (
	"context"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"go.uber.org/ratelimit"
)

// ChainSource is what observables query at every tick.
type ChainSource interface {
	Balance(
		ctx context.Context, token domain.Token, walletAddress string,
	) (domain.TokenAmount, error)
	TransactionStatus(ctx context.Context, hash string) (ports.TxStatus, error)
}

// Event are emitted through a channel during observation.
type Event interface {
	Type() EventType
}

// Observable represent object that can be observed on the blockchain.
type Observable interface {
	observe(
		ctx context.Context,
		source ChainSource,
		rateLimiter ratelimit.Limiter,
	) (Event, error)
	key() string
}

// Service is the interface for Crawler
type Service interface {
	Start()
	Stop()
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	IsObserving(observable Observable) bool
	GetEventChannel() chan Event
}
