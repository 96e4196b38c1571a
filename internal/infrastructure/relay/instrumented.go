package relay

import (
	"context"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/stats"
)

type instrumentedRelay struct {
	relay ports.Relay
}

// NewInstrumentedRelay wraps the given relay to record count, outcome and
// latency of every request.
func NewInstrumentedRelay(relay ports.Relay) ports.Relay {
	return &instrumentedRelay{relay}
}

func (r *instrumentedRelay) Balance(
	ctx context.Context, token domain.Token, walletAddress string,
) (balance domain.TokenAmount, err error) {
	defer observe("balance", time.Now(), &err)
	return r.relay.Balance(ctx, token, walletAddress)
}

func (r *instrumentedRelay) SafeInfo(
	ctx context.Context, address string,
) (info *ports.SafeInfo, err error) {
	defer observe("safe_info", time.Now(), &err)
	return r.relay.SafeInfo(ctx, address)
}

func (r *instrumentedRelay) EstimateFee(
	ctx context.Context, tx *domain.Transaction,
) (estimation *ports.Estimation, err error) {
	defer observe("estimate_fee", time.Now(), &err)
	return r.relay.EstimateFee(ctx, tx)
}

func (r *instrumentedRelay) TransactionHash(
	ctx context.Context, tx *domain.Transaction,
) (hash []byte, err error) {
	defer observe("transaction_hash", time.Now(), &err)
	return r.relay.TransactionHash(ctx, tx)
}

func (r *instrumentedRelay) Submit(
	ctx context.Context, tx *domain.Transaction,
) (hash string, err error) {
	defer observe("submit", time.Now(), &err)
	return r.relay.Submit(ctx, tx)
}

func (r *instrumentedRelay) TransactionStatus(
	ctx context.Context, hash string,
) (status ports.TxStatus, err error) {
	defer observe("transaction_status", time.Now(), &err)
	return r.relay.TransactionStatus(ctx, hash)
}

func observe(method string, start time.Time, err *error) {
	stats.ObserveRelayRequest(method, start, *err)
}
