package ports

import (
	"context"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
)

// TxStatus is the on-chain status of a submitted transaction.
type TxStatus int

const (
	TxStatusPending TxStatus = iota
	TxStatusConfirmed
	TxStatusFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusConfirmed:
		return "confirmed"
	case TxStatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// SafeInfo is the owner configuration read from a wallet contract.
type SafeInfo struct {
	Address   string
	Owners    []string
	Threshold int
	Nonce     uint64
}

// Estimation is the result of a fee estimation, along with the nonce the
// wallet contract expects for the next transaction.
type Estimation struct {
	Fee   domain.FeeEstimate
	Nonce uint64
}

// Relay is the boundary with the chain. Every method might fail for network
// reasons, callers decide whether to retry.
type Relay interface {
	// Balance returns the balance of the given token held by the wallet.
	Balance(
		ctx context.Context, token domain.Token, walletAddress string,
	) (domain.TokenAmount, error)
	// SafeInfo reads owners and threshold of the wallet contract at the given
	// address. It fails if no wallet contract is deployed there.
	SafeInfo(ctx context.Context, address string) (*SafeInfo, error)
	// EstimateFee estimates the fee to execute the given draft transaction.
	EstimateFee(
		ctx context.Context, tx *domain.Transaction,
	) (*Estimation, error)
	// TransactionHash returns the hash the wallet owners sign to confirm the
	// given estimated transaction.
	TransactionHash(ctx context.Context, tx *domain.Transaction) ([]byte, error)
	// Submit sends the signed transaction and returns its hash.
	Submit(ctx context.Context, tx *domain.Transaction) (string, error)
	// TransactionStatus returns the status of a submitted transaction.
	TransactionStatus(ctx context.Context, hash string) (TxStatus, error)
}
