package crawler

import (
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
)

const (
	CloseSignal EventType = iota
	WalletBalances
	TransactionPending
	TransactionConfirmed
	TransactionFailed
)

type EventType int

func (et EventType) String() string {
	switch et {
	case CloseSignal:
		return "CloseSignal"
	case WalletBalances:
		return "WalletBalances"
	case TransactionPending:
		return "TransactionPending"
	case TransactionConfirmed:
		return "TransactionConfirmed"
	case TransactionFailed:
		return "TransactionFailed"
	default:
		return "Unknown"
	}
}

type CloseEvent struct{}

func (q CloseEvent) Type() EventType {
	return CloseSignal
}

// BalanceEvent carries the balances of a wallet for every watched token.
type BalanceEvent struct {
	WalletID string
	Address  string
	Balances []domain.TokenAmount
}

func (b BalanceEvent) Type() EventType {
	return WalletBalances
}

// TransactionEvent carries the on-chain status of a submitted transaction.
type TransactionEvent struct {
	EventType EventType
	WalletID  string
	TxID      string
	Hash      string
}

func (t TransactionEvent) Type() EventType {
	return t.EventType
}

func eventTypeFromTxStatus(status ports.TxStatus) EventType {
	switch status {
	case ports.TxStatusConfirmed:
		return TransactionConfirmed
	case ports.TxStatusFailed:
		return TransactionFailed
	default:
		return TransactionPending
	}
}
