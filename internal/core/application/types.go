package application

import (
	"math/big"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RecoveryState is the step a wallet recovery has reached.
type RecoveryState int

const (
	RecoveryStateIdle RecoveryState = iota
	RecoveryStateAddressEntered
	RecoveryStatePhraseProvided
	RecoveryStateAccountsDerived
	RecoveryStateTransactionEstimated
	RecoveryStateAwaitingFunds
	RecoveryStateReadyToSubmit
	RecoveryStateSubmitted
	RecoveryStateConfirmed
	RecoveryStateCancelled
	RecoveryStateFailed
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryStateAddressEntered:
		return "AddressEntered"
	case RecoveryStatePhraseProvided:
		return "PhraseProvided"
	case RecoveryStateAccountsDerived:
		return "AccountsDerived"
	case RecoveryStateTransactionEstimated:
		return "TransactionEstimated"
	case RecoveryStateAwaitingFunds:
		return "AwaitingFunds"
	case RecoveryStateReadyToSubmit:
		return "ReadyToSubmit"
	case RecoveryStateSubmitted:
		return "Submitted"
	case RecoveryStateConfirmed:
		return "Confirmed"
	case RecoveryStateCancelled:
		return "Cancelled"
	case RecoveryStateFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// IsTerminal ...
func (s RecoveryState) IsTerminal() bool {
	switch s {
	case RecoveryStateConfirmed, RecoveryStateCancelled, RecoveryStateFailed:
		return true
	default:
		return false
	}
}

// RecoveryTransactionRequest customizes the owner set the recovery
// transaction produces. The zero value replaces the device owner with the
// key of this device and keeps the current threshold.
type RecoveryTransactionRequest struct {
	WalletID string
	// Authenticator, if set, takes the place of the current second factor
	// owner, or is added if the wallet has none.
	Authenticator *domain.Owner
	// DisconnectAuthenticator removes the current second factor owner.
	DisconnectAuthenticator bool
	// Threshold of the recovered wallet. If zero the current one is kept,
	// lowered to the new number of owners if needed.
	Threshold int
}

// TokenBalance is an amount of a token, also expressed in token units.
type TokenBalance struct {
	Token   domain.Token
	Amount  *big.Int
	Balance decimal.Decimal
}

func newTokenBalance(amount domain.TokenAmount) TokenBalance {
	return TokenBalance{
		Token:   amount.Token,
		Amount:  amount.Value(),
		Balance: amount.Decimal(),
	}
}

func (b TokenBalance) String() string {
	return b.Balance.String() + " " + b.Token.Code
}

// FeeBalance is the fee of a recovery transaction compared to the funds of
// the wallet. Fee is negative, Remainder is what is still missing to cover
// it.
type FeeBalance struct {
	Fee       TokenBalance
	Available TokenBalance
	Remainder TokenBalance
}

// TransactionView is a read-only representation of a wallet transaction.
type TransactionView struct {
	ID                    string
	WalletID              string
	Sender                string
	Recipient             string
	Amount                TokenBalance
	Fee                   TokenBalance
	Status                string
	Type                  string
	Hash                  string
	OwnerChanges          []string
	ConnectsAuthenticator bool
	Created               time.Time
	Updated               time.Time
	Submitted             time.Time
	Rejected              time.Time
	Processed             time.Time
}

func newTransactionView(tx *domain.Transaction) *TransactionView {
	changes := make([]string, 0, len(tx.OwnerChanges))
	for _, c := range tx.OwnerChanges {
		changes = append(changes, c.String())
	}

	return &TransactionView{
		ID:                    tx.ID,
		WalletID:              tx.WalletID,
		Sender:                tx.Sender,
		Recipient:             tx.Recipient,
		Amount:                newTokenBalance(tx.Amount),
		Fee:                   newTokenBalance(tx.FeeEstimate.TotalDisplayed().Neg()),
		Status:                tx.Status.String(),
		Type:                  tx.Type.String(),
		Hash:                  tx.Hash,
		OwnerChanges:          changes,
		ConnectsAuthenticator: tx.ConnectsAuthenticator(),
		Created:               toTime(tx.CreatedAt),
		Updated:               toTime(tx.UpdatedAt),
		Submitted:             toTime(tx.SubmittedAt),
		Rejected:              toTime(tx.RejectedAt),
		Processed:             toTime(tx.ProcessedAt),
	}
}

func toTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
