package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType ...
type TransactionType int

const (
	TransactionTypeRegular TransactionType = iota
	TransactionTypeWalletRecovery
	TransactionTypeReplaceRecoveryPhrase
	TransactionTypeConnectAuthenticator
)

func (t TransactionType) String() string {
	switch t {
	case TransactionTypeWalletRecovery:
		return "walletRecovery"
	case TransactionTypeReplaceRecoveryPhrase:
		return "replaceRecoveryPhrase"
	case TransactionTypeConnectAuthenticator:
		return "connectAuthenticator"
	default:
		return "regular"
	}
}

// TransactionStatus ...
type TransactionStatus int

const (
	TransactionStatusDraft TransactionStatus = iota
	TransactionStatusPending
	TransactionStatusSigned
	TransactionStatusSubmitted
	TransactionStatusConfirmed
	TransactionStatusRejected
	TransactionStatusFailed
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionStatusPending:
		return "pending"
	case TransactionStatusSigned:
		return "signed"
	case TransactionStatusSubmitted:
		return "submitted"
	case TransactionStatusConfirmed:
		return "confirmed"
	case TransactionStatusRejected:
		return "rejected"
	case TransactionStatusFailed:
		return "failed"
	default:
		return "draft"
	}
}

// Operation tells how the wallet contract executes the transaction payload.
type Operation uint8

const (
	OperationCall Operation = iota
	OperationDelegateCall
)

// Signature is a 65 bytes r||s||v signature of the transaction hash made by
// one of the wallet owners.
type Signature struct {
	Signer string
	Data   []byte
}

// Transaction is the data structure representing a wallet transaction.
type Transaction struct {
	ID                string
	WalletID          string
	Type              TransactionType
	Status            TransactionStatus
	Sender            string
	Recipient         string
	Amount            TokenAmount
	Data              []byte
	Operation         Operation
	FeeEstimate       FeeEstimate
	Nonce             uint64
	Signatures        []Signature
	OwnerChanges      []OwnerChange
	ProposedOwners    OwnerList
	ProposedThreshold int
	Hash              string
	CreatedAt         int64
	UpdatedAt         int64
	SubmittedAt       int64
	RejectedAt        int64
	ProcessedAt       int64
}

// NewTransaction returns a new draft transaction for the given wallet.
func NewTransaction(walletID string, txType TransactionType) *Transaction {
	now := time.Now().Unix()
	return &Transaction{
		ID:          uuid.New().String(),
		WalletID:    walletID,
		Type:        txType,
		Status:      TransactionStatusDraft,
		Amount:      ZeroAmount(Ether),
		FeeEstimate: ZeroFeeEstimate(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetPayload sets what the transaction executes and brings it back to draft.
// Any previous estimate and signature is discarded.
func (t *Transaction) SetPayload(
	sender, recipient string, amount TokenAmount, data []byte, op Operation,
) error {
	if t.IsSubmitted() {
		return ErrTransactionAlreadySubmitted
	}
	if t.IsTerminal() {
		return ErrTransactionTerminated
	}
	if _, err := NormalizeAddress(sender); err != nil {
		return ErrFailedToCreateValidTransactionData
	}
	if _, err := NormalizeAddress(recipient); err != nil {
		return ErrFailedToCreateValidTransactionData
	}

	t.Sender = sender
	t.Recipient = recipient
	t.Amount = NewTokenAmount(amount.Token, amount.Amount)
	t.Data = append([]byte{}, data...)
	t.Operation = op
	t.FeeEstimate = ZeroFeeEstimate()
	t.Signatures = nil
	t.Status = TransactionStatusDraft
	t.touch()
	return nil
}

// SetOwnerChanges records the owner changes executed by the transaction.
func (t *Transaction) SetOwnerChanges(plan *OwnerChangePlan) {
	t.OwnerChanges = append([]OwnerChange{}, plan.Changes...)
	t.ProposedOwners = plan.Proposed.Owners.Copy()
	t.ProposedThreshold = plan.Proposed.Threshold
	t.touch()
}

// Estimate replaces the fee estimate as a whole and brings the transaction to
// pending. Signatures depend on the estimate and are discarded.
func (t *Transaction) Estimate(fee FeeEstimate, nonce uint64) error {
	if t.IsSubmitted() {
		return ErrTransactionAlreadySubmitted
	}
	if t.IsTerminal() {
		return ErrTransactionTerminated
	}
	if fee.TotalGas() < 0 || fee.GasPrice.Value().Sign() < 0 {
		return ErrFailedToCreateValidTransaction
	}

	t.FeeEstimate = FeeEstimate{
		Gas:            fee.Gas,
		DataGas:        fee.DataGas,
		OperationalGas: fee.OperationalGas,
		GasPrice:       NewTokenAmount(fee.GasPrice.Token, fee.GasPrice.Amount),
	}
	t.Nonce = nonce
	t.Signatures = nil
	t.Status = TransactionStatusPending
	t.touch()
	return nil
}

// Sign attaches the owners signatures to a pending transaction.
func (t *Transaction) Sign(signatures []Signature) error {
	if t.Status == TransactionStatusSigned {
		return nil
	}
	if t.Status != TransactionStatusPending {
		return ErrTransactionMustBePending
	}
	if len(signatures) <= 0 {
		return ErrNullSignatures
	}

	t.Signatures = append([]Signature{}, signatures...)
	t.Status = TransactionStatusSigned
	t.touch()
	return nil
}

// Submit marks a signed transaction as sent to the network with the given
// hash. Submitting twice with the same hash is a no-op.
func (t *Transaction) Submit(hash string) error {
	if t.Status == TransactionStatusSubmitted && t.Hash == hash {
		return nil
	}
	if t.IsSubmitted() {
		return ErrTransactionAlreadySubmitted
	}
	if t.Status != TransactionStatusSigned {
		return ErrTransactionMustBeSigned
	}
	if hash == "" {
		return ErrNullTransactionHash
	}

	now := time.Now().Unix()
	t.Hash = hash
	t.Status = TransactionStatusSubmitted
	t.SubmittedAt = now
	t.UpdatedAt = now
	return nil
}

// Confirm marks a submitted transaction as successfully mined.
func (t *Transaction) Confirm() error {
	if t.Status == TransactionStatusConfirmed {
		return nil
	}
	if t.Status != TransactionStatusSubmitted {
		return ErrTransactionMustBeSubmitted
	}

	now := time.Now().Unix()
	t.Status = TransactionStatusConfirmed
	t.ProcessedAt = now
	t.UpdatedAt = now
	return nil
}

// Fail marks a submitted transaction as reverted.
func (t *Transaction) Fail() error {
	if t.Status == TransactionStatusFailed {
		return nil
	}
	if t.Status != TransactionStatusSubmitted {
		return ErrTransactionMustBeSubmitted
	}

	now := time.Now().Unix()
	t.Status = TransactionStatusFailed
	t.ProcessedAt = now
	t.UpdatedAt = now
	return nil
}

// Reject discards a transaction that was never submitted.
func (t *Transaction) Reject() error {
	if t.Status == TransactionStatusRejected {
		return nil
	}
	if t.IsSubmitted() {
		return ErrTransactionAlreadySubmitted
	}
	if t.IsTerminal() {
		return ErrTransactionTerminated
	}

	now := time.Now().Unix()
	t.Status = TransactionStatusRejected
	t.RejectedAt = now
	t.UpdatedAt = now
	return nil
}

// IsSubmitted returns whether the transaction has ever been sent to the
// network.
func (t *Transaction) IsSubmitted() bool {
	switch t.Status {
	case TransactionStatusSubmitted, TransactionStatusConfirmed,
		TransactionStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal ...
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case TransactionStatusConfirmed, TransactionStatusRejected,
		TransactionStatusFailed:
		return true
	default:
		return false
	}
}

// IsEstimated returns whether the transaction carries a fee estimate and is
// waiting to be submitted.
func (t *Transaction) IsEstimated() bool {
	return t.Status == TransactionStatusPending ||
		t.Status == TransactionStatusSigned
}

// ConnectsAuthenticator returns whether the transaction brings in a new
// second factor owner.
func (t *Transaction) ConnectsAuthenticator() bool {
	return ChangesConnectAuthenticator(t.OwnerChanges)
}

func (t *Transaction) touch() {
	t.UpdatedAt = time.Now().Unix()
}

// LatestTransaction returns the first transaction of the list that is not
// confirmed, rejected or failed. If there is none, it returns the most
// recently created one, or nil for an empty list.
func LatestTransaction(txs []*Transaction) *Transaction {
	var latest *Transaction
	for _, tx := range txs {
		if !tx.IsTerminal() {
			return tx
		}
		if latest == nil || tx.CreatedAt > latest.CreatedAt ||
			(tx.CreatedAt == latest.CreatedAt && tx.UpdatedAt > latest.UpdatedAt) {
			latest = tx
		}
	}
	return latest
}
