package domain

import "context"

// TransactionRepository is the abstraction for any kind of database intended
// to persist Transactions.
type TransactionRepository interface {
	// AddTransaction stores a new transaction.
	AddTransaction(ctx context.Context, tx *Transaction) error
	// GetTransaction returns the transaction with the given id or
	// ErrTransactionNotFound.
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	// GetLatestTransaction returns the transaction of the given type for the
	// given wallet that is not yet confirmed, rejected or failed, if any.
	// Otherwise, it returns the most recently created one, or
	// ErrTransactionNotFound.
	GetLatestTransaction(
		ctx context.Context, walletID string, txType TransactionType,
	) (*Transaction, error)
	// GetAllTransactionsForWallet ...
	GetAllTransactionsForWallet(
		ctx context.Context, walletID string,
	) ([]*Transaction, error)
	// UpdateTransaction allows to commit multiple changes to the same
	// transaction in a transactional way.
	UpdateTransaction(
		ctx context.Context,
		txID string,
		updateFn func(tx *Transaction) (*Transaction, error),
	) error
}
