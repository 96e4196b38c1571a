package inmemory

import (
	"context"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
)

type transactionRepositoryImpl struct {
	store *transactionInmemoryStore
}

// NewTransactionRepositoryImpl returns a new inmemory TransactionRepository
// implementation.
func NewTransactionRepositoryImpl(
	store *transactionInmemoryStore,
) domain.TransactionRepository {
	return &transactionRepositoryImpl{store}
}

func (r *transactionRepositoryImpl) AddTransaction(
	_ context.Context, tx *domain.Transaction,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.transactions[tx.ID]; ok {
		return domain.ErrFailedToCreateValidTransaction
	}
	r.store.transactions[tx.ID] = copyTransaction(tx)
	r.store.order = append(r.store.order, tx.ID)
	return nil
}

func (r *transactionRepositoryImpl) GetTransaction(
	_ context.Context, txID string,
) (*domain.Transaction, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	tx, ok := r.store.transactions[txID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTransaction(tx), nil
}

func (r *transactionRepositoryImpl) GetLatestTransaction(
	_ context.Context, walletID string, txType domain.TransactionType,
) (*domain.Transaction, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	txs := make([]*domain.Transaction, 0)
	for _, tx := range r.getAllForWallet(walletID) {
		if tx.Type == txType {
			txs = append(txs, tx)
		}
	}

	latest := domain.LatestTransaction(txs)
	if latest == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return copyTransaction(latest), nil
}

func (r *transactionRepositoryImpl) GetAllTransactionsForWallet(
	_ context.Context, walletID string,
) ([]*domain.Transaction, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	txs := r.getAllForWallet(walletID)
	for i, tx := range txs {
		txs[i] = copyTransaction(tx)
	}
	return txs, nil
}

func (r *transactionRepositoryImpl) UpdateTransaction(
	_ context.Context,
	txID string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	tx, ok := r.store.transactions[txID]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	updatedTx, err := updateFn(copyTransaction(tx))
	if err != nil {
		return err
	}

	r.store.transactions[txID] = copyTransaction(updatedTx)
	return nil
}

func (r *transactionRepositoryImpl) getAllForWallet(
	walletID string,
) []*domain.Transaction {
	txs := make([]*domain.Transaction, 0)
	for _, id := range r.store.order {
		if tx := r.store.transactions[id]; tx.WalletID == walletID {
			txs = append(txs, tx)
		}
	}
	return txs
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	c.Amount = domain.NewTokenAmount(tx.Amount.Token, tx.Amount.Amount)
	c.FeeEstimate.GasPrice = domain.NewTokenAmount(
		tx.FeeEstimate.GasPrice.Token, tx.FeeEstimate.GasPrice.Amount,
	)
	if tx.Data != nil {
		c.Data = append([]byte{}, tx.Data...)
	}
	if tx.Signatures != nil {
		c.Signatures = make([]domain.Signature, 0, len(tx.Signatures))
		for _, s := range tx.Signatures {
			c.Signatures = append(c.Signatures, domain.Signature{
				Signer: s.Signer, Data: append([]byte{}, s.Data...),
			})
		}
	}
	if tx.OwnerChanges != nil {
		c.OwnerChanges = append([]domain.OwnerChange{}, tx.OwnerChanges...)
	}
	c.ProposedOwners = tx.ProposedOwners.Copy()
	return &c
}
