package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type transactionRepositoryImpl struct {
	store *badgerhold.Store
}

// NewTransactionRepositoryImpl returns a new badger TransactionRepository
// implementation.
func NewTransactionRepositoryImpl(
	store *badgerhold.Store,
) domain.TransactionRepository {
	return &transactionRepositoryImpl{store}
}

func (r *transactionRepositoryImpl) AddTransaction(
	_ context.Context, tx *domain.Transaction,
) error {
	if err := r.store.Insert(tx.ID, *tx); err != nil {
		if err == badgerhold.ErrKeyExists {
			return domain.ErrFailedToCreateValidTransaction
		}
		return err
	}
	return nil
}

func (r *transactionRepositoryImpl) GetTransaction(
	_ context.Context, txID string,
) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := r.store.Get(txID, &tx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepositoryImpl) GetLatestTransaction(
	ctx context.Context, walletID string, txType domain.TransactionType,
) (*domain.Transaction, error) {
	txs, err := r.GetAllTransactionsForWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == txType {
			filtered = append(filtered, tx)
		}
	}

	latest := domain.LatestTransaction(filtered)
	if latest == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return latest, nil
}

func (r *transactionRepositoryImpl) GetAllTransactionsForWallet(
	_ context.Context, walletID string,
) ([]*domain.Transaction, error) {
	var txs []domain.Transaction
	query := badgerhold.Where("WalletID").Eq(walletID)
	if err := r.store.Find(&txs, query); err != nil {
		return nil, err
	}

	result := make([]*domain.Transaction, 0, len(txs))
	for i := range txs {
		result = append(result, &txs[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result, nil
}

func (r *transactionRepositoryImpl) UpdateTransaction(
	_ context.Context,
	txID string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		var tx domain.Transaction
		if err := r.store.TxGet(txn, txID, &tx); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrTransactionNotFound
			}
			return err
		}

		updatedTx, err := updateFn(&tx)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(txn, txID, *updatedTx)
	})
}
