package dbbadger

import (
	"context"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const selectedWalletKey = "selected"

type selectedWallet struct {
	WalletID string
}

type walletRepositoryImpl struct {
	store *badgerhold.Store
}

// NewWalletRepositoryImpl returns a new badger WalletRepository
// implementation.
func NewWalletRepositoryImpl(store *badgerhold.Store) domain.WalletRepository {
	return &walletRepositoryImpl{store}
}

func (r *walletRepositoryImpl) AddWallet(
	_ context.Context, wallet *domain.Wallet,
) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		if wallet.Address != "" {
			found, err := r.findByAddress(txn, wallet.Address)
			if err != nil {
				return err
			}
			if found != nil {
				return domain.ErrWalletAlreadyExists
			}
		}

		if err := r.store.TxInsert(txn, wallet.ID, *wallet); err != nil {
			if err == badgerhold.ErrKeyExists {
				return domain.ErrWalletAlreadyExists
			}
			return err
		}
		return nil
	})
}

func (r *walletRepositoryImpl) GetWallet(
	_ context.Context, walletID string,
) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := r.store.Get(walletID, &wallet); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepositoryImpl) GetWalletByAddress(
	_ context.Context, address string,
) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	if err := r.store.Badger().View(func(txn *badger.Txn) error {
		found, err := r.findByAddress(txn, address)
		wallet = found
		return err
	}); err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

func (r *walletRepositoryImpl) GetAllWallets(
	_ context.Context,
) ([]*domain.Wallet, error) {
	return r.findWallets(nil)
}

func (r *walletRepositoryImpl) GetWalletsInRecovery(
	_ context.Context,
) ([]*domain.Wallet, error) {
	return r.findWallets(badgerhold.Where("IsRecoveryInProgress").Eq(true))
}

func (r *walletRepositoryImpl) UpdateWallet(
	_ context.Context,
	walletID string,
	updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		var wallet domain.Wallet
		if err := r.store.TxGet(txn, walletID, &wallet); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrWalletNotFound
			}
			return err
		}

		updatedWallet, err := updateFn(&wallet)
		if err != nil {
			return err
		}

		if updatedWallet.Address != "" {
			found, err := r.findByAddress(txn, updatedWallet.Address)
			if err != nil {
				return err
			}
			if found != nil && found.ID != walletID {
				return domain.ErrWalletAlreadyExists
			}
		}

		return r.store.TxUpdate(txn, walletID, *updatedWallet)
	})
}

func (r *walletRepositoryImpl) GetSelectedWallet(
	ctx context.Context,
) (*domain.Wallet, error) {
	var selected selectedWallet
	if err := r.store.Get(selectedWalletKey, &selected); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrNoWalletSelected
		}
		return nil, err
	}
	return r.GetWallet(ctx, selected.WalletID)
}

func (r *walletRepositoryImpl) SelectWallet(
	_ context.Context, walletID string,
) error {
	return r.store.Badger().Update(func(txn *badger.Txn) error {
		var wallet domain.Wallet
		if err := r.store.TxGet(txn, walletID, &wallet); err != nil {
			if err == badgerhold.ErrNotFound {
				return domain.ErrWalletNotFound
			}
			return err
		}
		return r.store.TxUpsert(
			txn, selectedWalletKey, selectedWallet{WalletID: walletID},
		)
	})
}

func (r *walletRepositoryImpl) findByAddress(
	txn *badger.Txn, address string,
) (*domain.Wallet, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, nil
	}

	var wallets []domain.Wallet
	query := badgerhold.Where("Address").Eq(addr)
	if err := r.store.TxFind(txn, &wallets, query); err != nil {
		return nil, err
	}
	if len(wallets) <= 0 {
		return nil, nil
	}
	return &wallets[0], nil
}

func (r *walletRepositoryImpl) findWallets(
	query *badgerhold.Query,
) ([]*domain.Wallet, error) {
	var wallets []domain.Wallet
	if err := r.store.Find(&wallets, query); err != nil {
		return nil, err
	}

	result := make([]*domain.Wallet, 0, len(wallets))
	for i := range wallets {
		result = append(result, &wallets[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt == result[j].CreatedAt {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result, nil
}
