package inmemory

import (
	"context"
	"sort"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
)

type walletRepositoryImpl struct {
	store *walletInmemoryStore
}

// NewWalletRepositoryImpl returns a new inmemory WalletRepository
// implementation.
func NewWalletRepositoryImpl(
	store *walletInmemoryStore,
) domain.WalletRepository {
	return &walletRepositoryImpl{store}
}

func (r *walletRepositoryImpl) AddWallet(
	_ context.Context, wallet *domain.Wallet,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.wallets[wallet.ID]; ok {
		return domain.ErrWalletAlreadyExists
	}
	if wallet.Address != "" {
		if w := r.findByAddress(wallet.Address); w != nil {
			return domain.ErrWalletAlreadyExists
		}
	}

	r.store.wallets[wallet.ID] = copyWallet(wallet)
	return nil
}

func (r *walletRepositoryImpl) GetWallet(
	_ context.Context, walletID string,
) (*domain.Wallet, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	w, ok := r.store.wallets[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (r *walletRepositoryImpl) GetWalletByAddress(
	_ context.Context, address string,
) (*domain.Wallet, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	w := r.findByAddress(address)
	if w == nil {
		return nil, domain.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (r *walletRepositoryImpl) GetAllWallets(
	_ context.Context,
) ([]*domain.Wallet, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	return r.filter(func(*domain.Wallet) bool { return true }), nil
}

func (r *walletRepositoryImpl) GetWalletsInRecovery(
	_ context.Context,
) ([]*domain.Wallet, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	return r.filter(func(w *domain.Wallet) bool {
		return w.IsRecoveryInProgress
	}), nil
}

func (r *walletRepositoryImpl) UpdateWallet(
	_ context.Context,
	walletID string,
	updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	w, ok := r.store.wallets[walletID]
	if !ok {
		return domain.ErrWalletNotFound
	}

	updatedWallet, err := updateFn(copyWallet(w))
	if err != nil {
		return err
	}
	if updatedWallet.Address != "" {
		if other := r.findByAddress(updatedWallet.Address); other != nil &&
			other.ID != walletID {
			return domain.ErrWalletAlreadyExists
		}
	}

	r.store.wallets[walletID] = copyWallet(updatedWallet)
	return nil
}

func (r *walletRepositoryImpl) GetSelectedWallet(
	_ context.Context,
) (*domain.Wallet, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	if r.store.selectedWallet == "" {
		return nil, domain.ErrNoWalletSelected
	}
	w, ok := r.store.wallets[r.store.selectedWallet]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (r *walletRepositoryImpl) SelectWallet(
	_ context.Context, walletID string,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.wallets[walletID]; !ok {
		return domain.ErrWalletNotFound
	}
	r.store.selectedWallet = walletID
	return nil
}

func (r *walletRepositoryImpl) findByAddress(address string) *domain.Wallet {
	for _, w := range r.store.wallets {
		if w.Address != "" && domain.SameAddress(w.Address, address) {
			return w
		}
	}
	return nil
}

func (r *walletRepositoryImpl) filter(
	fn func(*domain.Wallet) bool,
) []*domain.Wallet {
	wallets := make([]*domain.Wallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		if fn(w) {
			wallets = append(wallets, copyWallet(w))
		}
	}
	sort.SliceStable(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt == wallets[j].CreatedAt {
			return wallets[i].ID < wallets[j].ID
		}
		return wallets[i].CreatedAt < wallets[j].CreatedAt
	})
	return wallets
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	c.Owners = w.Owners.Copy()
	return &c
}
