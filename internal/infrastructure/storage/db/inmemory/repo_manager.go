package inmemory

import (
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
)

type walletInmemoryStore struct {
	wallets        map[string]*domain.Wallet
	selectedWallet string
	locker         *sync.RWMutex
}

type transactionInmemoryStore struct {
	transactions map[string]*domain.Transaction
	// insertion order, used to list transactions deterministically
	order  []string
	locker *sync.RWMutex
}

type repoManager struct {
	walletRepository      domain.WalletRepository
	transactionRepository domain.TransactionRepository
}

// NewRepoManager returns a RepoManager whose repositories keep everything in
// memory.
func NewRepoManager() ports.RepoManager {
	walletStore := &walletInmemoryStore{
		wallets: make(map[string]*domain.Wallet),
		locker:  &sync.RWMutex{},
	}
	txStore := &transactionInmemoryStore{
		transactions: make(map[string]*domain.Transaction),
		order:        make([]string, 0),
		locker:       &sync.RWMutex{},
	}

	return &repoManager{
		walletRepository:      NewWalletRepositoryImpl(walletStore),
		transactionRepository: NewTransactionRepositoryImpl(txStore),
	}
}

func (r *repoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *repoManager) TransactionRepository() domain.TransactionRepository {
	return r.transactionRepository
}

func (r *repoManager) Close() {}
