package ports

import "github.com/safe-network/safe-recoveryd/internal/core/domain"

// RepoManager interface defines the methods to access the repositories of
// wallets and transactions.
type RepoManager interface {
	WalletRepository() domain.WalletRepository
	TransactionRepository() domain.TransactionRepository

	Close()
}
