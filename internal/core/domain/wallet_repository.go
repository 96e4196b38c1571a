package domain

import "context"

// WalletRepository is the abstraction for any kind of database intended to
// persist Wallets.
type WalletRepository interface {
	// AddWallet stores a new wallet.
	AddWallet(ctx context.Context, wallet *Wallet) error
	// GetWallet returns the wallet with the given id or ErrWalletNotFound.
	GetWallet(ctx context.Context, walletID string) (*Wallet, error)
	// GetWalletByAddress returns the wallet with the given contract address or
	// ErrWalletNotFound.
	GetWalletByAddress(ctx context.Context, address string) (*Wallet, error)
	// GetAllWallets ...
	GetAllWallets(ctx context.Context) ([]*Wallet, error)
	// GetWalletsInRecovery returns the wallets flagged with a recovery in
	// progress.
	GetWalletsInRecovery(ctx context.Context) ([]*Wallet, error)
	// UpdateWallet allows to commit multiple changes to the same wallet in a
	// transactional way.
	UpdateWallet(
		ctx context.Context,
		walletID string,
		updateFn func(w *Wallet) (*Wallet, error),
	) error
	// GetSelectedWallet returns the wallet currently selected or
	// ErrNoWalletSelected.
	GetSelectedWallet(ctx context.Context) (*Wallet, error)
	// SelectWallet ...
	SelectWallet(ctx context.Context, walletID string) error
}
