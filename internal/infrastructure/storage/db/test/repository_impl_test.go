package db_test

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	dbbadger "github.com/safe-network/safe-recoveryd/internal/infrastructure/storage/db/badger"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/storage/db/inmemory"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type repoManager struct {
	name string
	ports.RepoManager
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerInMemory, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	badgerOnDisk, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)

	managers := []repoManager{
		{"inmemory", inmemory.NewRepoManager()},
		{"badger_inmemory", badgerInMemory},
		{"badger", badgerOnDisk},
	}
	t.Cleanup(func() {
		for _, m := range managers {
			m.Close()
		}
	})
	return managers
}

func TestWalletRepository(t *testing.T) {
	for _, m := range createRepoManagers(t) {
		repo := m.WalletRepository()

		t.Run(m.name, func(t *testing.T) {
			t.Run("add_and_get", func(t *testing.T) {
				wallet := newTestWallet(t, 1)
				require.NoError(t, repo.AddWallet(ctx, wallet))
				require.ErrorIs(
					t, repo.AddWallet(ctx, wallet), domain.ErrWalletAlreadyExists,
				)

				other := newTestWallet(t, 1)
				require.ErrorIs(
					t, repo.AddWallet(ctx, other), domain.ErrWalletAlreadyExists,
				)

				got, err := repo.GetWallet(ctx, wallet.ID)
				require.NoError(t, err)
				require.Equal(t, wallet.Address, got.Address)
				require.Equal(t, wallet.Owners, got.Owners)
				require.Equal(t, wallet.Threshold, got.Threshold)

				got, err = repo.GetWalletByAddress(ctx, wallet.Address)
				require.NoError(t, err)
				require.Equal(t, wallet.ID, got.ID)

				_, err = repo.GetWallet(ctx, "unknown")
				require.ErrorIs(t, err, domain.ErrWalletNotFound)
				_, err = repo.GetWalletByAddress(ctx, walletAddress(99))
				require.ErrorIs(t, err, domain.ErrWalletNotFound)
			})

			t.Run("update", func(t *testing.T) {
				wallet := newTestWallet(t, 2)
				require.NoError(t, repo.AddWallet(ctx, wallet))

				err := repo.UpdateWallet(
					ctx, wallet.ID, func(w *domain.Wallet) (*domain.Wallet, error) {
						if err := w.StartRecovery(); err != nil {
							return nil, err
						}
						return w, nil
					},
				)
				require.NoError(t, err)

				inRecovery, err := repo.GetWalletsInRecovery(ctx)
				require.NoError(t, err)
				require.Len(t, inRecovery, 1)
				require.Equal(t, wallet.ID, inRecovery[0].ID)
				require.Equal(
					t, domain.WalletStatusReadyToUse, inRecovery[0].StatusBeforeRecovery,
				)

				expectedErr := fmt.Errorf("something went wrong")
				err = repo.UpdateWallet(
					ctx, wallet.ID, func(w *domain.Wallet) (*domain.Wallet, error) {
						w.CancelRecovery()
						return nil, expectedErr
					},
				)
				require.ErrorIs(t, err, expectedErr)

				got, err := repo.GetWallet(ctx, wallet.ID)
				require.NoError(t, err)
				require.True(t, got.IsRecoveryInProgress)

				err = repo.UpdateWallet(
					ctx, "unknown", func(w *domain.Wallet) (*domain.Wallet, error) {
						return w, nil
					},
				)
				require.ErrorIs(t, err, domain.ErrWalletNotFound)
			})

			t.Run("select", func(t *testing.T) {
				_, err := repo.GetSelectedWallet(ctx)
				require.ErrorIs(t, err, domain.ErrNoWalletSelected)

				require.ErrorIs(
					t, repo.SelectWallet(ctx, "unknown"), domain.ErrWalletNotFound,
				)

				wallet := domain.NewDraftWallet()
				require.NoError(t, repo.AddWallet(ctx, wallet))
				require.NoError(t, repo.SelectWallet(ctx, wallet.ID))

				got, err := repo.GetSelectedWallet(ctx)
				require.NoError(t, err)
				require.Equal(t, wallet.ID, got.ID)
				require.Equal(t, domain.WalletStatusDraft, got.Status)

				all, err := repo.GetAllWallets(ctx)
				require.NoError(t, err)
				require.Len(t, all, 3)
			})

			t.Run("concurrent_updates", func(t *testing.T) {
				wallet := domain.NewDraftWallet()
				require.NoError(t, repo.AddWallet(ctx, wallet))

				wg := &sync.WaitGroup{}
				for i := 0; i < 10; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for {
							err := repo.UpdateWallet(
								ctx, wallet.ID,
								func(w *domain.Wallet) (*domain.Wallet, error) {
									w.Threshold++
									return w, nil
								},
							)
							if err == nil {
								return
							}
						}
					}()
				}
				wg.Wait()

				got, err := repo.GetWallet(ctx, wallet.ID)
				require.NoError(t, err)
				require.Equal(t, 10, got.Threshold)
			})
		})
	}
}

func TestTransactionRepository(t *testing.T) {
	for _, m := range createRepoManagers(t) {
		repo := m.TransactionRepository()

		t.Run(m.name, func(t *testing.T) {
			t.Run("add_and_get", func(t *testing.T) {
				tx := newTestTransaction(t, "wallet-1")
				require.NoError(t, repo.AddTransaction(ctx, tx))
				require.Error(t, repo.AddTransaction(ctx, tx))

				got, err := repo.GetTransaction(ctx, tx.ID)
				require.NoError(t, err)
				require.Equal(t, tx.Status, got.Status)
				require.Equal(t, tx.Recipient, got.Recipient)
				require.Equal(t, tx.Data, got.Data)
				require.Equal(t, tx.OwnerChanges, got.OwnerChanges)
				require.Equal(t, tx.ProposedOwners, got.ProposedOwners)
				require.Zero(
					t, tx.FeeEstimate.GasPrice.Value().Cmp(got.FeeEstimate.GasPrice.Value()),
				)
				require.Equal(t, tx.Signatures, got.Signatures)

				_, err = repo.GetTransaction(ctx, "unknown")
				require.ErrorIs(t, err, domain.ErrTransactionNotFound)
			})

			t.Run("latest", func(t *testing.T) {
				walletID := "wallet-2"
				_, err := repo.GetLatestTransaction(
					ctx, walletID, domain.TransactionTypeWalletRecovery,
				)
				require.ErrorIs(t, err, domain.ErrTransactionNotFound)

				rejected := newTestTransaction(t, walletID)
				rejected.CreatedAt -= 60
				require.NoError(t, rejected.Reject())
				require.NoError(t, repo.AddTransaction(ctx, rejected))

				latest, err := repo.GetLatestTransaction(
					ctx, walletID, domain.TransactionTypeWalletRecovery,
				)
				require.NoError(t, err)
				require.Equal(t, rejected.ID, latest.ID)

				open := newTestTransaction(t, walletID)
				open.CreatedAt -= 120
				require.NoError(t, repo.AddTransaction(ctx, open))

				regular := domain.NewTransaction(walletID, domain.TransactionTypeRegular)
				require.NoError(t, repo.AddTransaction(ctx, regular))

				latest, err = repo.GetLatestTransaction(
					ctx, walletID, domain.TransactionTypeWalletRecovery,
				)
				require.NoError(t, err)
				require.Equal(t, open.ID, latest.ID)

				all, err := repo.GetAllTransactionsForWallet(ctx, walletID)
				require.NoError(t, err)
				require.Len(t, all, 3)
			})

			t.Run("update", func(t *testing.T) {
				tx := newTestTransaction(t, "wallet-3")
				require.NoError(t, repo.AddTransaction(ctx, tx))

				err := repo.UpdateTransaction(
					ctx, tx.ID, func(tx *domain.Transaction) (*domain.Transaction, error) {
						if err := tx.Submit("0xabc"); err != nil {
							return nil, err
						}
						return tx, nil
					},
				)
				require.NoError(t, err)

				got, err := repo.GetTransaction(ctx, tx.ID)
				require.NoError(t, err)
				require.Equal(t, domain.TransactionStatusSubmitted, got.Status)
				require.Equal(t, "0xabc", got.Hash)

				err = repo.UpdateTransaction(
					ctx, tx.ID, func(tx *domain.Transaction) (*domain.Transaction, error) {
						return nil, tx.Reject()
					},
				)
				require.ErrorIs(t, err, domain.ErrTransactionAlreadySubmitted)

				err = repo.UpdateTransaction(
					ctx, "unknown", func(tx *domain.Transaction) (*domain.Transaction, error) {
						return tx, nil
					},
				)
				require.ErrorIs(t, err, domain.ErrTransactionNotFound)
			})
		})
	}
}

func walletAddress(i int) string {
	return common.BigToAddress(big.NewInt(int64(0x5afe00 + i))).Hex()
}

func ownerAddress(i int) string {
	return common.BigToAddress(big.NewInt(int64(0x0ca000 + i))).Hex()
}

func newTestWallet(t *testing.T, i int) *domain.Wallet {
	owners, err := domain.NewOwnerList(
		domain.Owner{Address: ownerAddress(1), Role: domain.OwnerRoleDevice},
		domain.Owner{Address: ownerAddress(2), Role: domain.OwnerRolePaperWallet},
		domain.Owner{Address: ownerAddress(3), Role: domain.OwnerRolePaperWalletDerived},
	)
	require.NoError(t, err)

	wallet, err := domain.NewWallet(
		walletAddress(i), owners, 2, domain.WalletStatusReadyToUse,
	)
	require.NoError(t, err)
	return wallet
}

func newTestTransaction(t *testing.T, walletID string) *domain.Transaction {
	tx := domain.NewTransaction(walletID, domain.TransactionTypeWalletRecovery)
	require.NoError(t, tx.SetPayload(
		walletAddress(1), walletAddress(1), domain.ZeroAmount(domain.Ether),
		[]byte{0xca, 0xfe}, domain.OperationCall,
	))

	proposed, err := domain.NewOwnerList(
		domain.Owner{Address: ownerAddress(4), Role: domain.OwnerRoleDevice},
		domain.Owner{Address: ownerAddress(2), Role: domain.OwnerRolePaperWallet},
		domain.Owner{Address: ownerAddress(3), Role: domain.OwnerRolePaperWalletDerived},
	)
	require.NoError(t, err)
	tx.SetOwnerChanges(&domain.OwnerChangePlan{
		Proposed: domain.OwnerSet{Owners: proposed, Threshold: 2},
		Changes: []domain.OwnerChange{{
			Type:         domain.OwnerChangeSwapOwner,
			PrevOwner:    domain.SentinelOwner,
			OldOwner:     ownerAddress(1),
			NewOwner:     ownerAddress(4),
			NewOwnerRole: domain.OwnerRoleDevice,
		}},
	})

	require.NoError(t, tx.Estimate(domain.FeeEstimate{
		Gas:            50000,
		DataGas:        10000,
		OperationalGas: 5000,
		GasPrice:       domain.NewTokenAmount(domain.Ether, big.NewInt(1000000000)),
	}, 3))
	require.NoError(t, tx.Sign([]domain.Signature{
		{Signer: ownerAddress(2), Data: make([]byte, 65)},
	}))
	return tx
}
