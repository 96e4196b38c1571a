package dbbadger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	walletsDir      = "wallets"
	transactionsDir = "transactions"

	gcInterval = 30 * time.Minute
)

type repoManager struct {
	walletStore *badgerhold.Store
	txStore     *badgerhold.Store

	walletRepository      domain.WalletRepository
	transactionRepository domain.TransactionRepository
}

// NewRepoManager opens (or creates if not exists) the badger stores in the
// given base directory, one for wallets and one for transactions. An empty
// directory keeps everything in memory.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var walletsDbDir, txsDbDir string
	if len(baseDbDir) > 0 {
		walletsDbDir = filepath.Join(baseDbDir, walletsDir)
		txsDbDir = filepath.Join(baseDbDir, transactionsDir)
	}

	walletStore, err := createDb(walletsDbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening wallets db: %w", err)
	}

	txStore, err := createDb(txsDbDir, logger)
	if err != nil {
		walletStore.Close()
		return nil, fmt.Errorf("opening transactions db: %w", err)
	}

	return &repoManager{
		walletStore:           walletStore,
		txStore:               txStore,
		walletRepository:      NewWalletRepositoryImpl(walletStore),
		transactionRepository: NewTransactionRepositoryImpl(txStore),
	}, nil
}

func (r *repoManager) WalletRepository() domain.WalletRepository {
	return r.walletRepository
}

func (r *repoManager) TransactionRepository() domain.TransactionRepository {
	return r.transactionRepository
}

func (r *repoManager) Close() {
	r.walletStore.Close()
	r.txStore.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(gcInterval)

		go func() {
			for {
				<-ticker.C
				if db.Badger().IsClosed() {
					ticker.Stop()
					return
				}
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
