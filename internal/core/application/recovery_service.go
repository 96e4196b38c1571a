package application

import (
	"context"
	"errors"
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNullRepoManager ...
	ErrNullRepoManager = errors.New("repository manager must not be null")
	// ErrNullRelay ...
	ErrNullRelay = errors.New("relay must not be null")
	// ErrNullEventBus ...
	ErrNullEventBus = errors.New("event bus must not be null")
	// ErrNullDeviceKeyProvider ...
	ErrNullDeviceKeyProvider = errors.New("device key provider must not be null")
)

// RecoveryService drives a multisig wallet through the replacement of its
// lost owner keys. A walletID "" always refers to the selected wallet.
type RecoveryService interface {
	CreateRecoverDraftWallet(ctx context.Context) (string, error)
	Validate(ctx context.Context, walletID, address string, w *Watcher) error
	Provide(ctx context.Context, walletID, phrase string, w *Watcher) error
	VerifyRecoveryPhrase(ctx context.Context, walletID, phrase string) error
	CreateRecoveryTransaction(
		ctx context.Context, req RecoveryTransactionRequest, w *Watcher,
	) *Task[string]
	SubmitRecoveryTransaction(ctx context.Context, walletID string) (string, error)
	CancelRecovery(ctx context.Context, walletID string) error
	Resume(ctx context.Context, walletID string, w *Watcher) *Task[RecoveryState]
	ResumeInBackground(ctx context.Context) *Task[int]

	IsRecoveryTransactionReadyToSubmit(
		ctx context.Context, walletID string,
	) (bool, error)
	IsRecoveryInProgress(ctx context.Context, walletID string) (bool, error)
	IsTransactionConnectsAuthenticator(
		ctx context.Context, txID string,
	) (bool, error)
	RecoveryTransaction(
		ctx context.Context, walletID string,
	) (*TransactionView, error)
	TransactionData(ctx context.Context, txID string) (*TransactionView, error)
	EstimateRecoveryTransaction(
		ctx context.Context, walletID string,
	) ([]FeeBalance, error)
	State(ctx context.Context, walletID string) (RecoveryState, error)

	// Start and Stop manage the chain observer tracking balances and
	// submitted transactions, if any.
	Start()
	Stop()
}

// RecoveryServiceConfig holds the dependencies of the recovery service.
type RecoveryServiceConfig struct {
	RepoManager ports.RepoManager
	Relay       ports.Relay
	EventBus    ports.EventBus
	DeviceKeys  ports.DeviceKeyProvider
	// Crawler is optional. Without it, balances and transaction statuses are
	// checked only when an operation runs.
	Crawler crawler.Service
	// MultiSendAddress is the contract batching owner changes. Required for
	// recoveries that need more than one owner change.
	MultiSendAddress       string
	RecoveryPathComponents []string
	// AutoSubmit makes the recovery transaction be submitted as soon as the
	// wallet has the funds to pay for it.
	AutoSubmit         bool
	MaxParallelResumes int
}

func (c RecoveryServiceConfig) validate() error {
	if c.RepoManager == nil {
		return ErrNullRepoManager
	}
	if c.Relay == nil {
		return ErrNullRelay
	}
	if c.EventBus == nil {
		return ErrNullEventBus
	}
	if c.DeviceKeys == nil {
		return ErrNullDeviceKeyProvider
	}
	return nil
}

// recoveryProcess is the in-memory part of a wallet recovery.
type recoveryProcess struct {
	state    RecoveryState
	accounts []*domain.RecoveryAccount
	balances []domain.TokenAmount
	ready    bool
	// no events are published for a muted process.
	muted bool
}

type recoveryService struct {
	repoManager        ports.RepoManager
	relay              ports.Relay
	bus                ports.EventBus
	deviceKeys         ports.DeviceKeyProvider
	crawler            crawler.Service
	multiSendAddress   string
	pathComponents     []string
	autoSubmit         bool
	maxParallelResumes int

	slots       *walletSlots
	resumeGroup singleflight.Group

	lock      sync.RWMutex
	processes map[string]*recoveryProcess
	watchers  map[string]map[string]struct{}
}

// NewRecoveryService returns a RecoveryService with all the needed
// dependencies.
func NewRecoveryService(cfg RecoveryServiceConfig) (RecoveryService, error) {
	svc, err := newRecoveryService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newRecoveryService(cfg RecoveryServiceConfig) (*recoveryService, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pathComponents := cfg.RecoveryPathComponents
	if len(pathComponents) <= 0 {
		pathComponents = domain.DefaultRecoveryPathComponents
	}

	return &recoveryService{
		repoManager:        cfg.RepoManager,
		relay:              cfg.Relay,
		bus:                cfg.EventBus,
		deviceKeys:         cfg.DeviceKeys,
		crawler:            cfg.Crawler,
		multiSendAddress:   cfg.MultiSendAddress,
		pathComponents:     append([]string{}, pathComponents...),
		autoSubmit:         cfg.AutoSubmit,
		maxParallelResumes: cfg.MaxParallelResumes,
		slots:              newWalletSlots(),
		processes:          make(map[string]*recoveryProcess),
		watchers:           make(map[string]map[string]struct{}),
	}, nil
}

func (s *recoveryService) CreateRecoverDraftWallet(
	ctx context.Context,
) (string, error) {
	wallet := domain.NewDraftWallet()
	if err := s.walletRepo().AddWallet(ctx, wallet); err != nil {
		return "", TranslateError(err)
	}
	if err := s.walletRepo().SelectWallet(ctx, wallet.ID); err != nil {
		return "", TranslateError(err)
	}

	s.resetProcess(wallet.ID, RecoveryStateIdle)
	log.Infof("created draft wallet %s for recovery", wallet.ID)
	return wallet.ID, nil
}

func (s *recoveryService) Validate(
	ctx context.Context, walletID, address string, w *Watcher,
) error {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}
	s.watch(walletID, w, ports.EventWalletAddressChanged)

	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return ErrInvalidContractAddress
	}

	ctx, release, err := s.slots.acquire(ctx, walletID)
	if err != nil {
		return err
	}
	defer release()

	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}

	existing, err := s.walletRepo().GetWalletByAddress(ctx, addr)
	if err != nil && !errors.Is(err, domain.ErrWalletNotFound) {
		return TranslateError(err)
	}
	if existing != nil && existing.ID != walletID {
		return ErrWalletAlreadyExists
	}

	info, err := s.relay.SafeInfo(ctx, addr)
	if err != nil {
		log.WithError(err).Warnf("failed to read owners of contract %s", addr)
		return ErrInvalidContractAddress
	}

	owners := make(domain.OwnerList, 0, len(info.Owners))
	for _, o := range info.Owners {
		owner := domain.Owner{Address: o}
		if known, ok := wallet.Owners.Get(o); ok {
			owner.Role = known.Role
		}
		owners = append(owners, owner)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.walletRepo().UpdateWallet(
		ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
			if err := w.SetAddress(addr); err != nil {
				return nil, err
			}
			if err := w.SetOwners(owners, info.Threshold); err != nil {
				return nil, domain.ErrUnsupportedWalletConfiguration
			}
			return w, nil
		},
	); err != nil {
		return TranslateError(err)
	}

	s.resetProcess(walletID, RecoveryStateAddressEntered)
	s.publish(ports.WalletAddressChanged{Wallet: walletID, Address: addr})
	log.Infof("wallet %s bound to contract %s", walletID, addr)
	return nil
}

func (s *recoveryService) Provide(
	ctx context.Context, walletID, phrase string, w *Watcher,
) error {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}
	s.watch(walletID, w, ports.EventWalletRecoveryAccountsAccepted)

	ctx, release, err := s.slots.acquire(ctx, walletID)
	if err != nil {
		return err
	}
	defer release()

	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}
	if wallet.Address == "" {
		return ErrInvalidContractAddress
	}

	accounts, err := s.verifyRecovery(wallet, phrase)
	if err != nil {
		return TranslateError(err)
	}
	addresses := domain.RecoveryAddresses(accounts)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.walletRepo().UpdateWallet(
		ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
			w.AssignRecoveryRoles(addresses)
			return w, nil
		},
	); err != nil {
		return TranslateError(err)
	}

	s.lock.Lock()
	s.processes[walletID] = &recoveryProcess{
		state:    RecoveryStateAccountsDerived,
		accounts: accounts,
	}
	s.lock.Unlock()

	s.publish(ports.WalletRecoveryAccountsAccepted{
		Wallet: walletID, Accounts: addresses,
	})
	log.Infof("recovery accounts accepted for wallet %s", walletID)
	return nil
}

func (s *recoveryService) VerifyRecoveryPhrase(
	ctx context.Context, walletID, phrase string,
) error {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return ErrInvalidContractAddress
	}
	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return ErrInvalidContractAddress
		}
		return TranslateError(err)
	}

	_, err = s.verifyRecovery(wallet, phrase)
	return TranslateError(err)
}

// verifyRecovery derives the recovery accounts from the phrase and checks
// them against the wallet owners. Checks run in this order: phrase, owner
// count, presence of the accounts among the owners and finally the
// configuration the owners have once the recovery accounts are known.
func (s *recoveryService) verifyRecovery(
	wallet *domain.Wallet, phrase string,
) ([]*domain.RecoveryAccount, error) {
	accounts, err := domain.DeriveRecoveryAccounts(phrase, s.pathComponents)
	if err != nil {
		return nil, err
	}

	count := len(wallet.Owners)
	if count < domain.MinOwnerCount || count > domain.MaxOwnerCount {
		return nil, domain.ErrUnsupportedOwnerCount
	}

	addresses := domain.RecoveryAddresses(accounts)
	for _, addr := range addresses {
		if !wallet.Owners.Contains(addr) {
			return nil, domain.ErrRecoveryAccountsNotFound
		}
	}

	candidate := *wallet
	candidate.Owners = wallet.Owners.Copy()
	candidate.AssignRecoveryRoles(addresses)
	if err := domain.ValidateRecoveryTopology(candidate.OwnerSet()); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *recoveryService) IsRecoveryInProgress(
	ctx context.Context, walletID string,
) (bool, error) {
	wallet, err := s.getWallet(ctx, walletID)
	if err != nil {
		return false, TranslateError(err)
	}
	return wallet.IsRecoveryInProgress, nil
}

func (s *recoveryService) IsRecoveryTransactionReadyToSubmit(
	ctx context.Context, walletID string,
) (bool, error) {
	wallet, err := s.getWallet(ctx, walletID)
	if err != nil {
		return false, TranslateError(err)
	}
	tx, err := s.latestRecoveryTransaction(ctx, wallet.ID)
	if err != nil {
		return false, TranslateError(err)
	}
	if tx == nil || tx.Status != domain.TransactionStatusSigned {
		return false, nil
	}

	s.lock.RLock()
	p, ok := s.processes[wallet.ID]
	ready := ok && p.ready
	s.lock.RUnlock()
	if ok {
		return ready, nil
	}

	// Nothing tracked since startup, ask the network.
	if _, err := s.checkFunds(ctx, wallet.ID, wallet.Address, tx); err != nil {
		return false, TranslateError(err)
	}
	return s.isReady(wallet.ID), nil
}

func (s *recoveryService) IsTransactionConnectsAuthenticator(
	ctx context.Context, txID string,
) (bool, error) {
	tx, err := s.txRepo().GetTransaction(ctx, txID)
	if err != nil {
		return false, TranslateError(err)
	}
	return tx.ConnectsAuthenticator(), nil
}

func (s *recoveryService) RecoveryTransaction(
	ctx context.Context, walletID string,
) (*TransactionView, error) {
	wallet, err := s.getWallet(ctx, walletID)
	if err != nil {
		return nil, TranslateError(err)
	}
	tx, err := s.txRepo().GetLatestTransaction(
		ctx, wallet.ID, domain.TransactionTypeWalletRecovery,
	)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, TranslateError(err)
	}
	return newTransactionView(tx), nil
}

func (s *recoveryService) TransactionData(
	ctx context.Context, txID string,
) (*TransactionView, error) {
	tx, err := s.txRepo().GetTransaction(ctx, txID)
	if err != nil {
		return nil, TranslateError(err)
	}
	return newTransactionView(tx), nil
}

func (s *recoveryService) EstimateRecoveryTransaction(
	ctx context.Context, walletID string,
) ([]FeeBalance, error) {
	wallet, err := s.getWallet(ctx, walletID)
	if err != nil {
		return nil, TranslateError(err)
	}
	tx, err := s.latestRecoveryTransaction(ctx, wallet.ID)
	if err != nil {
		return nil, TranslateError(err)
	}
	if tx == nil {
		return nil, domain.ErrTransactionNotFound
	}

	fee := tx.FeeEstimate
	balance, err := s.relay.Balance(ctx, fee.GasPrice.Token, wallet.Address)
	if err != nil {
		return nil, TranslateError(err)
	}

	return []FeeBalance{
		{
			Fee:       newTokenBalance(fee.TotalDisplayed().Neg()),
			Available: newTokenBalance(balance),
			Remainder: newTokenBalance(domain.Remainder(fee, balance)),
		},
	}, nil
}

func (s *recoveryService) State(
	ctx context.Context, walletID string,
) (RecoveryState, error) {
	wallet, err := s.getWallet(ctx, walletID)
	if err != nil {
		return RecoveryStateIdle, TranslateError(err)
	}

	s.lock.RLock()
	p, ok := s.processes[wallet.ID]
	var state RecoveryState
	if ok {
		state = p.state
	}
	s.lock.RUnlock()
	if ok {
		return state, nil
	}

	tx, err := s.latestRecoveryTransaction(ctx, wallet.ID)
	if err != nil {
		return RecoveryStateIdle, TranslateError(err)
	}
	return stateFromRecords(wallet, tx), nil
}

// stateFromRecords guesses the state of a recovery this service has no
// memory of, ie. after a restart.
func stateFromRecords(
	wallet *domain.Wallet, tx *domain.Transaction,
) RecoveryState {
	if !wallet.IsRecoveryInProgress {
		if wallet.Status == domain.WalletStatusRecovered {
			return RecoveryStateConfirmed
		}
		return RecoveryStateIdle
	}
	if tx == nil {
		return RecoveryStateAddressEntered
	}
	switch tx.Status {
	case domain.TransactionStatusPending, domain.TransactionStatusSigned:
		return RecoveryStateTransactionEstimated
	case domain.TransactionStatusSubmitted:
		return RecoveryStateSubmitted
	case domain.TransactionStatusConfirmed:
		return RecoveryStateConfirmed
	case domain.TransactionStatusFailed:
		return RecoveryStateFailed
	default:
		return RecoveryStateAddressEntered
	}
}

func (s *recoveryService) walletRepo() domain.WalletRepository {
	return s.repoManager.WalletRepository()
}

func (s *recoveryService) txRepo() domain.TransactionRepository {
	return s.repoManager.TransactionRepository()
}

func (s *recoveryService) resolveWalletID(
	ctx context.Context, walletID string,
) (string, error) {
	if walletID != "" {
		return walletID, nil
	}
	wallet, err := s.walletRepo().GetSelectedWallet(ctx)
	if err != nil {
		return "", err
	}
	return wallet.ID, nil
}

func (s *recoveryService) getWallet(
	ctx context.Context, walletID string,
) (*domain.Wallet, error) {
	if walletID == "" {
		return s.walletRepo().GetSelectedWallet(ctx)
	}
	return s.walletRepo().GetWallet(ctx, walletID)
}

// latestRecoveryTransaction returns the recovery transaction of the wallet
// that is not confirmed, rejected or failed, if any.
func (s *recoveryService) latestRecoveryTransaction(
	ctx context.Context, walletID string,
) (*domain.Transaction, error) {
	tx, err := s.txRepo().GetLatestTransaction(
		ctx, walletID, domain.TransactionTypeWalletRecovery,
	)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if tx.IsTerminal() {
		return nil, nil
	}
	return tx, nil
}

// resetProcess starts over the in-memory recovery state of the wallet.
func (s *recoveryService) resetProcess(walletID string, state RecoveryState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.processes[walletID] = &recoveryProcess{state: state}
}

// setState moves the recovery of the wallet to the given state, keeping
// the rest of the in-memory state.
func (s *recoveryService) setState(walletID string, state RecoveryState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ok := s.processes[walletID]
	if !ok {
		p = &recoveryProcess{}
		s.processes[walletID] = p
	}
	p.state = state
}

func (s *recoveryService) currentState(walletID string) RecoveryState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if p, ok := s.processes[walletID]; ok {
		return p.state
	}
	return RecoveryStateIdle
}

func (s *recoveryService) publish(event ports.Event) {
	s.lock.RLock()
	p, ok := s.processes[event.WalletID()]
	muted := ok && p.muted
	s.lock.RUnlock()

	if muted {
		log.Debugf(
			"dropped event %s for cancelled recovery of wallet %s",
			event.Type(), event.WalletID(),
		)
		return
	}
	s.bus.Publish(event)
}
