package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	"github.com/safe-network/safe-recoveryd/pkg/safe"
	log "github.com/sirupsen/logrus"
)

func (s *recoveryService) CreateRecoveryTransaction(
	ctx context.Context, req RecoveryTransactionRequest, w *Watcher,
) *Task[string] {
	walletID, err := s.resolveWalletID(ctx, req.WalletID)
	if err != nil {
		return failedTask[string](TranslateError(err))
	}
	s.watch(
		walletID, w,
		ports.EventWalletBecameReadyForRecovery,
		ports.EventAccountsBalancesUpdated,
	)

	return runTask(ctx, func(ctx context.Context) (string, error) {
		txID, err := s.createRecoveryTransaction(ctx, walletID, req)
		if err != nil {
			err = TranslateError(err)
			if !errors.Is(err, context.Canceled) {
				s.reportError(walletID, err)
			}
			return "", err
		}
		return txID, nil
	})
}

func (s *recoveryService) createRecoveryTransaction(
	ctx context.Context, walletID string, req RecoveryTransactionRequest,
) (string, error) {
	ctx, release, err := s.slots.acquire(ctx, walletID)
	if err != nil {
		return "", err
	}
	defer release()

	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		return "", err
	}
	existing, err := s.latestRecoveryTransaction(ctx, walletID)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.IsSubmitted() {
		return existing.ID, nil
	}

	s.lock.RLock()
	var accounts []*domain.RecoveryAccount
	if p, ok := s.processes[walletID]; ok {
		accounts = p.accounts
	}
	s.lock.RUnlock()
	if len(accounts) <= 0 {
		// the signed transaction of a resumed recovery is kept as is.
		if existing != nil && existing.Status == domain.TransactionStatusSigned {
			return existing.ID, nil
		}
		return "", domain.ErrRecoveryAccountsNotFound
	}

	device, err := s.deviceKeys.DeviceAddress(ctx, walletID)
	if err != nil {
		return "", fmt.Errorf("failed to get device key: %w", err)
	}

	proposed, err := proposedOwnerSet(wallet, req, device)
	if err != nil {
		s.setState(walletID, RecoveryStatePhraseProvided)
		return "", err
	}
	plan, err := domain.ValidateOwnerReplacement(wallet.OwnerSet(), proposed)
	if err != nil {
		s.setState(walletID, RecoveryStatePhraseProvided)
		return "", err
	}
	recipient, data, op, err := s.buildPayload(wallet, plan)
	if err != nil {
		s.setState(walletID, RecoveryStatePhraseProvided)
		return "", err
	}

	tx := existing
	isNew := tx == nil
	if isNew {
		tx = domain.NewTransaction(walletID, domain.TransactionTypeWalletRecovery)
	}
	if err := tx.SetPayload(
		wallet.Address, recipient, domain.ZeroAmount(domain.Ether), data, op,
	); err != nil {
		s.setState(walletID, RecoveryStatePhraseProvided)
		return "", err
	}
	tx.SetOwnerChanges(plan)

	estimation, err := s.relay.EstimateFee(ctx, tx)
	if err != nil {
		return "", err
	}
	if err := tx.Estimate(estimation.Fee, estimation.Nonce); err != nil {
		s.setState(walletID, RecoveryStatePhraseProvided)
		return "", domain.ErrFailedToCreateValidTransaction
	}

	if err := s.sign(ctx, tx, accounts); err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if isNew {
		err = s.txRepo().AddTransaction(ctx, tx)
	} else {
		err = s.txRepo().UpdateTransaction(
			ctx, tx.ID, func(_ *domain.Transaction) (*domain.Transaction, error) {
				return tx, nil
			},
		)
	}
	if err != nil {
		return "", err
	}
	if err := s.walletRepo().UpdateWallet(
		ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
			if err := w.StartRecovery(); err != nil {
				return nil, err
			}
			return w, nil
		},
	); err != nil {
		return "", err
	}

	s.lock.Lock()
	if p, ok := s.processes[walletID]; ok {
		p.state = RecoveryStateTransactionEstimated
		p.ready = false
		p.balances = nil
	}
	s.lock.Unlock()

	log.Infof(
		"recovery transaction %s for wallet %s: %d owner changes, fee %s",
		tx.ID, walletID, len(plan.Changes), tx.FeeEstimate.TotalDisplayed(),
	)

	if _, err := s.checkFunds(ctx, walletID, wallet.Address, tx); err != nil {
		log.WithError(err).Warnf("failed to check funds of wallet %s", walletID)
	}
	s.observeBalance(walletID, wallet.Address, tx.FeeEstimate.GasPrice.Token)
	return tx.ID, nil
}

func (s *recoveryService) SubmitRecoveryTransaction(
	ctx context.Context, walletID string,
) (string, error) {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return "", TranslateError(err)
	}

	ctx, release, err := s.slots.acquire(ctx, walletID)
	if err != nil {
		return "", err
	}
	defer release()

	hash, err := s.submit(ctx, walletID)
	if err != nil {
		return "", TranslateError(err)
	}
	return hash, nil
}

// submit sends the recovery transaction of the wallet if its fee is covered.
// The caller must hold the wallet slot.
func (s *recoveryService) submit(
	ctx context.Context, walletID string,
) (string, error) {
	tx, err := s.latestRecoveryTransaction(ctx, walletID)
	if err != nil {
		return "", err
	}
	if tx == nil {
		return "", domain.ErrTransactionNotFound
	}
	if tx.IsSubmitted() {
		return tx.Hash, nil
	}
	if tx.Status != domain.TransactionStatusSigned {
		return "", ErrRecoveryTransactionNotReady
	}

	s.lock.RLock()
	p, ok := s.processes[walletID]
	ready := ok && p.ready
	s.lock.RUnlock()
	if !ready {
		return "", ErrRecoveryTransactionNotReady
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash, err := s.relay.Submit(ctx, tx)
	if err != nil {
		return "", err
	}

	// once sent, the transaction must be tracked even if the operation has
	// been cancelled meanwhile.
	ctx = context.WithoutCancel(ctx)
	if err := s.txRepo().UpdateTransaction(
		ctx, tx.ID, func(t *domain.Transaction) (*domain.Transaction, error) {
			if err := t.Submit(hash); err != nil {
				return nil, err
			}
			return t, nil
		},
	); err != nil {
		return "", err
	}

	s.setState(walletID, RecoveryStateSubmitted)
	s.publish(ports.RecoveryTransactionHashIsKnown{
		Wallet: walletID, TransactionID: tx.ID, Hash: hash,
	})
	s.stopObservingBalance(walletID)
	s.observeTransaction(walletID, tx.ID, hash)

	log.Infof("recovery transaction %s for wallet %s submitted", hash, walletID)
	return hash, nil
}

// checkFunds fetches the balance of the wallet in the fee token and updates
// the readiness of the recovery.
func (s *recoveryService) checkFunds(
	ctx context.Context, walletID, address string, tx *domain.Transaction,
) (bool, error) {
	balance, err := s.relay.Balance(ctx, tx.FeeEstimate.GasPrice.Token, address)
	if err != nil {
		return false, err
	}
	return s.updateBalances(walletID, tx, []domain.TokenAmount{balance}), nil
}

// updateBalances records the balances of the wallet and recomputes whether
// the fee of its recovery transaction is covered. It returns true only when
// the recovery becomes ready, ie. the fee was not covered before.
func (s *recoveryService) updateBalances(
	walletID string, tx *domain.Transaction, balances []domain.TokenAmount,
) bool {
	feeBalance := domain.ZeroAmount(tx.FeeEstimate.GasPrice.Token)
	for _, b := range balances {
		if b.Token.Equal(feeBalance.Token) {
			feeBalance = b
			break
		}
	}
	affordable := tx.Status == domain.TransactionStatusSigned &&
		domain.IsAffordable(tx.FeeEstimate, feeBalance)

	s.lock.Lock()
	p, ok := s.processes[walletID]
	if !ok {
		p = &recoveryProcess{state: RecoveryStateTransactionEstimated}
		s.processes[walletID] = p
	}
	changed := !sameBalances(p.balances, balances)
	becameReady := affordable && !p.ready
	p.balances = balances
	p.ready = affordable
	switch p.state {
	case RecoveryStateTransactionEstimated, RecoveryStateAwaitingFunds,
		RecoveryStateReadyToSubmit:
		if affordable {
			p.state = RecoveryStateReadyToSubmit
		} else {
			p.state = RecoveryStateAwaitingFunds
		}
	}
	s.lock.Unlock()

	if changed {
		s.publish(ports.AccountsBalancesUpdated{
			Wallet: walletID, Balances: balances,
		})
	}
	if becameReady {
		s.publish(ports.WalletBecameReadyForRecovery{
			Wallet: walletID, TransactionID: tx.ID,
		})
		log.Infof("wallet %s has the funds to pay for its recovery", walletID)
	}
	return becameReady
}

func (s *recoveryService) sign(
	ctx context.Context, tx *domain.Transaction,
	accounts []*domain.RecoveryAccount,
) error {
	hash, err := s.relay.TransactionHash(ctx, tx)
	if err != nil {
		return err
	}

	signatures := make([]domain.Signature, 0, len(accounts))
	for _, a := range accounts {
		sig, err := a.Sign(hash)
		if err != nil {
			return domain.ErrFailedToCreateValidTransaction
		}
		signatures = append(signatures, sig)
	}
	if err := tx.Sign(signatures); err != nil {
		return domain.ErrFailedToCreateValidTransaction
	}
	return nil
}

// buildPayload encodes the owner changes of the plan. A single change is a
// call to the wallet itself, more are batched with a delegate call to the
// multiSend contract.
func (s *recoveryService) buildPayload(
	wallet *domain.Wallet, plan *domain.OwnerChangePlan,
) (string, []byte, domain.Operation, error) {
	calls := make([][]byte, 0, len(plan.Changes))
	for _, c := range plan.Changes {
		data, err := encodeOwnerChange(c)
		if err != nil {
			return "", nil, 0, domain.ErrFailedToCreateValidTransactionData
		}
		calls = append(calls, data)
	}

	if len(calls) == 1 {
		return wallet.Address, calls[0], domain.OperationCall, nil
	}

	if !common.IsHexAddress(s.multiSendAddress) {
		return "", nil, 0, domain.ErrFailedToCreateValidTransactionData
	}
	walletAddr := common.HexToAddress(wallet.Address)
	txs := make([]safe.MultiSendTx, 0, len(calls))
	for _, data := range calls {
		txs = append(txs, safe.MultiSendTx{
			Operation: safe.Call,
			To:        walletAddr,
			Value:     big.NewInt(0),
			Data:      data,
		})
	}
	data, err := safe.MultiSend(txs)
	if err != nil {
		return "", nil, 0, domain.ErrFailedToCreateValidTransactionData
	}
	return common.HexToAddress(s.multiSendAddress).Hex(), data,
		domain.OperationDelegateCall, nil
}

func encodeOwnerChange(c domain.OwnerChange) ([]byte, error) {
	switch c.Type {
	case domain.OwnerChangeSwapOwner:
		return safe.SwapOwner(
			common.HexToAddress(c.PrevOwner),
			common.HexToAddress(c.OldOwner),
			common.HexToAddress(c.NewOwner),
		)
	case domain.OwnerChangeAddOwnerWithThreshold:
		return safe.AddOwnerWithThreshold(
			common.HexToAddress(c.NewOwner), c.Threshold,
		)
	case domain.OwnerChangeRemoveOwner:
		return safe.RemoveOwner(
			common.HexToAddress(c.PrevOwner),
			common.HexToAddress(c.OldOwner),
			c.Threshold,
		)
	case domain.OwnerChangeChangeThreshold:
		return safe.ChangeThreshold(c.Threshold)
	default:
		return nil, fmt.Errorf("unknown owner change %d", c.Type)
	}
}

// proposedOwnerSet returns the owners of the wallet once recovered: the
// device owner is replaced with the given device key, the second factor
// owner is replaced, added or removed as requested and all other owners are
// kept.
func proposedOwnerSet(
	wallet *domain.Wallet, req RecoveryTransactionRequest, device string,
) (domain.OwnerSet, error) {
	if req.Authenticator != nil && (!req.Authenticator.Role.IsAuthenticator() ||
		req.Authenticator.Role == domain.OwnerRoleSecondFactor) {
		return domain.OwnerSet{}, domain.ErrUnsupportedWalletConfiguration
	}
	connect := req.Authenticator != nil && !req.DisconnectAuthenticator
	replaceAuthenticator := req.Authenticator != nil || req.DisconnectAuthenticator

	owners := make(domain.OwnerList, 0, len(wallet.Owners)+1)
	for _, o := range wallet.Owners {
		switch {
		case o.Role == domain.OwnerRoleDevice:
			owners = append(owners, domain.Owner{
				Address: device, Role: domain.OwnerRoleDevice,
			})
		// An inferred second factor may be the lost device key.
		case o.Role == domain.OwnerRoleSecondFactor,
			o.Role.IsAuthenticator() && replaceAuthenticator:
			if connect {
				owners = append(owners, *req.Authenticator)
			}
		default:
			owners = append(owners, o)
		}
	}
	if connect && len(wallet.Owners.Authenticators()) <= 0 {
		owners = append(owners, *req.Authenticator)
	}

	proposed, err := domain.NewOwnerList(owners...)
	if err != nil {
		return domain.OwnerSet{}, domain.ErrFailedToChangeOwners
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = wallet.Threshold
		if threshold > len(proposed) {
			threshold = len(proposed)
		}
	}
	return domain.OwnerSet{Owners: proposed, Threshold: threshold}, nil
}

func (s *recoveryService) observeBalance(
	walletID, address string, token domain.Token,
) {
	if s.crawler == nil {
		return
	}
	s.crawler.AddObservable(crawler.NewBalanceObservable(walletID, address, token))
}

func (s *recoveryService) stopObservingBalance(walletID string) {
	if s.crawler == nil {
		return
	}
	s.crawler.RemoveObservable(crawler.NewBalanceObservable(walletID, ""))
}

func (s *recoveryService) observeTransaction(walletID, txID, hash string) {
	if s.crawler == nil {
		return
	}
	s.crawler.AddObservable(crawler.NewTransactionObservable(walletID, txID, hash))
}

func (s *recoveryService) stopObservingTransaction(txID string) {
	if s.crawler == nil {
		return
	}
	s.crawler.RemoveObservable(crawler.NewTransactionObservable("", txID, ""))
}

func sameBalances(a, b []domain.TokenAmount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Token.Equal(b[i].Token) || a[i].Value().Cmp(b[i].Value()) != 0 {
			return false
		}
	}
	return true
}
