package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func (s *recoveryService) CancelRecovery(
	ctx context.Context, walletID string,
) error {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}

	// mute first so that whatever is in flight can't publish anymore.
	s.lock.Lock()
	p, ok := s.processes[walletID]
	if !ok {
		p = &recoveryProcess{}
		s.processes[walletID] = p
	}
	wasActive := p.state != RecoveryStateIdle && !p.state.IsTerminal()
	p.muted = true
	s.lock.Unlock()

	s.slots.cancelAll(walletID)
	release, err := s.slots.acquireExclusive(ctx, walletID)
	if err != nil {
		return err
	}
	defer release()

	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}
	if !wallet.IsRecoveryInProgress && !wasActive {
		return nil
	}

	tx, err := s.latestRecoveryTransaction(ctx, walletID)
	if err != nil {
		return TranslateError(err)
	}
	if tx != nil && !tx.IsSubmitted() {
		if err := s.txRepo().UpdateTransaction(
			ctx, tx.ID, func(t *domain.Transaction) (*domain.Transaction, error) {
				if err := t.Reject(); err != nil {
					return nil, err
				}
				return t, nil
			},
		); err != nil {
			return TranslateError(err)
		}
	}
	if tx != nil {
		s.stopObservingTransaction(tx.ID)
	}
	s.stopObservingBalance(walletID)

	if wallet.IsRecoveryInProgress {
		if err := s.walletRepo().UpdateWallet(
			ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
				w.CancelRecovery()
				return w, nil
			},
		); err != nil {
			return TranslateError(err)
		}
	}

	s.lock.Lock()
	s.processes[walletID] = &recoveryProcess{
		state: RecoveryStateCancelled,
		muted: true,
	}
	s.lock.Unlock()

	log.Infof("recovery of wallet %s cancelled", walletID)
	return nil
}

func (s *recoveryService) Resume(
	ctx context.Context, walletID string, w *Watcher,
) *Task[RecoveryState] {
	walletID, err := s.resolveWalletID(ctx, walletID)
	if err != nil {
		return failedTask[RecoveryState](TranslateError(err))
	}
	s.watch(
		walletID, w,
		ports.EventWalletRecovered,
		ports.EventRecoveryTransactionHashIsKnown,
	)

	return runTask(ctx, func(ctx context.Context) (RecoveryState, error) {
		// concurrent resumes of the same wallet share the outcome of the first
		v, err, _ := s.resumeGroup.Do(walletID, func() (interface{}, error) {
			return s.resume(ctx, walletID)
		})
		if err != nil {
			err = TranslateError(err)
			if !errors.Is(err, context.Canceled) {
				s.reportError(walletID, err)
			}
			return RecoveryStateIdle, err
		}
		return v.(RecoveryState), nil
	})
}

func (s *recoveryService) resume(
	ctx context.Context, walletID string,
) (RecoveryState, error) {
	ctx, release, err := s.slots.acquire(ctx, walletID)
	if err != nil {
		return RecoveryStateIdle, err
	}
	defer release()

	wallet, err := s.walletRepo().GetWallet(ctx, walletID)
	if err != nil {
		return RecoveryStateIdle, err
	}
	if !wallet.IsRecoveryInProgress {
		return s.currentState(walletID), nil
	}

	tx, err := s.txRepo().GetLatestTransaction(
		ctx, walletID, domain.TransactionTypeWalletRecovery,
	)
	if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
		return RecoveryStateIdle, err
	}
	if tx == nil || tx.Status == domain.TransactionStatusDraft ||
		tx.Status == domain.TransactionStatusRejected {
		s.restoreProcess(walletID, RecoveryStateAddressEntered)
		return s.currentState(walletID), nil
	}

	log.Debugf(
		"resuming recovery of wallet %s with transaction %s in status %s",
		walletID, tx.ID, tx.Status,
	)

	switch tx.Status {
	case domain.TransactionStatusPending, domain.TransactionStatusSigned:
		s.restoreProcess(walletID, RecoveryStateTransactionEstimated)
		if _, err := s.checkFunds(ctx, walletID, wallet.Address, tx); err != nil {
			return s.currentState(walletID), err
		}
		if !s.isReady(walletID) {
			s.observeBalance(walletID, wallet.Address, tx.FeeEstimate.GasPrice.Token)
			return s.currentState(walletID), nil
		}
		if tx.Status != domain.TransactionStatusSigned || !s.autoSubmit {
			return s.currentState(walletID), nil
		}
		if _, err := s.submit(ctx, walletID); err != nil {
			return s.currentState(walletID), err
		}
		return s.currentState(walletID), nil

	case domain.TransactionStatusSubmitted:
		s.restoreProcess(walletID, RecoveryStateSubmitted)
		s.publish(ports.RecoveryTransactionHashIsKnown{
			Wallet: walletID, TransactionID: tx.ID, Hash: tx.Hash,
		})
		status, err := s.relay.TransactionStatus(ctx, tx.Hash)
		if err != nil {
			return s.currentState(walletID), err
		}
		switch status {
		case ports.TxStatusConfirmed:
			err = s.confirm(ctx, walletID, tx.ID)
		case ports.TxStatusFailed:
			err = s.fail(ctx, walletID, tx.ID)
		default:
			s.observeTransaction(walletID, tx.ID, tx.Hash)
		}
		return s.currentState(walletID), err

	case domain.TransactionStatusConfirmed:
		err := s.confirm(ctx, walletID, tx.ID)
		return s.currentState(walletID), err

	default:
		err := s.fail(ctx, walletID, tx.ID)
		return s.currentState(walletID), err
	}
}

func (s *recoveryService) ResumeInBackground(ctx context.Context) *Task[int] {
	return runTask(ctx, func(ctx context.Context) (int, error) {
		wallets, err := s.walletRepo().GetWalletsInRecovery(ctx)
		if err != nil {
			return 0, TranslateError(err)
		}

		g := &errgroup.Group{}
		if s.maxParallelResumes > 0 {
			g.SetLimit(s.maxParallelResumes)
		}

		lock := &sync.Mutex{}
		errs := make([]error, 0)
		for _, w := range wallets {
			walletID := w.ID
			g.Go(func() error {
				state, err := s.Resume(ctx, walletID, nil).Wait(ctx)
				if err != nil {
					log.WithError(err).Warnf(
						"failed to resume recovery of wallet %s", walletID,
					)
					lock.Lock()
					errs = append(errs, fmt.Errorf("wallet %s: %w", walletID, err))
					lock.Unlock()
					return nil
				}
				log.Infof("recovery of wallet %s resumed in state %s", walletID, state)
				return nil
			})
		}
		_ = g.Wait()

		return len(wallets), errors.Join(errs...)
	})
}

// confirmRecovery finalizes the recovery of the wallet once its transaction
// is mined.
func (s *recoveryService) confirmRecovery(
	ctx context.Context, walletID, txID string,
) error {
	release, err := s.slots.acquireExclusive(ctx, walletID)
	if err != nil {
		return err
	}
	defer release()
	return s.confirm(ctx, walletID, txID)
}

// confirm requires the caller to hold the wallet slot.
func (s *recoveryService) confirm(
	ctx context.Context, walletID, txID string,
) error {
	var tx *domain.Transaction
	if err := s.txRepo().UpdateTransaction(
		ctx, txID, func(t *domain.Transaction) (*domain.Transaction, error) {
			if err := t.Confirm(); err != nil {
				return nil, err
			}
			tx = t
			return t, nil
		},
	); err != nil {
		return err
	}
	s.stopObservingTransaction(txID)

	err := s.walletRepo().UpdateWallet(
		ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
			if err := w.FinishRecovery(tx.ProposedOwners, tx.ProposedThreshold); err != nil {
				return nil, err
			}
			return w, nil
		},
	)
	if errors.Is(err, domain.ErrRecoveryNotInProgress) {
		log.Infof(
			"transaction %s of cancelled recovery of wallet %s confirmed",
			txID, walletID,
		)
		return nil
	}
	if err != nil {
		return err
	}

	s.lock.Lock()
	p, ok := s.processes[walletID]
	if !ok {
		p = &recoveryProcess{}
		s.processes[walletID] = p
	}
	p.state = RecoveryStateConfirmed
	p.accounts = nil
	p.ready = false
	s.lock.Unlock()

	s.publish(ports.WalletRecovered{Wallet: walletID, TransactionID: txID})
	log.Infof("wallet %s recovered", walletID)
	return nil
}

func (s *recoveryService) failRecovery(
	ctx context.Context, walletID, txID string,
) error {
	release, err := s.slots.acquireExclusive(ctx, walletID)
	if err != nil {
		return err
	}
	defer release()
	return s.fail(ctx, walletID, txID)
}

// fail requires the caller to hold the wallet slot.
func (s *recoveryService) fail(
	ctx context.Context, walletID, txID string,
) error {
	if err := s.txRepo().UpdateTransaction(
		ctx, txID, func(t *domain.Transaction) (*domain.Transaction, error) {
			if err := t.Fail(); err != nil {
				return nil, err
			}
			return t, nil
		},
	); err != nil {
		return err
	}
	s.stopObservingTransaction(txID)

	if err := s.walletRepo().UpdateWallet(
		ctx, walletID, func(w *domain.Wallet) (*domain.Wallet, error) {
			w.CancelRecovery()
			return w, nil
		},
	); err != nil {
		return err
	}

	s.lock.Lock()
	p, ok := s.processes[walletID]
	if !ok {
		p = &recoveryProcess{}
		s.processes[walletID] = p
	}
	muted := p.muted
	p.state = RecoveryStateFailed
	p.accounts = nil
	p.ready = false
	s.lock.Unlock()

	log.Warnf("recovery transaction %s of wallet %s failed", txID, walletID)
	if !muted {
		s.reportError(walletID, ErrRecoveryTransactionFailed)
	}
	return nil
}

// restoreProcess makes sure the in-memory state exists for a recovery
// resumed from the persisted records, without dropping the recovery
// accounts still known.
func (s *recoveryService) restoreProcess(walletID string, state RecoveryState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ok := s.processes[walletID]
	if !ok {
		s.processes[walletID] = &recoveryProcess{state: state}
		return
	}
	if state == RecoveryStateAddressEntered && len(p.accounts) > 0 {
		state = RecoveryStateAccountsDerived
	}
	switch p.state {
	case RecoveryStateAwaitingFunds, RecoveryStateReadyToSubmit:
		if state == RecoveryStateTransactionEstimated {
			return
		}
	}
	p.state = state
}

func (s *recoveryService) isReady(walletID string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	p, ok := s.processes[walletID]
	return ok && p.ready
}
