package application

import (
	"context"
	"errors"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	log "github.com/sirupsen/logrus"
)

func (s *recoveryService) Start() {
	if s.crawler == nil {
		return
	}
	go s.crawler.Start()
	go s.handleChainEvents()
}

func (s *recoveryService) Stop() {
	if s.crawler == nil {
		return
	}
	s.crawler.Stop()
}

func (s *recoveryService) handleChainEvents() {
	for event := range s.crawler.GetEventChannel() {
		ctx := context.Background()

		switch e := event.(type) {
		case crawler.CloseEvent:
			return
		case crawler.BalanceEvent:
			if err := s.handleBalanceEvent(ctx, e); err != nil {
				log.WithError(err).Warnf(
					"failed to handle balances of wallet %s", e.WalletID,
				)
			}
		case crawler.TransactionEvent:
			if err := s.handleTransactionEvent(ctx, e); err != nil {
				log.WithError(err).Warnf(
					"failed to handle status of transaction %s", e.Hash,
				)
			}
		}
	}
}

// handleBalanceEvent recomputes the readiness of the recovery of the wallet.
// The observation stops once there's no recovery transaction waiting for
// funds anymore.
func (s *recoveryService) handleBalanceEvent(
	ctx context.Context, event crawler.BalanceEvent,
) error {
	tx, err := s.latestRecoveryTransaction(ctx, event.WalletID)
	if err != nil {
		return err
	}
	if tx == nil || tx.IsSubmitted() {
		s.stopObservingBalance(event.WalletID)
		return nil
	}

	becameReady := s.updateBalances(event.WalletID, tx, event.Balances)
	if !becameReady || !s.autoSubmit {
		return nil
	}

	go func() {
		if _, err := s.SubmitRecoveryTransaction(
			context.Background(), event.WalletID,
		); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warnf(
				"failed to submit recovery transaction of wallet %s",
				event.WalletID,
			)
			s.reportError(event.WalletID, err)
		}
	}()
	return nil
}

func (s *recoveryService) handleTransactionEvent(
	ctx context.Context, event crawler.TransactionEvent,
) error {
	switch event.Type() {
	case crawler.TransactionConfirmed:
		err := s.confirmRecovery(ctx, event.WalletID, event.TxID)
		if errors.Is(err, domain.ErrTransactionMustBeSubmitted) {
			s.stopObservingTransaction(event.TxID)
			return nil
		}
		return err
	case crawler.TransactionFailed:
		err := s.failRecovery(ctx, event.WalletID, event.TxID)
		if errors.Is(err, domain.ErrTransactionMustBeSubmitted) {
			s.stopObservingTransaction(event.TxID)
			return nil
		}
		return err
	default:
		return nil
	}
}
