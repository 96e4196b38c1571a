package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const (
	New       Status = "NEW"
	Waiting   Status = "WAITING"
	Processed Status = "PROCESSED"
)

type Status string

type observableStatus struct {
	sync.RWMutex
	status Status
}

func newObservableStatus() *observableStatus {
	return &observableStatus{
		status: New,
	}
}

func (o *observableStatus) Get() Status {
	o.RLock()
	defer o.RUnlock()
	return o.status
}

func (o *observableStatus) Set(status Status) {
	o.Lock()
	defer o.Unlock()
	o.status = status
}

// BalanceObservable watches the balances of a wallet for the given tokens.
type BalanceObservable struct {
	WalletID string
	Address  string
	Tokens   []domain.Token
}

// NewBalanceObservable returns an observable for the balances of the wallet.
// Ether is watched if no token is given.
func NewBalanceObservable(
	walletID, address string, tokens ...domain.Token,
) *BalanceObservable {
	if len(tokens) <= 0 {
		tokens = []domain.Token{domain.Ether}
	}
	return &BalanceObservable{
		WalletID: walletID,
		Address:  address,
		Tokens:   tokens,
	}
}

func (b *BalanceObservable) observe(
	ctx context.Context, source ChainSource, rateLimiter ratelimit.Limiter,
) (Event, error) {
	balances := make([]domain.TokenAmount, 0, len(b.Tokens))
	for _, token := range b.Tokens {
		rateLimiter.Take()
		balance, err := source.Balance(ctx, token, b.Address)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}

	return BalanceEvent{
		WalletID: b.WalletID,
		Address:  b.Address,
		Balances: balances,
	}, nil
}

func (b *BalanceObservable) key() string {
	return "balance:" + b.WalletID
}

// TransactionObservable watches the status of a submitted transaction.
type TransactionObservable struct {
	WalletID string
	TxID     string
	Hash     string
}

func NewTransactionObservable(
	walletID, txID, hash string,
) *TransactionObservable {
	return &TransactionObservable{
		WalletID: walletID,
		TxID:     txID,
		Hash:     hash,
	}
}

func (t *TransactionObservable) observe(
	ctx context.Context, source ChainSource, rateLimiter ratelimit.Limiter,
) (Event, error) {
	rateLimiter.Take()
	status, err := source.TransactionStatus(ctx, t.Hash)
	if err != nil {
		return nil, err
	}

	return TransactionEvent{
		EventType: eventTypeFromTxStatus(status),
		WalletID:  t.WalletID,
		TxID:      t.TxID,
		Hash:      t.Hash,
	}, nil
}

func (t *TransactionObservable) key() string {
	return "tx:" + t.TxID
}

type observableHandler struct {
	observable       Observable
	source           ChainSource
	ticker           *time.Ticker
	eventChan        chan Event
	errChan          chan error
	ctx              context.Context
	cancel           context.CancelFunc
	done             chan struct{}
	observableStatus *observableStatus
	rateLimiter      ratelimit.Limiter
}

func newObservableHandler(
	observable Observable,
	source ChainSource,
	interval time.Duration,
	eventChan chan Event,
	errChan chan error,
	rateLimiter ratelimit.Limiter,
) *observableHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &observableHandler{
		observable:       observable,
		source:           source,
		ticker:           time.NewTicker(interval),
		eventChan:        eventChan,
		errChan:          errChan,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
		observableStatus: newObservableStatus(),
		rateLimiter:      rateLimiter,
	}
}

func (oh *observableHandler) start() {
	oh.logAction("start")
	defer close(oh.done)

	// first observation happens right away, not after the first tick
	oh.tick()
	for {
		select {
		case <-oh.ticker.C:
			oh.tick()
		case <-oh.ctx.Done():
			oh.ticker.Stop()
			return
		}
	}
}

func (oh *observableHandler) tick() {
	if oh.observableStatus.Get() == Waiting {
		return
	}

	oh.observableStatus.Set(Waiting)
	event, err := oh.observable.observe(oh.ctx, oh.source, oh.rateLimiter)
	oh.observableStatus.Set(Processed)

	if oh.ctx.Err() != nil {
		return
	}
	if err != nil {
		select {
		case oh.errChan <- err:
		default:
			log.WithError(err).Warn("crawler: error queue full, dropping error")
		}
		return
	}

	select {
	case oh.eventChan <- event:
	case <-oh.ctx.Done():
	}
}

func (oh *observableHandler) stop() {
	oh.logAction("stop")
	oh.cancel()
	<-oh.done
}

func (oh *observableHandler) logAction(action string) {
	switch obs := oh.observable.(type) {
	case *BalanceObservable:
		log.Debugf("%s observing balances of wallet: %v", action, obs.WalletID)
	case *TransactionObservable:
		log.Debugf("%s observing tx: %v", action, obs.Hash)
	}
}
