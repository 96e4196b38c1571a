package application

import (
	"context"
	"sync"
)

// walletSlots serializes the operations on the same wallet. Operations on
// different wallets never wait for each other.
type walletSlots struct {
	lock  sync.Mutex
	slots map[string]chan struct{}
	ops   map[string]map[uint64]context.CancelFunc
	next  uint64
}

func newWalletSlots() *walletSlots {
	return &walletSlots{
		slots: make(map[string]chan struct{}),
		ops:   make(map[string]map[uint64]context.CancelFunc),
	}
}

// acquire registers a new operation for the wallet and waits for its turn.
// The returned context is cancelled either by the caller's one or by
// cancelAll. release must always be called.
func (w *walletSlots) acquire(
	ctx context.Context, walletID string,
) (context.Context, func(), error) {
	opCtx, cancel := context.WithCancel(ctx)

	w.lock.Lock()
	slot, ok := w.slots[walletID]
	if !ok {
		slot = make(chan struct{}, 1)
		w.slots[walletID] = slot
	}
	if _, ok := w.ops[walletID]; !ok {
		w.ops[walletID] = make(map[uint64]context.CancelFunc)
	}
	id := w.next
	w.next++
	w.ops[walletID][id] = cancel
	w.lock.Unlock()

	unregister := func() {
		w.lock.Lock()
		delete(w.ops[walletID], id)
		w.lock.Unlock()
		cancel()
	}

	select {
	case slot <- struct{}{}:
		return opCtx, func() {
			<-slot
			unregister()
		}, nil
	case <-opCtx.Done():
		unregister()
		return nil, nil, opCtx.Err()
	}
}

// acquireExclusive waits for the turn without registering an operation
// that cancelAll can stop.
func (w *walletSlots) acquireExclusive(
	ctx context.Context, walletID string,
) (func(), error) {
	w.lock.Lock()
	slot, ok := w.slots[walletID]
	if !ok {
		slot = make(chan struct{}, 1)
		w.slots[walletID] = slot
	}
	w.lock.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cancelAll cancels every operation registered for the wallet, running or
// waiting for its turn.
func (w *walletSlots) cancelAll(walletID string) {
	w.lock.Lock()
	cancels := make([]context.CancelFunc, 0, len(w.ops[walletID]))
	for _, cancel := range w.ops[walletID] {
		cancels = append(cancels, cancel)
	}
	w.lock.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
