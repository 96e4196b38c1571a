package application

import (
	"context"
	"sync"

	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// **** Relay ****

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Balance(
	ctx context.Context, token domain.Token, walletAddress string,
) (domain.TokenAmount, error) {
	args := m.Called(ctx, token, walletAddress)

	var res domain.TokenAmount
	if a := args.Get(0); a != nil {
		res = a.(domain.TokenAmount)
	}
	return res, args.Error(1)
}

func (m *mockRelay) SafeInfo(
	ctx context.Context, address string,
) (*ports.SafeInfo, error) {
	args := m.Called(ctx, address)

	var res *ports.SafeInfo
	if a := args.Get(0); a != nil {
		res = a.(*ports.SafeInfo)
	}
	return res, args.Error(1)
}

func (m *mockRelay) EstimateFee(
	ctx context.Context, tx *domain.Transaction,
) (*ports.Estimation, error) {
	args := m.Called(ctx, tx)

	var res *ports.Estimation
	if a := args.Get(0); a != nil {
		res = a.(*ports.Estimation)
	}
	return res, args.Error(1)
}

func (m *mockRelay) TransactionHash(
	ctx context.Context, tx *domain.Transaction,
) ([]byte, error) {
	args := m.Called(ctx, tx)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockRelay) Submit(
	ctx context.Context, tx *domain.Transaction,
) (string, error) {
	args := m.Called(ctx, tx)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

func (m *mockRelay) TransactionStatus(
	ctx context.Context, hash string,
) (ports.TxStatus, error) {
	args := m.Called(ctx, hash)

	var res ports.TxStatus
	if a := args.Get(0); a != nil {
		res = a.(ports.TxStatus)
	}
	return res, args.Error(1)
}

// **** Device keys ****

type mockDeviceKeys struct {
	mock.Mock
}

func (m *mockDeviceKeys) DeviceAddress(
	ctx context.Context, walletID string,
) (string, error) {
	args := m.Called(ctx, walletID)

	var res string
	if a := args.Get(0); a != nil {
		res = a.(string)
	}
	return res, args.Error(1)
}

// **** Subscriber ****

type eventRecorder struct {
	id     string
	lock   sync.Mutex
	events []ports.Event
	errors []error
}

func newEventRecorder(id string) *eventRecorder {
	return &eventRecorder{id: id}
}

func (r *eventRecorder) ID() string {
	return r.id
}

func (r *eventRecorder) Notify(event ports.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) onError(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.errors = append(r.errors, err)
}

func (r *eventRecorder) count(eventType ports.EventType) int {
	r.lock.Lock()
	defer r.lock.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Type() == eventType {
			count++
		}
	}
	return count
}

func (r *eventRecorder) receivedErrors() []error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]error{}, r.errors...)
}
