package ethrelay_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	ethrelay "github.com/safe-network/safe-recoveryd/internal/infrastructure/relay/ethereum"
	"github.com/safe-network/safe-recoveryd/pkg/safe"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	relayerKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	walletAddr = "0x5aFE000000000000000000000000000000000001"
	tokenAddr  = "0x70Ce000000000000000000000000000000000002"
)

var (
	ctx     = context.Background()
	chainID = big.NewInt(4)
	owners  = []common.Address{
		common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		common.HexToAddress("0x00000000000000000000000000000000000000bb"),
	}
)

func newTestRelay(t *testing.T, backend *mockBackend) ports.Relay {
	relay, err := ethrelay.NewServiceWithBackend(backend, ethrelay.Opts{
		ChainID:           chainID.Int64(),
		RelayerPrivateKey: relayerKey,
		RequestsPerSec:    1000,
	})
	require.NoError(t, err)
	return relay
}

func TestNewService(t *testing.T) {
	_, err := ethrelay.NewService(ethrelay.Opts{})
	require.ErrorIs(t, err, ethrelay.ErrNullRPCEndpoint)

	_, err = ethrelay.NewServiceWithBackend(&mockBackend{}, ethrelay.Opts{})
	require.ErrorIs(t, err, ethrelay.ErrNullRelayerKey)

	_, err = ethrelay.NewServiceWithBackend(
		&mockBackend{}, ethrelay.Opts{RelayerPrivateKey: "not a key"},
	)
	require.Error(t, err)

	backend := &mockBackend{}
	backend.On("ChainID", mock.Anything).Return(chainID, nil)
	_, err = ethrelay.NewServiceWithBackend(
		backend, ethrelay.Opts{RelayerPrivateKey: "0x" + relayerKey},
	)
	require.NoError(t, err)
	backend.AssertExpectations(t)
}

func TestBalance(t *testing.T) {
	backend := &mockBackend{}
	backend.On("BalanceAt", mock.Anything, common.HexToAddress(walletAddr), mock.Anything).
		Return(big.NewInt(1000), nil)
	backend.On("CallContract", mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return msg.To != nil && *msg.To == common.HexToAddress(tokenAddr)
	}), mock.Anything).
		Return(common.LeftPadBytes([]byte{0x07}, 32), nil)
	relay := newTestRelay(t, backend)

	balance, err := relay.Balance(ctx, domain.Ether, walletAddr)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.Value().Int64())
	require.True(t, balance.Token.IsEther())

	token := domain.Token{Address: tokenAddr, Code: "TKN", Decimals: 6}
	balance, err = relay.Balance(ctx, token, walletAddr)
	require.NoError(t, err)
	require.Equal(t, int64(7), balance.Value().Int64())
	require.Equal(t, "TKN", balance.Token.Code)
}

func TestSafeInfo(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		backend := &mockBackend{}
		mockWalletContract(backend, 3)
		relay := newTestRelay(t, backend)

		info, err := relay.SafeInfo(ctx, walletAddr)
		require.NoError(t, err)
		require.Equal(t, walletAddr, info.Address)
		require.Equal(t, []string{owners[0].Hex(), owners[1].Hex()}, info.Owners)
		require.Equal(t, 2, info.Threshold)
		require.Equal(t, uint64(3), info.Nonce)
	})

	t.Run("no_contract", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("CodeAt", mock.Anything, mock.Anything, mock.Anything).
			Return([]byte{}, nil)
		relay := newTestRelay(t, backend)

		_, err := relay.SafeInfo(ctx, walletAddr)
		require.ErrorIs(t, err, domain.ErrInvalidContractAddress)
	})

	t.Run("malformed_address", func(t *testing.T) {
		relay := newTestRelay(t, &mockBackend{})

		_, err := relay.SafeInfo(ctx, "0x123")
		require.ErrorIs(t, err, domain.ErrInvalidContractAddress)
	})

	t.Run("node_failure", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("CodeAt", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))
		relay := newTestRelay(t, backend)

		_, err := relay.SafeInfo(ctx, walletAddr)
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrInvalidContractAddress)
	})
}

func TestTransactionStatus(t *testing.T) {
	hash := common.HexToHash("0x01")
	tests := []struct {
		name           string
		receipt        *types.Receipt
		err            error
		expectedStatus ports.TxStatus
	}{
		{
			name:           "not_mined",
			err:            ethereum.NotFound,
			expectedStatus: ports.TxStatusPending,
		},
		{
			name:           "confirmed",
			receipt:        &types.Receipt{Status: types.ReceiptStatusSuccessful},
			expectedStatus: ports.TxStatusConfirmed,
		},
		{
			name:           "reverted",
			receipt:        &types.Receipt{Status: types.ReceiptStatusFailed},
			expectedStatus: ports.TxStatusFailed,
		},
		{
			name: "execution_failure",
			receipt: &types.Receipt{
				Status: types.ReceiptStatusSuccessful,
				Logs: []*types.Log{{
					Topics: []common.Hash{
						crypto.Keccak256Hash([]byte("ExecutionFailure(bytes32,uint256)")),
					},
				}},
			},
			expectedStatus: ports.TxStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			backend.On("TransactionReceipt", mock.Anything, hash).Return(tt.receipt, tt.err)
			relay := newTestRelay(t, backend)

			status, err := relay.TransactionStatus(ctx, hash.Hex())
			require.NoError(t, err)
			require.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestEstimateAndSubmit(t *testing.T) {
	backend := &mockBackend{}
	mockWalletContract(backend, 5)
	backend.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(40000), nil)
	backend.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(2000000000), nil)
	backend.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(9), nil)
	backend.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)
	relay := newTestRelay(t, backend)

	data, err := safe.SwapOwner(safe.SentinelOwner, owners[0], common.HexToAddress("0xcc"))
	require.NoError(t, err)
	tx := domain.NewTransaction("wallet", domain.TransactionTypeWalletRecovery)
	require.NoError(t, tx.SetPayload(
		walletAddr, walletAddr, domain.ZeroAmount(domain.Ether), data,
		domain.OperationCall,
	))

	estimation, err := relay.EstimateFee(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), estimation.Nonce)
	require.Equal(t, int64(48000), estimation.Fee.Gas)
	require.Greater(t, estimation.Fee.DataGas, int64(21000))
	require.Equal(t, int64(20000+2*6000), estimation.Fee.OperationalGas)
	require.Equal(t, int64(2000000000), estimation.Fee.GasPrice.Value().Int64())

	require.NoError(t, tx.Estimate(estimation.Fee, estimation.Nonce))

	hash, err := relay.TransactionHash(ctx, tx)
	require.NoError(t, err)
	require.Len(t, hash, 32)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(hash, key)
	require.NoError(t, err)
	sig[64] += 27
	require.NoError(t, tx.Sign([]domain.Signature{{
		Signer: crypto.PubkeyToAddress(key.PublicKey).Hex(), Data: sig,
	}}))

	txHash, err := relay.Submit(ctx, tx)
	require.NoError(t, err)
	require.NotEmpty(t, txHash)

	sent := backend.Calls[len(backend.Calls)-1].Arguments.Get(1).(*types.Transaction)
	require.Equal(t, txHash, sent.Hash().Hex())
	require.Equal(t, common.HexToAddress(walletAddr), *sent.To())
	require.Equal(t, uint64(9), sent.Nonce())

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), sent)
	require.NoError(t, err)
	relayer, err := crypto.HexToECDSA(relayerKey)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(relayer.PublicKey), sender)
}

func TestEstimateDelegateCall(t *testing.T) {
	backend := &mockBackend{}
	mockWalletContract(backend, 0)
	backend.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1), nil)
	relay := newTestRelay(t, backend)

	tx := domain.NewTransaction("wallet", domain.TransactionTypeWalletRecovery)
	require.NoError(t, tx.SetPayload(
		walletAddr, tokenAddr, domain.ZeroAmount(domain.Ether), []byte{0x01},
		domain.OperationDelegateCall,
	))
	tx.OwnerChanges = make([]domain.OwnerChange, 2)

	estimation, err := relay.EstimateFee(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, int64((10000+2*30000)*12/10), estimation.Fee.Gas)
	backend.AssertNotCalled(t, "EstimateGas", mock.Anything, mock.Anything)
}

func mockWalletContract(backend *mockBackend, nonce int64) {
	wallet := common.HexToAddress(walletAddr)
	backend.On("CodeAt", mock.Anything, wallet, mock.Anything).
		Return([]byte{0x60, 0x80}, nil)

	encodedOwners := make([]byte, 0)
	encodedOwners = append(encodedOwners, common.LeftPadBytes([]byte{0x20}, 32)...)
	encodedOwners = append(
		encodedOwners, common.LeftPadBytes([]byte{byte(len(owners))}, 32)...,
	)
	for _, o := range owners {
		encodedOwners = append(encodedOwners, common.LeftPadBytes(o.Bytes(), 32)...)
	}

	backend.On("CallContract", mock.Anything, callTo(wallet, safe.GetOwnersCall()), mock.Anything).
		Return(encodedOwners, nil)
	backend.On("CallContract", mock.Anything, callTo(wallet, safe.GetThresholdCall()), mock.Anything).
		Return(common.LeftPadBytes([]byte{0x02}, 32), nil)
	backend.On("CallContract", mock.Anything, callTo(wallet, safe.NonceCall()), mock.Anything).
		Return(common.LeftPadBytes(big.NewInt(nonce).Bytes(), 32), nil)
}

func callTo(to common.Address, data []byte) interface{} {
	return mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return msg.To != nil && *msg.To == to && bytes.Equal(msg.Data, data)
	})
}

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)

	var res *big.Int
	if a := args.Get(0); a != nil {
		res = a.(*big.Int)
	}
	return res, args.Error(1)
}

func (m *mockBackend) BalanceAt(
	ctx context.Context, account common.Address, blockNumber *big.Int,
) (*big.Int, error) {
	args := m.Called(ctx, account, blockNumber)

	var res *big.Int
	if a := args.Get(0); a != nil {
		res = a.(*big.Int)
	}
	return res, args.Error(1)
}

func (m *mockBackend) CodeAt(
	ctx context.Context, account common.Address, blockNumber *big.Int,
) ([]byte, error) {
	args := m.Called(ctx, account, blockNumber)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockBackend) CallContract(
	ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
) ([]byte, error) {
	args := m.Called(ctx, msg, blockNumber)

	var res []byte
	if a := args.Get(0); a != nil {
		res = a.([]byte)
	}
	return res, args.Error(1)
}

func (m *mockBackend) EstimateGas(
	ctx context.Context, msg ethereum.CallMsg,
) (uint64, error) {
	args := m.Called(ctx, msg)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)

	var res *big.Int
	if a := args.Get(0); a != nil {
		res = a.(*big.Int)
	}
	return res, args.Error(1)
}

func (m *mockBackend) PendingNonceAt(
	ctx context.Context, account common.Address,
) (uint64, error) {
	args := m.Called(ctx, account)

	var res uint64
	if a := args.Get(0); a != nil {
		res = a.(uint64)
	}
	return res, args.Error(1)
}

func (m *mockBackend) SendTransaction(
	ctx context.Context, tx *types.Transaction,
) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockBackend) TransactionReceipt(
	ctx context.Context, txHash common.Hash,
) (*types.Receipt, error) {
	args := m.Called(ctx, txHash)

	var res *types.Receipt
	if a := args.Get(0); a != nil {
		res = a.(*types.Receipt)
	}
	return res, args.Error(1)
}
