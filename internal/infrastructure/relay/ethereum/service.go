package ethrelay

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/circuitbreaker"
	"github.com/safe-network/safe-recoveryd/pkg/safe"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

var (
	// ErrNullRPCEndpoint ...
	ErrNullRPCEndpoint = errors.New("rpc endpoint must not be null")
	// ErrNullRelayerKey ...
	ErrNullRelayerKey = errors.New("relayer private key must not be null")
	// ErrUnsupportedGasToken ...
	ErrUnsupportedGasToken = errors.New("only ether is supported as gas token")
)

// Backend is the subset of the node client API used by the relay.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(
		ctx context.Context, account common.Address, blockNumber *big.Int,
	) (*big.Int, error)
	CodeAt(
		ctx context.Context, account common.Address, blockNumber *big.Int,
	) ([]byte, error)
	CallContract(
		ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int,
	) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(
		ctx context.Context, txHash common.Hash,
	) (*types.Receipt, error)
}

// Opts defines the parameters needed for creating a relay with NewService.
type Opts struct {
	RPCEndpoint string
	// ChainID selects the EIP-712 domain of the wallet contracts. If zero,
	// the legacy domain binding the contract address only is used.
	ChainID            int64
	RelayerPrivateKey  string
	RequestsPerSec     int
	UseChainIDInDomain bool
}

type service struct {
	backend     Backend
	chainID     *big.Int
	domainChain *big.Int
	relayerKey  *ecdsa.PrivateKey
	relayer     common.Address
	cb          *gobreaker.CircuitBreaker
	rateLimiter ratelimit.Limiter
}

// NewService dials the node at the given endpoint and returns a relay
// submitting transactions on behalf of the wallets with the relayer key.
func NewService(opts Opts) (ports.Relay, error) {
	if opts.RPCEndpoint == "" {
		return nil, ErrNullRPCEndpoint
	}
	client, err := ethclient.Dial(opts.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}
	return NewServiceWithBackend(client, opts)
}

// NewServiceWithBackend returns a relay using the given node client.
func NewServiceWithBackend(backend Backend, opts Opts) (ports.Relay, error) {
	if opts.RelayerPrivateKey == "" {
		return nil, ErrNullRelayerKey
	}
	key, err := crypto.HexToECDSA(trimHexPrefix(opts.RelayerPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid relayer private key: %w", err)
	}

	chainID := big.NewInt(opts.ChainID)
	if opts.ChainID <= 0 {
		id, err := backend.ChainID(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		chainID = id
	}
	var domainChain *big.Int
	if opts.UseChainIDInDomain {
		domainChain = chainID
	}

	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}

	relayer := crypto.PubkeyToAddress(key.PublicKey)
	log.Infof("relay initialized on chain %s with relayer %s", chainID, relayer)

	return &service{
		backend:     backend,
		chainID:     chainID,
		domainChain: domainChain,
		relayerKey:  key,
		relayer:     relayer,
		cb:          circuitbreaker.NewCircuitBreaker("relay"),
		rateLimiter: ratelimit.New(rps),
	}, nil
}

func (s *service) Balance(
	ctx context.Context, token domain.Token, walletAddress string,
) (domain.TokenAmount, error) {
	addr := common.HexToAddress(walletAddress)

	if token.IsEther() {
		balance, err := callWithBreaker(s, func() (*big.Int, error) {
			return s.backend.BalanceAt(ctx, addr, nil)
		})
		if err != nil {
			return domain.TokenAmount{}, fmt.Errorf("failed to get balance: %w", err)
		}
		return domain.NewTokenAmount(token, balance), nil
	}

	data, err := safe.BalanceOfCall(addr)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	tokenAddr := common.HexToAddress(token.Address)
	result, err := callWithBreaker(s, func() ([]byte, error) {
		return s.backend.CallContract(
			ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil,
		)
	})
	if err != nil {
		return domain.TokenAmount{}, fmt.Errorf("failed to get token balance: %w", err)
	}
	balance, err := safe.UnpackUint(result)
	if err != nil {
		return domain.TokenAmount{}, err
	}
	return domain.NewTokenAmount(token, balance), nil
}

func (s *service) SafeInfo(
	ctx context.Context, address string,
) (*ports.SafeInfo, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}
	walletAddr := common.HexToAddress(addr)

	code, err := callWithBreaker(s, func() ([]byte, error) {
		return s.backend.CodeAt(ctx, walletAddr, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get contract code: %w", err)
	}
	if len(code) <= 0 {
		return nil, domain.ErrInvalidContractAddress
	}

	ownersResult, err := s.call(ctx, walletAddr, safe.GetOwnersCall())
	if err != nil {
		return nil, err
	}
	owners, err := safe.UnpackOwners(ownersResult)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}

	thresholdResult, err := s.call(ctx, walletAddr, safe.GetThresholdCall())
	if err != nil {
		return nil, err
	}
	threshold, err := safe.UnpackUint(thresholdResult)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}

	nonceResult, err := s.call(ctx, walletAddr, safe.NonceCall())
	if err != nil {
		return nil, err
	}
	nonce, err := safe.UnpackUint(nonceResult)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}

	ownerAddresses := make([]string, 0, len(owners))
	for _, o := range owners {
		ownerAddresses = append(ownerAddresses, o.Hex())
	}

	return &ports.SafeInfo{
		Address:   addr,
		Owners:    ownerAddresses,
		Threshold: int(threshold.Int64()),
		Nonce:     nonce.Uint64(),
	}, nil
}

func (s *service) TransactionStatus(
	ctx context.Context, hash string,
) (ports.TxStatus, error) {
	receipt, err := callWithBreaker(s, func() (*types.Receipt, error) {
		r, err := s.backend.TransactionReceipt(ctx, common.HexToHash(hash))
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return r, err
	})
	if err != nil {
		return ports.TxStatusPending, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return ports.TxStatusPending, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return ports.TxStatusFailed, nil
	}
	if executionFailed(receipt) {
		return ports.TxStatusFailed, nil
	}
	return ports.TxStatusConfirmed, nil
}

func (s *service) call(
	ctx context.Context, to common.Address, data []byte,
) ([]byte, error) {
	result, err := callWithBreaker(s, func() ([]byte, error) {
		return s.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call wallet contract: %w", err)
	}
	return result, nil
}

// callWithBreaker runs the request through the rate limiter and the circuit
// breaker.
func callWithBreaker[T any](s *service, fn func() (T, error)) (T, error) {
	s.rateLimiter.Take()

	var zero T
	res, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	return res.(T), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
