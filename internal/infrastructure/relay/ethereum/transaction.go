package ethrelay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/safe-network/safe-recoveryd/internal/core/domain"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/safe"
	log "github.com/sirupsen/logrus"
)

const (
	txBaseGas            = 21000
	zeroByteGas          = 4
	nonZeroByteGas       = 16
	signatureLen         = 65
	operationalBaseGas   = 20000
	operationalSignerGas = 6000
	ownerChangeGas       = 30000
	delegateCallBaseGas  = 10000
	// gas estimates are increased by this percentage
	gasMarginPercent = 20
)

var (
	executionFailureTopic = crypto.Keccak256Hash(
		[]byte("ExecutionFailure(bytes32,uint256)"),
	)
	executionFailedTopic = crypto.Keccak256Hash([]byte("ExecutionFailed(bytes32)"))
)

func (s *service) TransactionHash(
	_ context.Context, tx *domain.Transaction,
) ([]byte, error) {
	safeTx, err := toSafeTransaction(tx)
	if err != nil {
		return nil, err
	}
	hash, err := safeTx.Hash(s.domainChain, common.HexToAddress(tx.Sender))
	if err != nil {
		return nil, fmt.Errorf("failed to hash transaction: %w", err)
	}
	return hash.Bytes(), nil
}

func (s *service) EstimateFee(
	ctx context.Context, tx *domain.Transaction,
) (*ports.Estimation, error) {
	wallet := common.HexToAddress(tx.Sender)

	nonceResult, err := s.call(ctx, wallet, safe.NonceCall())
	if err != nil {
		return nil, err
	}
	nonce, err := safe.UnpackUint(nonceResult)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}

	thresholdResult, err := s.call(ctx, wallet, safe.GetThresholdCall())
	if err != nil {
		return nil, err
	}
	threshold, err := safe.UnpackUint(thresholdResult)
	if err != nil {
		return nil, domain.ErrInvalidContractAddress
	}
	signers := int(threshold.Int64())

	safeTxGas, err := s.estimateSafeTxGas(ctx, tx)
	if err != nil {
		return nil, err
	}
	dataGas, err := estimateDataGas(tx, signers)
	if err != nil {
		return nil, err
	}
	operationalGas := int64(operationalBaseGas + operationalSignerGas*signers)

	gasPrice, err := callWithBreaker(s, func() (*big.Int, error) {
		return s.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	return &ports.Estimation{
		Fee: domain.FeeEstimate{
			Gas:            withMargin(safeTxGas),
			DataGas:        dataGas,
			OperationalGas: operationalGas,
			GasPrice:       domain.NewTokenAmount(domain.Ether, gasPrice),
		},
		Nonce: nonce.Uint64(),
	}, nil
}

func (s *service) Submit(
	ctx context.Context, tx *domain.Transaction,
) (string, error) {
	safeTx, err := toSafeTransaction(tx)
	if err != nil {
		return "", err
	}
	signatures := make([]safe.Signature, 0, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		signatures = append(signatures, safe.Signature{
			Signer: common.HexToAddress(sig.Signer),
			Data:   sig.Data,
		})
	}
	data, err := safe.ExecTransaction(safeTx, signatures)
	if err != nil {
		return "", domain.ErrFailedToCreateValidTransaction
	}

	relayerNonce, err := callWithBreaker(s, func() (uint64, error) {
		return s.backend.PendingNonceAt(ctx, s.relayer)
	})
	if err != nil {
		return "", fmt.Errorf("failed to get relayer nonce: %w", err)
	}
	gasPrice, err := callWithBreaker(s, func() (*big.Int, error) {
		return s.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	wallet := common.HexToAddress(tx.Sender)
	signedTx, err := types.SignNewTx(
		s.relayerKey,
		types.LatestSignerForChainID(s.chainID),
		&types.LegacyTx{
			Nonce:    relayerNonce,
			To:       &wallet,
			Value:    big.NewInt(0),
			Gas:      uint64(withMargin(tx.FeeEstimate.TotalGas())),
			GasPrice: gasPrice,
			Data:     data,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to sign relay transaction: %w", err)
	}

	if _, err := callWithBreaker(s, func() (interface{}, error) {
		return nil, s.backend.SendTransaction(ctx, signedTx)
	}); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	hash := signedTx.Hash().Hex()
	log.Debugf("relayed transaction %s for wallet %s", hash, tx.Sender)
	return hash, nil
}

func (s *service) estimateSafeTxGas(
	ctx context.Context, tx *domain.Transaction,
) (int64, error) {
	if tx.Operation == domain.OperationDelegateCall {
		return int64(delegateCallBaseGas + ownerChangeGas*len(tx.OwnerChanges)), nil
	}

	wallet := common.HexToAddress(tx.Sender)
	recipient := common.HexToAddress(tx.Recipient)
	gas, err := callWithBreaker(s, func() (uint64, error) {
		return s.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  wallet,
			To:    &recipient,
			Value: tx.Amount.Value(),
			Data:  tx.Data,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return int64(gas), nil
}

// estimateDataGas returns the intrinsic cost of relaying the transaction,
// signatures included.
func estimateDataGas(tx *domain.Transaction, signers int) (int64, error) {
	safeTx, err := toSafeTransaction(tx)
	if err != nil {
		return 0, err
	}

	placeholders := make([]safe.Signature, 0, signers)
	for i := 0; i < signers; i++ {
		sig := make([]byte, signatureLen)
		for j := range sig {
			sig[j] = 0xff
		}
		placeholders = append(placeholders, safe.Signature{
			Signer: common.BigToAddress(big.NewInt(int64(i + 1))),
			Data:   sig,
		})
	}
	data, err := safe.ExecTransaction(safeTx, placeholders)
	if err != nil {
		return 0, domain.ErrFailedToCreateValidTransactionData
	}

	gas := int64(txBaseGas)
	for _, b := range data {
		if b == 0 {
			gas += zeroByteGas
		} else {
			gas += nonZeroByteGas
		}
	}
	return gas, nil
}

func toSafeTransaction(tx *domain.Transaction) (safe.Transaction, error) {
	if !tx.FeeEstimate.GasPrice.Token.IsEther() {
		return safe.Transaction{}, ErrUnsupportedGasToken
	}
	if !common.IsHexAddress(tx.Sender) || !common.IsHexAddress(tx.Recipient) {
		return safe.Transaction{}, domain.ErrFailedToCreateValidTransactionData
	}

	fee := tx.FeeEstimate
	return safe.Transaction{
		To:        common.HexToAddress(tx.Recipient),
		Value:     tx.Amount.Value(),
		Data:      tx.Data,
		Operation: safe.Operation(tx.Operation),
		SafeTxGas: big.NewInt(fee.Gas),
		BaseGas:   big.NewInt(fee.DataGas + fee.OperationalGas),
		GasPrice:  fee.GasPrice.Value(),
		Nonce:     new(big.Int).SetUint64(tx.Nonce),
	}, nil
}

func executionFailed(receipt *types.Receipt) bool {
	for _, l := range receipt.Logs {
		if len(l.Topics) <= 0 {
			continue
		}
		if l.Topics[0] == executionFailureTopic || l.Topics[0] == executionFailedTopic {
			return true
		}
	}
	return false
}

func withMargin(gas int64) int64 {
	return gas + gas*gasMarginPercent/100
}
