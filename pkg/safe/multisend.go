package safe

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// Operation tells how a wallet contract executes a call.
type Operation uint8

const (
	Call Operation = iota
	DelegateCall
)

// MultiSendTx is one of the calls batched into a multiSend.
type MultiSendTx struct {
	Operation Operation
	To        common.Address
	Value     *big.Int
	Data      []byte
}

// PackMultiSendTransactions packs the calls in the format expected by the
// multiSend contract: operation (1 byte), to (20 bytes), value (32 bytes),
// data length (32 bytes) and data, for each call.
func PackMultiSendTransactions(txs []MultiSendTx) []byte {
	packed := make([]byte, 0)
	for _, tx := range txs {
		value := tx.Value
		if value == nil {
			value = big.NewInt(0)
		}
		packed = append(packed, byte(tx.Operation))
		packed = append(packed, tx.To.Bytes()...)
		packed = append(packed, math.U256Bytes(new(big.Int).Set(value))...)
		packed = append(
			packed, math.U256Bytes(big.NewInt(int64(len(tx.Data))))...,
		)
		packed = append(packed, tx.Data...)
	}
	return packed
}

// MultiSend returns the call data executing all the given calls in one
// wallet transaction. The wallet must delegatecall the multiSend contract.
func MultiSend(txs []MultiSendTx) ([]byte, error) {
	if len(txs) <= 0 {
		return nil, ErrEmptyMultiSend
	}
	return multiSendABI.Pack("multiSend", PackMultiSendTransactions(txs))
}
