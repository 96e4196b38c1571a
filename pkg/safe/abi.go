package safe

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidThreshold ...
	ErrInvalidThreshold = errors.New("threshold must be a positive number")
	// ErrNullOwner ...
	ErrNullOwner = errors.New("owner address must not be the zero address")
	// ErrEmptyMultiSend ...
	ErrEmptyMultiSend = errors.New("multisend requires at least one transaction")
	// ErrMalformedResult ...
	ErrMalformedResult = errors.New("malformed contract call result")
)

// SentinelOwner is the head of the owners linked list of a wallet contract.
var SentinelOwner = common.HexToAddress("0x1")

const safeABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "prevOwner", "type": "address"},
			{"name": "oldOwner", "type": "address"},
			{"name": "newOwner", "type": "address"}
		],
		"name": "swapOwner",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "_threshold", "type": "uint256"}
		],
		"name": "addOwnerWithThreshold",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "prevOwner", "type": "address"},
			{"name": "owner", "type": "address"},
			{"name": "_threshold", "type": "uint256"}
		],
		"name": "removeOwner",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "_threshold", "type": "uint256"}],
		"name": "changeThreshold",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "getOwners",
		"outputs": [{"name": "", "type": "address[]"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "getThreshold",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "nonce",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"},
			{"name": "operation", "type": "uint8"},
			{"name": "safeTxGas", "type": "uint256"},
			{"name": "baseGas", "type": "uint256"},
			{"name": "gasPrice", "type": "uint256"},
			{"name": "gasToken", "type": "address"},
			{"name": "refundReceiver", "type": "address"},
			{"name": "signatures", "type": "bytes"}
		],
		"name": "execTransaction",
		"outputs": [{"name": "success", "type": "bool"}],
		"type": "function"
	}
]`

const multiSendABIJSON = `[
	{
		"constant": false,
		"inputs": [{"name": "transactions", "type": "bytes"}],
		"name": "multiSend",
		"outputs": [],
		"type": "function"
	}
]`

const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	}
]`

var (
	safeABI      = mustParseABI(safeABIJSON)
	multiSendABI = mustParseABI(multiSendABIJSON)
	erc20ABI     = mustParseABI(erc20ABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse abi: %s", err))
	}
	return parsed
}

// SwapOwner returns the call data replacing oldOwner with newOwner.
func SwapOwner(prevOwner, oldOwner, newOwner common.Address) ([]byte, error) {
	if newOwner == (common.Address{}) {
		return nil, ErrNullOwner
	}
	return safeABI.Pack("swapOwner", prevOwner, oldOwner, newOwner)
}

// AddOwnerWithThreshold returns the call data adding owner and setting the
// confirmation threshold at once.
func AddOwnerWithThreshold(owner common.Address, threshold int) ([]byte, error) {
	if owner == (common.Address{}) {
		return nil, ErrNullOwner
	}
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	return safeABI.Pack(
		"addOwnerWithThreshold", owner, big.NewInt(int64(threshold)),
	)
}

// RemoveOwner returns the call data removing owner and setting the
// confirmation threshold at once.
func RemoveOwner(
	prevOwner, owner common.Address, threshold int,
) ([]byte, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	return safeABI.Pack(
		"removeOwner", prevOwner, owner, big.NewInt(int64(threshold)),
	)
}

// ChangeThreshold ...
func ChangeThreshold(threshold int) ([]byte, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	return safeABI.Pack("changeThreshold", big.NewInt(int64(threshold)))
}

// GetOwnersCall returns the call data of the getOwners view.
func GetOwnersCall() []byte {
	data, _ := safeABI.Pack("getOwners")
	return data
}

// GetThresholdCall returns the call data of the getThreshold view.
func GetThresholdCall() []byte {
	data, _ := safeABI.Pack("getThreshold")
	return data
}

// NonceCall returns the call data of the nonce view.
func NonceCall() []byte {
	data, _ := safeABI.Pack("nonce")
	return data
}

// BalanceOfCall returns the call data of the ERC20 balanceOf view.
func BalanceOfCall(owner common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", owner)
}

// UnpackOwners decodes the result of a getOwners call.
func UnpackOwners(result []byte) ([]common.Address, error) {
	values, err := safeABI.Unpack("getOwners", result)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, ErrMalformedResult
	}
	owners, ok := values[0].([]common.Address)
	if !ok {
		return nil, ErrMalformedResult
	}
	return owners, nil
}

// UnpackUint decodes the result of a view returning a single uint256, like
// getThreshold, nonce or balanceOf. An empty result is read as zero.
func UnpackUint(result []byte) (*big.Int, error) {
	if len(result) == 0 {
		return big.NewInt(0), nil
	}
	values, err := safeABI.Methods["nonce"].Outputs.Unpack(result)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, ErrMalformedResult
	}
	value, ok := values[0].(*big.Int)
	if !ok || value == nil {
		return nil, ErrMalformedResult
	}
	return value, nil
}
