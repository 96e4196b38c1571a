package safe

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("signature must be 65 bytes long")
	// ErrNullSignatures ...
	ErrNullSignatures = errors.New("at least one signature is required")
)

var (
	domainSeparatorTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(address verifyingContract)"),
	)
	domainSeparatorWithChainTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"),
	)
	safeTxTypeHash = crypto.Keccak256Hash([]byte(
		"SafeTx(address to,uint256 value,bytes data,uint8 operation," +
			"uint256 safeTxGas,uint256 baseGas,uint256 gasPrice," +
			"address gasToken,address refundReceiver,uint256 nonce)",
	))

	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	uint8Type, _   = abi.NewType("uint8", "", nil)
)

// Transaction is the payload a wallet contract executes through
// execTransaction, along with the refund parameters paid to the relayer.
type Transaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *big.Int
}

// DomainSeparator returns the EIP-712 domain separator of the wallet
// contract. A nil or zero chain id selects the legacy domain that binds the
// contract address only.
func DomainSeparator(chainID *big.Int, wallet common.Address) common.Hash {
	if chainID == nil || chainID.Sign() == 0 {
		args := abi.Arguments{{Type: bytes32Type}, {Type: addressType}}
		encoded, _ := args.Pack(domainSeparatorTypeHash, wallet)
		return crypto.Keccak256Hash(encoded)
	}

	args := abi.Arguments{
		{Type: bytes32Type}, {Type: uint256Type}, {Type: addressType},
	}
	encoded, _ := args.Pack(domainSeparatorWithChainTypeHash, chainID, wallet)
	return crypto.Keccak256Hash(encoded)
}

// StructHash returns the EIP-712 hash of the SafeTx struct.
func (tx Transaction) StructHash() (common.Hash, error) {
	args := abi.Arguments{
		{Type: bytes32Type},
		{Type: addressType},
		{Type: uint256Type},
		{Type: bytes32Type},
		{Type: uint8Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: addressType},
		{Type: addressType},
		{Type: uint256Type},
	}
	encoded, err := args.Pack(
		safeTxTypeHash,
		tx.To,
		orZero(tx.Value),
		crypto.Keccak256Hash(tx.Data),
		uint8(tx.Operation),
		orZero(tx.SafeTxGas),
		orZero(tx.BaseGas),
		orZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		orZero(tx.Nonce),
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Hash returns the hash the wallet owners sign to confirm the transaction.
func (tx Transaction) Hash(
	chainID *big.Int, wallet common.Address,
) (common.Hash, error) {
	structHash, err := tx.StructHash()
	if err != nil {
		return common.Hash{}, err
	}
	separator := DomainSeparator(chainID, wallet)

	buf := make([]byte, 0, 66)
	buf = append(buf, 0x19, 0x01)
	buf = append(buf, separator.Bytes()...)
	buf = append(buf, structHash.Bytes()...)
	return crypto.Keccak256Hash(buf), nil
}

// Signature is an owner signature of the transaction hash.
type Signature struct {
	Signer common.Address
	Data   []byte
}

// PackSignatures concatenates the signatures sorted by signer address, the
// order the wallet contract checks them in.
func PackSignatures(signatures []Signature) ([]byte, error) {
	if len(signatures) <= 0 {
		return nil, ErrNullSignatures
	}

	sorted := make([]Signature, len(signatures))
	copy(sorted, signatures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Signer.Bytes(), sorted[j].Signer.Bytes()) < 0
	})

	packed := make([]byte, 0, 65*len(sorted))
	for _, s := range sorted {
		if len(s.Data) != 65 {
			return nil, ErrInvalidSignature
		}
		packed = append(packed, s.Data...)
	}
	return packed, nil
}

// ExecTransaction returns the call data executing the transaction on the
// wallet contract with the given owner signatures.
func ExecTransaction(tx Transaction, signatures []Signature) ([]byte, error) {
	packed, err := PackSignatures(signatures)
	if err != nil {
		return nil, err
	}
	return safeABI.Pack(
		"execTransaction",
		tx.To,
		orZero(tx.Value),
		tx.Data,
		uint8(tx.Operation),
		orZero(tx.SafeTxGas),
		orZero(tx.BaseGas),
		orZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		packed,
	)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
