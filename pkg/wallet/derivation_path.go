package wallet

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DerivationPath is the internal representation of a hierarchical
// deterministic key path
type DerivationPath []uint32

var (
	// DefaultBaseDerivationPath m/44'/60'/0'/0
	DefaultBaseDerivationPath = DerivationPath{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
	}
)

// ParseDerivationPath converts an absolute path like m/44'/60'/0'/0/0 or a
// relative one like 0/1 to the internal binary representation
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	strPath = strings.TrimSpace(strPath)
	if strPath == "" {
		return nil, ErrNullDerivationPath
	}

	elems := strings.Split(strPath, "/")
	if len(elems) < 2 {
		return nil, ErrMalformedDerivationPath
	}
	if strings.TrimSpace(elems[0]) == "m" {
		elems = elems[1:]
	}

	path := make(DerivationPath, 0, len(elems))
	for _, elem := range elems {
		index, err := parseComponent(elem)
		if err != nil {
			return nil, err
		}
		path = append(path, index)
	}
	return path, nil
}

// Child returns a copy of the path extended with the given relative path
// component, ie. "0", "1" or "5'"
func (path DerivationPath) Child(component string) (DerivationPath, error) {
	component = strings.TrimSpace(component)
	if component == "" {
		return nil, ErrNullDerivationPath
	}
	if strings.HasPrefix(component, "m") || strings.Contains(component, "/") {
		return nil, ErrInvalidDerivationPathComponent
	}
	index, err := parseComponent(component)
	if err != nil {
		return nil, err
	}

	child := make(DerivationPath, 0, len(path)+1)
	child = append(child, path...)
	return append(child, index), nil
}

// parseComponent converts a single path element to its child index, adding
// the hardened offset for elements ending with an apostrophe.
func parseComponent(elem string) (uint32, error) {
	elem = strings.TrimSpace(elem)
	if elem == "" {
		return 0, ErrMalformedDerivationPath
	}

	var offset uint32
	if strings.HasSuffix(elem, "'") {
		offset = hdkeychain.HardenedKeyStart
		elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
	}

	index, ok := new(big.Int).SetString(elem, 0)
	if !ok {
		return 0, fmt.Errorf("invalid elem '%s' in path", elem)
	}

	max := math.MaxUint32 - offset
	if index.Sign() < 0 || index.Cmp(new(big.Int).SetUint64(uint64(max))) > 0 {
		if offset == 0 {
			return 0, fmt.Errorf("elem %v must be in range [0, %d]", index, max)
		}
		return 0, fmt.Errorf("elem %v must be in hardened range [0, %d]", index, max)
	}
	return offset + uint32(index.Uint64()), nil
}

// String converts a binary derivation path to its canonical representation
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	result := "m"
	for _, component := range path {
		var hardened bool
		if component >= hdkeychain.HardenedKeyStart {
			component -= hdkeychain.HardenedKeyStart
			hardened = true
		}
		result = fmt.Sprintf("%s/%d", result, component)
		if hardened {
			result += "'"
		}
	}
	return result
}
