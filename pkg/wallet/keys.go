package wallet

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveKeyPairOpts is the struct given to DeriveKeyPair method
type DeriveKeyPairOpts struct {
	DerivationPath string
}

func (o DeriveKeyPairOpts) validate() error {
	_, err := ParseDerivationPath(o.DerivationPath)
	return err
}

// DeriveKeyPair derives the key pair of the provided absolute derivation path
// and returns the private key along with its Ethereum address
func (w *Wallet) DeriveKeyPair(opts DeriveKeyPairOpts) (
	*ecdsa.PrivateKey,
	common.Address,
	error,
) {
	if err := opts.validate(); err != nil {
		return nil, common.Address{}, err
	}
	if err := w.validate(); err != nil {
		return nil, common.Address{}, err
	}

	derivationPath, _ := ParseDerivationPath(opts.DerivationPath)
	return w.deriveKeyPair(derivationPath)
}

func (w *Wallet) deriveKeyPair(path DerivationPath) (
	*ecdsa.PrivateKey,
	common.Address,
	error,
) {
	hdNode := w.masterKey
	for _, step := range path {
		var err error
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return nil, common.Address{}, err
		}
	}

	privateKey, err := hdNode.ECPrivKey()
	if err != nil {
		return nil, common.Address{}, err
	}
	key := privateKey.ToECDSA()

	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// RecoveryKey is a key pair derived from a recovery phrase.
type RecoveryKey struct {
	Address        common.Address
	DerivationPath string
	PrivateKey     *ecdsa.PrivateKey
}

// DeriveRecoveryKey derives the key pair found at the given path component
// under DefaultBaseDerivationPath.
// An invalid phrase fails with ErrInvalidMnemonic before any key derivation.
func DeriveRecoveryKey(phrase, pathComponent string) (*RecoveryKey, error) {
	path, err := DefaultBaseDerivationPath.Child(pathComponent)
	if err != nil {
		return nil, err
	}

	w, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: phrase,
	})
	if err != nil {
		return nil, err
	}

	key, addr, err := w.deriveKeyPair(path)
	if err != nil {
		return nil, err
	}

	return &RecoveryKey{
		Address:        addr,
		DerivationPath: path.String(),
		PrivateKey:     key,
	}, nil
}

// DeriveRecoveryKeys derives one key pair for each of the given path
// components. The seed is generated only once.
func DeriveRecoveryKeys(
	phrase string, pathComponents []string,
) ([]*RecoveryKey, error) {
	paths := make([]DerivationPath, 0, len(pathComponents))
	for _, c := range pathComponents {
		path, err := DefaultBaseDerivationPath.Child(c)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	w, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: phrase,
	})
	if err != nil {
		return nil, err
	}

	keys := make([]*RecoveryKey, 0, len(paths))
	for _, path := range paths {
		key, addr, err := w.deriveKeyPair(path)
		if err != nil {
			return nil, err
		}
		keys = append(keys, &RecoveryKey{
			Address:        addr,
			DerivationPath: path.String(),
			PrivateKey:     key,
		})
	}
	return keys, nil
}

// DeriveRecoveryAddress returns the checksummed address of the key found at
// the given path component.
func DeriveRecoveryAddress(phrase, pathComponent string) (string, error) {
	key, err := DeriveRecoveryKey(phrase, pathComponent)
	if err != nil {
		return "", err
	}
	return key.Address.Hex(), nil
}
