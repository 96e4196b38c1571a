package domain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/safe-network/safe-recoveryd/pkg/wallet"
)

// RecoveryAccount is a key pair derived from a recovery phrase. It only lives
// in memory for the duration of a recovery.
type RecoveryAccount struct {
	Address        string
	DerivationPath string
	privateKey     *ecdsa.PrivateKey
}

// DeriveRecoveryAccounts validates the phrase and derives one account for
// each of the given path components.
func DeriveRecoveryAccounts(
	phrase string, pathComponents []string,
) ([]*RecoveryAccount, error) {
	if len(pathComponents) <= 0 {
		pathComponents = DefaultRecoveryPathComponents
	}
	if !wallet.IsMnemonicValid(phrase) {
		return nil, ErrRecoveryPhraseInvalid
	}

	keys, err := wallet.DeriveRecoveryKeys(phrase, pathComponents)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidMnemonic) ||
			errors.Is(err, wallet.ErrNullMnemonic) {
			return nil, ErrRecoveryPhraseInvalid
		}
		return nil, fmt.Errorf("failed to derive recovery accounts: %w", err)
	}

	accounts := make([]*RecoveryAccount, 0, len(keys))
	for _, k := range keys {
		accounts = append(accounts, &RecoveryAccount{
			Address:        k.Address.Hex(),
			DerivationPath: k.DerivationPath,
			privateKey:     k.PrivateKey,
		})
	}
	return accounts, nil
}

// RecoveryAddresses ...
func RecoveryAddresses(accounts []*RecoveryAccount) []string {
	addresses := make([]string, 0, len(accounts))
	for _, a := range accounts {
		addresses = append(addresses, a.Address)
	}
	return addresses
}

// Sign signs the given 32 bytes hash. The recovery id of the returned
// signature is shifted by 27 as expected by wallet contracts.
func (a *RecoveryAccount) Sign(hash []byte) (Signature, error) {
	if a.privateKey == nil {
		return Signature{}, fmt.Errorf("missing private key for %s", a.Address)
	}
	sig, err := crypto.Sign(hash, a.privateKey)
	if err != nil {
		return Signature{}, err
	}
	sig[64] += 27
	return Signature{Signer: a.Address, Data: sig}, nil
}
