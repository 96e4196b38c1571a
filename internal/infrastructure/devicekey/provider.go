package devicekey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/pkg/wallet"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultDerivationPath is where the device key is found if not
	// otherwise specified.
	DefaultDerivationPath = "m/44'/60'/0'/0/0"

	mnemonicFileName = "device.mnemonic"
)

var (
	// ErrNullWalletID ...
	ErrNullWalletID = errors.New("wallet id must not be null")
)

type provider struct {
	address        string
	derivationPath string
}

// NewProvider returns a DeviceKeyProvider deriving the device key from the
// given mnemonic. The same device key is proposed for every wallet.
func NewProvider(
	mnemonic, derivationPath string,
) (ports.DeviceKeyProvider, error) {
	if derivationPath == "" {
		derivationPath = DefaultDerivationPath
	}

	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: mnemonic,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid device mnemonic: %w", err)
	}
	_, addr, err := w.DeriveKeyPair(wallet.DeriveKeyPairOpts{
		DerivationPath: derivationPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive device key: %w", err)
	}

	return &provider{
		address:        addr.Hex(),
		derivationPath: derivationPath,
	}, nil
}

// NewProviderFromDatadir loads the device mnemonic from the given directory,
// or generates and stores a new one if missing.
func NewProviderFromDatadir(
	datadir, derivationPath string,
) (ports.DeviceKeyProvider, error) {
	mnemonic, err := loadOrCreateMnemonic(filepath.Join(datadir, mnemonicFileName))
	if err != nil {
		return nil, err
	}
	return NewProvider(mnemonic, derivationPath)
}

func (p *provider) DeviceAddress(
	_ context.Context, walletID string,
) (string, error) {
	if walletID == "" {
		return "", ErrNullWalletID
	}
	return p.address, nil
}

func loadOrCreateMnemonic(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(buf)), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read device mnemonic: %w", err)
	}

	words, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{EntropySize: 256})
	if err != nil {
		return "", fmt.Errorf("failed to generate device mnemonic: %w", err)
	}
	mnemonic := wallet.JoinMnemonic(words)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(mnemonic), 0600); err != nil {
		return "", fmt.Errorf("failed to store device mnemonic: %w", err)
	}
	log.Infof("generated new device key, mnemonic stored in %s", path)
	return mnemonic, nil
}
