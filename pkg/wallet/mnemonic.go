package wallet

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
)

type NewMnemonicOpts struct {
	EntropySize int
}

func (o NewMnemonicOpts) validate() error {
	if o.EntropySize > 0 {
		if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	if o.EntropySize < 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewMnemonic returns a new mnemonic as a list of words
func NewMnemonic(opts NewMnemonicOpts) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	entropy, err := bip39.NewEntropy(opts.EntropySize)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Fields(mnemonic), nil
}

// NormalizeMnemonic lowercases the given phrase and collapses any sequence of
// whitespaces into a single space
func NormalizeMnemonic(phrase string) string {
	return JoinMnemonic(strings.Fields(strings.ToLower(phrase)))
}

// JoinMnemonic ...
func JoinMnemonic(words []string) string {
	return strings.Join(words, " ")
}

// IsMnemonicValid checks the word count, that every word belongs to the
// english word list and that the checksum matches. No seed stretching happens
// here.
func IsMnemonicValid(phrase string) bool {
	mnemonic := NormalizeMnemonic(phrase)
	switch len(strings.Fields(mnemonic)) {
	case 12, 15, 18, 21, 24:
	default:
		return false
	}
	return bip39.IsMnemonicValid(mnemonic)
}

func generateSeedFromMnemonic(mnemonic, passphrase string) []byte {
	return bip39.NewSeed(mnemonic, passphrase)
}
