package wallet

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyPair(t *testing.T) {
	wallet, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
	})
	require.NoError(t, err)

	key, addr, err := wallet.DeriveKeyPair(DeriveKeyPairOpts{
		DerivationPath: "m/44'/60'/0'/0/0",
	})
	require.NoError(t, err)
	require.NotNil(t, key)
	require.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr.Hex())
	require.Equal(t, addr, crypto.PubkeyToAddress(key.PublicKey))

	_, _, err = wallet.DeriveKeyPair(DeriveKeyPairOpts{})
	require.ErrorIs(t, err, ErrNullDerivationPath)
}

func TestDeriveRecoveryAddress(t *testing.T) {
	addr, err := DeriveRecoveryAddress(testMnemonic, "0")
	require.NoError(t, err)
	require.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr)

	// deterministic
	again, err := DeriveRecoveryAddress(testMnemonic, "0")
	require.NoError(t, err)
	require.Equal(t, addr, again)

	other, err := DeriveRecoveryAddress(testMnemonic, "1")
	require.NoError(t, err)
	require.NotEqual(t, addr, other)

	hardened, err := DeriveRecoveryAddress(testMnemonic, "1'")
	require.NoError(t, err)
	require.NotEqual(t, other, hardened)
}

func TestFailingDeriveRecoveryAddress(t *testing.T) {
	tests := []struct {
		name      string
		phrase    string
		component string
		err       error
	}{
		{
			"invalid checksum",
			"abandon abandon abandon abandon abandon abandon " +
				"abandon abandon abandon abandon abandon abandon",
			"0",
			ErrInvalidMnemonic,
		},
		{"empty phrase", "", "0", ErrNullMnemonic},
		{"empty component", testMnemonic, "", ErrNullDerivationPath},
		{"absolute component", testMnemonic, "m/0", ErrInvalidDerivationPathComponent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := DeriveRecoveryAddress(tt.phrase, tt.component)
			require.ErrorIs(t, err, tt.err)
			require.Empty(t, addr)
		})
	}
}

func TestDeriveRecoveryKeys(t *testing.T) {
	keys, err := DeriveRecoveryKeys(testMnemonic, []string{"0", "1"})
	require.NoError(t, err)
	require.Len(t, keys, 2)

	for i, c := range []string{"0", "1"} {
		addr, err := DeriveRecoveryAddress(testMnemonic, c)
		require.NoError(t, err)
		require.Equal(t, addr, keys[i].Address.Hex())
		require.Equal(t, "m/44'/60'/0'/0/"+c, keys[i].DerivationPath)
	}
}

func TestDeriveRecoveryAddressConcurrently(t *testing.T) {
	expected, err := DeriveRecoveryAddress(testMnemonic, "0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = DeriveRecoveryAddress(testMnemonic, "0")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, expected, r)
	}
}
