package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/safe-network/safe-recoveryd/pkg/wallet"
	"github.com/stretchr/testify/require"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

func runCLICommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	app := newApp()
	app.Writer = buf
	app.ErrWriter = buf

	err := app.Run(append([]string{"recovery"}, args...))
	return strings.TrimSpace(buf.String()), err
}

func TestGenSeed(t *testing.T) {
	tests := []struct {
		entropy string
		words   int
	}{
		{"128", 12},
		{"192", 18},
		{"256", 24},
	}

	for _, tt := range tests {
		t.Run(tt.entropy, func(t *testing.T) {
			seed, err := runCLICommand(t, "genseed", "--entropy", tt.entropy)
			require.NoError(t, err)
			require.Len(t, strings.Fields(seed), tt.words)
			require.True(t, wallet.IsMnemonicValid(seed))
		})
	}

	t.Run("invalid_entropy", func(t *testing.T) {
		_, err := runCLICommand(t, "genseed", "--entropy", "100")
		require.ErrorIs(t, err, wallet.ErrInvalidEntropySize)
	})
}

func TestDerive(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := runCLICommand(
			t, "derive", "--phrase", testPhrase, "--components", "0, 1",
		)
		require.NoError(t, err)

		lines := strings.Split(out, "\n")
		require.Len(t, lines, 2)
		for i, c := range []string{"0", "1"} {
			address, err := wallet.DeriveRecoveryAddress(testPhrase, c)
			require.NoError(t, err)
			require.Equal(t, c+" "+address, lines[i])
		}
	})

	t.Run("invalid_phrase", func(t *testing.T) {
		_, err := runCLICommand(
			t, "derive", "--phrase", "abandon abandon abandon",
		)
		require.Error(t, err)
	})

	t.Run("missing_phrase", func(t *testing.T) {
		_, err := runCLICommand(t, "derive")
		require.Error(t, err)
	})
}

func TestRecoverUsage(t *testing.T) {
	_, err := runCLICommand(
		t, "recover",
		"--address", "0x0000000000000000000000000000000000000001",
		"--phrase", testPhrase,
		"--authenticator", "0x0000000000000000000000000000000000000002",
		"--disconnect-authenticator",
	)
	var usageErr *invalidUsageError
	require.ErrorAs(t, err, &usageErr)
}
