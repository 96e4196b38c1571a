package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/config"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) string {
	datadir := t.TempDir()
	t.Setenv("RECOVERY_DATADIR", datadir)
	t.Setenv("RECOVERY_RPC_ENDPOINT", "http://localhost:8545")
	t.Setenv("RECOVERY_RELAYER_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	return datadir
}

func TestInitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		datadir := setRequiredEnv(t)

		require.NoError(t, config.InitConfig())
		require.Equal(t, datadir, config.GetDatadir())
		require.Equal(t, "badger", config.GetString(config.DBTypeKey))
		require.Equal(t, []string{"0", "1"}, config.GetRecoveryPathComponents())
		require.Equal(t, 10*time.Second, config.GetPollInterval())
		require.False(t, config.GetBool(config.AutoSubmitKey))
		require.DirExists(t, filepath.Join(datadir, config.DbLocation))
	})

	t.Run("overrides", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("RECOVERY_DB_TYPE", "inmemory")
		t.Setenv("RECOVERY_AUTO_SUBMIT", "true")
		t.Setenv("RECOVERY_POLL_INTERVAL", "3")
		t.Setenv("RECOVERY_RECOVERY_PATH_COMPONENTS", "0, 1,2")

		require.NoError(t, config.InitConfig())
		require.Equal(t, "inmemory", config.GetString(config.DBTypeKey))
		require.True(t, config.GetBool(config.AutoSubmitKey))
		require.Equal(t, 3*time.Second, config.GetPollInterval())
		require.Equal(t, []string{"0", "1", "2"}, config.GetRecoveryPathComponents())
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unsupported_db", "RECOVERY_DB_TYPE", "postgres"},
		{"invalid_multisend", "RECOVERY_MULTISEND_ADDRESS", "0xinvalid"},
		{"invalid_poll_interval", "RECOVERY_POLL_INTERVAL", "0"},
		{"invalid_rate_limit", "RECOVERY_RELAY_RATE_LIMIT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)
			require.Error(t, config.InitConfig())
		})
	}

	t.Run("missing_rpc_endpoint", func(t *testing.T) {
		t.Setenv("RECOVERY_DATADIR", t.TempDir())
		t.Setenv("RECOVERY_RELAYER_PRIVATE_KEY", "4c0883a6")
		require.Error(t, config.InitConfig())
	})
}
