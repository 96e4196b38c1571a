package application

import (
	"testing"

	"github.com/safe-network/safe-recoveryd/internal/infrastructure/pubsub"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	bus := pubsub.NewService()
	defer bus.Close()

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{
			DBType:     DBInMemory,
			Relay:      &mockRelay{},
			EventBus:   bus,
			DeviceKeys: &mockDeviceKeys{},
		}
		require.NoError(t, cfg.Validate())
		require.NotNil(t, cfg.RepoManager())
		require.NotNil(t, cfg.RecoveryService())
		require.Equal(t, cfg.RecoveryService(), cfg.RecoveryService())
	})

	tests := []struct {
		name        string
		cfg         *Config
		expectedErr error
	}{
		{
			name: "missing_relay",
			cfg: &Config{
				DBType: DBInMemory, EventBus: bus, DeviceKeys: &mockDeviceKeys{},
			},
			expectedErr: ErrNullRelay,
		},
		{
			name: "missing_device_keys",
			cfg: &Config{
				DBType: DBInMemory, Relay: &mockRelay{}, EventBus: bus,
			},
			expectedErr: ErrNullDeviceKeyProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.cfg.Validate(), tt.expectedErr)
		})
	}

	t.Run("unsupported_db", func(t *testing.T) {
		cfg := &Config{DBType: "postgres"}
		require.Error(t, cfg.Validate())
	})
}
