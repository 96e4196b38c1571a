package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// RPCEndpointKey is the url of the Ethereum node used to read the chain and
	// relay the recovery transactions
	RPCEndpointKey = "RPC_ENDPOINT"
	// ChainIDKey is the id of the chain the wallets live on. If zero it's
	// fetched from the node
	ChainIDKey = "CHAIN_ID"
	// UseChainIDInDomainKey binds the signatures of the wallet transactions
	// to the chain id, as required by recent wallet contracts
	UseChainIDInDomainKey = "USE_CHAIN_ID_IN_DOMAIN"
	// RelayerPrivateKeyKey is the hex encoded key paying for the gas of the
	// relayed transactions
	RelayerPrivateKeyKey = "RELAYER_PRIVATE_KEY"
	// MultiSendAddressKey is the address of the contract batching more owner
	// changes in a single transaction
	MultiSendAddressKey = "MULTISEND_ADDRESS"
	// RecoveryPathComponentsKey are the derivation path components of the
	// recovery accounts, relative to m/44'/60'/0'/0
	RecoveryPathComponentsKey = "RECOVERY_PATH_COMPONENTS"
	// DeviceMnemonicKey is the mnemonic of the key of this device. If not set,
	// one is generated and stored in the datadir
	DeviceMnemonicKey = "DEVICE_MNEMONIC"
	// DeviceDerivationPathKey is the absolute derivation path of the device key
	DeviceDerivationPathKey = "DEVICE_DERIVATION_PATH"
	// PollIntervalKey is the interval in seconds between checks of balances
	// and submitted transactions
	PollIntervalKey = "POLL_INTERVAL"
	// RelayRateLimitKey is the max number of requests per second made to the node
	RelayRateLimitKey = "RELAY_RATE_LIMIT"
	// AutoSubmitKey makes recovery transactions be submitted as soon as they
	// are funded
	AutoSubmitKey = "AUTO_SUBMIT"
	// MaxParallelResumesKey limits the recoveries resumed at the same time at
	// startup, 0 means no limit
	MaxParallelResumesKey = "MAX_PARALLEL_RESUMES"
	// MetricsPortKey is the port where the Prometheus metrics are exposed,
	// 0 disables them
	MetricsPortKey = "METRICS_PORT"
	// StatsIntervalKey defines interval in seconds for printing basic memory
	// statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("safe-recoveryd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("RECOVERY")
	vip.AutomaticEnv()

	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(RecoveryPathComponentsKey, []string{"0", "1"})
	vip.SetDefault(PollIntervalKey, 10)
	vip.SetDefault(RelayRateLimitKey, 10)
	vip.SetDefault(AutoSubmitKey, false)
	vip.SetDefault(MaxParallelResumesKey, 4)
	vip.SetDefault(MetricsPortKey, 9090)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetInt64(key string) int64 {
	return vip.GetInt64(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetRecoveryPathComponents accepts both a list and a comma separated value
// for RecoveryPathComponentsKey.
func GetRecoveryPathComponents() []string {
	components := make([]string, 0)
	for _, v := range GetStringSlice(RecoveryPathComponentsKey) {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				components = append(components, c)
			}
		}
	}
	return components
}

// GetPollInterval ...
func GetPollInterval() time.Duration {
	return time.Duration(GetInt(PollIntervalKey)) * time.Second
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	dbType := GetString(DBTypeKey)
	if _, ok := application.SupportedDBType[dbType]; !ok {
		return fmt.Errorf("unsupported db type %s", dbType)
	}

	if !vip.IsSet(RPCEndpointKey) {
		return fmt.Errorf("missing rpc endpoint")
	}
	if !vip.IsSet(RelayerPrivateKeyKey) {
		return fmt.Errorf("missing relayer private key")
	}

	if addr := GetString(MultiSendAddressKey); addr != "" &&
		!common.IsHexAddress(addr) {
		return fmt.Errorf("invalid multisend address %s", addr)
	}

	if len(GetRecoveryPathComponents()) <= 0 {
		return fmt.Errorf("missing recovery path components")
	}

	if GetInt(PollIntervalKey) <= 0 {
		return fmt.Errorf("%s must be greater than 0", PollIntervalKey)
	}
	if GetInt(RelayRateLimitKey) <= 0 {
		return fmt.Errorf("%s must be greater than 0", RelayRateLimitKey)
	}
	if GetInt(MaxParallelResumesKey) < 0 {
		return fmt.Errorf("%s must not be negative", MaxParallelResumesKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if GetString(DBTypeKey) == application.DBBadger {
		return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
	}
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
