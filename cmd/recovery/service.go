package main

import (
	"fmt"

	"github.com/safe-network/safe-recoveryd/internal/config"
	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/devicekey"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/pubsub"
	ethrelay "github.com/safe-network/safe-recoveryd/internal/infrastructure/relay/ethereum"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	"github.com/urfave/cli/v2"
)

var walletFlag = cli.StringFlag{
	Name:  "wallet",
	Usage: "id of the wallet, the selected one if omitted",
}

// getRecoveryService opens the datadir of the daemon and returns the recovery
// service with its chain observer started. cleanup must be called before
// exiting to release the datadir.
func getRecoveryService(
	ctx *cli.Context,
) (application.RecoveryService, func(), error) {
	if err := config.InitConfig(); err != nil {
		return nil, nil, err
	}

	relay, err := ethrelay.NewService(ethrelay.Opts{
		RPCEndpoint:        config.GetString(config.RPCEndpointKey),
		ChainID:            config.GetInt64(config.ChainIDKey),
		RelayerPrivateKey:  config.GetString(config.RelayerPrivateKeyKey),
		RequestsPerSec:     config.GetInt(config.RelayRateLimitKey),
		UseChainIDInDomain: config.GetBool(config.UseChainIDInDomainKey),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to node: %w", err)
	}

	derivationPath := config.GetString(config.DeviceDerivationPathKey)
	var deviceKeys ports.DeviceKeyProvider
	if mnemonic := config.GetString(config.DeviceMnemonicKey); mnemonic != "" {
		deviceKeys, err = devicekey.NewProvider(mnemonic, derivationPath)
	} else {
		deviceKeys, err = devicekey.NewProviderFromDatadir(
			config.GetDatadir(), derivationPath,
		)
	}
	if err != nil {
		return nil, nil, err
	}

	bus := pubsub.NewService()
	appConfig := &application.Config{
		DBType:     config.GetString(config.DBTypeKey),
		DBDir:      config.GetDbDir(),
		Relay:      relay,
		EventBus:   bus,
		DeviceKeys: deviceKeys,
		Crawler: crawler.NewService(crawler.Opts{
			Source:         relay,
			Interval:       config.GetPollInterval(),
			RequestsPerSec: config.GetInt(config.RelayRateLimitKey),
		}),
		MultiSendAddress:       config.GetString(config.MultiSendAddressKey),
		RecoveryPathComponents: config.GetRecoveryPathComponents(),
		AutoSubmit:             config.GetBool(config.AutoSubmitKey),
		MaxParallelResumes:     config.GetInt(config.MaxParallelResumesKey),
	}
	if err := appConfig.Validate(); err != nil {
		bus.Close()
		return nil, nil, err
	}

	svc := appConfig.RecoveryService()
	svc.Start()
	cleanup := func() {
		svc.Stop()
		bus.Close()
		appConfig.RepoManager().Close()
	}

	return svc, cleanup, nil
}

// printer is the subscriber printing the progress of a recovery.
type printer struct {
	ctx *cli.Context
}

func (p printer) ID() string {
	return "cli"
}

func (p printer) Notify(event ports.Event) {
	fmt.Fprintf(p.ctx.App.Writer, "> %s\n", event.Type())
}

func newWatcher(ctx *cli.Context, errs chan<- error) *application.Watcher {
	return &application.Watcher{
		Subscriber: printer{ctx},
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	}
}
