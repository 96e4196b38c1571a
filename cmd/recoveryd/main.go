package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safe-network/safe-recoveryd/internal/config"
	"github.com/safe-network/safe-recoveryd/internal/core/application"
	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/devicekey"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/pubsub"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/relay"
	ethrelay "github.com/safe-network/safe-recoveryd/internal/infrastructure/relay/ethereum"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	"github.com/safe-network/safe-recoveryd/pkg/stats"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	relaySvc, err := ethrelay.NewService(ethrelay.Opts{
		RPCEndpoint:        config.GetString(config.RPCEndpointKey),
		ChainID:            config.GetInt64(config.ChainIDKey),
		RelayerPrivateKey:  config.GetString(config.RelayerPrivateKeyKey),
		RequestsPerSec:     config.GetInt(config.RelayRateLimitKey),
		UseChainIDInDomain: config.GetBool(config.UseChainIDInDomainKey),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize relay")
	}
	relaySvc = relay.NewInstrumentedRelay(relaySvc)

	deviceKeys, err := newDeviceKeyProvider()
	if err != nil {
		log.WithError(err).Fatal("failed to initialize device key")
	}

	bus := pubsub.NewService()
	bus.Subscribe(pubsub.NewMetricsSubscriber(), pubsub.AnyTopic)
	bus.Subscribe(eventLogger{}, pubsub.AnyTopic)

	blockchainCrawler := crawler.NewService(crawler.Opts{
		Source:         relaySvc,
		Interval:       config.GetPollInterval(),
		RequestsPerSec: config.GetInt(config.RelayRateLimitKey),
		ErrorHandler: func(err error) {
			log.WithError(err).Warn("chain observer")
		},
	})

	appConfig := &application.Config{
		DBType:                 config.GetString(config.DBTypeKey),
		DBDir:                  config.GetDbDir(),
		Relay:                  relaySvc,
		EventBus:               bus,
		DeviceKeys:             deviceKeys,
		Crawler:                blockchainCrawler,
		MultiSendAddress:       config.GetString(config.MultiSendAddressKey),
		RecoveryPathComponents: config.GetRecoveryPathComponents(),
		AutoSubmit:             config.GetBool(config.AutoSubmitKey),
		MaxParallelResumes:     config.GetInt(config.MaxParallelResumesKey),
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	recoverySvc := appConfig.RecoveryService()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recoverySvc.Start()
	resumeTask := recoverySvc.ResumeInBackground(ctx)
	go func() {
		count, err := resumeTask.Wait(ctx)
		if err != nil {
			log.WithError(err).Warn("some recoveries could not be resumed")
		}
		log.Infof("resumed %d recoveries in progress", count)
	}()

	if interval := config.GetInt(config.StatsIntervalKey); interval > 0 {
		stats.EnableMemoryStatistics(ctx, time.Duration(interval)*time.Second)
	}

	var metricsServer *http.Server
	if port := config.GetInt(config.MetricsPortKey); port > 0 {
		metricsServer = newMetricsServer(port)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		log.Infof("metrics exposed on :%d/metrics", port)
	}

	log.Info("recovery daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down daemon")
	resumeTask.Cancel()
	cancel()
	recoverySvc.Stop()
	if metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancelShutdown()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to stop metrics server")
		}
	}
	bus.Close()
	appConfig.RepoManager().Close()

	log.Info("exiting")
}

func newDeviceKeyProvider() (ports.DeviceKeyProvider, error) {
	derivationPath := config.GetString(config.DeviceDerivationPathKey)
	if mnemonic := config.GetString(config.DeviceMnemonicKey); mnemonic != "" {
		return devicekey.NewProvider(mnemonic, derivationPath)
	}
	return devicekey.NewProviderFromDatadir(config.GetDatadir(), derivationPath)
}

func newMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler(stats.NewRegistry()))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type eventLogger struct{}

func (eventLogger) ID() string {
	return "logger"
}

func (eventLogger) Notify(event ports.Event) {
	log.Infof("wallet %s: %s", event.WalletID(), event.Type())
}
