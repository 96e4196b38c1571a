package application

import (
	"fmt"

	"github.com/safe-network/safe-recoveryd/internal/core/ports"
	dbbadger "github.com/safe-network/safe-recoveryd/internal/infrastructure/storage/db/badger"
	"github.com/safe-network/safe-recoveryd/internal/infrastructure/storage/db/inmemory"
	"github.com/safe-network/safe-recoveryd/pkg/crawler"
	log "github.com/sirupsen/logrus"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

// Config lazily builds the services of the daemon from its dependencies.
type Config struct {
	DBType string
	// DBDir is the directory of the badger stores, ignored for other types.
	DBDir string

	Relay      ports.Relay
	EventBus   ports.EventBus
	DeviceKeys ports.DeviceKeyProvider
	Crawler    crawler.Service

	MultiSendAddress       string
	RecoveryPathComponents []string
	AutoSubmit             bool
	MaxParallelResumes     int

	repo     ports.RepoManager
	recovery RecoveryService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %s", c.DBType)
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.recoveryService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) RecoveryService() RecoveryService {
	svc, _ := c.recoveryService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			repoManager, err := dbbadger.NewRepoManager(c.DBDir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("unsupported db type %s", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) recoveryService() (RecoveryService, error) {
	if c.recovery == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := NewRecoveryService(RecoveryServiceConfig{
			RepoManager:            repo,
			Relay:                  c.Relay,
			EventBus:               c.EventBus,
			DeviceKeys:             c.DeviceKeys,
			Crawler:                c.Crawler,
			MultiSendAddress:       c.MultiSendAddress,
			RecoveryPathComponents: c.RecoveryPathComponents,
			AutoSubmit:             c.AutoSubmit,
			MaxParallelResumes:     c.MaxParallelResumes,
		})
		if err != nil {
			return nil, err
		}
		c.recovery = svc
	}
	return c.recovery, nil
}
