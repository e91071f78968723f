// Package cli implements ledgerctl, the operator command line for the card
// ledger.
package cli

import (
	"context"
	"fmt"

	"bankcards/internal/config"
	"bankcards/internal/logging"
	"bankcards/internal/repositories"
	"bankcards/internal/utils/cardcrypto"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Operate the bank card ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command named by os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// ledgerEnv holds what the database backed commands need.
type ledgerEnv struct {
	db    *gorm.DB
	store repositories.CardStore
	users repositories.UserDirectory
	codec *cardcrypto.Codec
	log   *logrus.Logger
}

// openEnv connects to the configured postgres database. Replaced in tests.
var openEnv = func(ctx context.Context) (*ledgerEnv, func(), error) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, nil, fmt.Errorf("ledgerctl needs STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	log := logging.New(cfg.LogLevel)

	codec, err := cardcrypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	db, err := repositories.OpenPostgres(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := repositories.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}

	return &ledgerEnv{
		db:    db,
		store: repositories.NewCardRepository(db, cfg.LockTimeout),
		users: repositories.NewUserRepository(db, nil, log),
		codec: codec,
		log:   log,
	}, closeFn, nil
}
