// Command desktop is the offline-first client of Academia Hub: it reads through a local
// SQLite cache and queues the changes made without a connection until the next sync.
package main

import (
	"fmt"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/syncer"
	sqlitedb "github.com/trezcool/academia/storage/database/sqlite"
)

func main() {
	conf := core.NewConfig()
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("desktop"), conf)
	defer logger.Sync()

	if err := run(conf, logger, os.Args); err != nil {
		logger.Error(fmt.Sprintf("error: %s", err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger core.Logger, args []string) error {
	policies, err := offline.LoadPolicies(conf.Offline.PolicyFile)
	if err != nil {
		return err
	}
	store, err := sqlitedb.Open(conf.Offline.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := syncer.NewClient(conf, store, policies, logger)
	a := newApp(client, syncer.New(client, store, policies, logger), store, conf.Offline.SyncInterval)
	return a.run(args)
}
