package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/academia/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable

	errNoSQLDatabase = errors.New("migrations need the postgres database engine")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate COMMAND [ARGS]",
		Short:     "Run database migrations",
		Long:      "Run a goose command on the embedded migrations: " + strings.Join(database.MigrateCommands, ", "),
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: database.MigrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
