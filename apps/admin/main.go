package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxdb "github.com/trezcool/academia/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger = logsvc.NewRollbarLogger(zl.Named("admin"), conf)

	db, closer, repos, err := openRepositories(conf)
	errAndDie(err)
	defer func() { _ = closer.Close() }()

	validate := newValidator()
	cli := newCommandLine(conf, db, repos, validate)
	if err := cli.run(os.Args); err != nil {
		logger.Error(fmt.Sprintf("error: %s", err))
		_ = closer.Close()
		os.Exit(1)
	}
}

// openRepositories returns the repositories of the configured engine.
// db is nil with the in-memory engine.
func openRepositories(conf *core.Config) (*sql.DB, io.Closer, repositories, error) {
	if conf.Database.Engine == "memory" {
		mem := inmemdb.Open()
		logger.Warn("using the in-memory database: nothing will be persisted")
		return nil, mem, repositories{
			schools:  inmemdb.NewSchoolRepository(mem),
			users:    inmemdb.NewUserRepository(mem),
			teachers: inmemdb.NewTeacherRepository(mem),
			classes:  inmemdb.NewClassRepository(mem),
			subjects: inmemdb.NewSubjectRepository(mem),
			students: inmemdb.NewStudentRepository(mem),
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, repositories{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, repositories{}, errors.Wrap(err, "opening database")
	}
	return db.DB, db, repositories{
		schools:  sqlxdb.NewSchoolRepository(db),
		users:    sqlxdb.NewUserRepository(db),
		teachers: sqlxdb.NewTeacherRepository(db),
		classes:  sqlxdb.NewClassRepository(db),
		subjects: sqlxdb.NewSubjectRepository(db),
		students: sqlxdb.NewStudentRepository(db),
	}, nil
}

func newValidator() *validator.Validate {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)
	return validate
}

func errAndDie(err error) {
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
