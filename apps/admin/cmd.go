package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password must not be empty")
)

type (
	repositories struct {
		schools  school.Repository
		users    user.Repository
		teachers teacher.Repository
		classes  class.Repository
		subjects subject.Repository
		students student.Repository
	}

	commandLine struct {
		conf     *core.Config
		db       *sql.DB // nil with the in-memory engine
		validate *validator.Validate
		out      io.Writer

		usrRepo    user.Repository
		schoolSvc  *school.Service
		teacherSvc *teacher.Service
		classSvc   *class.Service
		subjectSvc *subject.Service
		studentSvc *student.Service
	}
)

func newCommandLine(conf *core.Config, db *sql.DB, repos repositories, validate *validator.Validate) *commandLine {
	teacherSvc := teacher.NewService(repos.teachers)
	classSvc := class.NewService(repos.classes, teacherSvc)
	return &commandLine{
		conf:       conf,
		db:         db,
		validate:   validate,
		out:        os.Stdout,
		usrRepo:    repos.users,
		schoolSvc:  school.NewService(repos.schools),
		teacherSvc: teacherSvc,
		classSvc:   classSvc,
		subjectSvc: subject.NewService(repos.subjects),
		studentSvc: student.NewService(repos.students, classSvc),
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Academia Hub administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.AddCommand(
		cli.migrateCmd(),
		cli.addSchoolCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.seedCmd(),
	)
	return root
}

// run executes the command line args (program name included).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, args...)
}

// readPassword prompts for a password without echoing it.
func (cli *commandLine) readPassword(prompt string) (string, error) {
	cli.printf("%s: ", prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}
