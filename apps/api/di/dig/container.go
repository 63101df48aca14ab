package dig_container

import (
	"fmt"
	"io"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/offline"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxdb "github.com/trezcool/academia/storage/database/sqlx"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloserParam closes the storage on shutdown.
	DBCloserParam struct {
		dig.In
		Closer io.Closer `name:"db"`
	}

	Repositories struct {
		dig.Out

		Closer   io.Closer `name:"db"`
		Schools  school.Repository
		Users    user.Repository
		Students student.Repository
		Teachers teacher.Repository
		Classes  class.Repository
		Subjects subject.Repository
		Grades   grade.Repository
		Billing  billing.Repository
		Planning planning.Repository
	}

	ServicesParam struct {
		dig.In

		Conf    *core.Config
		Logger  core.Logger
		MailSvc core.EmailService

		Schools  school.Repository
		Users    user.Repository
		Students student.Repository
		Teachers teacher.Repository
		Classes  class.Repository
		Subjects subject.Repository
		Grades   grade.Repository
		Billing  billing.Repository
		Planning planning.Repository
	}

	Services struct {
		dig.Out

		SchoolSvc   *school.Service
		UserSvc     *user.Service
		StudentSvc  *student.Service
		TeacherSvc  *teacher.Service
		ClassSvc    *class.Service
		SubjectSvc  *subject.Service
		GradeSvc    *grade.Service
		BillingSvc  *billing.Service
		PlanningSvc *planning.Service
	}

	ServerParam struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Policies   *offline.PolicyTable

		SchoolSvc   *school.Service
		UserSvc     *user.Service
		StudentSvc  *student.Service
		TeacherSvc  *teacher.Service
		ClassSvc    *class.Service
		SubjectSvc  *subject.Service
		GradeSvc    *grade.Service
		BillingSvc  *billing.Service
		PlanningSvc *planning.Service
	}
)

func newLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logsvc.NewRollbarLogger(zl.Named("api"), conf), nil
}

func newDBLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logsvc.NewRollbarLogger(zl.Named("db"), conf), nil
}

// newRepositories sets up the storage engine of the configuration:
// PostgreSQL (created and migrated when needed) or the in-memory store.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (Repositories, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		loggerParam.Logger.Warn("using the in-memory database: data will not survive a restart")
		return Repositories{
			Closer:   db,
			Schools:  inmemdb.NewSchoolRepository(db),
			Users:    inmemdb.NewUserRepository(db),
			Students: inmemdb.NewStudentRepository(db),
			Teachers: inmemdb.NewTeacherRepository(db),
			Classes:  inmemdb.NewClassRepository(db),
			Subjects: inmemdb.NewSubjectRepository(db),
			Grades:   inmemdb.NewGradeRepository(db),
			Billing:  inmemdb.NewBillingRepository(db),
			Planning: inmemdb.NewPlanningRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return Repositories{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return Repositories{}, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return Repositories{}, err
	}
	loggerParam.Logger.Info(fmt.Sprintf("connected to database %q on %s", conf.Database.Name, conf.Database.Address()))

	return Repositories{
		Closer:   db,
		Schools:  sqlxdb.NewSchoolRepository(db),
		Users:    sqlxdb.NewUserRepository(db),
		Students: sqlxdb.NewStudentRepository(db),
		Teachers: sqlxdb.NewTeacherRepository(db),
		Classes:  sqlxdb.NewClassRepository(db),
		Subjects: sqlxdb.NewSubjectRepository(db),
		Grades:   sqlxdb.NewGradeRepository(db),
		Billing:  sqlxdb.NewBillingRepository(db),
		Planning: sqlxdb.NewPlanningRepository(db),
	}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServices(p ServicesParam) Services {
	teacherSvc := teacher.NewService(p.Teachers)
	classSvc := class.NewService(p.Classes, teacherSvc)
	subjectSvc := subject.NewService(p.Subjects)
	studentSvc := student.NewService(p.Students, classSvc)

	return Services{
		SchoolSvc:   school.NewService(p.Schools),
		UserSvc:     user.NewService(p.Users, p.MailSvc, p.Conf),
		StudentSvc:  studentSvc,
		TeacherSvc:  teacherSvc,
		ClassSvc:    classSvc,
		SubjectSvc:  subjectSvc,
		GradeSvc:    grade.NewService(p.Grades, studentSvc, classSvc, subjectSvc, teacherSvc),
		BillingSvc:  billing.NewService(p.Billing, studentSvc, p.MailSvc, p.Conf, p.Logger),
		PlanningSvc: planning.NewService(p.Planning, classSvc, subjectSvc, teacherSvc),
	}
}

// newValidator registers every custom validator and translation.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)
	return validate
}

func newPolicies(conf *core.Config) (*offline.PolicyTable, error) {
	return offline.LoadPolicies(conf.Offline.PolicyFile)
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Policies:    p.Policies,
		SchoolSvc:   p.SchoolSvc,
		UserSvc:     p.UserSvc,
		StudentSvc:  p.StudentSvc,
		TeacherSvc:  p.TeacherSvc,
		ClassSvc:    p.ClassSvc,
		SubjectSvc:  p.SubjectSvc,
		GradeSvc:    p.GradeSvc,
		BillingSvc:  p.BillingSvc,
		PlanningSvc: p.PlanningSvc,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig is core.NewConfig, or core.NewTestConfig in tests.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newServices))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newPolicies))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
