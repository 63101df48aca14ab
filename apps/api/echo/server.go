package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

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
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Policies   *offline.PolicyTable
		Registry   *prometheus.Registry // nil for a fresh one

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

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		metrics:  newMetrics(deps.Registry),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf
	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.GET("/", home)
	s.app.GET("/health", health)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)
	requireSuperAdmin := requireRoles(user.RoleSuperAdmin)
	requireAdmin := requireRoles(user.RoleSchoolAdmin)
	requireStaff := requireRoles(user.RoleSchoolAdmin, user.RoleTeacher)

	registerSyncAPI(api, s.deps.Policies)

	// the tenant is optional for authentication: super admins have none
	optTenant := api.Group("", s.tenantMiddleware(false))
	registerAuthAPI(optTenant, jwt, s.auth, s.deps.UserSvc, s.deps.Validate, s.deps.Logger)

	registerSchoolAPI(api.Group("/schools", jwt, requireSuperAdmin), s.deps.SchoolSvc, s.deps.Validate)

	// tenant endpoints
	tg := api.Group("", s.tenantMiddleware(true), jwt, membershipMiddleware)
	tg.GET("/school", currentSchool)
	registerUserAPI(tg, requireAdmin, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerStudentAPI(tg, requireAdmin, requireStaff, s.deps.StudentSvc, s.deps.Validate)
	registerTeacherAPI(tg, requireAdmin, requireStaff, s.deps.TeacherSvc, s.deps.Validate)
	registerClassAPI(tg, requireAdmin, requireStaff, s.deps.ClassSvc, s.deps.StudentSvc, s.deps.Validate)
	registerSubjectAPI(tg, requireAdmin, requireStaff, s.deps.SubjectSvc, s.deps.Validate)
	registerGradeAPI(tg, requireStaff, s.deps.GradeSvc, s.deps.Validate)
	registerBillingAPI(tg, requireAdmin, s.auth, s.deps.BillingSvc, s.deps.Validate)
	registerPlanningAPI(tg, requireAdmin, requireStaff, s.deps.PlanningSvc, s.deps.Validate)
}

// Start listens on the configured address; failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia Hub API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
