package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	testutil "github.com/trezcool/academia/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	mem := inmemdb.Open()
	t.Cleanup(func() { _ = mem.Close() })
	usrRepo = inmemdb.NewUserRepository(mem)

	logger = testutil.NewLogger()
	cli := newCommandLine(core.NewTestConfig(), new(sql.DB), repositories{
		schools:  inmemdb.NewSchoolRepository(mem),
		users:    usrRepo,
		teachers: inmemdb.NewTeacherRepository(mem),
		classes:  inmemdb.NewClassRepository(mem),
		subjects: inmemdb.NewSubjectRepository(mem),
		students: inmemdb.NewStudentRepository(mem),
	}, newValidator())
	cli.out = new(bytes.Buffer)
	return cli
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = nil })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("in-memory engine", func(t *testing.T) {
		cli.db = nil
		assert.ErrorIs(t, cli.run([]string{"admin", "migrate", "up"}), errNoSQLDatabase)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "", "User", "awe", "awe@test.cd", "mdr", user.RoleSuperAdmin, true)

	tests := []struct {
		cliTest
		pwd string
	}{
		{cliTest: cliTest{name: "unknown command", args: []string{"lol"}, wantErrStr: "unknown command \"lol\" for \"admin\""}},
		{cliTest: cliTest{name: "no username", args: []string{"resetpassword"}, wantErrStr: "required flag(s) \"username\" not set"}},
		{cliTest: cliTest{name: "no password", args: []string{"resetpassword", "--username", usr.Username}, wantErr: errEmptyPassword}},
		{cliTest: cliTest{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, wantErr: user.ErrNotFound}, pwd: "lol"},
		{cliTest: cliTest{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}}, pwd: "lol"},
		{cliTest: cliTest{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}}, pwd: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			}
		})
	}
}

func Test_commandLine_addSchool(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "missing flags", args: []string{"addschool"}, wantErrStr: "required flag(s) \"name\", \"subdomain\" not set"},
		{name: "invalid subdomain", args: []string{"addschool", "--name", "Lycée", "--subdomain=lol_x"}},
		{name: "create", args: []string{"addschool", "--name", "Lycée Wagenia", "--subdomain", "Wagenia", "--email", "info@wagenia.cd"}},
		{name: "duplicate subdomain", args: []string{"addschool", "--name", "Autre", "--subdomain", "wagenia"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "invalid subdomain":
				var verrs validator.ValidationErrors
				assert.ErrorAs(t, err, &verrs)
			case "duplicate subdomain":
				assert.True(t, core.IsConflict(err), "got %v", err)
			default:
				tt.check(t, err)
			}
		})
	}

	sch, err := cli.schoolSvc.Resolve(context.Background(), "wagenia")
	require.NoError(t, err)
	assert.Equal(t, "Lycée Wagenia", sch.Name)
	assert.Equal(t, "info@wagenia.cd", sch.Email)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	_, err := cli.addSchool(newSchool("wagenia"))
	require.NoError(t, err)
	_, err = cli.addSchool(newSchool("kin"))
	require.NoError(t, err)
	mockPassword("Kin$hasa-2025")

	// super admin
	require.NoError(t, cli.run([]string{"admin", "adduser", "--username", "Root", "--email", "root@academia.cd"}))
	root, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "root"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleSuperAdmin, root.Role)
	assert.Empty(t, root.SchoolID)
	assert.Equal(t, "root", root.Name)
	assert.NoError(t, root.CheckPassword("Kin$hasa-2025"))

	// school user
	require.NoError(t, cli.run([]string{"admin", "adduser", "--school", "wagenia", "--name", "Prof", "--username", "prof", "--role", user.RoleTeacher}))
	prof, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "prof"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, prof.Role)
	assert.NotEmpty(t, prof.SchoolID)
	assert.True(t, prof.IsActive)

	// update keeps the ID
	mockPassword("Goma$2025")
	require.NoError(t, cli.run([]string{"admin", "adduser", "--school", "wagenia", "--username", "prof", "--role", user.RoleSchoolAdmin}))
	updated, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "prof"})
	require.NoError(t, err)
	assert.Equal(t, prof.ID, updated.ID)
	assert.Equal(t, "Prof", updated.Name)
	assert.Equal(t, user.RoleSchoolAdmin, updated.Role)
	assert.NoError(t, updated.CheckPassword("Goma$2025"))

	tests := []struct {
		name  string
		args  []string
		check func(err error) bool
	}{
		{name: "unknown school", args: []string{"--school", "lol", "--username", "x"}, check: core.IsNotFound},
		{name: "invalid role", args: []string{"--school", "wagenia", "--username", "x", "--role", user.RoleSuperAdmin}, check: core.IsValidation},
		{name: "other school", args: []string{"--school", "kin", "--username", "prof"}, check: core.IsConflict},
		{name: "email taken", args: []string{"--username", "root2", "--email", "root@academia.cd"}, check: core.IsConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin", "adduser"}, tt.args...))
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	mockPassword("")
	assert.ErrorIs(t, cli.run([]string{"admin", "seed"}), errEmptyPassword)

	mockPassword("Kin$hasa-2025")
	require.NoError(t, cli.run([]string{"admin", "seed", "--subdomain", "lumumba"}))

	sch, err := cli.schoolSvc.Resolve(ctx, "lumumba")
	require.NoError(t, err)
	admin, err := usrRepo.GetUser(ctx, user.GetFilter{SchoolID: sch.ID, Username: "admin_lumumba"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleSchoolAdmin, admin.Role)

	classes, err := cli.classSvc.Query(ctx, sch.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, core.LevelPrimaire, classes[0].Level)

	students, err := cli.studentSvc.Query(ctx, sch.ID, &student.QueryFilter{ClassID: classes[0].ID}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 3)

	subjects, err := cli.subjectSvc.Query(ctx, sch.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, subjects, 3)

	// seeding twice conflicts on the subdomain
	err = cli.run([]string{"admin", "seed", "--subdomain", "lumumba"})
	assert.True(t, core.IsConflict(err), "got %v", err)
}

func Test_academicYear(t *testing.T) {
	assert.Equal(t, "2025-2026", academicYear(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-2025", academicYear(time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)))
}

func newSchool(subdomain string) school.NewSchool {
	return school.NewSchool{Name: "École " + subdomain, Subdomain: subdomain}
}
