package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

const testPwd = "Kin$hasa-2025"

type testEnv struct {
	srv  *Server
	mail *emailsvc.ConsoleServiceMock

	school, other, inactive school.School

	superAdmin, admin, teacher, student, otherAdmin user.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subject.InitValidators(validate, translator)

	db := inmemdb.Open()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	userRepo := inmemdb.NewUserRepository(db)
	mail := emailsvc.NewConsoleServiceMock(conf, logger)

	teacherSvc := teacher.NewService(inmemdb.NewTeacherRepository(db))
	classSvc := class.NewService(inmemdb.NewClassRepository(db), teacherSvc)
	subjectSvc := subject.NewService(inmemdb.NewSubjectRepository(db))
	studentSvc := student.NewService(inmemdb.NewStudentRepository(db), classSvc)

	env := &testEnv{mail: mail}
	env.srv = NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Policies:    offline.DefaultPolicies(),
		SchoolSvc:   school.NewService(schoolRepo),
		UserSvc:     user.NewService(userRepo, mail, conf),
		StudentSvc:  studentSvc,
		TeacherSvc:  teacherSvc,
		ClassSvc:    classSvc,
		SubjectSvc:  subjectSvc,
		GradeSvc:    grade.NewService(inmemdb.NewGradeRepository(db), studentSvc, classSvc, subjectSvc, teacherSvc),
		BillingSvc:  billing.NewService(inmemdb.NewBillingRepository(db), studentSvc, mail, conf, logger),
		PlanningSvc: planning.NewService(inmemdb.NewPlanningRepository(db), classSvc, subjectSvc, teacherSvc),
	})

	env.school = testutil.CreateSchool(t, schoolRepo, "Complexe Scolaire Kin", "kin", school.StatusActive)
	env.other = testutil.CreateSchool(t, schoolRepo, "Institut Goma", "goma", school.StatusActive)
	env.inactive = testutil.CreateSchool(t, schoolRepo, "Lycée Fermé", "ferme", school.StatusInactive)

	env.superAdmin = testutil.CreateUser(t, userRepo, "", "Root", "root", "root@academia.cd", testPwd, user.RoleSuperAdmin, true)
	env.admin = testutil.CreateUser(t, userRepo, env.school.ID, "Admin", "admin", "admin@kin.cd", testPwd, user.RoleSchoolAdmin, true)
	env.teacher = testutil.CreateUser(t, userRepo, env.school.ID, "Prof", "prof", "prof@kin.cd", testPwd, user.RoleTeacher, true)
	env.student = testutil.CreateUser(t, userRepo, env.school.ID, "Eleve", "eleve", "eleve@kin.cd", testPwd, user.RoleStudent, true)
	env.otherAdmin = testutil.CreateUser(t, userRepo, env.other.ID, "Admin Goma", "admingoma", "admin@goma.cd", testPwd, user.RoleSchoolAdmin, true)
	testutil.CreateUser(t, userRepo, env.school.ID, "Gone", "gone", "gone@kin.cd", testPwd, user.RoleTeacher, false)
	return env
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.srv.auth.Token(usr)
	require.NoError(t, err)
	return token
}

type httpTest struct {
	name      string
	method    string
	path      string
	body      string
	tenant    string
	token     string
	wantCode  int
	wantError string // field expected in the errors of the response
}

func (env *testEnv) do(t *testing.T, method, path, tenant, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-School-Subdomain", tenant)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.tenant, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				var res errorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.Contains(t, res.Errors, tt.wantError)
			}
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_home(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia Hub API!", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServer_metrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", "", "", "")
	env.do(t, http.MethodGet, "/api/students", "kin", "", "")

	rec := env.do(t, http.MethodGet, "/metrics", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `academia_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, `academia_http_requests_total{code="401",method="GET",route="/api/students"} 1`)
	assert.Contains(t, body, "academia_http_request_duration_seconds")
}

func TestServer_syncPolicies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/sync/policies", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pt offline.PolicyTable
	decode(t, rec, &pt)
	assert.Equal(t, offline.ServerWins, pt.Default)
	assert.NotEmpty(t, pt.Policies)
}

func TestAuthAPI_login(t *testing.T) {
	env := newTestEnv(t)
	login := func(uname string) string {
		return `{"username": "` + uname + `", "password": "` + testPwd + `"}`
	}

	env.run(t, []httpTest{
		{name: "tenant admin", method: "POST", path: "/api/auth/login", tenant: "kin", body: login("admin"), wantCode: http.StatusOK},
		{name: "email and case", method: "POST", path: "/api/auth/login", tenant: "kin", body: login("Prof@Kin.cd"), wantCode: http.StatusOK},
		{name: "super admin without tenant", method: "POST", path: "/api/auth/login", body: login("root"), wantCode: http.StatusOK},
		{name: "tenant user without tenant", method: "POST", path: "/api/auth/login", body: login("admin"), wantCode: http.StatusBadRequest},
		{name: "user of another school", method: "POST", path: "/api/auth/login", tenant: "goma", body: login("admin"), wantCode: http.StatusBadRequest},
		{name: "wrong password", method: "POST", path: "/api/auth/login", tenant: "kin", body: `{"username": "admin", "password": "nope"}`, wantCode: http.StatusBadRequest},
		{name: "unknown user", method: "POST", path: "/api/auth/login", tenant: "kin", body: login("ghost"), wantCode: http.StatusBadRequest},
		{name: "deactivated", method: "POST", path: "/api/auth/login", tenant: "kin", body: login("gone"), wantCode: http.StatusForbidden},
		{name: "unknown tenant", method: "POST", path: "/api/auth/login", tenant: "nowhere", body: login("admin"), wantCode: http.StatusNotFound},
		{name: "inactive tenant", method: "POST", path: "/api/auth/login", tenant: "ferme", body: login("admin"), wantCode: http.StatusForbidden},
		{name: "missing password", method: "POST", path: "/api/auth/login", tenant: "kin", body: `{"username": "admin"}`, wantCode: http.StatusBadRequest, wantError: "password"},
	})

	rec := env.do(t, http.MethodPost, "/api/auth/login", "kin", "", login("admin"))
	var res struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decode(t, rec, &res)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, env.admin.ID, res.User.ID)

	rec = env.do(t, http.MethodGet, "/api/auth/me", "", res.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	decode(t, rec, &me)
	assert.Equal(t, env.admin.ID, me.ID)
	assert.False(t, me.LastLogin.IsZero())

	rec = env.do(t, http.MethodPost, "/api/auth/token-refresh", "", res.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
}

func TestAuthAPI_passwordReset(t *testing.T) {
	env := newTestEnv(t)

	env.run(t, []httpTest{
		{name: "known email", method: "POST", path: "/api/auth/password-reset", tenant: "kin", body: `{"email": "prof@kin.cd"}`, wantCode: http.StatusOK},
		{name: "unknown email", method: "POST", path: "/api/auth/password-reset", tenant: "kin", body: `{"email": "ghost@kin.cd"}`, wantCode: http.StatusOK},
		{name: "other tenant", method: "POST", path: "/api/auth/password-reset", tenant: "goma", body: `{"email": "prof@kin.cd"}`, wantCode: http.StatusOK},
		{name: "invalid email", method: "POST", path: "/api/auth/password-reset", tenant: "kin", body: `{"email": "prof"}`, wantCode: http.StatusBadRequest, wantError: "email"},
	})

	sent := env.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "prof@kin.cd", sent[0].To[0].Address)

	data := sent[0].TemplateData.(map[string]interface{})
	body, err := json.Marshal(user.ResetUserPassword{
		Token:           data["Token"].(string),
		UID:             data["UID"].(string),
		Password:        "N3w-Pa$$word",
		PasswordConfirm: "N3w-Pa$$word",
	})
	require.NoError(t, err)

	env.run(t, []httpTest{
		{name: "bad token", method: "POST", path: "/api/auth/password-reset-confirm", body: `{"token": "x", "uid": "y", "password": "N3w-Pa$$word", "password_confirm": "N3w-Pa$$word"}`, wantCode: http.StatusBadRequest},
		{name: "reset", method: "POST", path: "/api/auth/password-reset-confirm", body: string(body), wantCode: http.StatusOK},
		{name: "login with new password", method: "POST", path: "/api/auth/login", tenant: "kin", body: `{"username": "prof", "password": "N3w-Pa$$word"}`, wantCode: http.StatusOK},
	})
}

func TestServer_tenantAccess(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.token(t, env.admin)

	env.run(t, []httpTest{
		{name: "missing token", method: "GET", path: "/api/students", tenant: "kin", wantCode: http.StatusUnauthorized},
		{name: "bad token", method: "GET", path: "/api/students", tenant: "kin", token: "abc", wantCode: http.StatusUnauthorized},
		{name: "missing tenant", method: "GET", path: "/api/students", token: adminToken, wantCode: http.StatusNotFound},
		{name: "unknown tenant", method: "GET", path: "/api/students", tenant: "nowhere", token: adminToken, wantCode: http.StatusNotFound},
		{name: "inactive tenant", method: "GET", path: "/api/students", tenant: "ferme", token: adminToken, wantCode: http.StatusForbidden},
		{name: "token of another school", method: "GET", path: "/api/students", tenant: "goma", token: adminToken, wantCode: http.StatusForbidden},
		{name: "student role", method: "GET", path: "/api/students", tenant: "kin", token: env.token(t, env.student), wantCode: http.StatusForbidden},
		{name: "teacher reads", method: "GET", path: "/api/students", tenant: "kin", token: env.token(t, env.teacher), wantCode: http.StatusOK},
		{name: "teacher cannot write", method: "POST", path: "/api/students", tenant: "kin", token: env.token(t, env.teacher), body: `{}`, wantCode: http.StatusForbidden},
		{name: "super admin", method: "GET", path: "/api/students", tenant: "kin", token: env.token(t, env.superAdmin), wantCode: http.StatusOK},
		{name: "current school", method: "GET", path: "/api/school", tenant: "kin", token: env.token(t, env.student), wantCode: http.StatusOK},
		{name: "schools need a super admin", method: "GET", path: "/api/schools", token: adminToken, wantCode: http.StatusForbidden},
	})

	rec := env.do(t, http.MethodGet, "/api/students", "kin", adminToken, "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	// the Host subdomain wins over the header
	req := httptest.NewRequest(http.MethodGet, "/api/school", nil)
	req.Host = "goma.academiahub.local:8000"
	req.Header.Set("Authorization", "Bearer "+env.token(t, env.otherAdmin))
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sch school.School
	decode(t, rec, &sch)
	assert.Equal(t, env.other.ID, sch.ID)
}

func TestSchoolAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.superAdmin)

	env.run(t, []httpTest{
		{name: "create", method: "POST", path: "/api/schools", token: token, body: `{"name": "EP Lubumbashi", "subdomain": "Lushi"}`, wantCode: http.StatusCreated},
		{name: "duplicate subdomain", method: "POST", path: "/api/schools", token: token, body: `{"name": "Autre", "subdomain": "kin"}`, wantCode: http.StatusConflict, wantError: "subdomain"},
		{name: "reserved subdomain", method: "POST", path: "/api/schools", token: token, body: `{"name": "Autre", "subdomain": "www"}`, wantCode: http.StatusBadRequest, wantError: "subdomain"},
		{name: "list", method: "GET", path: "/api/schools?status=ACTIVE", token: token, wantCode: http.StatusOK},
		{name: "retrieve", method: "GET", path: "/api/schools/" + env.other.ID, token: token, wantCode: http.StatusOK},
		{name: "unknown", method: "GET", path: "/api/schools/nope", token: token, wantCode: http.StatusNotFound},
		{name: "suspend", method: "PATCH", path: "/api/schools/" + env.other.ID + "/status", token: token, body: `{"status": "SUSPENDED"}`, wantCode: http.StatusOK},
		{name: "suspended tenant", method: "GET", path: "/api/school", tenant: "goma", token: env.token(t, env.otherAdmin), wantCode: http.StatusForbidden},
	})

	rec := env.do(t, http.MethodGet, "/api/schools?search=lubum", "", token, "")
	var schools []school.School
	decode(t, rec, &schools)
	require.Len(t, schools, 1)
	assert.Equal(t, "lushi", schools[0].Subdomain)
}

func TestUserAPI(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.token(t, env.admin)
	teacherToken := env.token(t, env.teacher)
	path := "/api/users"

	newUser := `{"name": "Mama Nzita", "username": "nzita", "role": "TEACHER", "password": "Gombe#2025x", "password_confirm": "Gombe#2025x"}`
	env.run(t, []httpTest{
		{name: "create", method: "POST", path: path, tenant: "kin", token: adminToken, body: newUser, wantCode: http.StatusCreated},
		{name: "duplicate username", method: "POST", path: path, tenant: "kin", token: adminToken, body: newUser, wantCode: http.StatusConflict, wantError: "username"},
		{name: "weak password", method: "POST", path: path, tenant: "kin", token: adminToken, body: `{"name": "X", "username": "xxxx", "role": "TEACHER", "password": "12345678", "password_confirm": "12345678"}`, wantCode: http.StatusBadRequest, wantError: "password"},
		{name: "super admin role", method: "POST", path: path, tenant: "kin", token: adminToken, body: `{"name": "X", "username": "xxxx", "role": "SUPER_ADMIN", "password": "Gombe#2025x", "password_confirm": "Gombe#2025x"}`, wantCode: http.StatusBadRequest, wantError: "role"},
		{name: "teacher cannot list", method: "GET", path: path, tenant: "kin", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "roles", method: "GET", path: path + "/roles", tenant: "kin", token: adminToken, wantCode: http.StatusOK},
		{name: "self", method: "GET", path: path + "/" + env.teacher.ID, tenant: "kin", token: teacherToken, wantCode: http.StatusOK},
		{name: "someone else", method: "GET", path: path + "/" + env.admin.ID, tenant: "kin", token: teacherToken, wantCode: http.StatusNotFound},
		{name: "user of another school", method: "GET", path: path + "/" + env.otherAdmin.ID, tenant: "kin", token: adminToken, wantCode: http.StatusNotFound},
		{name: "self rename", method: "PUT", path: path + "/" + env.teacher.ID, tenant: "kin", token: teacherToken, body: `{"name": "Prof Mbala"}`, wantCode: http.StatusOK},
		{name: "self promotion", method: "PUT", path: path + "/" + env.teacher.ID, tenant: "kin", token: teacherToken, body: `{"role": "SCHOOL_ADMIN"}`, wantCode: http.StatusForbidden},
		{name: "admin deactivates", method: "PUT", path: path + "/" + env.student.ID, tenant: "kin", token: adminToken, body: `{"is_active": false}`, wantCode: http.StatusOK},
		{name: "self delete", method: "DELETE", path: path + "/" + env.admin.ID, tenant: "kin", token: adminToken, wantCode: http.StatusForbidden},
		{name: "self in bulk delete", method: "DELETE", path: path + "?id=" + env.admin.ID, tenant: "kin", token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete", method: "DELETE", path: path + "/" + env.student.ID, tenant: "kin", token: adminToken, wantCode: http.StatusNoContent},
	})

	rec := env.do(t, http.MethodGet, path+"?role=teacher&is_active=true&ordering=name", "kin", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decode(t, rec, &users)
	require.Len(t, users, 2)
	assert.Equal(t, "Mama Nzita", users[0].Name)
	assert.Equal(t, "Prof Mbala", users[1].Name)

	rec = env.do(t, http.MethodGet, path+"?is_active=maybe", "kin", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.admin)
	path := "/api/students"

	body := `{"student_id": "KIN-001", "first_name": "Amani", "last_name": "Kabila", "gender": "M", "date_of_birth": "2012-03-04"}`
	rec := env.do(t, http.MethodPost, path, "kin", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s student.Student
	decode(t, rec, &s)
	assert.Equal(t, student.StatusActive, s.Status)
	assert.Equal(t, env.school.ID, s.SchoolID)

	env.run(t, []httpTest{
		{name: "duplicate student id", method: "POST", path: path, tenant: "kin", token: token, body: body, wantCode: http.StatusConflict, wantError: "student_id"},
		{name: "same id in another school", method: "POST", path: path, tenant: "goma", token: env.token(t, env.otherAdmin), body: body, wantCode: http.StatusCreated},
		{name: "invalid", method: "POST", path: path, tenant: "kin", token: token, body: `{"student_id": "x", "first_name": "A", "last_name": "B", "gender": "X", "date_of_birth": "2012-03-04"}`, wantCode: http.StatusBadRequest, wantError: "gender"},
		{name: "unknown class", method: "POST", path: path, tenant: "kin", token: token, body: `{"student_id": "KIN-002", "first_name": "A", "last_name": "B", "gender": "F", "date_of_birth": "2012-03-04", "class_id": "8a1c1b1e-7a48-4b49-9b7b-6f1f1e2a3b4c"}`, wantCode: http.StatusBadRequest, wantError: "class_id"},
		{name: "retrieve", method: "GET", path: path + "/" + s.ID, tenant: "kin", token: token, wantCode: http.StatusOK},
		{name: "other tenant cannot see", method: "GET", path: path + "/" + s.ID, tenant: "goma", token: env.token(t, env.otherAdmin), wantCode: http.StatusNotFound},
		{name: "unknown", method: "GET", path: path + "/nope", tenant: "kin", token: token, wantCode: http.StatusNotFound},
		{name: "update", method: "PUT", path: path + "/" + s.ID, tenant: "kin", token: token, body: `{"parent_name": "Mama Amani"}`, wantCode: http.StatusOK},
		{name: "status", method: "PATCH", path: path + "/" + s.ID + "/status", tenant: "kin", token: token, body: `{"status": "GRADUATED"}`, wantCode: http.StatusOK},
		{name: "bad status", method: "PATCH", path: path + "/" + s.ID + "/status", tenant: "kin", token: token, body: `{"status": "EXPELLED"}`, wantCode: http.StatusBadRequest, wantError: "status"},
	})

	rec = env.do(t, http.MethodGet, path+"?status=graduated&search=amani", "kin", token, "")
	var students []student.Student
	decode(t, rec, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "Mama Amani", students[0].ParentName)

	env.run(t, []httpTest{
		{name: "delete", method: "DELETE", path: path + "/" + s.ID, tenant: "kin", token: token, wantCode: http.StatusNoContent},
		{name: "deleted", method: "GET", path: path + "/" + s.ID, tenant: "kin", token: token, wantCode: http.StatusNotFound},
	})
}

func TestSchoolLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.admin)

	create := func(path, body string, v interface{}) {
		t.Helper()
		rec := env.do(t, http.MethodPost, path, "kin", token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, v)
	}

	var tch teacher.Teacher
	create("/api/teachers", `{"employee_id": "T-01", "first_name": "Jean", "last_name": "Mbala", "email": "jean@kin.cd"}`, &tch)
	var cls class.Class
	create("/api/classes", `{"name": "6ème A", "level": "PRIMAIRE", "academic_year": "2025-2026", "capacity": 2, "homeroom_teacher_id": "`+tch.ID+`"}`, &cls)
	var subj subject.Subject
	create("/api/subjects", `{"code": "MATH", "name": "Mathématiques", "level": "PRIMAIRE", "coefficient": 2}`, &subj)

	dob := core.Today().AddDate(-10, 0, 0).Format("2006-01-02")
	var s student.Student
	create("/api/students", `{"student_id": "KIN-001", "first_name": "Amani", "last_name": "Kabila", "gender": "M", "date_of_birth": "`+dob+`", "class_id": "`+cls.ID+`"}`, &s)

	env.run(t, []httpTest{
		{name: "duplicate teacher", method: "POST", path: "/api/teachers", tenant: "kin", token: token, body: `{"employee_id": "T-01", "first_name": "A", "last_name": "B", "email": "b@kin.cd"}`, wantCode: http.StatusConflict, wantError: "employee_id"},
		{name: "duplicate subject", method: "POST", path: "/api/subjects", tenant: "kin", token: token, body: `{"code": "MATH", "name": "Maths", "level": "PRIMAIRE"}`, wantCode: http.StatusConflict, wantError: "code"},
		{name: "over capacity", method: "POST", path: "/api/classes", tenant: "kin", token: token, body: `{"name": "Géante", "level": "MATERNELLE", "academic_year": "2025-2026", "capacity": 500}`, wantCode: http.StatusBadRequest, wantError: "capacity"},
		{name: "bad academic year", method: "POST", path: "/api/classes", tenant: "kin", token: token, body: `{"name": "B", "level": "PRIMAIRE", "academic_year": "2025-2027"}`, wantCode: http.StatusBadRequest, wantError: "academic_year"},
		{name: "class with students", method: "DELETE", path: "/api/classes/" + cls.ID, tenant: "kin", token: token, wantCode: http.StatusConflict},
		{name: "grade out of scale", method: "POST", path: "/api/grades", tenant: "kin", token: token, body: `{"student_id": "` + s.ID + `", "subject_id": "` + subj.ID + `", "term": 1, "kind": "EXAM", "score": 15}`, wantCode: http.StatusBadRequest, wantError: "score"},
		{name: "grade", method: "POST", path: "/api/grades", tenant: "kin", token: env.token(t, env.teacher), body: `{"student_id": "` + s.ID + `", "subject_id": "` + subj.ID + `", "term": 1, "kind": "EXAM", "score": 7.5}`, wantCode: http.StatusCreated},
		{name: "report without term", method: "GET", path: "/api/reports/students/" + s.ID, tenant: "kin", token: token, wantCode: http.StatusBadRequest, wantError: "term"},
		{name: "room", method: "POST", path: "/api/rooms", tenant: "kin", token: token, body: `{"name": "Salle 1", "capacity": 40}`, wantCode: http.StatusCreated},
		{name: "duplicate room", method: "POST", path: "/api/rooms", tenant: "kin", token: token, body: `{"name": "Salle 1", "capacity": 30}`, wantCode: http.StatusConflict, wantError: "name"},
	})

	rec := env.do(t, http.MethodGet, "/api/classes/"+cls.ID+"/students", "kin", token, "")
	var roster []student.Student
	decode(t, rec, &roster)
	require.Len(t, roster, 1)
	assert.Equal(t, s.ID, roster[0].ID)

	rec = env.do(t, http.MethodGet, "/api/reports/students/"+s.ID+"?term=1", "kin", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var card grade.ReportCard
	decode(t, rec, &card)
	require.Len(t, card.Subjects, 1)

	rec = env.do(t, http.MethodGet, "/api/reports/classes/"+cls.ID+"?term=1", "kin", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entry := `{"class_id": "` + cls.ID + `", "subject_id": "` + subj.ID + `", "teacher_id": "` + tch.ID + `", "day_of_week": 1, "start_time": "08:00", "end_time": "09:00"}`
	env.run(t, []httpTest{
		{name: "schedule", method: "POST", path: "/api/schedule", tenant: "kin", token: token, body: entry, wantCode: http.StatusCreated},
		{name: "clash", method: "POST", path: "/api/schedule", tenant: "kin", token: token, body: entry, wantCode: http.StatusConflict},
		{name: "ends before start", method: "POST", path: "/api/schedule", tenant: "kin", token: token, body: strings.Replace(entry, `"09:00"`, `"07:00"`, 1), wantCode: http.StatusBadRequest},
		{name: "teacher reads schedule", method: "GET", path: "/api/schedule?day_of_week=1", tenant: "kin", token: env.token(t, env.teacher), wantCode: http.StatusOK},
	})
}

func TestBillingAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.admin)

	rec := env.do(t, http.MethodPost, "/api/students", "kin", token,
		`{"student_id": "KIN-001", "first_name": "Amani", "last_name": "Kabila", "gender": "M", "date_of_birth": "2012-03-04", "parent_email": "papa@kin.cd"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s student.Student
	decode(t, rec, &s)

	due := core.Today().AddDate(0, 1, 0).Format("2006-01-02")
	rec = env.do(t, http.MethodPost, "/api/invoices", "kin", token,
		`{"student_id": "`+s.ID+`", "description": "Frais scolaires T1", "amount": 10000, "due_date": "`+due+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv billing.Invoice
	decode(t, rec, &inv)
	assert.Equal(t, billing.StatusPending, inv.Status)
	assert.Equal(t, "USD", inv.Currency)

	payments := "/api/invoices/" + inv.ID + "/payments"
	env.run(t, []httpTest{
		{name: "teacher", method: "GET", path: "/api/invoices", tenant: "kin", token: env.token(t, env.teacher), wantCode: http.StatusForbidden},
		{name: "unknown student", method: "POST", path: "/api/invoices", tenant: "kin", token: token, body: `{"student_id": "8a1c1b1e-7a48-4b49-9b7b-6f1f1e2a3b4c", "description": "x", "amount": 1, "due_date": "` + due + `"}`, wantCode: http.StatusBadRequest, wantError: "student_id"},
		{name: "overpayment", method: "POST", path: payments, tenant: "kin", token: token, body: `{"amount": 20000, "method": "CASH"}`, wantCode: http.StatusBadRequest, wantError: "amount"},
		{name: "bad method", method: "POST", path: payments, tenant: "kin", token: token, body: `{"amount": 100, "method": "BITCOIN"}`, wantCode: http.StatusBadRequest, wantError: "method"},
	})

	rec = env.do(t, http.MethodPost, payments, "kin", token, `{"amount": 4000, "method": "MOBILE_MONEY", "reference": "MP-42"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res PaymentResponse
	decode(t, rec, &res)
	assert.Equal(t, billing.StatusPartial, res.Invoice.Status)
	assert.Equal(t, int64(4000), res.Invoice.AmountPaid)
	assert.Equal(t, env.admin.ID, res.Payment.RecordedBy)

	rec = env.do(t, http.MethodGet, payments, "kin", token, "")
	var list []billing.Payment
	decode(t, rec, &list)
	require.Len(t, list, 1)

	rec = env.do(t, http.MethodGet, "/api/payments?method=mobile_money", "kin", token, "")
	decode(t, rec, &list)
	require.Len(t, list, 1)

	env.run(t, []httpTest{
		{name: "invoice with payments", method: "DELETE", path: "/api/invoices/" + inv.ID, tenant: "kin", token: token, wantCode: http.StatusConflict},
		{name: "cancel", method: "POST", path: "/api/invoices/" + inv.ID + "/cancel", tenant: "kin", token: token, wantCode: http.StatusOK},
		{name: "pay cancelled", method: "POST", path: payments, tenant: "kin", token: token, body: `{"amount": 100, "method": "CASH"}`, wantCode: http.StatusBadRequest},
	})
}
