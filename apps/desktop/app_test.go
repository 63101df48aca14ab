package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
	"github.com/trezcool/academia/services/syncer"
	sqlitedb "github.com/trezcool/academia/storage/database/sqlite"
	testutil "github.com/trezcool/academia/tests"
)

const (
	oldStamp = "2025-01-01T08:00:00Z"
	newStamp = "2025-01-02T08:00:00Z"
)

type fakeAPI struct {
	mu      sync.Mutex
	down    bool
	records map[string]map[string]interface{}
	auth    string
}

func (api *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if api.down {
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			_ = conn.Close()
		}
		return
	}
	write := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	api.auth = r.Header.Get("Authorization")

	switch {
	case r.URL.Path == "/health":
		write(http.StatusOK, map[string]string{"status": "ok"})
	case r.URL.Path == "/api/auth/login":
		if body["password"] != "Kin$hasa-2025" {
			write(http.StatusBadRequest, map[string]string{"message": "invalid credentials"})
			return
		}
		write(http.StatusOK, map[string]interface{}{
			"token": "tok3n",
			"user":  map[string]string{"name": "Prof", "role": "TEACHER"},
		})
	case r.URL.Path == "/api/students" && r.Method == http.MethodGet:
		write(http.StatusOK, []map[string]interface{}{api.records["/api/students/1"]})
	default:
		rec, ok := api.records[r.URL.Path]
		if !ok {
			write(http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		if r.Method == http.MethodPut {
			for k, v := range body {
				rec[k] = v
			}
			rec["updated_at"] = newStamp
		}
		write(http.StatusOK, rec)
	}
}

func (api *fakeAPI) setDown(down bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.down = down
}

func (api *fakeAPI) update(path, key string, value interface{}) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.records[path][key] = value
	api.records[path]["updated_at"] = newStamp
}

func (api *fakeAPI) authorization() string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.auth
}

type testEnv struct {
	api   *fakeAPI
	store offline.Store
	app   *app
	out   *bytes.Buffer
}

func setup(t *testing.T) testEnv {
	t.Helper()
	api := &fakeAPI{records: map[string]map[string]interface{}{
		"/api/students/1": {"id": "1", "first_name": "Amani", "status": "ACTIVE", "updated_at": oldStamp},
		"/api/grades/1":   {"id": "1", "score": 12.0, "updated_at": oldStamp},
	}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store, err := sqlitedb.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	conf := core.NewTestConfig()
	conf.Offline.APIBaseURL = srv.URL
	conf.Offline.Subdomain = "kin"
	logger := testutil.NewLogger()
	policies := offline.DefaultPolicies()
	client := syncer.NewClient(conf, store, policies, logger)

	out := new(bytes.Buffer)
	a := newApp(client, syncer.New(client, store, policies, logger), store, conf.Offline.SyncInterval)
	a.out = out
	return testEnv{api: api, store: store, app: a, out: out}
}

// exec runs the desktop command line and returns its output.
func (e testEnv) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.out.Reset()
	err := e.app.run(append([]string{"desktop"}, args...))
	return e.out.String(), err
}

func (e testEnv) status(t *testing.T) syncer.Status {
	t.Helper()
	out, err := e.exec(t, "status")
	require.NoError(t, err)
	var st syncer.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	return st
}

func TestApp_login(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
	_, err := e.exec(t, "login", "--username", "prof")
	assert.ErrorIs(t, err, errEmptyPassword)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("lol"), nil }
	_, err = e.exec(t, "login", "--username", "prof")
	apiErr, ok := syncer.IsAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("Kin$hasa-2025"), nil }
	out, err := e.exec(t, "login", "--username", "prof")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as Prof (TEACHER)")

	token, err := e.store.Meta(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "tok3n", token)

	// the token is restored and sent by the next sessions
	_, err = e.exec(t, "get", "students/1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok3n", e.api.authorization())
}

func TestApp_offlineRoundTrip(t *testing.T) {
	e := setup(t)

	st := e.status(t)
	assert.True(t, st.Online)
	assert.Zero(t, st.Pending)

	out, err := e.exec(t, "pull", "students")
	require.NoError(t, err)
	assert.Equal(t, "pulled\n", out)

	e.api.setDown(true)

	out, err = e.exec(t, "get", "/api/students/1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# offline: cached copy\n"), out)
	assert.Contains(t, out, `"first_name": "Amani"`)

	_, err = e.exec(t, "get", "/api/classes/9")
	assert.ErrorIs(t, err, syncer.ErrOffline)

	out, err = e.exec(t, "send", "put", "students/1", "--data", `{"first_name": "Amani J."}`)
	require.NoError(t, err)
	assert.Contains(t, out, "# offline: change queued")
	assert.Contains(t, out, `"first_name": "Amani J."`)

	_, err = e.exec(t, "send", "put", "students/1", "--data", `{lol`)
	assert.True(t, core.IsValidation(err), "got %v", err)

	st = e.status(t)
	assert.False(t, st.Online)
	assert.Equal(t, 1, st.Pending)

	e.api.setDown(false)

	out, err = e.exec(t, "sync")
	require.NoError(t, err)
	var rep syncer.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 1, rep.Pushed)
	assert.Equal(t, "Amani J.", e.api.records["/api/students/1"]["first_name"])

	st = e.status(t)
	assert.True(t, st.Online)
	assert.Zero(t, st.Pending)
	assert.False(t, st.LastSync.IsZero())
}

func TestApp_conflicts(t *testing.T) {
	e := setup(t)

	_, err := e.exec(t, "get", "grades/1")
	require.NoError(t, err)
	e.api.setDown(true)
	_, err = e.exec(t, "send", "PUT", "grades/1", "-d", `{"score": 15}`)
	require.NoError(t, err)

	// edited on the server meanwhile
	e.api.update("/api/grades/1", "score", 14.0)
	e.api.setDown(false)

	out, err := e.exec(t, "conflicts")
	require.NoError(t, err)
	assert.Equal(t, "no conflicts\n", out)

	out, err = e.exec(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, `"conflicts": 1`)

	out, err = e.exec(t, "conflicts")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "conflict")
	assert.Contains(t, out, "/api/grades/1")

	changes, err := e.store.Changes(context.Background(), offline.ChangeConflict)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	id := changes[0].ID

	_, err = e.exec(t, "resolve", "lol")
	assert.True(t, core.IsValidation(err), "got %v", err)

	out, err = e.exec(t, "resolve", "--keep-local", strconvID(id))
	require.NoError(t, err)
	assert.Contains(t, out, "resolved")
	assert.Equal(t, 15.0, e.api.records["/api/grades/1"]["score"])

	st := e.status(t)
	assert.Zero(t, st.Conflicts)
	assert.Zero(t, st.Pending)
}

func strconvID(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}

func Test_apiPath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"students", "/api/students"},
		{"/students/1", "/api/students/1"},
		{"/api/students", "/api/students"},
		{"health", "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, apiPath(tt.path))
		})
	}
}
