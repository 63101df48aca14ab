package offline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicies(t *testing.T) {
	pt, err := ParsePolicies(defaultPolicies)
	require.NoError(t, err)
	assert.Equal(t, ServerWins, pt.Default)
	assert.GreaterOrEqual(t, len(pt.Policies), 40)
	assert.Contains(t, pt.PullEndpoints(), "/api/students")
	assert.NotContains(t, pt.PullEndpoints(), "/api/students/:id")
}

func TestPolicyTable_Lookup(t *testing.T) {
	pt := DefaultPolicies()

	tests := []struct {
		name          string
		method        string
		path          string
		wantEndpoint  string
		wantStrategy  Strategy
		wantCacheable bool
		wantQueue     bool
	}{
		{name: "collection", method: "GET", path: "/api/students", wantEndpoint: "/api/students", wantStrategy: Merge, wantCacheable: true, wantQueue: true},
		{name: "query string ignored", method: "GET", path: "/api/students?class_id=1&ordering=-name", wantEndpoint: "/api/students", wantStrategy: Merge, wantCacheable: true, wantQueue: true},
		{name: "trailing slash", method: "PUT", path: "/api/students/42/", wantEndpoint: "/api/students/:id", wantStrategy: Merge, wantCacheable: true, wantQueue: true},
		{name: "sub route", method: "PATCH", path: "/api/students/42/status", wantEndpoint: "/api/students/:id/status", wantStrategy: ClientWins, wantQueue: true},
		{name: "literal beats param", method: "GET", path: "/api/users/roles", wantEndpoint: "/api/users/roles", wantStrategy: ServerWins, wantCacheable: true},
		{name: "param", method: "GET", path: "/api/users/abc", wantEndpoint: "/api/users/:id", wantStrategy: ServerWins, wantCacheable: true},
		{name: "manual", method: "PUT", path: "/api/grades/7", wantEndpoint: "/api/grades/:id", wantStrategy: Manual, wantCacheable: true, wantQueue: true},
		{name: "payments never queued", method: "POST", path: "/api/invoices/7/payments", wantEndpoint: "/api/invoices/:id/payments", wantStrategy: ServerWins, wantCacheable: true},
		{name: "method not listed", method: "PATCH", path: "/api/students/42", wantEndpoint: "/api/students/42", wantStrategy: ServerWins},
		{name: "unknown endpoint", method: "GET", path: "/api/unknown/1", wantEndpoint: "/api/unknown/1", wantStrategy: ServerWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pt.Lookup(tt.method, tt.path)
			assert.Equal(t, tt.wantEndpoint, p.Endpoint)
			assert.Equal(t, tt.wantStrategy, p.Strategy)
			assert.Equal(t, tt.wantCacheable, p.Cacheable)
			assert.Equal(t, tt.wantQueue, p.Queue)
		})
	}
}

func TestParsePolicies(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "empty", data: ""},
		{name: "invalid yaml", data: "policies: [", wantErr: true},
		{name: "invalid default", data: "default: lol", wantErr: true},
		{name: "invalid strategy", data: "policies:\n  - {endpoint: /api/a, strategy: lol}", wantErr: true},
		{name: "relative endpoint", data: "policies:\n  - {endpoint: api/a, strategy: merge}", wantErr: true},
		{name: "duplicate", data: "policies:\n  - {endpoint: /api/a, strategy: merge}\n  - {endpoint: /api/a, strategy: manual}", wantErr: true},
		{name: "valid", data: "default: manual\npolicies:\n  - {endpoint: /api/a, methods: [get], strategy: merge}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicies([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: manual\npolicies:\n  - {endpoint: /api/a/:id, methods: [get], strategy: merge}"), 0o600))

	pt, err := LoadPolicies(path)
	require.NoError(t, err)
	assert.Equal(t, Merge, pt.Lookup("GET", "/api/a/1").Strategy)
	assert.Equal(t, Manual, pt.Lookup("GET", "/api/b").Strategy)

	_, err = LoadPolicies(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResource(t *testing.T) {
	tests := []struct {
		path, wantResource, wantID string
	}{
		{"/api/students", "students", ""},
		{"/api/students/42", "students", "42"},
		{"/api/students/42/status?x=1", "students", "42"},
		{"/health", "health", ""},
		{"/", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, id := Resource(tt.path)
			assert.Equal(t, tt.wantResource, res)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
