package database

import (
	"io/fs"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestMigrationsFS(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		data, err := fs.ReadFile(migrationsFS, f)
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", f)
		assert.Contains(t, string(data), "-- +goose Down", f)
	}
}

func TestDSN(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Host: "db", Port: 5433, Name: "academia", User: "app", Password: "p@ss",
		AdminUser: "postgres", AdminPassword: "root", DisableTLS: true,
	}

	u, err := url.Parse(dsn(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/academia", u.Path)
	assert.Equal(t, "app", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "utc", u.Query().Get("timezone"))

	admin := dsn("postgres", true, conf)
	assert.True(t, strings.HasPrefix(admin, "postgres://postgres:root@"), admin)

	conf.Database.DisableTLS = false
	u, err = url.Parse(dsn(conf.Database.Name, false, conf))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
