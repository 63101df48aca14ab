package dig_container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
	"github.com/trezcool/academia/core/user"
)

func TestNew(t *testing.T) {
	c := New(core.NewTestConfig)

	err := c.Invoke(func(
		server *echoapi.Server,
		usrSvc *user.Service,
		policies *offline.PolicyTable,
		dbParam DBCloserParam,
	) {
		assert.NotNil(t, usrSvc)
		assert.NotEmpty(t, policies.Policies)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.NoError(t, dbParam.Closer.Close())
	})
	require.NoError(t, err)
}
