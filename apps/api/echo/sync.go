package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core/offline"
)

// registerSyncAPI publishes the conflict policies, so that desktop clients follow the server's.
func registerSyncAPI(g *echo.Group, policies *offline.PolicyTable) {
	g.GET("/sync/policies", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, policies)
	})
}
