package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSchoolNotFound       = echo.NewHTTPError(http.StatusNotFound, "school not found")
	errSchoolInactive       = echo.NewHTTPError(http.StatusForbidden, "school is inactive")
)

const msgInvalidData = "invalid data"

// errorResponse is the body of every error: field errors, if any, are keyed by JSON field name.
type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var res errorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				res.Message = origErr.Message.(string)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				res.Message = msg
			} else {
				res.Message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			res.Errors = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				res.Errors[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			res.Message = msgInvalidData
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				res.Errors = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					res.Errors[fErr.Field] = fErr.Error
				}
			}
			res.Message = origErr.Error()
			code = http.StatusBadRequest
		case *core.NotFoundError:
			code = http.StatusNotFound
			res.Message = origErr.Error()
		case *core.ConflictError:
			if origErr.Field != "" {
				res.Errors = map[string]string{origErr.Field: origErr.Error()}
			}
			code = http.StatusConflict
			res.Message = origErr.Error()
		case *core.PermissionError:
			code = http.StatusForbidden
			res.Message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			res.Message = http.StatusText(http.StatusInternalServerError)

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.SchoolID = claims.SchoolID
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(res.Message, errors.Wrap(err, res.Message), usr)

			if ctx.Echo().Debug {
				res.Message = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
