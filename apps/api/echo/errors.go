package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/sonalink/sonalink/core"
	"github.com/sonalink/sonalink/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorStatus maps a domain error onto its HTTP status and response body.
// ok is false for errors that are not part of the API contract.
func errorStatus(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch e := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			// echo reports a missing token as a bad request
			return http.StatusUnauthorized, e.Message, true
		}
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true
	case validator.ValidationErrors:
		return http.StatusBadRequest, core.TranslateErrors(e, translator), true
	case *core.ValidationError:
		if len(e.Fields) == 0 {
			return http.StatusBadRequest, e.Error(), true
		}
		fields := make(map[string]string, len(e.Fields))
		for _, f := range e.Fields {
			fields[f.Field] = f.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.NotFoundError:
		return http.StatusNotFound, e.Error(), true
	case *core.ForbiddenError:
		return http.StatusForbidden, e.Error(), true
	case *core.ConflictError:
		return http.StatusConflict, e.Error(), true
	case *core.AuthError:
		return e.Status, e.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler renders errors as JSON.
// Unexpected errors are reported along with the requesting user, and a core shutdown error triggers signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, known := errorStatus(err, translator)
		if !known {
			msg := body.(string)
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID, _ = claims.UserID()
				usr.Name, usr.Email = claims.Name, claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if s, isStr := body.(string); isStr {
			body = echo.Map{"error": s}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
