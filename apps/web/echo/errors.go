package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core"
)

var errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var hErr *echo.HTTPError
		var vErr *core.ValidationError
		var authnErr *core.AuthenticationError
		var apiErr *core.APIError
		var authzErr *core.AuthorizationError

		switch {
		case errors.As(err, &hErr):
			if hErr.Internal != nil {
				if herr, ok := hErr.Internal.(*echo.HTTPError); ok {
					hErr = herr
				}
			}
			code = hErr.Code
			message = hErr.Message
		case errors.As(err, &vErr):
			code = http.StatusBadRequest
			if vErr.Fields != nil {
				fldErrs := make(map[string]string, len(vErr.Fields))
				for _, fErr := range vErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"error": vErr.Error(), "fields": fldErrs}
			} else {
				message = vErr.Error()
			}
		case errors.As(err, &authnErr):
			code = http.StatusUnauthorized
			message = authnErr.Error()
		case errors.As(err, &authzErr):
			code = http.StatusForbidden
			message = errHttpForbidden.Message
		case errors.As(err, &apiErr):
			code = apiErr.Status
			if code < http.StatusBadRequest || code >= http.StatusInternalServerError {
				code = http.StatusBadGateway
			}
			message = apiErr.Message
			if apiErr.Message == "" {
				message = http.StatusText(apiErr.Status)
			}
		case errors.Cause(err) == core.ErrSubmitInFlight:
			code = http.StatusConflict
			message = core.ErrSubmitInFlight.Error()
		case core.IsNetwork(err):
			code = http.StatusBadGateway
			message = err.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var tag core.SessionTag
			if tab, tErr := getContextTab(ctx); tErr == nil {
				tag = core.SessionTag{Scope: tab.ID, Role: string(tab.Client.CurrentRole())}
			}
			logger.Error(msg, errors.Wrap(err, msg), tag)
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
