package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core/route"
)

const contextTabKey = "tab"

var errNoTab = errors.New("request has no tab")

// canonicalPath rewrites a path matching a route in another case to the route's own case,
// eg. /studentdashboard to /StudentDashboard, before echo routes the request.
func canonicalPath(routes *route.Table) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if r, params, ok := routes.Resolve(req.URL.Path); ok {
				req.URL.Path = route.Fill(r.Path, params)
				req.URL.RawPath = ""
			}
			return next(ctx)
		}
	}
}

// tabMiddleware attaches the caller's tab, opening one and setting the scope cookie when needed.
func (s *Server) tabMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		conf := s.deps.Conf.Session

		var id string
		if cookie, err := ctx.Cookie(conf.ScopeCookie); err == nil {
			id = cookie.Value
		}
		tab, err := s.deps.Tabs.Get(ctx.Request().Context(), id)
		if err != nil {
			return errors.Wrap(err, "getting tab")
		}
		if tab.ID != id {
			ctx.SetCookie(&http.Cookie{
				Name:     conf.ScopeCookie,
				Value:    tab.ID,
				Path:     "/",
				MaxAge:   int(conf.ScopeTTL.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx.Set(contextTabKey, tab)
		return next(ctx)
	}
}

func getContextTab(ctx echo.Context) (*Tab, error) {
	if tab, ok := ctx.Get(contextTabKey).(*Tab); ok {
		return tab, nil
	}
	return nil, errNoTab
}

// pendingRedirect honours a navigation the tab's client requested in the background, eg. after a session expiry.
func pendingRedirect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		tab, err := getContextTab(ctx)
		if err != nil {
			return err
		}
		if path := tab.Pending.TakeRedirect(); path != "" && path != ctx.Request().URL.Path {
			return ctx.Redirect(http.StatusSeeOther, path)
		}
		return next(ctx)
	}
}

// guard lets the request through only when the tab's role may see `r`.
// Denials redirect and render nothing of the protected view.
func (s *Server) guard(r route.Route) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tab, err := getContextTab(ctx)
			if err != nil {
				return err
			}
			d := s.guardian.Check(tab.Client.CurrentRole(), r.Path, r.Roles)
			if !d.Allowed() {
				s.deps.Metrics.GuardDenials.WithLabelValues(d.Outcome.String()).Inc()
				return ctx.Redirect(http.StatusSeeOther, d.Redirect)
			}
			return next(ctx)
		}
	}
}
