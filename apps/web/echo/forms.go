package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
)

const noticeEnrolled = "Enrolled successfully."

var errInvalidForm = echo.NewHTTPError(http.StatusBadRequest, "invalid form")

type (
	loginForm struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}

	signupForm struct {
		Name            string `json:"name" form:"name"`
		Email           string `json:"email" form:"email"`
		Password        string `json:"password" form:"password"`
		ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	}

	quizForm struct {
		Answer string `json:"answer" form:"answer"`
	}
)

func (s *Server) login(ctx echo.Context) error {
	tab, err := getContextTab(ctx)
	if err != nil {
		return err
	}
	var form loginForm
	if err = ctx.Bind(&form); err != nil {
		return errInvalidForm
	}

	res, err := tab.Client.Login(ctx.Request().Context(), form.Email, form.Password)
	return s.afterAuth(ctx, tab, "login", route.PathLogin, res, err)
}

func (s *Server) signup(ctx echo.Context) error {
	tab, err := getContextTab(ctx)
	if err != nil {
		return err
	}
	var form signupForm
	if err = ctx.Bind(&form); err != nil {
		return errInvalidForm
	}

	res, err := tab.Client.Signup(ctx.Request().Context(), auth.SignupRequest{
		Name:            form.Name,
		Email:           form.Email,
		Password:        form.Password,
		ConfirmPassword: form.ConfirmPassword,
	})
	return s.afterAuth(ctx, tab, "signup", route.PathSignup, res, err)
}

// afterAuth sends the tab to its landing route on success. Inline errors go through the error handler;
// a network failure becomes a notice and the user is sent back to `form`.
func (s *Server) afterAuth(ctx echo.Context, tab *Tab, action, form string, res auth.Result, err error) error {
	s.deps.Metrics.AuthAttempts.WithLabelValues(action, authOutcome(err)).Inc()

	switch {
	case err == nil:
		return ctx.Redirect(http.StatusSeeOther, res.Landing)
	case core.IsNetwork(err):
		tab.Pending.Notify(core.Notice{Kind: core.NoticeError, Message: err.Error()})
		return ctx.Redirect(http.StatusSeeOther, form)
	}
	return err
}

func authOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case core.IsValidation(err):
		return "invalid"
	case core.IsAuthentication(err):
		return "rejected"
	case core.IsNetwork(err):
		return "network"
	case errors.Cause(err) == core.ErrSubmitInFlight:
		return "busy"
	}
	return "error"
}

func (s *Server) logout(ctx echo.Context) error {
	tab, err := getContextTab(ctx)
	if err != nil {
		return err
	}
	tab.Client.Logout(ctx.Request().Context())
	return redirectPending(ctx, tab, s.deps.Routes.HomePath())
}

func (s *Server) enroll(ctx echo.Context) error {
	tab, err := getContextTab(ctx)
	if err != nil {
		return err
	}
	params := contextParams(ctx)

	_, err = tab.LMS.Enroll(ctx.Request().Context(), params["courseId"])
	switch {
	case err == nil:
		tab.Pending.Notify(core.Notice{Kind: core.NoticeSuccess, Message: noticeEnrolled})
		return ctx.Redirect(http.StatusSeeOther, route.PathStudentDashboard)
	case core.IsNetwork(err):
		tab.Pending.Notify(core.Notice{Kind: core.NoticeError, Message: err.Error()})
		return ctx.Redirect(http.StatusSeeOther, route.Fill(route.PathEnroll, params))
	case core.IsSessionExpired(err):
		return redirectPending(ctx, tab, s.deps.Routes.LoginPath())
	}
	return err
}

func (s *Server) submitQuiz(r route.Route) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		tab, err := getContextTab(ctx)
		if err != nil {
			return err
		}
		var form quizForm
		if err = ctx.Bind(&form); err != nil {
			return errInvalidForm
		}
		params := contextParams(ctx)

		res, err := tab.LMS.SubmitQuiz(ctx.Request().Context(), params["quizId"], form.Answer)
		switch {
		case err == nil:
			return render(ctx, tab, r, params, quizAttempt{QuizID: params["quizId"], Result: res}, http.StatusOK)
		case core.IsNetwork(err):
			tab.Pending.Notify(core.Notice{Kind: core.NoticeError, Message: err.Error()})
			return ctx.Redirect(http.StatusSeeOther, route.Fill(route.PathQuiz, params))
		case core.IsSessionExpired(err):
			return redirectPending(ctx, tab, s.deps.Routes.LoginPath())
		}
		return err
	}
}
