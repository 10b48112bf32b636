package echoweb

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/services/lms"
)

// Page is the model of one rendered view.
type Page struct {
	View    string        `json:"view"`
	Path    string        `json:"path"`
	Params  route.Params  `json:"params,omitempty"`
	Nav     []NavItem     `json:"nav"`
	State   auth.State    `json:"state"`
	Notices []core.Notice `json:"notices,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

// loader fetches the data a view shows.
type loader func(ctx context.Context, svc *lms.Service, params route.Params) (interface{}, error)

type (
	studentDashboard struct {
		Enrollments  []lms.Enrollment  `json:"enrollments"`
		Certificates []lms.Certificate `json:"certificates"`
	}

	teacherDashboard struct {
		Courses []lms.Course `json:"courses"`
		Quizzes []lms.Quiz   `json:"quizzes"`
	}

	quizAttempt struct {
		QuizID string         `json:"quiz_id"`
		Result lms.QuizResult `json:"result"`
	}
)

var loaders = map[string]loader{
	"courses": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Catalogue(ctx)
	},
	"student-dashboard": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		enrollments, err := svc.Enrollments(ctx)
		if err != nil {
			return nil, err
		}
		certificates, err := svc.Certificates(ctx)
		if err != nil {
			return nil, err
		}
		return studentDashboard{Enrollments: enrollments, Certificates: certificates}, nil
	},
	"my-courses": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Enrollments(ctx)
	},
	"enroll": func(ctx context.Context, svc *lms.Service, params route.Params) (interface{}, error) {
		return svc.Course(ctx, params["courseId"])
	},
	"student-certificates": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Certificates(ctx)
	},
	"quiz": func(ctx context.Context, svc *lms.Service, params route.Params) (interface{}, error) {
		return svc.Quiz(ctx, params["quizId"])
	},
	"grades": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Assignments(ctx)
	},
	"lessons": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Lessons(ctx)
	},
	"teacher-dashboard": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		courses, err := svc.Courses(ctx)
		if err != nil {
			return nil, err
		}
		quizzes, err := svc.Quizzes(ctx)
		if err != nil {
			return nil, err
		}
		return teacherDashboard{Courses: courses, Quizzes: quizzes}, nil
	},
	"create-quiz": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Lessons(ctx)
	},
	"edit-quiz": func(ctx context.Context, svc *lms.Service, params route.Params) (interface{}, error) {
		return svc.Quiz(ctx, params["quizId"])
	},
	"feedback": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Assignments(ctx)
	},
	"admin-dashboard": func(ctx context.Context, svc *lms.Service, _ route.Params) (interface{}, error) {
		return svc.Users(ctx)
	},
}

func contextParams(ctx echo.Context) route.Params {
	names := ctx.ParamNames()
	if len(names) == 0 {
		return nil
	}
	params := make(route.Params, len(names))
	for _, name := range names {
		params[name] = ctx.Param(name)
	}
	return params
}

// view renders the page of `r`, loading its data first.
func (s *Server) view(r route.Route) echo.HandlerFunc {
	load := loaders[r.View]
	return func(ctx echo.Context) error {
		tab, err := getContextTab(ctx)
		if err != nil {
			return err
		}
		params := contextParams(ctx)

		var data interface{}
		if load != nil {
			if data, err = load(ctx.Request().Context(), tab.LMS, params); err != nil {
				if handled, rErr := s.recoverView(ctx, tab, err); handled {
					return rErr
				}
				data = nil
			}
		}
		return render(ctx, tab, r, params, data, http.StatusOK)
	}
}

// recoverView handles the errors of loading a view. A network failure is shown as a notice on the page itself;
// it reports handled = false so the page still renders.
func (s *Server) recoverView(ctx echo.Context, tab *Tab, err error) (handled bool, _ error) {
	switch {
	case core.IsSessionExpired(err), err == core.ErrNoSession:
		return true, redirectPending(ctx, tab, s.deps.Routes.LoginPath())
	case core.IsNetwork(err):
		tab.Pending.Notify(core.Notice{Kind: core.NoticeError, Message: err.Error()})
		return false, nil
	}
	return true, err
}

// redirectPending follows the tab's pending navigation, or goes to `fallback` when there is none.
func redirectPending(ctx echo.Context, tab *Tab, fallback string) error {
	path := tab.Pending.TakeRedirect()
	if path == "" {
		path = fallback
	}
	return ctx.Redirect(http.StatusSeeOther, path)
}

func render(ctx echo.Context, tab *Tab, r route.Route, params route.Params, data interface{}, code int) error {
	return ctx.JSON(code, Page{
		View:    r.View,
		Path:    ctx.Request().URL.Path,
		Params:  params,
		Nav:     tab.nav.Items(),
		State:   tab.nav.State(),
		Notices: tab.Pending.TakeNotices(),
		Data:    data,
	})
}
