package route

import (
	"strings"

	"github.com/trezcool/stemlearn/core/session"
)

// Paths of the application routes.
const (
	PathHome                = "/"
	PathLogin               = "/Login"
	PathSignup              = "/Signup"
	PathCourses             = "/Courses"
	PathStudentDashboard    = "/StudentDashboard"
	PathMyCourses           = "/Mycourses"
	PathEnroll              = "/Enroll/:courseId"
	PathStudentCertificates = "/StudentCertificates"
	PathQuiz                = "/quiz/:quizId"
	PathGrades              = "/grades"
	PathLessons             = "/lessons"
	PathTeacherDashboard    = "/TeacherDashboard"
	PathCreateQuiz          = "/create-quiz"
	PathEditQuiz            = "/edit-quiz/:quizId"
	PathFeedback            = "/feedback"
	PathAdminDashboard      = "/admin/dashboard"
)

// Default returns the application route table.
func Default() *Table {
	student := session.NewRoleSet(session.RoleStudent)
	teacher := session.NewRoleSet(session.RoleTeacher)

	tbl, err := NewTable(Config{
		Routes: []Route{
			{Path: PathHome, View: "home"},
			{Path: PathLogin, View: "login"},
			{Path: PathSignup, View: "signup"},
			{Path: PathCourses, View: "courses"},

			{Path: PathStudentDashboard, View: "student-dashboard", Roles: student},
			{Path: PathMyCourses, View: "my-courses", Roles: student},
			{Path: PathEnroll, View: "enroll", Roles: student},
			{Path: PathStudentCertificates, View: "student-certificates", Roles: student},
			{Path: PathQuiz, View: "quiz", Roles: student},
			{Path: PathGrades, View: "grades", Roles: student},
			{Path: PathLessons, View: "lessons", Roles: session.NewRoleSet(session.RoleStudent, session.RoleTeacher)},

			{Path: PathTeacherDashboard, View: "teacher-dashboard", Roles: teacher},
			{Path: PathCreateQuiz, View: "create-quiz", Roles: teacher},
			{Path: PathEditQuiz, View: "edit-quiz", Roles: teacher},
			{Path: PathFeedback, View: "feedback", Roles: teacher},

			{Path: PathAdminDashboard, View: "admin-dashboard", Roles: session.NewRoleSet(session.RoleAdmin)},
		},
		Landings: map[session.Role]string{
			session.RoleStudent: PathStudentDashboard,
			session.RoleTeacher: PathTeacherDashboard,
			session.RoleAdmin:   PathAdminDashboard,
		},
		Login: PathLogin,
		Home:  PathHome,
	})
	if err != nil {
		panic(err)
	}
	return tbl
}

// Fill substitutes `params` into the `:param` segments of `path`.
func Fill(path string, params Params) string {
	segs := split(path)
	for i, seg := range segs {
		if len(seg) > 1 && seg[0] == ':' {
			segs[i] = params[seg[1:]]
		}
	}
	return "/" + strings.Join(segs, "/")
}
