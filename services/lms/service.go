package lms

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
)

var (
	errNoCourse = errors.New("a course is required")
	errNoQuiz   = errors.New("a quiz is required")
	errNoAnswer = errors.New("an answer is required")
)

// API is the part of auth.Client the service needs.
type API interface {
	Do(ctx context.Context, method, path string, in, out interface{}) error
	Get(ctx context.Context, path string, out interface{}) error
	IsLoggedIn() bool
}

var _ API = (*auth.Client)(nil)

// Service is a typed client of the STEMLearn REST resources.
type Service struct {
	api    API
	enroll auth.Submission
	quiz   auth.Submission
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Catalogue lists the courses, through the public endpoint when nobody is logged in.
func (svc *Service) Catalogue(ctx context.Context) ([]Course, error) {
	if !svc.api.IsLoggedIn() {
		return svc.PublicCourses(ctx)
	}
	return svc.Courses(ctx)
}

func (svc *Service) PublicCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := svc.api.Get(ctx, "/unauthCourses", &courses)
	return courses, err
}

func (svc *Service) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := svc.api.Do(ctx, http.MethodGet, "/courses", nil, &courses)
	return courses, err
}

func (svc *Service) Course(ctx context.Context, id string) (Course, error) {
	var course Course
	if id == "" {
		return course, core.NewValidationError(errNoCourse, core.FieldError{Field: "course_id", Error: errNoCourse.Error()})
	}
	err := svc.api.Do(ctx, http.MethodGet, "/courses/"+url.PathEscape(id), nil, &course)
	return course, err
}

func (svc *Service) Lessons(ctx context.Context) ([]Lesson, error) {
	var lessons []Lesson
	err := svc.api.Do(ctx, http.MethodGet, "/lessons", nil, &lessons)
	return lessons, err
}

func (svc *Service) Quizzes(ctx context.Context) ([]Quiz, error) {
	var quizzes []Quiz
	err := svc.api.Do(ctx, http.MethodGet, "/quizzes", nil, &quizzes)
	return quizzes, err
}

func (svc *Service) Quiz(ctx context.Context, id string) (Quiz, error) {
	var quiz Quiz
	if id == "" {
		return quiz, core.NewValidationError(errNoQuiz, core.FieldError{Field: "quiz_id", Error: errNoQuiz.Error()})
	}
	err := svc.api.Do(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(id), nil, &quiz)
	return quiz, err
}

// SubmitQuiz sends `answer` for grading. A second submission while one is in flight is refused.
func (svc *Service) SubmitQuiz(ctx context.Context, id, answer string) (QuizResult, error) {
	var res QuizResult
	if id == "" {
		return res, core.NewValidationError(errNoQuiz, core.FieldError{Field: "quiz_id", Error: errNoQuiz.Error()})
	}
	if answer = core.CleanString(answer); answer == "" {
		return res, core.NewValidationError(errNoAnswer, core.FieldError{Field: "answer", Error: errNoAnswer.Error()})
	}

	err := svc.quiz.Run(func() error {
		in := struct {
			Answer string `json:"answer"`
		}{answer}
		return svc.api.Do(ctx, http.MethodPost, "/quizzes/"+url.PathEscape(id), in, &res)
	})
	return res, err
}

// Enroll enrolls the logged in student in a course. A second enrollment while one is in flight is refused.
func (svc *Service) Enroll(ctx context.Context, courseID string) (Enrollment, error) {
	var enrollment Enrollment
	if courseID == "" {
		return enrollment, core.NewValidationError(errNoCourse, core.FieldError{Field: "course_id", Error: errNoCourse.Error()})
	}

	err := svc.enroll.Run(func() error {
		in := struct {
			CourseID string `json:"course_id"`
		}{courseID}
		return svc.api.Do(ctx, http.MethodPost, "/enrollments", in, &enrollment)
	})
	return enrollment, err
}

func (svc *Service) Enrollments(ctx context.Context) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := svc.api.Do(ctx, http.MethodGet, "/enrollments", nil, &enrollments)
	return enrollments, err
}

func (svc *Service) Certificates(ctx context.Context) ([]Certificate, error) {
	var certificates []Certificate
	err := svc.api.Do(ctx, http.MethodGet, "/certificates", nil, &certificates)
	return certificates, err
}

func (svc *Service) Assignments(ctx context.Context) ([]Assignment, error) {
	var assignments []Assignment
	err := svc.api.Do(ctx, http.MethodGet, "/assignments", nil, &assignments)
	return assignments, err
}

// Users lists every account. Only admins may.
func (svc *Service) Users(ctx context.Context) ([]User, error) {
	var users []User
	err := svc.api.Do(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}
