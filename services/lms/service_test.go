package lms

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/storage/kv"
	"github.com/trezcool/stemlearn/tests"
)

func setup(t *testing.T, backend *testutil.Backend) (*Service, *auth.Client) {
	t.Helper()
	logger := testutil.NewLogger(t)
	validate, translator := auth.NewValidator()
	timer := session.NewTimer()
	t.Cleanup(timer.CancelCurrent)

	client, err := auth.NewClient(auth.Options{
		BaseURL:    backend.URL,
		Store:      session.NewStore(context.Background(), kv.NewMemoryStorage(), logger),
		Timer:      timer,
		Notifier:   auth.NewNotifier(),
		Navigator:  new(auth.Pending),
		Routes:     route.Default(),
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Lifetime:   time.Hour,
	})
	require.NoError(t, err)
	return NewService(client), client
}

func TestService_Catalogue(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc, client := setup(t, backend)
	ctx := context.Background()

	courses, err := svc.Catalogue(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Equal(t, 1, backend.Requests("GET /unauthCourses"))
	assert.Equal(t, 0, backend.Requests("GET /courses"))

	_, err = client.Login(ctx, "student@stem.test", "secret12")
	require.NoError(t, err)

	courses, err = svc.Catalogue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Course{ID: "c1", Title: "Algebra", Subject: "Math", Description: "Linear equations", Duration: "6 weeks"}, courses[0])
	assert.Equal(t, 1, backend.Requests("GET /courses"))
}

func TestService_studentFlow(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc, client := setup(t, backend)
	ctx := context.Background()

	_, err := svc.Courses(ctx)
	assert.Equal(t, core.ErrNoSession, err)

	_, err = client.Login(ctx, "student@stem.test", "secret12")
	require.NoError(t, err)

	course, err := svc.Course(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "Mechanics", course.Title)

	_, err = svc.Course(ctx, "nope")
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Course not found", apiErr.Message)

	enrollment, err := svc.Enroll(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", enrollment.CourseID)
	enrollments, err := svc.Enrollments(ctx)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "c1", enrollments[0].CourseID)

	quiz, err := svc.Quiz(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, quiz.Options)

	res, err := svc.SubmitQuiz(ctx, "q1", " 2 ")
	require.NoError(t, err)
	assert.Equal(t, QuizResult{CorrectAnswer: "2", Grade: 100, Attempts: 1, Message: "Quiz submitted successfully!"}, res)

	lessons, err := svc.Lessons(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://video.test/l1", lessons[0].VideoURL)

	quizzes, err := svc.Quizzes(ctx)
	require.NoError(t, err)
	assert.Len(t, quizzes, 1)

	certificates, err := svc.Certificates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ec1", certificates[0].EnrollmentID)

	assignments, err := svc.Assignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", assignments[0].Grade)

	_, err = svc.Users(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestService_Users(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc, client := setup(t, backend)
	ctx := context.Background()

	_, err := client.Login(ctx, "admin@stem.test", "secret12")
	require.NoError(t, err)

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestService_localChecks(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc, _ := setup(t, backend)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "course without id", call: func() error { _, err := svc.Course(ctx, ""); return err }},
		{name: "quiz without id", call: func() error { _, err := svc.Quiz(ctx, ""); return err }},
		{name: "submit without quiz", call: func() error { _, err := svc.SubmitQuiz(ctx, "", "2"); return err }},
		{name: "submit without answer", call: func() error { _, err := svc.SubmitQuiz(ctx, "q1", "  "); return err }},
		{name: "enroll without course", call: func() error { _, err := svc.Enroll(ctx, ""); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !core.IsValidation(err) {
				t.Errorf("error = %v, want a validation error", err)
			}
		})
	}
	assert.Equal(t, 0, backend.TotalRequests())
}

func TestService_Enroll_inFlight(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc, client := setup(t, backend)
	ctx := context.Background()

	_, err := client.Login(ctx, "student@stem.test", "secret12")
	require.NoError(t, err)

	backend.Hold()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Enroll(ctx, "c1")
		done <- err
	}()
	backend.AwaitInFlight(t, 1)

	_, err = svc.Enroll(ctx, "c2")
	assert.Equal(t, core.ErrSubmitInFlight, err)

	backend.Release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, backend.Requests("POST /enrollments"))
}
