package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var backendSecret = []byte("stemlearn-test-secret")

type backendUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Backend is a fake STEMLearn REST backend.
type Backend struct {
	*httptest.Server

	TokenTTL time.Duration

	mu       sync.Mutex
	users    map[string]backendUser // by email
	revoked  map[string]bool
	requests map[string]int // by "METHOD /path"
	failAll  bool
	hold     chan struct{}
	inFlight int
	enrolled map[string][]string // by email
}

// NewBackend starts a Backend knowing one user per role:
// student@stem.test, teacher@stem.test and admin@stem.test, all with password "secret12".
func NewBackend(t *testing.T) *Backend {
	b := &Backend{
		TokenTTL: time.Hour,
		users:    make(map[string]backendUser),
		revoked:  make(map[string]bool),
		requests: make(map[string]int),
		enrolled: make(map[string][]string),
	}
	b.AddUser("Student", "student@stem.test", "secret12", "STUDENT")
	b.AddUser("Teacher", "teacher@stem.test", "secret12", "TEACHER")
	b.AddUser("Admin", "admin@stem.test", "secret12", "ADMIN")

	app := echo.New()
	app.HideBanner = true
	app.Use(b.count, b.failing)

	app.POST("/login", b.login)
	app.POST("/signup", b.signup)
	app.GET("/unauthCourses", b.courses)

	authed := []echo.MiddlewareFunc{b.holding, b.authenticate}
	app.GET("/courses", b.courses, authed...)
	app.GET("/courses/:id", b.course, authed...)
	app.GET("/lessons", b.lessons, authed...)
	app.GET("/quizzes", b.quizzes, authed...)
	app.GET("/quizzes/:id", b.quiz, authed...)
	app.POST("/quizzes/:id", b.submitQuiz, authed...)
	app.GET("/enrollments", b.enrollments, authed...)
	app.POST("/enrollments", b.enroll, authed...)
	app.GET("/certificates", b.certificates, authed...)
	app.GET("/assignments", b.assignments, authed...)
	app.GET("/users", b.listUsers, authed...)

	b.Server = httptest.NewServer(app)
	t.Cleanup(func() {
		b.Release()
		b.Close()
	})
	return b
}

func (b *Backend) AddUser(name, email, password, role string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = backendUser{Name: name, Email: email, Password: password, Role: role}
}

// Token mints a valid token for `email` as the backend would.
func (b *Backend) Token(t *testing.T, email, role string) string {
	token, err := b.mint(email, role)
	if err != nil {
		t.Fatalf("Token(): %v", err)
	}
	return token
}

func (b *Backend) mint(email, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti":  uuid.NewString(),
		"sub":  email,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(b.TokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(backendSecret)
}

// Revoke makes every authenticated call carrying `token` answer 401.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
}

// FailAll makes every endpoint answer 500 until called with false.
func (b *Backend) FailAll(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAll = fail
}

// Hold blocks authenticated calls until Release is called.
func (b *Backend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hold == nil {
		b.hold = make(chan struct{})
	}
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hold != nil {
		close(b.hold)
		b.hold = nil
	}
}

// AwaitInFlight waits until `n` authenticated calls are held.
func (b *Backend) AwaitInFlight(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		inFlight := b.inFlight
		b.mu.Unlock()
		if inFlight >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("AwaitInFlight(): %d calls never arrived", n)
}

// Requests returns how many times `method path` was called, eg. Requests("POST /login").
func (b *Backend) Requests(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

// TotalRequests returns how many calls the backend received.
func (b *Backend) TotalRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int
	for _, c := range b.requests {
		n += c
	}
	return n
}

// Middlewares

func (b *Backend) count(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		b.requests[ctx.Request().Method+" "+ctx.Request().URL.Path]++
		b.mu.Unlock()
		return next(ctx)
	}
}

func (b *Backend) failing(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		fail := b.failAll
		b.mu.Unlock()
		if fail {
			return ctx.JSON(http.StatusInternalServerError, echo.Map{"Error": "Internal Server Error"})
		}
		return next(ctx)
	}
}

func (b *Backend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		raw := strings.TrimPrefix(auth, "Bearer ")
		if raw == "" || raw == auth {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) { return backendSecret, nil })
		b.mu.Lock()
		revoked := b.revoked[raw]
		b.mu.Unlock()
		if err != nil || revoked {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
		}
		ctx.Set("email", claims["sub"])
		ctx.Set("role", claims["role"])
		return next(ctx)
	}
}

func (b *Backend) holding(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		hold := b.hold
		if hold != nil {
			b.inFlight++
		}
		b.mu.Unlock()
		if hold != nil {
			<-hold
			b.mu.Lock()
			b.inFlight--
			b.mu.Unlock()
		}
		return next(ctx)
	}
}

// Handlers

func (b *Backend) login(ctx echo.Context) error {
	var data struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"Error": "Invalid request"})
	}

	b.mu.Lock()
	usr, ok := b.users[data.Email]
	b.mu.Unlock()
	if !ok || usr.Password != data.Password {
		return ctx.JSON(http.StatusUnauthorized, echo.Map{"Error": "Invalid email or password"})
	}

	token, err := b.mint(usr.Email, usr.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"Token": token, "Role": usr.Role})
}

func (b *Backend) signup(ctx echo.Context) error {
	var data struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.Bind(&data); err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"Error": "Invalid request"})
	}

	b.mu.Lock()
	_, exists := b.users[data.Email]
	if !exists {
		b.users[data.Email] = backendUser{Name: data.Name, Email: data.Email, Password: data.Password, Role: "STUDENT"}
	}
	b.mu.Unlock()
	if exists {
		return ctx.JSON(http.StatusConflict, echo.Map{"Error": "Email already exists"})
	}

	token, err := b.mint(data.Email, "STUDENT")
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"Token": token, "Role": "STUDENT"})
}

var (
	backendCourses = []echo.Map{
		{"_id": "c1", "title": "Algebra", "subject": "Math", "description": "Linear equations", "duration": "6 weeks"},
		{"_id": "c2", "title": "Mechanics", "subject": "Physics", "description": "Forces", "duration": "8 weeks"},
	}
	backendLessons = []echo.Map{
		{"_id": "l1", "title": "Variables", "content": "x", "video_url": "https://video.test/l1", "course_id": "c1"},
	}
	backendQuizzes = []echo.Map{
		{"_id": "q1", "lesson_id": "l1", "question": "1+1?", "options": []string{"1", "2"}, "due_date": "2030-01-01"},
	}
)

func (b *Backend) courses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, backendCourses)
}

func (b *Backend) course(ctx echo.Context) error {
	for _, c := range backendCourses {
		if c["_id"] == ctx.Param("id") {
			return ctx.JSON(http.StatusOK, c)
		}
	}
	return ctx.JSON(http.StatusNotFound, echo.Map{"error": "Course not found"})
}

func (b *Backend) lessons(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, backendLessons)
}

func (b *Backend) quizzes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, backendQuizzes)
}

func (b *Backend) quiz(ctx echo.Context) error {
	for _, q := range backendQuizzes {
		if q["_id"] == ctx.Param("id") {
			return ctx.JSON(http.StatusOK, q)
		}
	}
	return ctx.JSON(http.StatusNotFound, echo.Map{"error": "Quiz not found"})
}

func (b *Backend) submitQuiz(ctx echo.Context) error {
	var data struct {
		Answer string `json:"answer"`
	}
	if err := ctx.Bind(&data); err != nil || data.Answer == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "answer is required"})
	}
	grade := 0
	if data.Answer == "2" {
		grade = 100
	}
	return ctx.JSON(http.StatusOK, echo.Map{"correct_answer": "2", "grade": grade, "attempts": 1, "Success": "Quiz submitted successfully!"})
}

func (b *Backend) enrollments(ctx echo.Context) error {
	email, _ := ctx.Get("email").(string)
	b.mu.Lock()
	ids := append([]string(nil), b.enrolled[email]...)
	b.mu.Unlock()

	res := make([]echo.Map, 0, len(ids))
	for i, id := range ids {
		res = append(res, echo.Map{"_id": "e" + id, "course_id": id, "student_id": email, "completion_percentage": 10 * i})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (b *Backend) enroll(ctx echo.Context) error {
	var data struct {
		CourseID string `json:"course_id"`
	}
	if err := ctx.Bind(&data); err != nil || data.CourseID == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": "course_id is required"})
	}
	email, _ := ctx.Get("email").(string)
	b.mu.Lock()
	b.enrolled[email] = append(b.enrolled[email], data.CourseID)
	b.mu.Unlock()
	return ctx.JSON(http.StatusCreated, echo.Map{"_id": "e" + data.CourseID, "course_id": data.CourseID, "student_id": email})
}

func (b *Backend) certificates(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, []echo.Map{{"_id": "cert1", "enrollment_id": "ec1", "issued_on": "2024-05-01"}})
}

func (b *Backend) assignments(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, []echo.Map{{"_id": "a1", "lesson_id": "l1", "submission_text": "done", "grade": "A"}})
}

func (b *Backend) listUsers(ctx echo.Context) error {
	if ctx.Get("role") != "ADMIN" {
		return ctx.JSON(http.StatusForbidden, echo.Map{"error": "permission denied"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]echo.Map, 0, len(b.users))
	for _, u := range b.users {
		res = append(res, echo.Map{"_id": u.Email, "name": u.Name, "email": u.Email, "role": u.Role})
	}
	return ctx.JSON(http.StatusOK, res)
}
