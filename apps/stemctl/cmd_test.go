package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/storage/kv"
	"github.com/trezcool/stemlearn/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *testutil.Backend) {
	backend := testutil.NewBackend(t)
	mr := miniredis.RunT(t)
	scopes := kv.NewRedisScopes(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { _ = scopes.Close() })

	validate, translator := auth.NewValidator()
	out := new(bytes.Buffer)
	return &commandLine{
		conf: &core.Config{
			API:     core.APIConfig{BaseURL: backend.URL},
			Session: core.SessionConfig{Lifetime: time.Hour},
		},
		logger:     testutil.NewLogger(t),
		scopes:     scopes,
		routes:     route.Default(),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		validate:   validate,
		translator: translator,
		out:        out,
	}, out, backend
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string // printed, if set
	extra      interface{}
}

type passwords []string

func mockPasswords(pwds passwords) {
	readPasswordFunc = func(int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

func runTests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"stemctl"}, tt.args...)

		pwds, _ := tt.extra.(passwords)
		mockPasswords(pwds)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case err == nil:
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
				}
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			default:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("cli.run() output = %q; want it to contain %q", out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out, _ := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "scope but no command", args: []string{"-scope", "a"}, wantErr: errHelp},
		{name: "empty scope", args: []string{"-scope", "", "whoami"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"-lol", "whoami"}, wantErr: errHelp},
	})
}

func Test_commandLine_session(t *testing.T) {
	cli, out, backend := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "login: no args", args: []string{"login"}, wantErr: errHelp},
		{name: "login: no password", args: []string{"login", "-email", "student@stem.test"}, wantErr: errHelp},
		{name: "login: invalid email", args: []string{"login", "-email", "student"}, extra: passwords{"secret12"}, wantErrStr: "enter a valid email address"},
		{name: "login: wrong password", args: []string{"login", "-email", "student@stem.test"}, extra: passwords{"lolilol"}, wantErrStr: "Invalid email or password"},
		{name: "whoami: logged out", args: []string{"whoami"}, wantOut: "Not logged in"},
		{name: "login", args: []string{"login", "-email", "student@stem.test"}, extra: passwords{"secret12"}, wantOut: "Logged in as STUDENT; landing on /StudentDashboard"},
		{name: "whoami", args: []string{"whoami"}, wantOut: "STUDENT (session expires at "},
		{name: "whoami: other scope", args: []string{"-scope", "other", "whoami"}, wantOut: "Not logged in"},
		{name: "courses", args: []string{"courses"}, wantOut: "Algebra"},
		{name: "logout", args: []string{"logout"}, wantOut: "Logged out"},
		{name: "whoami: after logout", args: []string{"whoami"}, wantOut: "Not logged in"},
	})

	if n := backend.Requests("GET /courses"); n != 1 {
		t.Errorf("GET /courses calls = %d; want 1", n)
	}
}

func Test_commandLine_signup(t *testing.T) {
	cli, out, backend := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"signup"}, wantErr: errHelp},
		{
			name:       "password too short",
			args:       []string{"signup", "-name", "Ada", "-email", "ada@stem.test"},
			extra:      passwords{"abc", "abc"},
			wantErrStr: "Password must be at least 7 characters long!",
		},
		{
			name:       "passwords do not match",
			args:       []string{"signup", "-name", "Ada", "-email", "ada@stem.test"},
			extra:      passwords{"secret12", "secret13"},
			wantErrStr: "Passwords do not match!",
		},
		{
			name:    "signup",
			args:    []string{"-scope", "ada", "signup", "-name", "Ada", "-email", "ada@stem.test"},
			extra:   passwords{"secret12", "secret12"},
			wantOut: "[success] Signup successful.",
		},
		{
			name:       "email taken",
			args:       []string{"signup", "-name", "Ada", "-email", "ada@stem.test"},
			extra:      passwords{"secret12", "secret12"},
			wantErrStr: "Email already exists",
		},
		{name: "whoami", args: []string{"-scope", "ada", "whoami"}, wantOut: "STUDENT"},
	})

	if n := backend.Requests("POST /signup"); n != 2 {
		t.Errorf("POST /signup calls = %d; want 2", n)
	}
}

func Test_commandLine_expiredSession(t *testing.T) {
	cli, out, _ := setup(t)

	runTests(t, cli, out, []cliTest{
		{name: "login", args: []string{"login", "-email", "student@stem.test"}, extra: passwords{"secret12"}, wantOut: "Logged in as STUDENT"},
	})

	later := time.Now().Add(2 * time.Hour)
	session.NowFunc = func() time.Time { return later }
	defer func() { session.NowFunc = time.Now }()

	runTests(t, cli, out, []cliTest{
		{name: "whoami: token ran out", args: []string{"whoami"}, wantOut: "Not logged in"},
	})
	want := "Not logged in\n[error] Session expired. Please login to continue.\n"
	if out.String() != want {
		t.Errorf("cli.run() output = %q; want %q", out.String(), want)
	}

	runTests(t, cli, out, []cliTest{
		{name: "whoami: scope cleared", args: []string{"whoami"}, wantOut: "Not logged in"},
	})
	if strings.Contains(out.String(), "Session expired") {
		t.Errorf("cli.run() output = %q; the expiry is reported once", out.String())
	}
}
