package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/auth"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
	"github.com/trezcool/stemlearn/storage/kv"
)

const defaultScope = "stemctl"

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	scopes     kv.Scopes
	routes     *route.Table
	httpClient *http.Client
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage: stemctl [-scope NAME] COMMAND")
	fmt.Fprintln(cli.out, "  login -email EMAIL              - log in; the password will be prompted next")
	fmt.Fprintln(cli.out, "  signup -name NAME -email EMAIL  - create a student account and log in")
	fmt.Fprintln(cli.out, "  whoami                          - print the logged in role and when the session expires")
	fmt.Fprintln(cli.out, "  logout                          - end the session")
	fmt.Fprintln(cli.out, "  courses                         - list the course catalogue")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	globalCmd := flag.NewFlagSet("stemctl", flag.ContinueOnError)
	globalCmd.SetOutput(cli.out)
	scope := globalCmd.String("scope", defaultScope, "The credential scope to use; scopes are logged in independently.")
	if err := globalCmd.Parse(args[1:]); err != nil {
		return errHelp
	}
	if globalCmd.NArg() == 0 || *scope == "" {
		cli.printUsage()
		return errHelp
	}
	cmdArgs := globalCmd.Args()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginEmail := loginCmd.String("email", "", "The account's email. The password will be prompted next.")

	signupCmd := flag.NewFlagSet("signup", flag.ContinueOnError)
	signupCmd.SetOutput(cli.out)
	signupName := signupCmd.String("name", "", "The student's name.")
	signupEmail := signupCmd.String("email", "", "The account's email. The password will be prompted next.")

	ctx := context.Background()

	switch cmdArgs[0] {
	case "login":
		if err := loginCmd.Parse(cmdArgs[1:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *scope, *loginEmail, pwd)
	case "signup":
		if err := signupCmd.Parse(cmdArgs[1:]); err != nil {
			return errHelp
		}
		if *signupEmail == "" {
			signupCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := cli.prompt("Confirm password:")
		if err != nil {
			return err
		}
		return cli.signup(ctx, *scope, auth.SignupRequest{
			Name:            *signupName,
			Email:           *signupEmail,
			Password:        pwd,
			ConfirmPassword: confirm,
		})
	case "whoami":
		return cli.whoami(ctx, *scope)
	case "logout":
		return cli.logout(ctx, *scope)
	case "courses":
		return cli.courses(ctx, *scope)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// cliSession is the auth client of one scope for the duration of a command.
type cliSession struct {
	client  *auth.Client
	timer   *session.Timer
	pending *auth.Pending
}

func (cli *commandLine) openSession(ctx context.Context, scope string) (*cliSession, error) {
	s := &cliSession{timer: session.NewTimer(), pending: new(auth.Pending)}
	client, err := auth.NewClient(auth.Options{
		BaseURL:    cli.conf.API.BaseURL,
		HTTPClient: cli.httpClient,
		Store:      session.NewStore(ctx, cli.scopes.Scope(scope), cli.logger),
		Timer:      s.timer,
		Notifier:   auth.NewNotifier(),
		Navigator:  s.pending,
		Routes:     cli.routes,
		Logger:     cli.logger,
		Validate:   cli.validate,
		Translator: cli.translator,
		Lifetime:   cli.conf.Session.Lifetime,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// close prints the notices the command raised. The session itself stays in its scope.
func (cli *commandLine) close(s *cliSession) {
	s.timer.CancelCurrent()
	for _, n := range s.pending.TakeNotices() {
		fmt.Fprintf(cli.out, "[%s] %s\n", n.Kind, n.Message)
	}
}
