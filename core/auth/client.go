package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/route"
	"github.com/trezcool/stemlearn/core/session"
)

const (
	NoticeSessionExpired = "Session expired. Please login to continue."
	NoticeSignupSuccess  = "Signup successful."
)

// ExpiryCause tells why a session ended without an explicit logout.
type ExpiryCause string

const (
	ExpiredByTimer        ExpiryCause = "timer"
	ExpiredByUnauthorized ExpiryCause = "unauthorized"
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *session.Store
	Timer      *session.Timer
	Notifier   *Notifier
	Navigator  Navigator
	Routes     *route.Table
	Logger     core.Logger
	Validate   *validator.Validate // see NewValidator
	Translator ut.Translator
	Lifetime   time.Duration     // maximum client-side session lifetime
	OnExpire   func(ExpiryCause) // optional
}

// Client performs the login and signup exchanges with the STEMLearn backend,
// authenticated calls on behalf of the session, and every session transition.
type Client struct {
	baseURL    string
	http       *http.Client
	store      *session.Store
	timer      *session.Timer
	notifier   *Notifier
	nav        Navigator
	routes     *route.Table
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	lifetime   time.Duration
	onExpire   func(ExpiryCause)

	mu     sync.Mutex // serializes session transitions
	submit Submission
	group  singleflight.Group // 401 handling, keyed by token
}

// NewClient checks `opts` and returns a Client taking over whatever session the Store restored.
func NewClient(opts Options) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.BaseURL, "BaseURL"),
		vala.IsNotNil(opts.Store, "Store"),
		vala.IsNotNil(opts.Timer, "Timer"),
		vala.IsNotNil(opts.Notifier, "Notifier"),
		vala.IsNotNil(opts.Navigator, "Navigator"),
		vala.IsNotNil(opts.Routes, "Routes"),
		vala.IsNotNil(opts.Logger, "Logger"),
		vala.IsNotNil(opts.Validate, "Validate"),
		vala.IsNotNil(opts.Translator, "Translator"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "auth.NewClient")
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       opts.HTTPClient,
		store:      opts.Store,
		timer:      opts.Timer,
		notifier:   opts.Notifier,
		nav:        opts.Navigator,
		routes:     opts.Routes,
		logger:     opts.Logger,
		validate:   opts.Validate,
		translator: opts.Translator,
		lifetime:   opts.Lifetime,
		onExpire:   opts.OnExpire,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.lifetime <= 0 {
		c.lifetime = 55 * time.Minute
	}

	if sess, ok := c.store.Current(); ok {
		expires := session.ExpiresAt(sess.Token, c.lifetime)
		if !expires.After(session.NowFunc()) {
			// ran out while nobody was looking
			c.expire(sess.Token, ExpiredByTimer)
			return c, nil
		}
		c.mu.Lock()
		deliver := c.armLocked(sess.Token, sess.Role, expires)
		c.mu.Unlock()
		deliver()
	}
	return c, nil
}

// Login authenticates with `email` and `password`.
// On success the session is saved, its expiry armed and the new state published before returning.
func (c *Client) Login(ctx context.Context, email, password string) (Result, error) {
	var res Result
	err := c.submit.Run(func() error {
		req := LoginRequest{Email: core.CleanString(email), Password: password}
		if err := core.ValidateStruct(c.validate, c.translator, req); err != nil {
			return err
		}

		var err error
		res, err = c.authenticate(ctx, "login", "/login", req)
		return err
	})
	return res, err
}

// Signup creates a STUDENT account and logs it in right away.
// Local checks run first; a request failing them never reaches the network.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (Result, error) {
	var res Result
	err := c.submit.Run(func() error {
		req.Name = core.CleanString(req.Name)
		req.Email = core.CleanString(req.Email)
		if err := core.ValidateStruct(c.validate, c.translator, req); err != nil {
			return err
		}

		body := signupBody{Name: req.Name, Email: req.Email, Password: req.Password}
		var err error
		if res, err = c.authenticate(ctx, "signup", "/signup", body); err != nil {
			return err
		}
		c.nav.Notify(core.Notice{Kind: core.NoticeSuccess, Message: NoticeSignupSuccess})
		return nil
	})
	return res, err
}

func (c *Client) authenticate(ctx context.Context, op, path string, in interface{}) (Result, error) {
	resp, err := c.send(ctx, http.MethodPost, path, in, "")
	if err != nil {
		c.logger.Warn(fmt.Sprintf("auth.%s: %v", op, err), err)
		return Result{}, &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		err = errors.Errorf("%s %s: %s", http.MethodPost, path, resp.Status)
		c.logger.Warn(fmt.Sprintf("auth.%s: %v", op, err), err)
		return Result{}, &core.NetworkError{Op: op, Err: err}
	case resp.StatusCode >= http.StatusBadRequest:
		return Result{}, &core.AuthenticationError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var data authResponse
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, &core.NetworkError{Op: op, Err: errors.Wrap(err, "decoding response")}
	}
	role, err := session.ParseRole(data.Role)
	if err != nil || data.Token == "" {
		if err == nil {
			err = errors.New("response carries no token")
		}
		return Result{}, &core.NetworkError{Op: op, Err: errors.Wrap(err, "reading response")}
	}

	c.mu.Lock()
	if err = c.store.Save(ctx, data.Token, role); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	deliver := c.armLocked(data.Token, role, session.ExpiresAt(data.Token, c.lifetime))
	// a redirect queued by an ended session must not bounce the new one
	c.nav.Discard()
	c.mu.Unlock()
	deliver()

	return Result{Role: role, Landing: c.routes.Landing(role)}, nil
}

// armLocked arms the expiry of the session holding `token` and records it as the login state.
func (c *Client) armLocked(token string, role session.Role, expires time.Time) (deliver func()) {
	c.store.SetExpiresAt(token, expires)
	c.timer.Arm(expires.Sub(session.NowFunc()), func() { c.expire(token, ExpiredByTimer) })
	_, deliver = c.notifier.set(State{LoggedIn: true, Role: role})
	return deliver
}

// Logout ends the session and navigates home. Logging out without a session only navigates.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	c.store.Clear(ctx)
	c.timer.CancelCurrent()
	_, deliver := c.notifier.set(State{})
	c.nav.Navigate(c.routes.HomePath())
	c.mu.Unlock()
	deliver()
}

// expire ends the session holding `token`, if it is still the current one, and sends the user to login.
func (c *Client) expire(token string, cause ExpiryCause) bool {
	c.mu.Lock()
	if !c.store.ClearIf(context.Background(), token) {
		c.mu.Unlock()
		return false
	}
	c.timer.CancelCurrent()
	_, deliver := c.notifier.set(State{})
	c.nav.Navigate(c.routes.LoginPath())
	c.nav.Notify(core.Notice{Kind: core.NoticeError, Message: NoticeSessionExpired})
	c.mu.Unlock()
	deliver()

	c.logger.Info(fmt.Sprintf("session expired (%s)", cause))
	if c.onExpire != nil {
		c.onExpire(cause)
	}
	return true
}

// Do performs an authenticated JSON call. `in` and `out` may be nil.
// A 401 answer ends the session once, however many calls receive it, and every such call fails
// with *core.SessionExpiredError.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	token := c.store.CurrentToken()
	if token == "" {
		return core.ErrNoSession
	}

	resp, err := c.send(ctx, method, path, in, token)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("api %s %s: %v", method, path, err), err)
		return &core.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	return c.handle(token, method, path, resp, out)
}

// Get performs an anonymous call to a public endpoint.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		c.logger.Warn(fmt.Sprintf("api GET %s: %v", path, err), err)
		return &core.NetworkError{Op: http.MethodGet + " " + path, Err: err}
	}
	defer resp.Body.Close()
	return c.handle("", http.MethodGet, path, resp, out)
}

func (c *Client) handle(token, method, path string, resp *http.Response, out interface{}) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized && token != "":
		_, _, _ = c.group.Do(token, func() (interface{}, error) {
			return c.expire(token, ExpiredByUnauthorized), nil
		})
		return &core.SessionExpiredError{Path: path}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &core.NetworkError{Op: method + " " + path, Err: errors.Errorf("%s %s: %s", method, path, resp.Status)}
	case resp.StatusCode >= http.StatusBadRequest:
		return &core.APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.NetworkError{Op: method + " " + path, Err: errors.Wrap(err, "decoding response")}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in interface{}, token string) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

func readErrorMessage(r io.Reader) string {
	var data errorResponse
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&data); err != nil {
		return ""
	}
	return data.Error
}

func (c *Client) IsLoggedIn() bool {
	return c.store.CurrentToken() != ""
}

// CurrentRole returns session.RoleNone when nobody is logged in.
func (c *Client) CurrentRole() session.Role {
	return c.store.CurrentRole()
}

// ExpiresAt returns when the current session ends.
func (c *Client) ExpiresAt() (time.Time, bool) {
	sess, ok := c.store.Current()
	return sess.ExpiresAt, ok
}

func (c *Client) State() State {
	return c.notifier.State()
}

func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.notifier.Subscribe(fn)
}

// Busy reports whether a login or signup is in flight.
func (c *Client) Busy() bool {
	return c.submit.Busy()
}

func (c *Client) Routes() *route.Table {
	return c.routes
}
