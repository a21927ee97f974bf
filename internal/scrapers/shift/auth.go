package shift

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"shift-redeemer/internal/components/prompt"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrLoginFailed = errors.New("login failed")
	ErrNoToken     = errors.New("no CSRF token")
)

// AuthState is where the client is in the login flow.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateSessionRestored
	StateCredentialsPrompted
	StateVerified
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSessionRestored:
		return "session-restored"
	case StateCredentialsPrompted:
		return "credentials-prompted"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("AuthState(%d)", int(s))
}

// SessionStore persists cookies across runs.
type SessionStore interface {
	Load(jar http.CookieJar, u *url.URL) bool
	Save(jar http.CookieJar, u *url.URL)
}

// CheckAuth reports whether the current cookies belong to a logged-in session. The token is
// refreshed from the home page whatever the outcome, and any request failure counts as not
// logged in.
func (c *Client) CheckAuth(ctx context.Context) bool {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(homePath)
	if err != nil {
		c.tel.ReportWarning(report_client_check_auth, fmt.Errorf("fetch: %w", err))
		return false
	}

	body := res.String()
	c.refreshToken(body)
	return strings.Contains(body, signedInMarker)
}

// Login makes sure the client holds a verified session. A saved session is tried first, after
// that the user is prompted for credentials once. There are no retries.
func (c *Client) Login(ctx context.Context, prompter prompt.Prompter, sessions SessionStore) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	if sessions.Load(c.Jar, c.BaseUrl) {
		c.state = StateSessionRestored
		if c.CheckAuth(ctx) {
			c.state = StateVerified
			c.tel.ReportDebug("saved session is still valid")
			return nil
		}
		c.tel.ReportInfo("Saved session expired")
	}

	c.state = StateCredentialsPrompted
	err := c.loginCredentials(ctx, prompter)
	if err != nil {
		c.state = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.state = StateVerified
	sessions.Save(c.Jar, c.BaseUrl)
	c.tel.ReportInfo("Login successful!")
	return nil
}

func (c *Client) loginCredentials(ctx context.Context, prompter prompt.Prompter) error {
	loginError := func(err error) error {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	creds, err := prompter.Credentials(ctx)
	if err != nil {
		return loginError(fmt.Errorf("prompt: %w", err))
	}

	c.tel.ReportInfo(fmt.Sprintf("Logging in as %s...", creds.Email))

	res, err := c.Http.R().
		SetContext(ctx).
		Get(homePath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("not-logged-in page request: %w", err),
		)
		return loginError(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("parse not-logged-in page: %w", err),
		)
		return loginError(err)
	}

	token := extractToken(doc)
	if token == "" {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("failed to get CSRF token"))
		return loginError(ErrNoToken)
	}
	c.token = token

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"authenticity_token": token,
			"user[email]":        creds.Email,
			"user[password]":     creds.Password,
			"commit":             "Sign In",
		}).
		Post(sessionPath)
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login request: %w", err),
		)
		return loginError(err)
	}

	body := res.String()
	if res.StatusCode() != http.StatusOK || !strings.Contains(body, signedInMarker) {
		c.tel.ReportWarning(
			report_client_login,
			fmt.Errorf("test login: could not find %q", signedInMarker),
			res.Status(),
		)
		return ErrLoginFailed
	}

	c.refreshToken(body)
	return nil
}
