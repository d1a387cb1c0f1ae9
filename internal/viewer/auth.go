package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"go.uber.org/zap"
)

// LoginState records whether the browser context carries an authenticated
// session. It moves from Unauthenticated to Authenticated once per process.
type LoginState int

const (
	Unauthenticated LoginState = iota
	Authenticated
)

func (s LoginState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Credentials identify the account used for interactive login.
type Credentials struct {
	Identifier string
	Secret     string
}

// Empty reports whether either part of the credentials is missing.
func (c Credentials) Empty() bool {
	return c.Identifier == "" || c.Secret == ""
}

// String never includes the secret.
func (c Credentials) String() string {
	if c.Secret == "" {
		return c.Identifier
	}
	return c.Identifier + ":********"
}

// CookieStore persists the cookie set captured after an interactive login.
type CookieStore interface {
	Load() ([]schemas.Cookie, bool, error)
	Save(cookies []schemas.Cookie) error
}

// Authenticator logs the browser in, either by replaying a stored cookie set
// or by submitting the login form.
type Authenticator struct {
	driver           schemas.Driver
	store            CookieStore
	homeURL          string
	loginSettle      time.Duration
	postSubmitSettle time.Duration
	logger           *zap.Logger

	state LoginState
}

// NewAuthenticator creates an Authenticator in the Unauthenticated state.
func NewAuthenticator(driver schemas.Driver, store CookieStore, settings Settings, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		driver:           driver,
		store:            store,
		homeURL:          settings.HomeURL,
		loginSettle:      settings.Delays.LoginSettle,
		postSubmitSettle: settings.Delays.PostSubmitSettle,
		logger:           logger,
	}
}

// State returns the current login state.
func (a *Authenticator) State() LoginState {
	return a.state
}

// Authenticate logs in once. Stored cookies are replayed without checking
// that they are still accepted; an expired set only shows up later as
// logged-out pages. Without stored cookies the login form is submitted and the
// resulting cookies are saved.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (LoginState, error) {
	if a.state == Authenticated {
		return a.state, nil
	}

	cookies, found, err := a.store.Load()
	if err != nil {
		return a.state, fmt.Errorf("failed to load stored session: %w", err)
	}

	if found {
		if err := a.driver.Navigate(ctx, a.homeURL); err != nil {
			return a.state, fmt.Errorf("failed to open %s: %w", a.homeURL, err)
		}
		if err := a.driver.SetCookies(ctx, cookies); err != nil {
			return a.state, fmt.Errorf("failed to restore stored cookies: %w", err)
		}
		a.logger.Info("Login with existing cookies", zap.Int("cookies", len(cookies)))
	} else {
		if err := a.submitLoginForm(ctx, creds); err != nil {
			return a.state, err
		}
		captured, err := a.driver.Cookies(ctx)
		if err != nil {
			return a.state, fmt.Errorf("failed to capture session cookies: %w", err)
		}
		if err := a.store.Save(captured); err != nil {
			return a.state, fmt.Errorf("failed to save session cookies: %w", err)
		}
		a.logger.Info("Saved session cookies", zap.Int("cookies", len(captured)))
	}

	a.state = Authenticated
	a.logger.Info("Login successful", zap.String("account", creds.Identifier))
	return a.state, nil
}

func (a *Authenticator) submitLoginForm(ctx context.Context, creds Credentials) error {
	if creds.Empty() {
		return errors.New("no stored session and no credentials to log in with")
	}
	if err := a.driver.Navigate(ctx, a.homeURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", a.homeURL, err)
	}

	email, err := a.driver.FindElement(ctx, emailFieldXPath)
	if err != nil {
		return fmt.Errorf("login form email field: %w", err)
	}
	if err := a.driver.SendKeys(ctx, email, creds.Identifier); err != nil {
		return fmt.Errorf("failed to type email: %w", err)
	}

	password, err := a.driver.FindElement(ctx, passwordFieldXPath)
	if err != nil {
		return fmt.Errorf("login form password field: %w", err)
	}
	if err := a.driver.SendKeys(ctx, password, creds.Secret); err != nil {
		return fmt.Errorf("failed to type password: %w", err)
	}

	// Submissions that follow the typing too closely are rejected by the site.
	if err := settle(ctx, a.loginSettle); err != nil {
		return err
	}
	if err := a.driver.SendKeys(ctx, password, schemas.KeyEnter); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	return settle(ctx, a.postSubmitSettle)
}
