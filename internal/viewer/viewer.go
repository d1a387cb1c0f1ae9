// Package viewer keeps a group or page open in the browser with every post
// that mentions an excluded keyword removed.
//
// Control flow is Authenticator (optional), then Navigator, then the poll
// Loop, which alternates Expander and Filter until the process is stopped.
package viewer

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"go.uber.org/zap"
)

// Viewer wires the components over a single browser session.
type Viewer struct {
	driver   schemas.Driver
	auth     *Authenticator
	nav      *Navigator
	expander *Expander
	filter   *Filter
	loop     *Loop
	logger   *zap.Logger
}

// New creates a Viewer driving driver. Cookies from interactive logins are
// persisted to store.
func New(driver schemas.Driver, store CookieStore, settings Settings, logger *zap.Logger) *Viewer {
	expander := NewExpander(driver, settings.ShowMoreLabel, logger.Named("expander"))
	filter := NewFilter(driver, logger.Named("filter"))
	return &Viewer{
		driver:   driver,
		auth:     NewAuthenticator(driver, store, settings, logger.Named("auth")),
		nav:      NewNavigator(driver, settings, logger.Named("navigator")),
		expander: expander,
		filter:   filter,
		loop:     NewLoop(expander, filter, settings.Delays.PollInterval, logger.Named("loop")),
		logger:   logger,
	}
}

// LoginState reports whether Login has succeeded.
func (v *Viewer) LoginState() LoginState {
	return v.auth.State()
}

// Login authenticates the browser. Without credentials it does nothing and
// the viewer continues logged out.
func (v *Viewer) Login(ctx context.Context, creds Credentials) (LoginState, error) {
	if creds.Empty() {
		v.logger.Warn("No login credentials found. Running without login.")
		v.logger.Warn("Set EMAIL and PASSWORD environment variables to enable login.")
		return v.auth.State(), nil
	}
	return v.auth.Authenticate(ctx, creds)
}

// View navigates to target and then filters its posts by keywords until ctx
// is cancelled or a fatal error occurs.
func (v *Viewer) View(ctx context.Context, target Target, keywords []string) error {
	if v.auth.State() != Authenticated {
		v.logger.Warn("Not logged in. Some features may not work properly.")
	}
	if err := v.nav.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", target, err)
	}

	v.filter.SetSource(target.String())
	v.logger.Info("Filtering posts", zap.Stringer("target", target), zap.Strings("keywords", keywords))
	return v.loop.Run(ctx, keywords)
}

// Close quits the browser.
func (v *Viewer) Close(ctx context.Context) error {
	return v.driver.Close(ctx)
}
