package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"github.com/xkilldash9x/feedfilter/internal/browser"
	"github.com/xkilldash9x/feedfilter/internal/config"
	"github.com/xkilldash9x/feedfilter/internal/store"
	"github.com/xkilldash9x/feedfilter/internal/viewer"
)

const closeTimeout = 15 * time.Second

// newDriver starts the browser. Replaced in tests.
var newDriver = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (schemas.Driver, error) {
	return browser.NewDriver(ctx, cfg, logger)
}

// runViewer logs in, opens the selected profile's target and filters it until
// ctx is canceled or something fails.
func runViewer(ctx context.Context, cfg *config.Config, profileName string, logger *zap.Logger) error {
	name, profile, err := cfg.Profile(profileName)
	if err != nil {
		return err
	}
	target, err := targetFor(profile)
	if err != nil {
		return fmt.Errorf("configuration '%s': %w", name, err)
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("Using configuration",
		zap.String("config", name),
		zap.Stringer("target", target),
		zap.Strings("filter_keywords", profile.FilterKeywords),
	)

	cookieStore, err := store.New(cfg.Session.CookieFile)
	if err != nil {
		return err
	}

	driver, err := newDriver(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	v := viewer.New(driver, cookieStore, settingsFor(cfg), logger.Named("viewer"))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := v.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	creds := viewer.Credentials{Identifier: cfg.Credentials.Email, Secret: cfg.Credentials.Password}
	if _, err := v.Login(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	err = v.View(ctx, target, profile.FilterKeywords)
	if errors.Is(err, context.Canceled) {
		logger.Info("Viewer stopped")
	}
	return err
}

func targetFor(p config.Profile) (viewer.Target, error) {
	switch p.Mode {
	case config.ModeByURL:
		return viewer.AddressTarget{URL: p.URL}, nil
	case config.ModeBySearch:
		return viewer.SearchTarget{Query: p.SearchKey}, nil
	default:
		return nil, fmt.Errorf("invalid mode '%s'", p.Mode)
	}
}

func settingsFor(cfg *config.Config) viewer.Settings {
	return viewer.Settings{
		HomeURL:           cfg.Site.HomeURL,
		SearchPlaceholder: cfg.Site.SearchPlaceholder,
		ShowMoreLabel:     cfg.Site.ShowMoreLabel,
		Delays: viewer.Delays{
			HomeSettle:       cfg.Timing.HomeSettle,
			AddressSettle:    cfg.Timing.AddressSettle,
			SearchSettle:     cfg.Timing.SearchSettle,
			ResultSettle:     cfg.Timing.ResultSettle,
			LoginSettle:      cfg.Timing.LoginSettle,
			PostSubmitSettle: cfg.Timing.PostSubmitSettle,
			PollInterval:     cfg.Timing.PollInterval,
		},
	}
}
