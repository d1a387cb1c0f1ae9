package viewer

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"go.uber.org/zap"
)

// Target is the group or page the viewer should reach. It is either an
// AddressTarget or a SearchTarget.
type Target interface {
	fmt.Stringer
	isTarget()
}

// AddressTarget is reached by loading URL directly.
type AddressTarget struct {
	URL string
}

func (t AddressTarget) String() string { return t.URL }
func (AddressTarget) isTarget()        {}

// SearchTarget is reached by searching for Query and opening the first result.
type SearchTarget struct {
	Query string
}

func (t SearchTarget) String() string { return "search: " + t.Query }
func (SearchTarget) isTarget()        {}

// Navigator drives the browser to a Target.
type Navigator struct {
	driver   schemas.Driver
	settings Settings
	logger   *zap.Logger
}

// NewNavigator creates a Navigator.
func NewNavigator(driver schemas.Driver, settings Settings, logger *zap.Logger) *Navigator {
	return &Navigator{driver: driver, settings: settings, logger: logger}
}

// Navigate brings the browser to target. Every element lookup on the way is
// mandatory, so a missing element aborts the navigation.
func (n *Navigator) Navigate(ctx context.Context, target Target) error {
	switch t := target.(type) {
	case AddressTarget:
		return n.byAddress(ctx, t)
	case SearchTarget:
		return n.bySearch(ctx, t)
	default:
		return fmt.Errorf("unsupported navigation target %T", target)
	}
}

func (n *Navigator) byAddress(ctx context.Context, t AddressTarget) error {
	n.logger.Info("Opening target by address", zap.String("url", t.URL))
	if err := n.driver.Navigate(ctx, t.URL); err != nil {
		return fmt.Errorf("failed to open %s: %w", t.URL, err)
	}
	return settle(ctx, n.settings.Delays.AddressSettle)
}

func (n *Navigator) bySearch(ctx context.Context, t SearchTarget) error {
	n.logger.Info("Opening target by search", zap.String("query", t.Query))
	if err := n.driver.Navigate(ctx, n.settings.HomeURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", n.settings.HomeURL, err)
	}
	if err := settle(ctx, n.settings.Delays.HomeSettle); err != nil {
		return err
	}

	input, err := n.driver.FindElement(ctx, searchInputXPath(n.settings.SearchPlaceholder))
	if err != nil {
		return fmt.Errorf("search input: %w", err)
	}
	if err := n.driver.SendKeys(ctx, input, t.Query); err != nil {
		return fmt.Errorf("failed to type search query: %w", err)
	}
	if err := n.driver.SendKeys(ctx, input, schemas.KeyEnter); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	if err := settle(ctx, n.settings.Delays.SearchSettle); err != nil {
		return err
	}

	result, err := n.driver.FindElement(ctx, searchResultXPath)
	if err != nil {
		return fmt.Errorf("search result: %w", err)
	}
	if err := n.driver.Activate(ctx, result); err != nil {
		return fmt.Errorf("failed to open search result: %w", err)
	}
	return settle(ctx, n.settings.Delays.ResultSettle)
}
