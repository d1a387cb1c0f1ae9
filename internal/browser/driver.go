// Package browser implements the automation driver on top of a Chrome
// instance controlled through chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedfilter/api/schemas"
	"github.com/xkilldash9x/feedfilter/internal/config"
)

const (
	forceClickFunction = "function() { this.click(); }"
	shutdownTimeout    = 10 * time.Second
)

// Driver controls one Chrome tab.
type Driver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	navigationTimeout time.Duration
	actionTimeout     time.Duration
	logger            *zap.Logger
}

var _ schemas.Driver = (*Driver)(nil)

// NewDriver launches Chrome and opens a tab. The browser lives until Close is
// called or ctx is canceled.
func NewDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	logger = logger.Named("browser")

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	d := &Driver{
		allocCtx:          allocCtx,
		allocCancel:       allocCancel,
		tabCtx:            tabCtx,
		tabCancel:         tabCancel,
		navigationTimeout: cfg.NavigationTimeout,
		actionTimeout:     cfg.ActionTimeout,
		logger:            logger,
	}

	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: failed to start browser: %v", schemas.ErrDriver, err)
	}
	logger.Info("Browser started", zap.Bool("headless", cfg.Headless))
	return d, nil
}

func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := withTimeout(d.tabCtx, ctx, timeout)
	defer cancel()
	return d.classify(ctx, chromedp.Run(opCtx, actions...))
}

// classify maps chromedp failures onto the schemas error kinds. A caller
// cancellation is returned as is.
func (d *Driver) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isStaleNode(err) {
		return fmt.Errorf("%w: %v", schemas.ErrElementNotFound, err)
	}
	if d.tabCtx.Err() != nil {
		return fmt.Errorf("%w: %v", schemas.ErrDriver, err)
	}
	return err
}

func isStaleNode(err error) bool {
	var cdpErr *cdproto.Error
	if !errors.As(err, &cdpErr) {
		return false
	}
	msg := strings.ToLower(cdpErr.Message)
	return strings.Contains(msg, "no node with given id") ||
		strings.Contains(msg, "could not find node with given id") ||
		strings.Contains(msg, "node is detached")
}

func nodeIDs(el schemas.ElementID) []cdp.NodeID {
	return []cdp.NodeID{cdp.NodeID(el)}
}

// Navigate implements schemas.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("Navigate", zap.String("url", url))
	return d.run(ctx, d.navigationTimeout, chromedp.Navigate(url))
}

// FindElement implements schemas.Driver. The lookup runs once against the
// current document and does not wait for a match to appear.
func (d *Driver) FindElement(ctx context.Context, xpath string) (schemas.ElementID, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, d.actionTimeout,
		chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, err
	}
	if len(nodes) == 0 {
		return 0, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, xpath)
	}
	return schemas.ElementID(nodes[0].NodeID), nil
}

// SendKeys implements schemas.Driver.
func (d *Driver) SendKeys(ctx context.Context, el schemas.ElementID, text string) error {
	return d.run(ctx, d.actionTimeout, chromedp.SendKeys(nodeIDs(el), text, chromedp.ByNodeID))
}

// Activate implements schemas.Driver with a dispatched mouse click at the
// centre of the element.
func (d *Driver) Activate(ctx context.Context, el schemas.ElementID) error {
	return d.run(ctx, d.actionTimeout, chromedp.Click(nodeIDs(el), chromedp.ByNodeID))
}

// ForceActivate implements schemas.Driver by calling click() on the element
// inside the page, so overlays and visibility do not matter.
func (d *Driver) ForceActivate(ctx context.Context, el schemas.ElementID) error {
	return d.run(ctx, d.actionTimeout, d.callOn(el, forceClickFunction))
}

// Remove implements schemas.Driver.
func (d *Driver) Remove(ctx context.Context, el schemas.ElementID) error {
	return d.run(ctx, d.actionTimeout, dom.RemoveNode(cdp.NodeID(el)))
}

// Text implements schemas.Driver.
func (d *Driver) Text(ctx context.Context, el schemas.ElementID) (string, error) {
	var text string
	err := d.run(ctx, d.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		value, err := callFunction(ctx, el, "function() { return this.innerText || this.textContent || ''; }")
		if err != nil {
			return err
		}
		if len(value) == 0 {
			return nil
		}
		return json.Unmarshal(value, &text)
	}))
	return text, err
}

// Cookies implements schemas.Driver.
func (d *Driver) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	var cookies []*network.Cookie
	err := d.run(ctx, d.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(cookies), nil
}

// SetCookies implements schemas.Driver.
func (d *Driver) SetCookies(ctx context.Context, cookies []schemas.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	var location string
	return d.run(ctx, d.actionTimeout,
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookies(toCookieParams(cookies, location)).Do(ctx)
		}),
	)
}

// Close implements schemas.Driver. It asks the browser to exit and then
// releases the allocator. Close is safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(d.tabCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(shutdownTimeout):
		err = errors.New("timed out waiting for browser to exit")
	}
	d.tabCancel()
	d.allocCancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("Browser did not shut down cleanly", zap.Error(err))
		return fmt.Errorf("%w: %v", schemas.ErrDriver, err)
	}
	d.logger.Info("Browser closed")
	return nil
}

func (d *Driver) callOn(el schemas.ElementID, fn string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := callFunction(ctx, el, fn)
		return err
	})
}

// callFunction runs fn with the element bound to this and returns the JSON
// encoded result.
func callFunction(ctx context.Context, el schemas.ElementID, fn string) ([]byte, error) {
	obj, err := dom.ResolveNode().WithNodeID(cdp.NodeID(el)).Do(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
	}()

	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, fmt.Errorf("script exception: %s", exc.Text)
	}
	if res == nil {
		return nil, nil
	}
	return []byte(res.Value), nil
}
