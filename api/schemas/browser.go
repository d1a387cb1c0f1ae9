package schemas

import (
	"context"
	"errors"
)

// -- Automation Surface --

// KeyEnter is the terminal keystroke used to submit a focused form field.
// It matches kb.Enter in chromedp.
const KeyEnter = "\r"

var (
	// ErrElementNotFound reports that no element matched a selector at lookup time.
	// Inside the expand and filter passes it is the expected "done" signal.
	ErrElementNotFound = errors.New("element not found")
	// ErrDriver reports that the browser or its connection is no longer usable.
	ErrDriver = errors.New("automation driver unavailable")
)

// ElementID is an opaque handle to a node in the live document. It stays valid
// until the node is removed or the page navigates away.
type ElementID int64

// Driver is the browser automation surface the viewer depends on. Selectors
// are XPath expressions evaluated against the current document.
type Driver interface {
	// Navigate loads the address in the current tab.
	Navigate(ctx context.Context, url string) error
	// FindElement returns the first element matching the XPath selector. It does
	// not wait for one to appear; a miss returns ErrElementNotFound.
	FindElement(ctx context.Context, xpath string) (ElementID, error)
	// SendKeys types text into the element. A trailing KeyEnter submits.
	SendKeys(ctx context.Context, el ElementID, text string) error
	// Activate clicks the element the way a user would, subject to the
	// browser's visibility and obstruction checks.
	Activate(ctx context.Context, el ElementID) error
	// ForceActivate dispatches a DOM-level click on the element, bypassing the
	// checks Activate honours.
	ForceActivate(ctx context.Context, el ElementID) error
	// Remove detaches the element from the document.
	Remove(ctx context.Context, el ElementID) error
	// Text returns the rendered text of the element.
	Text(ctx context.Context, el ElementID) (string, error)
	// Cookies returns every cookie of the browser context.
	Cookies(ctx context.Context) ([]Cookie, error)
	// SetCookies injects cookies into the browser context.
	SetCookies(ctx context.Context, cookies []Cookie) error
	// Close quits the browser.
	Close(ctx context.Context) error
}

// -- Cookie Schemas --

// CookieSameSite defines the SameSite attribute for cookies.
type CookieSameSite string

const (
	CookieSameSiteStrict CookieSameSite = "Strict"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteNone   CookieSameSite = "None"
)

// Cookie is one record of a persisted session. The JSON layout follows the
// WebDriver cookie object so that files exported by WebDriver clients load as-is.
type Cookie struct {
	Name     string         `json:"name"`
	Value    string         `json:"value"`
	Domain   string         `json:"domain,omitempty"`
	Path     string         `json:"path,omitempty"`
	Expiry   *int64         `json:"expiry,omitempty"`
	HTTPOnly bool           `json:"httpOnly"`
	Secure   bool           `json:"secure"`
	SameSite CookieSameSite `json:"sameSite,omitempty"`
}
