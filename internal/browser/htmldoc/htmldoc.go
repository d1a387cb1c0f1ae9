// Package htmldoc is an in-memory schemas.Driver over static HTML pages. It
// evaluates XPath selectors with htmlquery and models just enough browser
// behaviour for the viewer to run end to end without Chrome:
//
//   - SendKeys appends to the value attribute. A trailing Enter submits the
//     enclosing <form action>, navigating to action?q=<value>, or, when the
//     form carries data-submit-cookie="name=value", sets that cookie.
//   - Activate follows the enclosing or contained <a href>, or replaces the element with
//     its data-replace markup. Elements marked data-obstructed refuse it.
//   - ForceActivate does the same but ignores data-obstructed.
//   - <meta name="set-cookie" content="name=value"> sets a cookie on load.
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/feedfilter/api/schemas"
)

// Action is one call recorded by the driver.
type Action struct {
	Op     string
	Target string
}

// Driver serves a fixed set of pages keyed by URL.
type Driver struct {
	mu      sync.Mutex
	pages   map[string]string
	doc     *html.Node
	url     string
	nodes   map[schemas.ElementID]*html.Node
	ids     map[*html.Node]schemas.ElementID
	nextID  schemas.ElementID
	cookies map[string]schemas.Cookie
	journal []Action
	closed  bool
}

var _ schemas.Driver = (*Driver)(nil)

// New creates a Driver serving pages.
func New(pages map[string]string) *Driver {
	return &Driver{
		pages:   pages,
		nodes:   make(map[schemas.ElementID]*html.Node),
		ids:     make(map[*html.Node]schemas.ElementID),
		cookies: make(map[string]schemas.Cookie),
	}
}

// ErrUnknownPage is returned when navigating to a URL the driver does not serve.
var ErrUnknownPage = errors.New("unknown page")

func (d *Driver) record(op, target string) {
	d.journal = append(d.journal, Action{Op: op, Target: target})
}

func (d *Driver) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed {
		return fmt.Errorf("%w: driver closed", schemas.ErrDriver)
	}
	return nil
}

// Navigate implements schemas.Driver.
func (d *Driver) Navigate(ctx context.Context, target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	d.record("navigate", target)
	return d.load(target)
}

func (d *Driver) load(target string) error {
	src, ok := d.pages[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, target)
	}
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}
	d.doc = doc
	d.url = target
	// Handles do not survive navigation.
	d.nodes = make(map[schemas.ElementID]*html.Node)
	d.ids = make(map[*html.Node]schemas.ElementID)

	for _, meta := range htmlquery.Find(doc, "//meta[@name='set-cookie']") {
		d.setCookieString(htmlquery.SelectAttr(meta, "content"))
	}
	return nil
}

func (d *Driver) setCookieString(s string) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return
	}
	d.cookies[name] = schemas.Cookie{Name: name, Value: value, Domain: d.host(), Path: "/"}
}

func (d *Driver) host() string {
	u, err := url.Parse(d.url)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// FindElement implements schemas.Driver.
func (d *Driver) FindElement(ctx context.Context, xpath string) (schemas.ElementID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return 0, err
	}
	d.record("find", xpath)
	if d.doc == nil {
		return 0, fmt.Errorf("%w: no page loaded", schemas.ErrElementNotFound)
	}
	node, err := htmlquery.Query(d.doc, xpath)
	if err != nil {
		return 0, fmt.Errorf("invalid selector %q: %w", xpath, err)
	}
	if node == nil {
		return 0, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, xpath)
	}
	return d.handle(node), nil
}

func (d *Driver) handle(n *html.Node) schemas.ElementID {
	if id, ok := d.ids[n]; ok {
		return id
	}
	d.nextID++
	d.ids[n] = d.nextID
	d.nodes[d.nextID] = n
	return d.nextID
}

// node resolves a handle to an element still attached to the document.
func (d *Driver) node(el schemas.ElementID) (*html.Node, error) {
	n, ok := d.nodes[el]
	if !ok || !attached(d.doc, n) {
		return nil, fmt.Errorf("%w: stale element %d", schemas.ErrElementNotFound, el)
	}
	return n, nil
}

func attached(doc, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == doc {
			return true
		}
	}
	return false
}

// SendKeys implements schemas.Driver.
func (d *Driver) SendKeys(ctx context.Context, el schemas.ElementID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.record("keys", text)

	submit := strings.HasSuffix(text, schemas.KeyEnter)
	text = strings.TrimSuffix(text, schemas.KeyEnter)
	value := htmlquery.SelectAttr(n, "value") + text
	setAttr(n, "value", value)
	if !submit {
		return nil
	}

	form := ancestor(n, "form")
	if form == nil {
		return nil
	}
	if cookie := htmlquery.SelectAttr(form, "data-submit-cookie"); cookie != "" {
		d.setCookieString(cookie)
	}
	action := htmlquery.SelectAttr(form, "action")
	if action == "" {
		return nil
	}
	return d.load(action + "?q=" + url.QueryEscape(value))
}

// Activate implements schemas.Driver.
func (d *Driver) Activate(ctx context.Context, el schemas.ElementID) error {
	return d.activate(ctx, el, false)
}

// ForceActivate implements schemas.Driver.
func (d *Driver) ForceActivate(ctx context.Context, el schemas.ElementID) error {
	return d.activate(ctx, el, true)
}

func (d *Driver) activate(ctx context.Context, el schemas.ElementID, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	op := "activate"
	if force {
		op = "force-activate"
	}
	d.record(op, strings.TrimSpace(htmlquery.InnerText(n)))

	if !force && hasAttr(n, "data-obstructed") {
		return fmt.Errorf("element %d is obscured by another element", el)
	}
	if markup, ok := attr(n, "data-replace"); ok {
		return replace(n, markup)
	}
	if href := link(n); href != "" {
		return d.load(href)
	}
	return nil
}

// link returns the href a click on n would follow: the enclosing anchor's,
// or failing that the first anchor inside n.
func link(n *html.Node) string {
	if a := ancestor(n, "a"); a != nil {
		return htmlquery.SelectAttr(a, "href")
	}
	if a := htmlquery.FindOne(n, ".//a[@href]"); a != nil {
		return htmlquery.SelectAttr(a, "href")
	}
	return ""
}

// Remove implements schemas.Driver.
func (d *Driver) Remove(ctx context.Context, el schemas.ElementID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.record("remove", strings.TrimSpace(htmlquery.InnerText(n)))
	n.Parent.RemoveChild(n)
	return nil
}

// Text implements schemas.Driver.
func (d *Driver) Text(ctx context.Context, el schemas.ElementID) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return "", err
	}
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return htmlquery.InnerText(n), nil
}

// Cookies implements schemas.Driver. The result is sorted by name.
func (d *Driver) Cookies(ctx context.Context) ([]schemas.Cookie, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	out := make([]schemas.Cookie, 0, len(d.cookies))
	for _, c := range d.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetCookies implements schemas.Driver.
func (d *Driver) SetCookies(ctx context.Context, cookies []schemas.Cookie) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(ctx); err != nil {
		return err
	}
	for _, c := range cookies {
		d.record("set-cookie", c.Name)
		d.cookies[c.Name] = c
	}
	return nil
}

// Close implements schemas.Driver.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close", "")
	d.closed = true
	return nil
}

// URL returns the address of the current page.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Journal returns a copy of the recorded calls.
func (d *Driver) Journal() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Action(nil), d.journal...)
}

// Ops returns the recorded calls whose Op is op.
func (d *Driver) Ops(op string) []Action {
	var out []Action
	for _, a := range d.Journal() {
		if a.Op == op {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of elements in the current page matching xpath.
func (d *Driver) Count(xpath string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return 0
	}
	return len(htmlquery.Find(d.doc, xpath))
}

// Texts returns the trimmed inner text of every element matching xpath.
func (d *Driver) Texts(xpath string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	var out []string
	for _, n := range htmlquery.Find(d.doc, xpath) {
		out = append(out, strings.TrimSpace(htmlquery.InnerText(n)))
	}
	return out
}

// HTML renders the current page.
func (d *Driver) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return ""
	}
	return htmlquery.OutputHTML(d.doc, true)
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// replace swaps n for the nodes parsed from markup.
func replace(n *html.Node, markup string) error {
	parent := n.Parent
	if parent == nil {
		return nil
	}
	frag, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return fmt.Errorf("failed to parse replacement markup: %w", err)
	}
	for _, c := range frag {
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
	return nil
}
