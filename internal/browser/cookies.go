package browser

import (
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/xkilldash9x/feedfilter/api/schemas"
)

// fromNetworkCookies converts cookies reported by the browser into the
// persisted form. Session cookies carry no expiry.
func fromNetworkCookies(in []*network.Cookie) []schemas.Cookie {
	out := make([]schemas.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		cookie := schemas.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: schemas.CookieSameSite(c.SameSite),
		}
		if !c.Session && c.Expires > 0 {
			expiry := int64(c.Expires)
			cookie.Expiry = &expiry
		}
		out = append(out, cookie)
	}
	return out
}

// toCookieParams converts persisted cookies into injection parameters.
// Cookies without a domain are scoped to fallbackURL.
func toCookieParams(in []schemas.Cookie, fallbackURL string) []*network.CookieParam {
	out := make([]*network.CookieParam, 0, len(in))
	for _, c := range in {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: network.CookieSameSite(c.SameSite),
		}
		if c.Domain == "" {
			param.URL = fallbackURL
		}
		if c.Expiry != nil {
			expires := cdp.TimeSinceEpoch(time.Unix(*c.Expiry, 0))
			param.Expires = &expires
		}
		out = append(out, param)
	}
	return out
}
