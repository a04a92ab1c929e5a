// Package geo resolves the country a request originates from. The rest
// of the application treats the result as an opaque string and never
// validates it against an ISO country list.
package geo

import "net/http"

// UnknownCountry is reported when no resolver input is available.
const UnknownCountry = "Unknown"

// Resolver maps an inbound request to a country name.
// Implementations should be safe for concurrent use.
type Resolver interface {
	Country(r *http.Request) string
}

// HeaderResolver reads the country from edge-proxy headers. CDNs such as
// Cloudflare inject CF-IPCountry at the edge; X-Country is kept as an
// escape hatch for local testing.
type HeaderResolver struct {
	Fallback string // defaults to UnknownCountry
}

// NewHeaderResolver returns a Resolver backed by request headers.
func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{Fallback: UnknownCountry}
}

func (h *HeaderResolver) Country(r *http.Request) string {
	if c := r.Header.Get("CF-IPCountry"); c != "" {
		return c
	}
	if c := r.Header.Get("X-Country"); c != "" {
		return c
	}
	if h.Fallback != "" {
		return h.Fallback
	}
	return UnknownCountry
}
