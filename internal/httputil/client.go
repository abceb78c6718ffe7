package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies outgoing requests. Nominatim rejects anonymous clients.
const DefaultUserAgent = "hourlyweather/1.0 (+https://github.com/lox/hourlyweather)"

// NewClient returns an HTTP client with standard timeout configuration
// that sends userAgent on every request.
func NewClient(userAgent string) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &userAgentTransport{agent: userAgent, next: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(r)
}
