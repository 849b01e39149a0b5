package transport

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// ModifyHeadersOption is a function type used to modify HTTP headers in a request.
// It takes a function that sets a header key and value, allowing for flexible header modification.
type ModifyHeadersOption func(func(key string, value string))

type modifyHeadersRoundTripper struct {
	roundTripper http.RoundTripper
	options      []ModifyHeadersOption
}

// NewModifyHeadersRoundTripper will add headers to a request.
// Headers already present on the request are left untouched.
func NewModifyHeadersRoundTripper(rt http.RoundTripper, opts ...ModifyHeadersOption) http.RoundTripper {
	return &modifyHeadersRoundTripper{roundTripper: rt, options: opts}
}

func (rt *modifyHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for _, opt := range rt.options {
		opt(func(key, value string) {
			if req.Header.Get(key) == "" {
				req.Header.Set(key, value)
			}
		})
	}
	return rt.roundTripper.RoundTrip(req)
}

// WithUserAgent is a functional option to set the HTTP client user agent.
func WithUserAgent(userAgent string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("User-Agent", userAgent)
	}
}

// WithAcceptLanguage is a functional option to set the HTTP client accept language.
func WithAcceptLanguage(acceptLanguage string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("Accept-Language", acceptLanguage)
	}
}

// WithAccept is a functional option to set the HTTP client accepted content types.
func WithAccept(accept string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("Accept", accept)
	}
}

type rateLimitedRoundTripper struct {
	roundTripper http.RoundTripper
	limiter      *rate.Limiter
}

// NewRateLimitedRoundTripper waits on limiter before every request.
// The wait honors the request context.
func NewRateLimitedRoundTripper(rt http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	return &rateLimitedRoundTripper{roundTripper: rt, limiter: limiter}
}

func (rt *rateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("failed to rate.Limiter.Wait: %w", err)
	}
	return rt.roundTripper.RoundTrip(req)
}
