package transport_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ogero/stremio-cartoony/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type mockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func TestModifyHeadersRoundTripper(t *testing.T) {
	mockRT := &mockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "TestAgent", req.Header.Get("User-Agent"))
			assert.Equal(t, "ar", req.Header.Get("Accept-Language"))
			assert.Equal(t, "text/html", req.Header.Get("Accept"))
			return nil, nil
		},
	}

	rt := transport.NewModifyHeadersRoundTripper(mockRT,
		transport.WithUserAgent("TestAgent"),
		transport.WithAcceptLanguage("ar"),
		transport.WithAccept("text/html"))

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	_, _ = rt.RoundTrip(req)
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be mutated")
}

func TestModifyHeadersRoundTripper_KeepsRequestHeaders(t *testing.T) {
	mockRT := &mockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "CustomAgent", req.Header.Get("User-Agent"))
			return nil, nil
		},
	}

	rt := transport.NewModifyHeadersRoundTripper(mockRT, transport.WithUserAgent("TestAgent"))

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "CustomAgent")

	_, _ = rt.RoundTrip(req)
}

func TestRateLimitedRoundTripper(t *testing.T) {
	calls := 0
	mockRT := &mockRoundTripper{
		RoundTripFunc: func(req *http.Request) (*http.Response, error) {
			calls++
			return nil, nil
		},
	}

	rt := transport.NewRateLimitedRoundTripper(mockRT, rate.NewLimiter(rate.Every(time.Hour), 1))

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rt.RoundTrip(req.WithContext(ctx))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
