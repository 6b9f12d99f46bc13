// Package http builds the HTTP client used for every request to the tracing backend.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultTimeout bounds a whole backend round trip, body included.
const DefaultTimeout = 30 * time.Second

var (
	newTransportFunc = func() *http.Transport {
		return &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			// MaxIdleConnsPerHost does not work as expected
			// https://github.com/golang/go/issues/13801
			// Improve connection re-use
			MaxIdleConns:          256,
			MaxIdleConnsPerHost:   128,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
)

type clientConfig struct {
	timeout   time.Duration
	duration  prometheus.ObserverVec
	transport http.RoundTripper
}

// ClientOption configures NewClient.
type ClientOption func(*clientConfig)

// WithTimeout sets the client timeout. Zero disables it.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithDurationObserver records every round trip in obs, which must be
// partitioned by at most the "code" and "method" labels.
func WithDurationObserver(obs prometheus.ObserverVec) ClientOption {
	return func(c *clientConfig) {
		c.duration = obs
	}
}

// WithTransport replaces the default tuned transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.transport = rt
	}
}

// NewClient returns a client safe for concurrent use by all tool calls.
func NewClient(opts ...ClientOption) *http.Client {
	cfg := clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	var rt http.RoundTripper = newTransportFunc()
	if cfg.transport != nil {
		rt = cfg.transport
	}
	if cfg.duration != nil {
		rt = promhttp.InstrumentRoundTripperDuration(cfg.duration, rt)
	}

	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: rt,
	}
}
