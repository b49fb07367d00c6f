package wbapi

import "net/http"

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. The configured fetch
// timeout still applies to every request through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver registers an Observer that is notified after every round trip.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}
