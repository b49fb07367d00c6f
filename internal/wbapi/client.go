// Package wbapi is a thin client for the business metrics API. Every report
// is a GET against a fixed path, authenticated by a static key that is sent
// as the "key" query parameter.
package wbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single fetch when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Upstream endpoint paths, relative to Config.BaseURL.
const (
	EndpointIncomes = "/api/incomes"
	EndpointOrders  = "/api/orders"
	EndpointSales   = "/api/sales"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 20

// Config is the immutable client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Params are the query parameters of a fetch. Nil Page and Limit are omitted
// from the request; nothing is validated or defaulted.
type Params struct {
	DateFrom string
	DateTo   string
	Page     *int
	Limit    *int
}

// encode builds the query string in a fixed order: dateFrom, dateTo, page,
// limit, key. An empty key is left out.
func (p Params) encode(key string) string {
	var b strings.Builder
	add := func(name, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	add("dateFrom", p.DateFrom)
	add("dateTo", p.DateTo)
	if p.Page != nil {
		add("page", strconv.Itoa(*p.Page))
	}
	if p.Limit != nil {
		add("limit", strconv.Itoa(*p.Limit))
	}
	if key != "" {
		add("key", key)
	}
	return b.String()
}

// Observation describes one finished round trip. Status is zero when no
// response was received.
type Observation struct {
	Endpoint string
	Params   Params
	Status   int
	Duration time.Duration
	Err      error
}

// Observer is notified after every fetch, successful or not.
type Observer interface {
	ObserveFetch(ctx context.Context, o Observation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, o Observation)

// ObserveFetch calls f(ctx, o).
func (f ObserverFunc) ObserveFetch(ctx context.Context, o Observation) {
	f(ctx, o)
}

// Client issues key-authenticated GET requests against the metrics API.
// It holds no mutable state after New and is safe for concurrent use.
// Identical concurrent calls are not shared: each one is its own round trip.
type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	observer Observer
	maxBody  int64
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    &http.Client{},
		maxBody: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// FetchIncomes fetches the incomes report.
func (c *Client) FetchIncomes(ctx context.Context, p Params) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointIncomes, p)
}

// FetchOrders fetches the orders report.
func (c *Client) FetchOrders(ctx context.Context, p Params) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointOrders, p)
}

// FetchStocks fetches the data shown on the stocks page. The API serves it
// from the sales endpoint.
func (c *Client) FetchStocks(ctx context.Context, p Params) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointSales, p)
}

// FetchSales fetches the sales report.
func (c *Client) FetchSales(ctx context.Context, p Params) (json.RawMessage, error) {
	return c.Fetch(ctx, EndpointSales, p)
}

// Fetch issues GET {baseURL}{endpoint} with p and the API key, and returns the
// body of a 2xx response unchanged, whatever its content type. An empty body
// is returned as JSON null. Errors are returned as they occur: no retry.
func (c *Client) Fetch(ctx context.Context, endpoint string, p Params) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, body, err := c.do(reqCtx, endpoint, p)
	if err != nil {
		err = fmt.Errorf("wbapi: GET %s: %w", endpoint, err)
	} else if status < 200 || status > 299 {
		err = &StatusError{Endpoint: endpoint, StatusCode: status, Body: body}
	}

	if c.observer != nil {
		c.observer.ObserveFetch(ctx, Observation{
			Endpoint: endpoint,
			Params:   p,
			Status:   status,
			Duration: time.Since(start),
			Err:      err,
		})
	}

	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, endpoint string, p Params) (int, []byte, error) {
	target := c.baseURL + endpoint + "?" + p.encode(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of error text.
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.baseURL + endpoint
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if int64(len(body)) > c.maxBody {
		return resp.StatusCode, nil, ErrBodyTooLarge
	}
	return resp.StatusCode, body, nil
}
