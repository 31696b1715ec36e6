// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Uplink transports
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// DefaultUplinkTimeout bounds a single delivery
const DefaultUplinkTimeout = 5 * time.Second

// UserAgent is sent with every uplink request
var UserAgent = "civbeacon"

// HTTPUplink delivers reports as GET requests carrying device_id, freq and
// mode query parameters. Each delivery runs on its own goroutine; the
// response is drained and discarded.
type HTTPUplink struct {
	client   *http.Client
	endpoint *url.URL
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *Metrics

	wg sync.WaitGroup
}

// NewHTTPUplink creates an uplink against baseURL joined with path
func NewHTTPUplink(client *http.Client, baseURL, path string, timeout time.Duration, logger *zap.Logger, metrics *Metrics) (*HTTPUplink, error) {
	if baseURL == "" {
		return nil, errors.New("uplink: base URL required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("uplink: invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("uplink: unsupported URL scheme: %s (use http:// or https://)", u.Scheme)
	}
	if path != "" {
		u = u.JoinPath(path)
	}

	if timeout <= 0 {
		timeout = DefaultUplinkTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPUplink{
		client:   client,
		endpoint: u,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Endpoint returns the request URL for r
func (u *HTTPUplink) Endpoint(r Report) string {
	target := *u.endpoint
	q := target.Query()
	q.Set("device_id", strconv.FormatUint(uint64(r.DeviceID), 10))
	q.Set("freq", r.Frequency)
	q.Set("mode", r.Mode)
	target.RawQuery = q.Encode()
	return target.String()
}

// Send dispatches r in the background and returns immediately
func (u *HTTPUplink) Send(ctx context.Context, r Report) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		code, err := u.Deliver(ctx, r)
		if err != nil {
			u.logger.Warn("uplink failed",
				zap.Uint32("device_id", r.DeviceID),
				zap.Int("status", code),
				zap.Error(err),
			)
			return
		}
		u.logger.Debug("uplink delivered", zap.Uint32("device_id", r.DeviceID), zap.Int("status", code))
	}()
}

// Deliver performs one synchronous request and returns the HTTP status.
// Non-2xx statuses are returned as errors.
func (u *HTTPUplink) Deliver(ctx context.Context, r Report) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Endpoint(r), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Request-Id", r.ID.String())

	resp, err := u.client.Do(req)
	if err != nil {
		u.metrics.uplink(TransportHTTP, "transport_error", time.Since(start))
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.metrics.uplink(TransportHTTP, "http_error", time.Since(start))
		return resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}
	u.metrics.uplink(TransportHTTP, "ok", time.Since(start))
	return resp.StatusCode, nil
}

// Close waits for in-flight deliveries
func (u *HTTPUplink) Close() error {
	u.wg.Wait()
	return nil
}

// BasicAuthHeader builds request headers carrying HTTP Basic credentials
func BasicAuthHeader(username, password string) http.Header {
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}
	return headers
}
