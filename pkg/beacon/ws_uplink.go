// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsQueueSize bounds reports waiting for the WebSocket writer
const wsQueueSize = 8

// WireReport is the CBOR map written per report on the WebSocket uplink
type WireReport struct {
	DeviceID   uint32 `cbor:"0,keyasint"`
	DeviceName string `cbor:"1,keyasint"`
	Frequency  string `cbor:"2,keyasint"`
	Mode       string `cbor:"3,keyasint"`
	UnixMillis int64  `cbor:"4,keyasint"`
	ID         string `cbor:"5,keyasint"`
}

// EncodeReport serializes r as a CBOR WireReport
func EncodeReport(r Report) ([]byte, error) {
	return cbor.Marshal(WireReport{
		DeviceID:   r.DeviceID,
		DeviceName: r.DeviceName,
		Frequency:  r.Frequency,
		Mode:       r.Mode,
		UnixMillis: r.Time.UnixMilli(),
		ID:         r.ID.String(),
	})
}

// DecodeReport parses a CBOR WireReport
func DecodeReport(data []byte) (WireReport, error) {
	var w WireReport
	err := cbor.Unmarshal(data, &w)
	return w, err
}

// WebSocketUplink writes reports as binary CBOR messages over a WebSocket
// connection. The connection is dialed on the first report and redialed on
// the report after a write failure. Reports are dropped when the queue is full.
type WebSocketUplink struct {
	url     string
	headers http.Header
	dialer  websocket.Dialer
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics

	queue     chan Report
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// owned by the writer goroutine
	conn *websocket.Conn
}

// NewWebSocketUplink validates wsURL and starts the writer goroutine
func NewWebSocketUplink(wsURL string, headers http.Header, skipSSLVerify bool, timeout time.Duration, logger *zap.Logger, metrics *Metrics) (*WebSocketUplink, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("uplink: invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("uplink: unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	if timeout <= 0 {
		timeout = DefaultUplinkTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	w := &WebSocketUplink{
		url:     wsURL,
		headers: headers,
		dialer:  dialer,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan Report, wsQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.writer()
	return w, nil
}

// Send queues r for the writer without blocking
func (w *WebSocketUplink) Send(_ context.Context, r Report) {
	select {
	case <-w.done:
		return
	default:
	}

	select {
	case w.queue <- r:
	default:
		w.metrics.dropped()
		w.logger.Warn("uplink queue full, report dropped", zap.Uint32("device_id", r.DeviceID))
	}
}

func (w *WebSocketUplink) writer() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			w.disconnect()
			return
		case r := <-w.queue:
			if err := w.write(r); err != nil {
				w.logger.Warn("uplink failed", zap.Uint32("device_id", r.DeviceID), zap.Error(err))
				w.disconnect()
			}
		}
	}
}

func (w *WebSocketUplink) write(r Report) error {
	start := time.Now()

	data, err := EncodeReport(r)
	if err != nil {
		return err
	}

	if w.conn == nil {
		conn, _, err := w.dial(context.Background())
		if err != nil {
			w.metrics.uplink(TransportWebSocket, "transport_error", time.Since(start))
			return err
		}
		w.conn = conn
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		w.metrics.uplink(TransportWebSocket, "transport_error", time.Since(start))
		return err
	}
	w.metrics.uplink(TransportWebSocket, "ok", time.Since(start))
	return nil
}

func (w *WebSocketUplink) dial(ctx context.Context) (*websocket.Conn, int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	conn, resp, err := w.dialer.DialContext(ctx, w.url, w.headers)
	if err != nil {
		if resp != nil {
			return nil, resp.StatusCode, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, 0, fmt.Errorf("websocket connection failed: %w", err)
	}
	return conn, resp.StatusCode, nil
}

// Deliver writes r on a connection of its own and returns the handshake
// HTTP status. It does not touch the queue or the writer's connection.
func (w *WebSocketUplink) Deliver(ctx context.Context, r Report) (int, error) {
	start := time.Now()

	data, err := EncodeReport(r)
	if err != nil {
		return 0, err
	}

	conn, status, err := w.dial(ctx)
	if err != nil {
		w.metrics.uplink(TransportWebSocket, "transport_error", time.Since(start))
		return status, err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(w.timeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		w.metrics.uplink(TransportWebSocket, "transport_error", time.Since(start))
		return status, err
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.metrics.uplink(TransportWebSocket, "ok", time.Since(start))
	return status, nil
}

func (w *WebSocketUplink) disconnect() {
	if w.conn == nil {
		return
	}
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = w.conn.Close()
	w.conn = nil
}

// Close stops the writer and closes the connection. Queued reports that
// have not been written yet are discarded.
func (w *WebSocketUplink) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	<-w.stopped
	return nil
}
