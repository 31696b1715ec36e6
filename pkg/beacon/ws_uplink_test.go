// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectorServer(t *testing.T, messages chan<- []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.BinaryMessage {
				messages <- data
			}
		}
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestEncodeReport_RoundTrip(t *testing.T) {
	rep := testReport()

	data, err := EncodeReport(rep)
	require.NoError(t, err)

	w, err := DecodeReport(data)
	require.NoError(t, err)
	assert.Equal(t, rep.DeviceID, w.DeviceID)
	assert.Equal(t, rep.DeviceName, w.DeviceName)
	assert.Equal(t, rep.Frequency, w.Frequency)
	assert.Equal(t, rep.Mode, w.Mode)
	assert.Equal(t, rep.Time.UnixMilli(), w.UnixMillis)
	assert.Equal(t, rep.ID.String(), w.ID)
}

func TestWebSocketUplink_WritesReports(t *testing.T) {
	messages := make(chan []byte, 4)
	ts := collectorServer(t, messages)
	defer ts.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	u, err := NewWebSocketUplink(wsURL(ts), nil, false, time.Second, nil, metrics)
	require.NoError(t, err)
	defer u.Close()

	first := testReport()
	second := testReport()
	second.Mode = "0301"
	u.Send(context.Background(), first)
	u.Send(context.Background(), second)

	for _, want := range []Report{first, second} {
		select {
		case data := <-messages:
			w, err := DecodeReport(data)
			require.NoError(t, err)
			assert.Equal(t, want.ID.String(), w.ID)
			assert.Equal(t, want.Mode, w.Mode)
		case <-time.After(2 * time.Second):
			t.Fatal("no message received")
		}
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.UplinkTotal.WithLabelValues(TransportWebSocket, "ok")))
}

func TestWebSocketUplink_DialFailureIsLocal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	u, err := NewWebSocketUplink(wsURL(ts), nil, false, time.Second, nil, metrics)
	require.NoError(t, err)

	u.Send(context.Background(), testReport())
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.UplinkTotal.WithLabelValues(TransportWebSocket, "transport_error")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, u.Close())
}

func TestWebSocketUplink_SendAfterClose(t *testing.T) {
	u, err := NewWebSocketUplink("ws://127.0.0.1:1/", nil, false, time.Second, nil, nil)
	require.NoError(t, err)
	require.NoError(t, u.Close())
	require.NoError(t, u.Close())

	u.Send(context.Background(), testReport())
}

func TestNewWebSocketUplink_RejectsScheme(t *testing.T) {
	_, err := NewWebSocketUplink("http://collector.example", nil, false, 0, nil, nil)
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestWebSocketUplink_Deliver(t *testing.T) {
	messages := make(chan []byte, 1)
	ts := collectorServer(t, messages)
	defer ts.Close()

	u, err := NewWebSocketUplink(wsURL(ts), nil, false, time.Second, nil, nil)
	require.NoError(t, err)
	defer u.Close()

	rep := testReport()
	status, err := u.Deliver(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, status)

	select {
	case data := <-messages:
		w, err := DecodeReport(data)
		require.NoError(t, err)
		assert.Equal(t, rep.ID.String(), w.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestWebSocketUplink_DeliverRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	u, err := NewWebSocketUplink(wsURL(ts), nil, false, time.Second, nil, nil)
	require.NoError(t, err)
	defer u.Close()

	status, err := u.Deliver(context.Background(), testReport())
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}
