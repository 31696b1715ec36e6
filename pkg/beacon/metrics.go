// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beacon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stationmaster/civbeacon/pkg/civ"
)

// Metrics holds the beacon's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	FramesTotal      *prometheus.CounterVec
	ReportsTotal     prometheus.Counter
	UplinkTotal      *prometheus.CounterVec
	UplinkDuration   *prometheus.HistogramVec
	UplinkDropped    prometheus.Counter
	LastReportSecond prometheus.Gauge
}

// NewMetrics creates the beacon collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civbeacon_frames_total",
			Help: "Serial chunks read, by decoded frame kind.",
		}, []string{"kind"}),
		ReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civbeacon_reports_total",
			Help: "State changes committed and handed to the uplink.",
		}),
		UplinkTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civbeacon_uplink_requests_total",
			Help: "Uplink deliveries by transport and result.",
		}, []string{"transport", "result"}),
		UplinkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "civbeacon_uplink_duration_seconds",
			Help:    "Duration of uplink deliveries in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport"}),
		UplinkDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civbeacon_uplink_dropped_total",
			Help: "Reports dropped because the uplink queue was full.",
		}),
		LastReportSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "civbeacon_last_report_timestamp_seconds",
			Help: "Unix time of the last committed report.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesTotal, m.ReportsTotal, m.UplinkTotal, m.UplinkDuration, m.UplinkDropped, m.LastReportSecond)
	}
	return m
}

func (m *Metrics) frame(kind civ.Kind) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) report(at time.Time) {
	if m == nil {
		return
	}
	m.ReportsTotal.Inc()
	m.LastReportSecond.Set(float64(at.UnixNano()) / 1e9)
}

func (m *Metrics) uplink(transport, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.UplinkTotal.WithLabelValues(transport, result).Inc()
	m.UplinkDuration.WithLabelValues(transport).Observe(took.Seconds())
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.UplinkDropped.Inc()
}
