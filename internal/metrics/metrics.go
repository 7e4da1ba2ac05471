// Package metrics wires DeviceMgr operations into Prometheus. Metrics are a
// no-op until Init is called, so callers never need to nil-check a
// collector.
package metrics

import (
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled  atomic.Bool
	initOnce sync.Once
	registry *prometheus.Registry

	opsTotal    *prometheus.CounterVec
	opsDuration *prometheus.HistogramVec
	tableRows   *prometheus.GaugeVec
)

// Init enables metrics collection and registers the collector set exactly
// once. Safe to call multiple times; only the first call takes effect.
func Init() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		opsTotal = promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pi4go_devicemgr_ops_total",
				Help: "Total DeviceMgr operations by rpc and result status code.",
			},
			[]string{"rpc", "code"},
		)
		opsDuration = promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pi4go_devicemgr_op_duration_seconds",
				Help:    "DeviceMgr operation latency by rpc.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"rpc"},
		)
		tableRows = promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pi4go_devicemgr_table_shadow_rows",
				Help: "Current shadow-store row count by table_id.",
			},
			[]string{"device_id", "table_id"},
		)
		enabled.Store(true)
	})
	return registry
}

// IsEnabled reports whether Init has run.
func IsEnabled() bool { return enabled.Load() }

// GetRegistry returns the collector registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry { return registry }

// ObserveOp records one DeviceMgr RPC outcome. err is the error returned by
// the operation (nil on success); its grpc status code is used as the
// "code" label, matching the wire-visible Status.code (§7).
func ObserveOp(rpc string, err error) {
	if !IsEnabled() {
		return
	}
	opsTotal.WithLabelValues(rpc, status.Code(err).String()).Inc()
}

// ObserveOpDuration records the latency of one DeviceMgr RPC.
func ObserveOpDuration(rpc string, seconds float64) {
	if !IsEnabled() {
		return
	}
	opsDuration.WithLabelValues(rpc).Observe(seconds)
}

// SetTableRows reports the current shadow-store row count for one table.
// The table write path in internal/devicemgr does not call it.
func SetTableRows(deviceID string, tableID string, rows int) {
	if !IsEnabled() {
		return
	}
	tableRows.WithLabelValues(deviceID, tableID).Set(float64(rows))
}

// codeOK is a convenience constant mirroring the wire-visible success code.
const codeOK = codes.OK
