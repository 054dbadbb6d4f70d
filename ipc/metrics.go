package ipc

import (
	"context"
	"net/http"
	"time"

	"github.com/Trinoooo/eggie_ipc/consts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const labelTransport = "transport"

// MetricsHelper 所有方法都允许 nil receiver，nil 表示不打点
type MetricsHelper struct {
	registry *prometheus.Registry

	ConnectionAcceptCounter *prometheus.CounterVec
	ConnectionCloseCounter  *prometheus.CounterVec
	ConnectionErrorCounter  *prometheus.CounterVec
	ActiveConnectionGauge   *prometheus.GaugeVec
	ReceivedMessageCounter  *prometheus.CounterVec
	ReceivedBytesCounter    *prometheus.CounterVec
}

func NewMetricsHelper() *MetricsHelper {
	m := &MetricsHelper{
		registry: prometheus.NewRegistry(),
		ConnectionAcceptCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_ipc_connection_accept_counter",
			Help: "accepted connections",
		}, []string{labelTransport}),
		ConnectionCloseCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_ipc_connection_close_counter",
			Help: "closed connections",
		}, []string{labelTransport}),
		ConnectionErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_ipc_connection_error_counter",
			Help: "transport errors surfaced on connections",
		}, []string{labelTransport}),
		ActiveConnectionGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eggie_ipc_active_connections",
			Help: "connections currently open",
		}, []string{labelTransport}),
		ReceivedMessageCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_ipc_received_message_counter",
			Help: "data events delivered",
		}, []string{labelTransport}),
		ReceivedBytesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_ipc_received_bytes_counter",
			Help: "bytes delivered through data events",
		}, []string{labelTransport}),
	}

	m.registry.MustRegister(
		m.ConnectionAcceptCounter,
		m.ConnectionCloseCounter,
		m.ConnectionErrorCounter,
		m.ActiveConnectionGauge,
		m.ReceivedMessageCounter,
		m.ReceivedBytesCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *MetricsHelper) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsHelper) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartPush 周期性推送到 push gateway，ctx 结束后返回
func (m *MetricsHelper) StartPush(ctx context.Context, url string, period time.Duration) {
	pusher := push.New(url, consts.AppName).Gatherer(m.registry)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pusher.Add(); err != nil {
				ipcLogger.Warn("prometheus pusher push failed", zap.Error(err))
			}
		}
	}
}

func (m *MetricsHelper) onAccept(t Transport) {
	if m == nil {
		return
	}
	m.ConnectionAcceptCounter.WithLabelValues(string(t)).Inc()
	m.ActiveConnectionGauge.WithLabelValues(string(t)).Inc()
}

func (m *MetricsHelper) onClose(t Transport) {
	if m == nil {
		return
	}
	m.ConnectionCloseCounter.WithLabelValues(string(t)).Inc()
	m.ActiveConnectionGauge.WithLabelValues(string(t)).Dec()
}

func (m *MetricsHelper) onError(t Transport) {
	if m == nil {
		return
	}
	m.ConnectionErrorCounter.WithLabelValues(string(t)).Inc()
}

func (m *MetricsHelper) onData(t Transport, size int) {
	if m == nil {
		return
	}
	m.ReceivedMessageCounter.WithLabelValues(string(t)).Inc()
	m.ReceivedBytesCounter.WithLabelValues(string(t)).Add(float64(size))
}
