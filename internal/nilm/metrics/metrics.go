// Package metrics 提供 NILM 对话服务的业务指标收集。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 对话结果标签。
const (
	OutcomeAnswered         = "answered"
	OutcomeNoDevices        = "no_devices"
	OutcomeDegraded         = "degraded"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeDeviceQuery      = "device_query_error"
)

// ChatMetrics 对话服务业务指标。所有方法对 nil 接收者安全。
type ChatMetrics struct {
	chats          *prometheus.CounterVec
	generation     *prometheus.HistogramVec
	modelLoads     *prometheus.CounterVec
	confidence     prometheus.Histogram
	activeDevices  prometheus.Gauge
	imported       *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// New 创建并注册业务指标。
func New(reg prometheus.Registerer, namespace string) *ChatMetrics {
	m := &ChatMetrics{
		chats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat pipeline runs by outcome.",
		}, []string{"outcome"}),
		generation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_duration_seconds",
			Help:      "Time spent in text generation.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider", "status"}),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "model_loads_total",
			Help:      "Model handle loads by status.",
		}, []string{"status"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "confidence",
			Help:      "Confidence of generated answers.",
			Buckets:   []float64{0.2, 0.4, 0.6, 0.8, 0.9, 1},
		}),
		activeDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "active_devices",
			Help:      "Devices found in the last aggregation window.",
		}),
		imported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Ingested measurement rows by result.",
		}, []string{"result"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sessions_purged_total",
			Help:      "Idle chat sessions removed by retention.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.chats, m.generation, m.modelLoads, m.confidence,
			m.activeDevices, m.imported, m.sessionsPurged)
	}
	return m
}

// RecordChat 记录一次对话流水线结果。
func (m *ChatMetrics) RecordChat(outcome string, devices int, confidence float64) {
	if m == nil {
		return
	}
	m.chats.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAnswered || outcome == OutcomeNoDevices {
		m.activeDevices.Set(float64(devices))
		m.confidence.Observe(confidence)
	}
}

// RecordGeneration 记录一次模型生成。
func (m *ChatMetrics) RecordGeneration(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.generation.WithLabelValues(provider, status(err)).Observe(d.Seconds())
}

// RecordModelLoad 记录模型加载。
func (m *ChatMetrics) RecordModelLoad(err error) {
	if m == nil {
		return
	}
	m.modelLoads.WithLabelValues(status(err)).Inc()
}

// RecordImport 记录导入的行数。
func (m *ChatMetrics) RecordImport(imported, skipped int) {
	if m == nil {
		return
	}
	m.imported.WithLabelValues("imported").Add(float64(imported))
	m.imported.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordSessionsPurged 记录清理的会话数。
func (m *ChatMetrics) RecordSessionsPurged(n int64) {
	if m == nil {
		return
	}
	m.sessionsPurged.Add(float64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
