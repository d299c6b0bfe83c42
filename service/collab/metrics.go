package collab

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ppicture"
const metricsSubsystem = "collab"

// Metrics 协同编辑指标；nil 接收者上的方法均为空操作
type Metrics struct {
	sessions      prometheus.Gauge
	handshakes    *prometheus.CounterVec
	events        *prometheus.CounterVec
	eventDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
	broadcasts    prometheus.Counter
	deliveries    *prometheus.CounterVec
	lockAttempts  *prometheus.CounterVec
}

// NewMetrics 注册到 reg；reg 为 nil 时使用 prometheus.DefaultRegisterer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "sessions", Help: "Currently open editing sessions",
		}),
		handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "handshakes_total", Help: "Handshake attempts by result",
		}, []string{"result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "events_total", Help: "Inbound events processed by type and status",
		}, []string{"type", "status"}),
		eventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "event_duration_seconds", Help: "Time spent handling one event",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "queue_depth", Help: "Events waiting in the pipeline",
		}),
		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "broadcasts_total", Help: "Broadcast fan-outs",
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "deliveries_total", Help: "Per-session frame deliveries by result",
		}, []string{"result"}),
		lockAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: metricsSubsystem,
			Name: "lock_attempts_total", Help: "Edit lock acquisitions by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) Handshake(result string) {
	if m != nil {
		m.handshakes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Event(t MessageType, status string, took time.Duration) {
	if m == nil {
		return
	}
	label := string(t)
	if !t.Known() {
		label = "unknown"
	}
	m.events.WithLabelValues(label, status).Inc()
	m.eventDuration.Observe(took.Seconds())
}

func (m *Metrics) QueueDepth(n int) {
	if m != nil {
		m.queueDepth.Set(float64(n))
	}
}

func (m *Metrics) Broadcast(delivered, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	if delivered > 0 {
		m.deliveries.WithLabelValues("ok").Add(float64(delivered))
	}
	if failed > 0 {
		m.deliveries.WithLabelValues("failed").Add(float64(failed))
	}
}

func (m *Metrics) Lock(granted bool) {
	if m == nil {
		return
	}
	if granted {
		m.lockAttempts.WithLabelValues("granted").Inc()
		return
	}
	m.lockAttempts.WithLabelValues("denied").Inc()
}

// HandshakeCounter 单个结果的计数器（测试 / 调试用）
func (m *Metrics) HandshakeCounter(result string) prometheus.Counter {
	return m.handshakes.WithLabelValues(result)
}
