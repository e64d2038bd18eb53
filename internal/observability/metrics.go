package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/logger"
)

const namespace = "crm"

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	bridgeWebhooks   *prometheus.CounterVec
	whatsappMessages *prometheus.CounterVec
	autoReplyMatched prometheus.Counter
	outboundDelivery *prometheus.CounterVec
	mediaUploads     *prometheus.CounterVec
	remindersSent    prometheus.Counter
	sseSubscribers   prometheus.Gauge
	dbStats          *prometheus.GaugeVec
	redisUp          prometheus.Gauge
	redisPing        prometheus.Gauge
	workerRuns       *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process metrics, or nil when disabled. Every method is
// safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		instance.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds and registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		bridgeWebhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "whatsapp_bridge_webhooks_total",
			Help: "Calls from the WhatsApp bridge by route/status.",
		}, []string{"route", "status"}),
		whatsappMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "whatsapp_messages_total",
			Help: "WhatsApp messages stored by direction/type.",
		}, []string{"direction", "type"}),
		autoReplyMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "whatsapp_auto_replies_matched_total",
			Help: "Incoming messages answered by an auto-reply.",
		}),
		outboundDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "whatsapp_outbound_deliveries_total",
			Help: "Outbound bridge deliveries by result.",
		}, []string{"result"}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "whatsapp_media_uploads_total",
			Help: "Inbound attachment uploads by result.",
		}, []string{"result"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "seguimiento_reminders_sent_total",
			Help: "Follow-up reminders pushed to asesores.",
		}),
		sseSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sse_subscribers",
			Help: "Connected SSE clients.",
		}),
		dbStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "db_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up",
			Help: "1 when the realtime redis answered the last ping.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_ping_seconds",
			Help: "Last redis ping latency.",
		}),
		workerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "worker_runs_total",
			Help: "Background worker iterations by worker/status.",
		}, []string{"worker", "status"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.bridgeWebhooks, m.whatsappMessages, m.autoReplyMatched, m.outboundDelivery, m.mediaUploads,
		m.remindersSent, m.sseSubscribers, m.dbStats, m.redisUp, m.redisPing, m.workerRuns,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IncBridgeWebhook counts a webhook call from the bridge, including the ones
// rejected for a bad secret or rate limiting.
func (m *Metrics) IncBridgeWebhook(route, status string) {
	if m == nil {
		return
	}
	m.bridgeWebhooks.WithLabelValues(route, status).Inc()
}

func (m *Metrics) IncWhatsappMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.whatsappMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) IncAutoReplyMatched() {
	if m == nil {
		return
	}
	m.autoReplyMatched.Inc()
}

// IncOutboundDelivery records one bridge delivery attempt: sent, failed,
// retry or breaker_open.
func (m *Metrics) IncOutboundDelivery(result string) {
	if m == nil {
		return
	}
	m.outboundDelivery.WithLabelValues(result).Inc()
}

func (m *Metrics) IncMediaUpload(result string) {
	if m == nil {
		return
	}
	m.mediaUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) AddRemindersSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.remindersSent.Add(float64(n))
}

func (m *Metrics) SetSSESubscribers(n int) {
	if m == nil {
		return
	}
	m.sseSubscribers.Set(float64(n))
}

func (m *Metrics) IncWorkerRun(worker, status string) {
	if m == nil {
		return
	}
	m.workerRuns.WithLabelValues(worker, status).Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
