package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总生成流水线的 Prometheus 指标，nil 接收者上的方法均为空操作。
type Metrics struct {
	generations  *prometheus.CounterVec
	translations *prometheus.CounterVec
	jobs         *prometheus.CounterVec
	aiLatency    *prometheus.HistogramVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册全部指标。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_generation_total",
			Help: "Blog generation attempts by result.",
		}, []string{"result"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_translation_total",
			Help: "Blog translations by language and result.",
		}, []string{"language", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_jobs_total",
			Help: "Generation jobs finished by status.",
		}, []string{"status"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Latency of LLM provider requests.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
	}
	reg.MustRegister(m.generations, m.translations, m.jobs, m.aiLatency, m.httpDuration)
	return m
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *Metrics) ObserveGeneration(err error) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) ObserveTranslation(language string, err error) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(language, resultLabel(err)).Inc()
}

func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveAIRequest(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiLatency.WithLabelValues(provider, kind).Observe(d.Seconds())
}

// ObserveHTTPRequest 由路由中间件调用，path 使用路由模板而不是原始路径。
func (m *Metrics) ObserveHTTPRequest(path, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(path, method, status).Observe(d.Seconds())
}
