package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svr_attempts_total",
		Help: "Total number of sampling attempts",
	})
	RejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svr_rejected_total",
		Help: "Total candidates rejected by the containment test",
	})
	SamplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svr_samples_total",
		Help: "Accepted samples by country",
	}, []string{"country"})
	SampleDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "svr_sample_duration_ms",
		Help:    "Wall time spent finding one accepted coordinate in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	OracleRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svr_oracle_requests_total",
		Help: "Availability oracle requests by result",
	}, []string{"result"})
	OracleDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "svr_oracle_duration_ms",
		Help:    "Availability oracle call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svr_cache_hits_total",
		Help: "Oracle cache hits by layer",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svr_cache_misses_total",
		Help: "Oracle cache misses",
	})
	ImagesSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svr_images_saved_total",
		Help: "Total images written to disk",
	})
	ImageFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "svr_image_fail_total",
		Help: "Total image downloads or writes that failed",
	})
)

func init() {
	prometheus.MustRegister(AttemptsTotal)
	prometheus.MustRegister(RejectedTotal)
	prometheus.MustRegister(SamplesTotal)
	prometheus.MustRegister(SampleDurationMs)
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ImagesSavedTotal)
	prometheus.MustRegister(ImageFailTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；仅在配置 METRICS_ADDR 时由主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
