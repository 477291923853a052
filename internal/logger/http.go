package logger

import (
	"log/slog"
	"net/http"
	"time"
)

// 记录抓取响应的状态码与字节数
type scrapeWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *scrapeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *scrapeWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// 文档注释：METRICS_ADDR 指标端点的抓取日志
// 背景：采样命令只在配置了 METRICS_ADDR 时监听 HTTP，唯一的调用方是 Prometheus 抓取；
// 每次抓取记录一条 metrics_scrape，可据此确认抓取间隔与响应体大小。
// 约束：只在 debug 级别输出；非 200 响应（如路径错误）升级为 warn。
func ScrapeLog(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &scrapeWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			level := slog.LevelDebug
			if sw.status != http.StatusOK {
				level = slog.LevelWarn
			}
			l.Log(r.Context(), level, "metrics_scrape",
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"scraper", r.UserAgent(),
			)
		})
	}
}
