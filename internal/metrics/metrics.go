// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/energylog/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーとサービス層から利用する。
type MetricsCollector interface {
	RecordLogin(state model.AuthState)
	RecordSubmission()
	RecordUploadSuccess()
	RecordUploadFailure()
	RecordUploadLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins        *prometheus.CounterVec
	submissions   prometheus.Counter
	uploadSuccess prometheus.Counter
	uploadFail    prometheus.Counter
	uploadLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energylog_login_attempts_total",
			Help: "認証状態別のログイン試行数",
		}, []string{"state"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energylog_submissions_total",
			Help: "フォーム送信の合計数",
		}),
		uploadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energylog_upload_success_total",
			Help: "アップロード成功の合計数",
		}),
		uploadFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energylog_upload_fail_total",
			Help: "アップロード失敗の合計数",
		}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "energylog_upload_latency_seconds",
			Help:    "アップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.submissions,
		c.uploadSuccess,
		c.uploadFail,
		c.uploadLatency,
	)

	return c
}

// RecordLogin はログイン試行を認証状態別に記録する。
func (c *Collector) RecordLogin(state model.AuthState) {
	c.logins.WithLabelValues(string(state)).Inc()
}

// RecordSubmission はフォーム送信を記録する。
func (c *Collector) RecordSubmission() {
	c.submissions.Inc()
}

// RecordUploadSuccess はアップロード成功を記録する。
func (c *Collector) RecordUploadSuccess() {
	c.uploadSuccess.Inc()
}

// RecordUploadFailure はアップロード失敗を記録する。
func (c *Collector) RecordUploadFailure() {
	c.uploadFail.Inc()
}

// RecordUploadLatency はアップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordLogin(model.AuthState)       {}
func (Nop) RecordSubmission()                 {}
func (Nop) RecordUploadSuccess()              {}
func (Nop) RecordUploadFailure()              {}
func (Nop) RecordUploadLatency(time.Duration) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
