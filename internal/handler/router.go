package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/energylog/internal/metrics"
	"github.com/hitoshi/energylog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionVerifier middleware.SessionVerifier
	CSRFConfig      middleware.CSRFConfig
	Logger          *slog.Logger

	// 画面
	AuthService       AuthServiceInterface
	SubmissionService SubmissionServiceInterface
	PageConfig        PageHandlerConfig

	// メトリクス（nilの場合は/metricsを公開しない）
	MetricsCollector metrics.MetricsCollector
	MetricsHandler   http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → CSRF
//
// /health と /metrics はセッションとCSRFのチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	page := NewPageHandler(deps.AuthService, deps.SubmissionService, deps.MetricsCollector, deps.PageConfig)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionVerifier))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/", page.Index)
		r.Post("/login", page.Login)
		r.Post("/logout", page.Logout)
		r.With(middleware.RequireSession).Post("/submit", page.Submit)
	})

	return r
}
