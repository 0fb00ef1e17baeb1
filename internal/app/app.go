// Package app は設定の読み込みから依存関係のワイヤリング、サーバーの起動までを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/energylog/internal/auth"
	"github.com/hitoshi/energylog/internal/config"
	"github.com/hitoshi/energylog/internal/credential"
	"github.com/hitoshi/energylog/internal/handler"
	"github.com/hitoshi/energylog/internal/logger"
	"github.com/hitoshi/energylog/internal/metrics"
	"github.com/hitoshi/energylog/internal/middleware"
	"github.com/hitoshi/energylog/internal/storage"
	"github.com/hitoshi/energylog/internal/submission"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	l := logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, l, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, l, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	l.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Bool("storage_reuse_client", cfg.Storage.ReuseClient),
	)

	return runServe(cfg, l)
}

// NewServer は設定から全依存関係をワイヤリングしたHTTPサーバーを構築する。
// ストレージへの接続と認証は最初のアップロード時まで行わない。
func NewServer(cfg *config.Config, l *slog.Logger) (*http.Server, error) {
	// 1. 資格情報テーブル
	store, err := loadCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	l.Info("credential store loaded", slog.Int("users", store.Len()))

	// 2. 認証サービス
	authService := auth.NewService(store, auth.ServiceConfig{
		Secret:        []byte(cfg.SessionSecret),
		SessionMaxAge: cfg.SessionMaxAge,
	})

	// 3. アップロード先ストレージ
	uploader, err := storage.NewFromConfig(cfg.Storage, &http.Client{Timeout: cfg.UploadTimeout}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to configure storage: %w", err)
	}

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 5. 送信サービス
	subService := submission.NewService(uploader, mc, l, submission.ServiceConfig{
		UploadTimeout: cfg.UploadTimeout,
	})

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		SessionVerifier: authService,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: l,

		AuthService:       authService,
		SubmissionService: subService,
		PageConfig: handler.PageHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		MetricsCollector: mc,
		MetricsHandler:   metrics.Handler(reg),
	})

	// 書き込みタイムアウトはアップロードの上限時間より長くする
	return &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UploadTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}, nil
}

// loadCredentials はCREDENTIALS_FILEが指定されていればそれを読み込み、
// 未指定の場合は組み込みのユーザーテーブルを使用する。
func loadCredentials(path string) (*credential.Store, error) {
	if path == "" {
		return credential.NewStore(credential.DefaultUsers())
	}
	store, err := credential.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return store, nil
}

// runServe はHTTPサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, l *slog.Logger) error {
	server, err := NewServer(cfg, l)
	if err != nil {
		return err
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		l.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	l.Info("shutting down HTTP server...")

	// 処理中のアップロードが完了するまで待つ
	ctx, cancel := context.WithTimeout(context.Background(), cfg.UploadTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	l.Info("HTTP server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
