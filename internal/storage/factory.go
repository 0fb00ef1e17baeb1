package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/energylog/internal/config"
)

// NewFromConfig は設定に応じたバックエンドのProviderを生成する。
// httpClientはSharePointバックエンドのトークン取得とアップロードに使用する。
func NewFromConfig(cfg config.StorageConfig, httpClient *http.Client, logger *slog.Logger) (*Provider, error) {
	factory, err := newFactory(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return NewProvider(factory, cfg.ReuseClient, logger), nil
}

func newFactory(cfg config.StorageConfig, httpClient *http.Client, logger *slog.Logger) (Factory, error) {
	switch cfg.Backend {
	case config.BackendSharePoint:
		spCfg := SharePointConfig{
			SiteURL:      cfg.SiteURL,
			FolderPath:   cfg.FolderPath,
			TenantID:     cfg.ServicePrincipal.TenantID,
			ClientID:     cfg.ServicePrincipal.ClientID,
			ClientSecret: cfg.ServicePrincipal.ClientSecret,
			TokenURL:     cfg.ServicePrincipal.TokenURL,
			Scope:        cfg.ServicePrincipal.Scope,
			HTTPClient:   httpClient,
		}
		return func(ctx context.Context) (Uploader, error) {
			return NewSharePointClient(ctx, spCfg, logger)
		}, nil

	case config.BackendS3:
		s3Cfg := S3Config{
			Bucket:     cfg.S3.Bucket,
			FolderPath: cfg.FolderPath,
			Region:     cfg.S3.Region,
			Endpoint:   cfg.S3.Endpoint,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
		}
		return func(ctx context.Context) (Uploader, error) {
			return NewS3Client(ctx, s3Cfg, logger)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
