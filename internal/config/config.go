// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ストレージバックエンドの種別
const (
	BackendSharePoint = "sharepoint"
	BackendS3         = "s3"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Session
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`
	SessionMaxAge int    `env:"SESSION_MAX_AGE" envDefault:"86400"`

	// Credentials
	CredentialsFile string `env:"CREDENTIALS_FILE"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// Storage
	Storage StorageConfig `envPrefix:"STORAGE_"`

	// Upload
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"30s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// StorageConfig はアップロード先ドキュメントストレージの設定。
type StorageConfig struct {
	Backend    string `env:"BACKEND" envDefault:"sharepoint"`
	SiteURL    string `env:"SITE_URL"`
	FolderPath string `env:"FOLDER_PATH"`

	// ReuseClient がtrueの場合はクライアントを1回だけ生成して使い回す。
	// falseの場合はアップロードごとにクライアントを生成し認証し直す。
	ReuseClient bool `env:"REUSE_CLIENT" envDefault:"false"`

	ServicePrincipal ServicePrincipal

	S3 S3Config `envPrefix:"S3_"`
}

// ServicePrincipal はSharePointアクセス用のサービスプリンシパル。
type ServicePrincipal struct {
	TenantID     string `env:"TENANT_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	// TokenURL が空の場合はTenantIDから Azure AD v2 のトークンエンドポイントを組み立てる。
	TokenURL string `env:"TOKEN_URL"`
	// Scope が空の場合はSiteURLのホストから "https://{host}/.default" を組み立てる。
	Scope string `env:"SCOPE"`
}

// S3Config はS3互換ストレージの設定。
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合やストレージ設定が不完全な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive: %d", c.SessionMaxAge)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT must be positive: %s", c.UploadTimeout)
	}

	var missing []string
	s := c.Storage

	switch s.Backend {
	case BackendSharePoint:
		if s.SiteURL == "" {
			missing = append(missing, "STORAGE_SITE_URL")
		} else if _, err := url.ParseRequestURI(s.SiteURL); err != nil {
			return fmt.Errorf("STORAGE_SITE_URL is not a valid URL: %w", err)
		}
		if s.FolderPath == "" {
			missing = append(missing, "STORAGE_FOLDER_PATH")
		}
		if s.ServicePrincipal.ClientID == "" {
			missing = append(missing, "STORAGE_CLIENT_ID")
		}
		if s.ServicePrincipal.ClientSecret == "" {
			missing = append(missing, "STORAGE_CLIENT_SECRET")
		}
		if s.ServicePrincipal.TokenURL == "" && s.ServicePrincipal.TenantID == "" {
			missing = append(missing, "STORAGE_TENANT_ID")
		}
	case BackendS3:
		if s.S3.Bucket == "" {
			missing = append(missing, "STORAGE_S3_BUCKET")
		}
		if s.S3.AccessKey == "" {
			missing = append(missing, "STORAGE_S3_ACCESS_KEY")
		}
		if s.S3.SecretKey == "" {
			missing = append(missing, "STORAGE_S3_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %q", s.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}
