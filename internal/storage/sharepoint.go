package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SharePointConfig はSharePointアップロード先とサービスプリンシパルの設定。
type SharePointConfig struct {
	SiteURL    string
	FolderPath string

	TenantID     string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string

	// HTTPClient はトークン取得とREST呼び出しに使う下位のHTTPクライアント。
	// nilの場合はhttp.DefaultClientを使用する。
	HTTPClient *http.Client
}

// tokenURL はトークンエンドポイントを返す。
// 明示されていない場合はテナントIDから Azure AD v2 のエンドポイントを組み立てる。
func (c SharePointConfig) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return "https://login.microsoftonline.com/" + url.PathEscape(c.TenantID) + "/oauth2/v2.0/token"
}

// scopes はアクセストークンのスコープを返す。
func (c SharePointConfig) scopes() ([]string, error) {
	if c.Scope != "" {
		return []string{c.Scope}, nil
	}
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("site URL has no host: %q", c.SiteURL)
	}
	return []string{"https://" + u.Host + "/.default"}, nil
}

// SharePointClient はSharePoint REST APIでファイルをアップロードするクライアント。
type SharePointClient struct {
	rest       *resty.Client
	siteURL    string
	folderPath string
	logger     *slog.Logger
}

// NewSharePointClient はクライアントクレデンシャルフローで認証するクライアントを生成する。
// アクセストークンは最初のリクエスト時に取得され、期限が切れるまで同じクライアント内で再利用される。
func NewSharePointClient(ctx context.Context, cfg SharePointConfig, logger *slog.Logger) (*SharePointClient, error) {
	if cfg.SiteURL == "" {
		return nil, errors.New("site URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("service principal client ID and secret are required")
	}
	scopes, err := cfg.scopes()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	// トークンソースはクライアントの再利用中も生き続けるため、リクエストのキャンセルを引き継がない。
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base)

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.tokenURL(),
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	httpClient := cc.Client(ctx)
	httpClient.Timeout = base.Timeout

	rest := resty.NewWithClient(httpClient).
		SetHeader("Accept", "application/json;odata=nometadata").
		SetHeader("User-Agent", "energylog/1.0")

	return &SharePointClient{
		rest:       rest,
		siteURL:    strings.TrimRight(cfg.SiteURL, "/"),
		folderPath: cfg.FolderPath,
		logger:     logger,
	}, nil
}

// Upload はフォルダへファイルを追加する。同名ファイルは上書きされる。
func (c *SharePointClient) Upload(ctx context.Context, fileName string, data []byte) error {
	endpoint := c.uploadURL(fileName)

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", ContentType).
		SetBody(data).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("sharepoint upload request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sharepoint upload returned status %d: %s",
			resp.StatusCode(), truncate(strings.TrimSpace(resp.String()), 200))
	}

	c.logger.Info("file uploaded to sharepoint",
		slog.String("file", fileName),
		slog.String("folder", c.folderPath),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// uploadURL は Files/add エンドポイントのURLを組み立てる。
func (c *SharePointClient) uploadURL(fileName string) string {
	return fmt.Sprintf("%s/_api/web/GetFolderByServerRelativeUrl(%s)/Files/add(url=%s,overwrite=true)",
		c.siteURL,
		url.PathEscape(odataString(c.folderPath)),
		url.PathEscape(odataString(fileName)),
	)
}

// odataString はOData文字列リテラルを返す。シングルクォートは二重化する。
func odataString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Uploader = (*SharePointClient)(nil)
