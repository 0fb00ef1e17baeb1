// Package storage はスプレッドシートをリモートのドキュメントストレージへアップロードする。
// 同名ファイルは常に上書きされ、追記・マージ・バージョン管理は行わない。
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ContentType はアップロードするxlsxファイルのMIMEタイプ。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Uploader はファイルをアップロード先フォルダへ書き込むインターフェース。
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) error
}

// Factory はUploaderを生成する。生成のたびに認証をやり直す実装を想定する。
type Factory func(ctx context.Context) (Uploader, error)

// Provider はFactoryから生成したUploaderでアップロードを行う。
// reuseがtrueの場合は最初に生成したUploaderを使い回し、
// falseの場合はアップロードごとに新しいUploaderを生成する。
type Provider struct {
	factory Factory
	reuse   bool
	logger  *slog.Logger

	mu     sync.Mutex
	cached Uploader
}

// NewProvider はProviderを生成する。
func NewProvider(factory Factory, reuse bool, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		factory: factory,
		reuse:   reuse,
		logger:  logger,
	}
}

// Upload はファイルをアップロードする。
func (p *Provider) Upload(ctx context.Context, fileName string, data []byte) error {
	u, err := p.uploader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	return u.Upload(ctx, fileName, data)
}

func (p *Provider) uploader(ctx context.Context) (Uploader, error) {
	if !p.reuse {
		return p.factory(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached, nil
	}

	u, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	p.cached = u
	p.logger.Debug("storage client created for reuse")
	return u, nil
}

// compile-time interface check
var _ Uploader = (*Provider)(nil)
