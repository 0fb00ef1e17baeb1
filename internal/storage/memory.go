package storage

import (
	"context"
	"sync"
)

// Memory はアップロード内容をメモリ上に保持するUploader。
// ローカル開発とテストで実ストレージの代わりに使用する。
type Memory struct {
	mu      sync.Mutex
	files   map[string][]byte
	uploads int
}

// NewMemory はMemoryを生成する。
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Upload は同名ファイルを上書きして保存する。
func (m *Memory) Upload(ctx context.Context, fileName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := make([]byte, len(data))
	copy(b, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileName] = b
	m.uploads++
	return nil
}

// File は保存済みファイルの内容を返す。
func (m *Memory) File(fileName string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[fileName]
	return b, ok
}

// Files は保存済みファイル数を返す。
func (m *Memory) Files() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Uploads はUploadが成功した回数を返す。
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

var _ Uploader = (*Memory)(nil)
