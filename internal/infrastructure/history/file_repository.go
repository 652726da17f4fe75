package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"studiobot/internal/domain"
)

// FileRepository は、1つのJSONファイルに履歴を保存するリポジトリです
type FileRepository struct {
	path string
	mu   sync.RWMutex
}

var _ domain.HistoryRepository = (*FileRepository)(nil)

// NewFileRepository は新しいFileRepositoryインスタンスを作成します
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load は、ファイルから履歴を読み込みます。ファイルがない場合は空を返します
func (r *FileRepository) Load(ctx context.Context) ([]domain.ProjectHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("履歴ファイルの読み込みに失敗: %w", err)
	}
	return decodeDocument(data)
}

// Save は、一時ファイルに書き込んでから置き換えます
func (r *FileRepository) Save(ctx context.Context, entries []domain.ProjectHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeDocument(entries)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("履歴ディレクトリの作成に失敗: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("履歴ファイルの書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("履歴ファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("履歴ファイルの置き換えに失敗: %w", err)
	}
	return nil
}
