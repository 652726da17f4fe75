package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"studiobot/internal/domain"

	"golang.org/x/sync/errgroup"
)

// 同時に書き込むファイル数の上限
const exportConcurrency = 4

// FileImageStore は、ローカルディレクトリに画像を保存するストアです
type FileImageStore struct {
	dir string
}

var _ domain.ImageStore = (*FileImageStore)(nil)

// NewFileImageStore は新しいFileImageStoreインスタンスを作成します
func NewFileImageStore(dir string) *FileImageStore {
	return &FileImageStore{dir: dir}
}

// Dir は、保存先のディレクトリを返します
func (s *FileImageStore) Dir() string {
	return s.dir
}

// Put は、画像を previews/<name>.<拡張子> に保存し、保存先ディレクトリからの相対パスを返します
func (s *FileImageStore) Put(ctx context.Context, name string, img domain.ReferenceImage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := filepath.ToSlash(filepath.Join("previews", fmt.Sprintf("%s.%s", name, img.Extension())))
	if err := s.write(ref, img.Data); err != nil {
		return "", err
	}
	return ref, nil
}

// Open は、Putが返した参照から画像を読み込みます
func (s *FileImageStore) Open(ref string) (domain.ReferenceImage, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("画像の読み込みに失敗: %w", err)
	}
	return domain.ReferenceImage{
		ID:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Name:     filepath.Base(path),
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}, nil
}

// ExportResults は、生成結果をショット順の番号付きファイル名で並行して書き出します
// 書き出したファイルのパスを結果と同じ順序で返します
func (s *FileImageStore) ExportResults(ctx context.Context, title string, run *domain.RunRecord) ([]string, error) {
	if run == nil || len(run.Results) == 0 {
		return nil, domain.ErrNoRun
	}

	paths := make([]string, len(run.Results))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(exportConcurrency)
	for i, res := range run.Results {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			name := domain.ExportFileName(title, run.ShotIndex(res.ShotID)+1, res.ShotID, res.Image.Extension())
			if err := s.write(name, res.Image.Data); err != nil {
				return err
			}
			paths[i] = filepath.Join(s.dir, name)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("結果の書き出しに失敗: %w", err)
	}
	return paths, nil
}

func (s *FileImageStore) resolve(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("不正な画像参照です: %s", ref)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *FileImageStore) write(ref string, data []byte) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("画像の書き込みに失敗: %w", err)
	}
	return nil
}
