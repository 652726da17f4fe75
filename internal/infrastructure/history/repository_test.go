package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"studiobot/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

// mockRedis は、テスト用のメモリ上のキーバリューストアです
type mockRedis struct {
	values map[string]string
	err    error
}

func newMockRedis() *mockRedis {
	return &mockRedis{values: make(map[string]string)}
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func sampleEntries() []domain.ProjectHistoryEntry {
	base := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	return []domain.ProjectHistoryEntry{
		{ID: "h2", Title: "Summer Drop", CreatedAt: base.Add(time.Hour), PreviewImageRef: "previews/h2.png"},
		{ID: "h1", Title: "Spring Drop", CreatedAt: base, PreviewImageRef: "previews/h1.png"},
	}
}

func TestRepositories_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	repos := map[string]domain.HistoryRepository{
		"file":  NewFileRepository(filepath.Join(dir, "nested", "history.json")),
		"redis": NewRedisRepository(newMockRedis(), "studiobot:history"),
	}

	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			entries, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("未保存の履歴の読み込みに失敗: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("未保存の履歴は空であるべきです: %v", entries)
			}

			if err := repo.Save(ctx, sampleEntries()); err != nil {
				t.Fatalf("履歴の保存に失敗: %v", err)
			}
			got, err := repo.Load(ctx)
			if err != nil {
				t.Fatalf("履歴の読み込みに失敗: %v", err)
			}
			if diff := cmp.Diff(sampleEntries(), got); diff != "" {
				t.Errorf("読み込んだ履歴が異なります (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileRepository_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(`{"version": 2, "entries": []}`), 0o644); err != nil {
		t.Fatalf("テストファイルの作成に失敗: %v", err)
	}

	_, err := NewFileRepository(path).Load(context.Background())
	if !errors.Is(err, domain.ErrUnsupportedHistoryVersion) {
		t.Errorf("ErrUnsupportedHistoryVersionが返されるべきです: %v", err)
	}
}

func TestFileRepository_SavedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	repo := NewFileRepository(path)
	if err := repo.Save(context.Background(), nil); err != nil {
		t.Fatalf("履歴の保存に失敗: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("履歴ファイルの読み込みに失敗: %v", err)
	}
	if string(data) != `{"version":1,"entries":[]}` {
		t.Errorf("保存形式が異なります: %s", data)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".history-*"))
	if len(matches) != 0 {
		t.Errorf("一時ファイルが残っています: %v", matches)
	}
}

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"空", "", 0, false},
		{"現行形式", `{"version":1,"entries":[{"id":"a","title":"A","date":"2026-01-01T00:00:00Z","previewImageRef":"a.png"}]}`, 1, false},
		{"旧形式の配列", `[{"id":"a","title":"A","date":"2026-01-01T00:00:00Z","previewImageRef":"a.png"},{"id":"b"}]`, 2, false},
		{"バージョンなし", `{"entries":[]}`, 0, true},
		{"壊れたJSON", `{"version":`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeDocument([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("期待されるエラー有無: %v, 実際: %v", tt.wantErr, err)
			}
			if len(got) != tt.want {
				t.Errorf("期待される件数: %d, 実際: %d", tt.want, len(got))
			}
		})
	}
}

func TestRedisRepository_Errors(t *testing.T) {
	store := newMockRedis()
	store.err = errors.New("connection refused")
	repo := NewRedisRepository(store, "studiobot:history")

	if _, err := repo.Load(context.Background()); err == nil {
		t.Error("接続エラーはエラーとして返すべきです")
	}
	if err := repo.Save(context.Background(), sampleEntries()); err == nil {
		t.Error("接続エラーはエラーとして返すべきです")
	}
}
