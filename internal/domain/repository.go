package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistorySchemaVersion は、永続化される履歴のスキーマバージョンです
const HistorySchemaVersion = 1

// ProjectHistoryEntry は、完了したバッチ実行ごとに1件書き込まれるスナップショットです
type ProjectHistoryEntry struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"date"`
	PreviewImageRef string    `json:"previewImageRef"`
}

// NewProjectHistoryEntry は、新しいIDを採番してProjectHistoryEntryを作成します
func NewProjectHistoryEntry(title, previewRef string, createdAt time.Time) ProjectHistoryEntry {
	return ProjectHistoryEntry{
		ID:              uuid.NewString(),
		Title:           title,
		CreatedAt:       createdAt,
		PreviewImageRef: previewRef,
	}
}

// HistoryDocument は、単一キーに保存される履歴全体です
type HistoryDocument struct {
	Version int                   `json:"version"`
	Entries []ProjectHistoryEntry `json:"entries"`
}

// HistoryRepository は、プロジェクト履歴の永続化を行うインターフェースです
// 履歴は順序付きリストとして丸ごと読み書きされます
type HistoryRepository interface {
	// Load は、保存されている履歴を新しい順で返します。未保存の場合は空を返します
	Load(ctx context.Context) ([]ProjectHistoryEntry, error)

	// Save は、履歴全体を書き換えます
	Save(ctx context.Context, entries []ProjectHistoryEntry) error
}

// ImageStore は、生成画像の保存を行うインターフェースです
type ImageStore interface {
	// Put は、画像を保存し参照文字列を返します
	Put(ctx context.Context, name string, img ReferenceImage) (string, error)
}
