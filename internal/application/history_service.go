package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// HistoryService は、プロジェクト履歴の記録と参照を担当するアプリケーションサービスです
type HistoryService struct {
	repo       domain.HistoryRepository
	images     domain.ImageStore
	maxEntries int
	logger     zerolog.Logger

	mu sync.Mutex
}

// NewHistoryService は新しいHistoryServiceインスタンスを作成します
// maxEntriesが0以下の場合は件数を制限しません
func NewHistoryService(repo domain.HistoryRepository, images domain.ImageStore, maxEntries int, logger zerolog.Logger) *HistoryService {
	return &HistoryService{
		repo:       repo,
		images:     images,
		maxEntries: maxEntries,
		logger:     logger.With().Str("component", "history").Logger(),
	}
}

// Record は、プレビュー画像を保存し、履歴の先頭に1件追加します
func (s *HistoryService) Record(ctx context.Context, title string, preview domain.ReferenceImage, at time.Time) (domain.ProjectHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("history-%s-%s", domain.Slug(title), at.UTC().Format("20060102-150405"))
	ref, err := s.images.Put(ctx, name, preview)
	if err != nil {
		return domain.ProjectHistoryEntry{}, fmt.Errorf("プレビュー画像の保存に失敗: %w", err)
	}

	entries, err := s.repo.Load(ctx)
	if err != nil {
		return domain.ProjectHistoryEntry{}, fmt.Errorf("履歴の読み込みに失敗: %w", err)
	}

	entry := domain.NewProjectHistoryEntry(title, ref, at)
	entries = append([]domain.ProjectHistoryEntry{entry}, entries...)
	if s.maxEntries > 0 && len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}

	if err := s.repo.Save(ctx, entries); err != nil {
		return domain.ProjectHistoryEntry{}, fmt.Errorf("履歴の書き込みに失敗: %w", err)
	}
	s.logger.Info().Str("id", entry.ID).Str("title", title).Str("preview", ref).Msg("履歴を追加しました")
	return entry, nil
}

// List は、履歴を新しい順で返します
func (s *HistoryService) List(ctx context.Context) ([]domain.ProjectHistoryEntry, error) {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("履歴の読み込みに失敗: %w", err)
	}
	return entries, nil
}
