package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

func TestHistoryService_RecordPrependsAndTrims(t *testing.T) {
	repo := &memHistoryRepo{}
	images := newMemImageStore()
	svc := NewHistoryService(repo, images, 2, zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"First", "Second", "Third"} {
		preview := domain.ReferenceImage{ID: title, MIMEType: "image/png"}
		if _, err := svc.Record(context.Background(), title, preview, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("履歴の記録に失敗: %v", err)
		}
	}

	entries, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("履歴の取得に失敗: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("履歴件数: 期待 2, 実際 %d", len(entries))
	}
	if entries[0].Title != "Third" || entries[1].Title != "Second" {
		t.Errorf("履歴が新しい順になっていません: %s, %s", entries[0].Title, entries[1].Title)
	}
	if !entries[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("作成日時が異なります: %v", entries[0].CreatedAt)
	}
	if !strings.HasPrefix(entries[0].PreviewImageRef, "mem://history-third-") {
		t.Errorf("プレビュー参照が異なります: %s", entries[0].PreviewImageRef)
	}
	if img, ok := images.Get(entries[0].PreviewImageRef); !ok || img.ID != "Third" {
		t.Errorf("プレビュー画像が保存されていません: %+v", img)
	}
}
