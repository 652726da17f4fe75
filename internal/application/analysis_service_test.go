package application

import (
	"context"
	"errors"
	"testing"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

func TestAnalysisService_Analyze(t *testing.T) {
	client := newFakeClient("gen")
	client.analysis = sampleAnalysis()
	store := NewStudioStore(zerolog.Nop())
	svc := NewAnalysisService(store, &fakeProvider{client: client}, "guild-1", zerolog.Nop())

	if _, err := svc.Analyze(context.Background()); !errors.Is(err, domain.ErrMissingProductImage) {
		t.Fatalf("商品画像なしの解析はErrMissingProductImageになるべきです: %v", err)
	}
	if client.analyzed != 0 {
		t.Error("商品画像なしで解析が呼び出されました")
	}

	mustDispatch(t, store, AddImage{Collection: domain.CollectionProduct, Image: domain.ReferenceImage{ID: "p1"}})
	result, err := svc.Analyze(context.Background())
	if err != nil {
		t.Fatalf("解析に失敗: %v", err)
	}
	if result.Category != "handbag" {
		t.Errorf("期待されるカテゴリ: handbag, 実際: %s", result.Category)
	}
	if got := store.Snapshot().Analysis; got == nil || len(got.Poses) != 2 {
		t.Errorf("解析結果が状態に反映されていません: %+v", got)
	}
}

func TestAnalysisService_ErrorKeepsPreviousResult(t *testing.T) {
	client := newFakeClient("gen")
	client.analysis = sampleAnalysis()
	store := NewStudioStore(zerolog.Nop())
	mustDispatch(t, store, AddImage{Collection: domain.CollectionProduct, Image: domain.ReferenceImage{ID: "p1"}})
	svc := NewAnalysisService(store, &fakeProvider{client: client}, "guild-1", zerolog.Nop())

	if _, err := svc.Analyze(context.Background()); err != nil {
		t.Fatalf("解析に失敗: %v", err)
	}

	client.analysisErr = domain.NewGenerationError(domain.ErrInvalidCredential, errors.New("PERMISSION_DENIED"))
	_, err := svc.Analyze(context.Background())
	if !domain.IsCredentialError(err) {
		t.Errorf("認証エラーが返されるべきです: %v", err)
	}
	if store.Snapshot().Analysis == nil {
		t.Error("失敗した解析で以前の結果が失われました")
	}
}
