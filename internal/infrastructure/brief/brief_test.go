package brief

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

const sampleBrief = `
title: Autumn Drop
location: Paris rooftop
vibe: golden hour
brief: soft editorial mood
use_model: true
aspect_ratio: "4:5"
resolution: 2K
quality:
  premium: 5
  grain: 9
lens: 85mm f/1.4
lighting: window light
consistency:
  model: false
images:
  product: [product.png]
  reference: [ref.png]
shots:
  - pose: standing by the railing
    type: full shot
    angle: low
  - pose: hands in pockets
    area: staircase
    override: motion blur
`

func writeBrief(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"product.png", "ref.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("\x89PNG\r\n\x1a\n"+name), 0o644); err != nil {
			t.Fatalf("テスト画像の作成に失敗: %v", err)
		}
	}
	path := filepath.Join(dir, "brief.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("ブリーフの作成に失敗: %v", err)
	}
	return path
}

func TestLoad_AppliesToStudio(t *testing.T) {
	b, err := Load(writeBrief(t, sampleBrief))
	if err != nil {
		t.Fatalf("ブリーフの読み込みに失敗: %v", err)
	}
	cmds, err := b.Commands(context.Background(), true)
	if err != nil {
		t.Fatalf("コマンドへの変換に失敗: %v", err)
	}

	store := application.NewStudioStore(zerolog.Nop())
	for _, cmd := range cmds {
		if err := store.Dispatch(cmd); err != nil {
			t.Fatalf("コマンドの適用に失敗 %T: %v", cmd, err)
		}
	}
	st := store.Snapshot()

	wantScene := domain.SceneContext{
		Title:       "Autumn Drop",
		Location:    "Paris rooftop",
		Vibe:        "golden hour",
		GlobalBrief: "soft editorial mood",
		UseModel:    true,
	}
	if diff := cmp.Diff(wantScene, st.Scene); diff != "" {
		t.Errorf("シーン設定が異なります (-want +got):\n%s", diff)
	}
	if st.AspectRatio != domain.AspectRatioPortrait45 {
		t.Errorf("縦横比: 期待 4:5, 実際 %s", st.AspectRatio)
	}
	if st.Quality.Resolution != domain.ResolutionMedium {
		t.Errorf("解像度: 期待 2K, 実際 %s", st.Quality.Resolution)
	}
	if st.Quality.Premium != 5 || st.Quality.Grain != domain.MaxGrainLevel {
		t.Errorf("品質レベルが異なります: premium=%d grain=%d", st.Quality.Premium, st.Quality.Grain)
	}
	if st.Quality.Lens != "85mm f/1.4" || st.Quality.Lighting != "window light" || st.Quality.CameraBody != domain.DefaultQualityConfig().CameraBody {
		t.Errorf("機材設定が異なります: %+v", st.Quality)
	}
	wantFlags := domain.ConsistencyFlags{Background: true, Model: false, ProductDetails: true}
	if st.Consistency != wantFlags {
		t.Errorf("一貫性フラグ: 期待 %+v, 実際 %+v", wantFlags, st.Consistency)
	}

	if len(st.Images.Product) != 1 || st.Images.Product[0].Name != "product.png" || st.Images.Product[0].MIMEType != "image/png" {
		t.Errorf("商品画像が異なります: %v", st.Images.Product)
	}
	if len(st.Images.Reference) != 1 {
		t.Errorf("参照画像の件数: 期待 1, 実際 %d", len(st.Images.Reference))
	}

	wantShots := []domain.ShotSpec{
		{Pose: "standing by the railing", ShotType: domain.ShotTypeFull, Angle: domain.CameraAngleLow},
		{Pose: "hands in pockets", ShotType: domain.ShotTypeMid, Angle: domain.CameraAngleEyeLevel, SceneArea: "staircase", CreativeOverride: "motion blur"},
	}
	if diff := cmp.Diff(wantShots, st.Shots, cmpopts.IgnoreFields(domain.ShotSpec{}, "ID")); diff != "" {
		t.Errorf("ショットが異なります (-want +got):\n%s", diff)
	}
}

func TestCommands_ResolutionWithoutCredential(t *testing.T) {
	b, err := Load(writeBrief(t, sampleBrief))
	if err != nil {
		t.Fatalf("ブリーフの読み込みに失敗: %v", err)
	}
	cmds, err := b.Commands(context.Background(), false)
	if err != nil {
		t.Fatalf("コマンドへの変換に失敗: %v", err)
	}

	store := application.NewStudioStore(zerolog.Nop())
	var gotErr error
	for _, cmd := range cmds {
		if err := store.Dispatch(cmd); err != nil {
			gotErr = err
		}
	}
	if !errors.Is(gotErr, domain.ErrResolutionRequiresCredential) {
		t.Errorf("ErrResolutionRequiresCredentialが返されるべきです: %v", gotErr)
	}
}

func TestCommands_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"不明なショット種別", "shots:\n  - pose: x\n    type: panorama\n"},
		{"不明なアングル", "shots:\n  - pose: x\n    angle: dutch\n"},
		{"不明な縦横比", "aspect_ratio: \"2:1\"\n"},
		{"不明な解像度", "resolution: 8K\n"},
		{"不明な品質項目", "quality:\n  glow: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse([]byte(tt.content))
			if err != nil {
				t.Fatalf("ブリーフの解析に失敗: %v", err)
			}
			if _, err := b.Commands(context.Background(), true); !errors.Is(err, domain.ErrInvalidOption) {
				t.Errorf("ErrInvalidOptionが返されるべきです: %v", err)
			}
		})
	}
}

func TestCommands_MissingImage(t *testing.T) {
	b, err := Parse([]byte("images:\n  product: [missing.png]\n"))
	if err != nil {
		t.Fatalf("ブリーフの解析に失敗: %v", err)
	}
	b.baseDir = t.TempDir()
	if _, err := b.Commands(context.Background(), true); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("存在しない画像はエラーになるべきです: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("title: [unclosed")); err == nil {
		t.Error("不正なYAMLはエラーになるべきです")
	}
}
