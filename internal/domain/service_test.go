package domain

import (
	"strings"
	"testing"
)

func testPromptInput() PromptInput {
	return PromptInput{
		Shot: ShotSpec{
			ID:               "shot-1",
			Pose:             "walking toward camera",
			ShotType:         ShotTypeFull,
			Angle:            CameraAngleLow,
			SceneArea:        "staircase",
			CreativeOverride: "wind in the hair",
		},
		Images: ImageSet{
			Product:   []ReferenceImage{{ID: "p1", Name: "bag.jpg", MIMEType: "image/jpeg"}},
			Reference: []ReferenceImage{{ID: "r1", Name: "ref.jpg", MIMEType: "image/jpeg"}},
		},
		Quality:     DefaultQualityConfig(),
		Consistency: DefaultConsistencyFlags(),
		Scene: SceneContext{
			Title:       "Autumn Drop",
			Location:    "Paris rooftop",
			Vibe:        "quiet luxury",
			GlobalBrief: "golden hour, warm stone",
		},
	}
}

func TestPromptCompiler_Deterministic(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()
	in.Anchor = &StyleAnchor{ShotID: "shot-0", Image: ReferenceImage{ID: "a", Name: "anchor.png"}}

	first := compiler.Compile(in)
	for i := 0; i < 10; i++ {
		if got := compiler.Compile(in); got != first {
			t.Fatalf("同じ入力に対して異なるプロンプトが生成されました (試行 %d)", i)
		}
	}
	if other := NewPromptCompiler().Compile(in); other != first {
		t.Error("別のコンパイラインスタンスで異なるプロンプトが生成されました")
	}
}

func TestPromptCompiler_BlockOrder(t *testing.T) {
	prompt := NewPromptCompiler().Compile(testPromptInput())

	order := []string{
		"ROLE:",
		FidelityOverrideHeader,
		"ENVIRONMENT:",
		"TECHNICAL SPECS:",
		"SHOT:",
		NegativeHeader,
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(prompt, marker)
		if idx < 0 {
			t.Fatalf("期待されるセクション '%s' が含まれていません", marker)
		}
		if idx <= last {
			t.Errorf("セクション '%s' の順序が不正です", marker)
		}
		last = idx
	}
}

func TestPromptCompiler_ProductDetailsFlag(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()
	in.Analysis = &AnalysisResult{
		Attributes: ProductAttributes{Material: "pebbled leather", Colors: []string{"tan", "gold"}, LogoPresent: true},
	}

	locked := compiler.Compile(in)
	if !strings.Contains(locked, FidelityOverrideHeader) {
		t.Error("productDetailsが有効な場合、忠実度ブロックが必要です")
	}
	if !strings.Contains(locked, "- Material: pebbled leather") {
		t.Error("解析結果の素材が忠実度ブロックに含まれていません")
	}
	if !strings.Contains(locked, "- Colors: tan, gold") {
		t.Error("解析結果の色が忠実度ブロックに含まれていません")
	}

	in.Consistency.ProductDetails = false
	relaxed := compiler.Compile(in)
	if strings.Contains(relaxed, FidelityOverrideHeader) {
		t.Error("productDetailsが無効な場合、忠実度ブロックは不要です")
	}
	if !strings.Contains(relaxed, "PRODUCT STYLE:") {
		t.Error("productDetailsが無効な場合、緩やかな指示が必要です")
	}
}

func TestPromptCompiler_MissingProductImages(t *testing.T) {
	in := testPromptInput()
	in.Images.Product = nil
	in.Analysis = &AnalysisResult{Attributes: ProductAttributes{Material: "suede"}}

	prompt := NewPromptCompiler().Compile(in)
	if prompt == "" {
		t.Fatal("商品画像がなくてもプロンプトは生成されるべきです")
	}
	if strings.Contains(prompt, "suede") {
		t.Error("商品画像がない場合、素材について断定すべきではありません")
	}
	if strings.Contains(prompt, "ground truth") {
		t.Error("商品画像がない場合、画像を基準とする指示は不要です")
	}
}

func TestPromptCompiler_Identity(t *testing.T) {
	compiler := NewPromptCompiler()
	tests := []struct {
		name        string
		modelSheet  bool
		modelLock   bool
		useModel    bool
		wantLock    bool
		wantGeneric bool
	}{
		{"参照あり・固定あり", true, true, false, true, false},
		{"参照あり・固定なし", true, false, false, false, true},
		{"参照なし・モデル起用", false, true, true, false, true},
		{"参照なし・モデルなし", false, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testPromptInput()
			if tt.modelSheet {
				in.Images.ModelSheet = []ReferenceImage{{ID: "m1", Name: "model.jpg"}}
			}
			in.Consistency.Model = tt.modelLock
			in.Scene.UseModel = tt.useModel

			prompt := compiler.Compile(in)
			if got := strings.Contains(prompt, IdentityLockHeader); got != tt.wantLock {
				t.Errorf("人物固定ブロック: 期待値 %v, 実際 %v", tt.wantLock, got)
			}
			if got := strings.Contains(prompt, "MODEL: "); got != tt.wantGeneric {
				t.Errorf("汎用モデル指示: 期待値 %v, 実際 %v", tt.wantGeneric, got)
			}
		})
	}
}

func TestPromptCompiler_Anchor(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()

	noAnchor := compiler.Compile(in)
	if strings.Contains(noAnchor, AnchorLockHeader) {
		t.Error("アンカーがない場合、環境固定ブロックは不要です")
	}
	if !strings.Contains(noAnchor, "- Location: Paris rooftop") {
		t.Error("アンカーがない場合、ロケーションが含まれるべきです")
	}

	in.Anchor = &StyleAnchor{ShotID: "shot-0", Image: ReferenceImage{ID: "a", Name: "anchor.png"}}
	anchored := compiler.Compile(in)
	if !strings.Contains(anchored, AnchorLockHeader) {
		t.Error("アンカーがある場合、環境固定ブロックが必要です")
	}
	if strings.Contains(anchored, "- Location: Paris rooftop") {
		t.Error("アンカーがある場合、ロケーションの自由記述は不要です")
	}
	if !strings.Contains(anchored, "STYLE ANCHOR: anchor.png") {
		t.Error("添付画像一覧にアンカーが含まれていません")
	}

	in.Consistency.Background = false
	loose := compiler.Compile(in)
	if strings.Contains(loose, AnchorLockHeader) {
		t.Error("背景の一貫性がオフの場合、環境固定ブロックは不要です")
	}
	if !strings.Contains(loose, "STYLE CONSISTENCY:") {
		t.Error("背景の一貫性がオフでも、ライティングの一貫性の指示は必要です")
	}
	for _, want := range []string{"- Location: Paris rooftop", "- Brand vibe: ", "- Background brief: "} {
		if !strings.Contains(loose, want) {
			t.Errorf("背景の一貫性がオフの場合、シーンの記述 %q が含まれるべきです", want)
		}
	}
	if strings.Contains(loose, "fixed environment for the whole series") {
		t.Error("背景の一貫性がオフの場合、固定環境の指示は不要です")
	}
}

func TestPromptCompiler_Negative(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()

	prompt := compiler.Compile(in)
	for _, n := range DefaultNegativeConstraints {
		if !strings.Contains(prompt, "- no "+n) {
			t.Errorf("デフォルトのネガティブ制約 '%s' が含まれていません", n)
		}
	}

	in.Scene.NegativeConstraints = "no sunglasses"
	custom := compiler.Compile(in)
	if !strings.Contains(custom, "- no sunglasses") {
		t.Error("独自のネガティブ制約が含まれていません")
	}
	if strings.Contains(custom, DefaultNegativeConstraints[0]) {
		t.Error("独自の制約がある場合、デフォルトの制約は不要です")
	}
}

func TestPromptCompiler_Retouching(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()

	in.Quality.Premium = 4
	if !strings.Contains(compiler.Compile(in), "RETOUCHING:") {
		t.Error("premiumが4以上の場合、レタッチ指示が必要です")
	}
	in.Quality.Premium = 3
	if strings.Contains(compiler.Compile(in), "RETOUCHING:") {
		t.Error("premiumが3以下の場合、レタッチ指示は不要です")
	}
}

func TestPromptCompiler_OutputResolution(t *testing.T) {
	compiler := NewPromptCompiler()
	in := testPromptInput()

	for _, tt := range []struct {
		res  Resolution
		want string
	}{
		{ResolutionLow, "- Output resolution: 1K"},
		{ResolutionMedium, "- Output resolution: 2K"},
		{ResolutionHigh, "- Output resolution: 4K"},
	} {
		in.Quality.Resolution = tt.res
		if got := compiler.Compile(in); !strings.Contains(got, tt.want) {
			t.Errorf("解像度 %s の指示がプロンプトに含まれていません", tt.res)
		}
	}
}

func TestPromptCompiler_ShotBlock(t *testing.T) {
	prompt := NewPromptCompiler().Compile(testPromptInput())

	expected := []string{
		"- Pose/action: walking toward camera",
		"- Shot type: full shot",
		"- Camera angle: low",
		"- Scene area: staircase",
		"- Creative override: wind in the hair",
	}
	for _, e := range expected {
		if !strings.Contains(prompt, e) {
			t.Errorf("期待される行 '%s' が含まれていません", e)
		}
	}
}
