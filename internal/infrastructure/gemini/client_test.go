package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"studiobot/internal/application"
	"studiobot/internal/domain"
	"studiobot/internal/infrastructure/config"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// mockModels は、テスト用のモックGenerateContent実装です
type mockModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.model = model
	m.contents = contents
	m.config = cfg
	return m.resp, m.err
}

func testConfig() config.GeminiConfig {
	return config.GeminiConfig{
		ImageModelName:    "gemini-2.5-flash-image",
		AnalysisModelName: "gemini-2.5-flash",
		RequestTimeout:    time.Minute,
	}
}

func responseWithParts(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestGenerateImage_Success(t *testing.T) {
	models := &mockModels{resp: responseWithParts(
		genai.NewPartFromText("here is your image"),
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}},
	)}
	client := newClientWithModels(models, testConfig(), zerolog.Nop())

	img, err := client.GenerateImage(context.Background(), application.GenerationRequest{
		Prompt: "ROLE: test",
		Images: []domain.ReferenceImage{
			{ID: "p", MIMEType: "image/png", Data: []byte("product")},
			{ID: "r", MIMEType: "image/jpeg", Data: []byte("reference")},
		},
		AspectRatio: domain.AspectRatioPortrait45,
		Resolution:  domain.ResolutionLow,
	})
	if err != nil {
		t.Fatalf("画像生成に失敗: %v", err)
	}

	if img.MIMEType != "image/jpeg" || string(img.Data) != "\xff\xd8\xff" {
		t.Errorf("画像データが異なります: %+v", img)
	}
	if img.ID == "" || img.Name != img.ID+".jpg" {
		t.Errorf("画像のIDまたは名前が不正です: %s, %s", img.ID, img.Name)
	}
	if models.model != "gemini-2.5-flash-image" {
		t.Errorf("期待されるモデル: gemini-2.5-flash-image, 実際: %s", models.model)
	}
	if got := models.config.ImageConfig.AspectRatio; got != "3:4" {
		t.Errorf("4:5は3:4として送信されるべきです: %s", got)
	}

	parts := models.contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("期待されるパート数: 3, 実際: %d", len(parts))
	}
	if parts[0].InlineData.MIMEType != "image/png" || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Error("画像パートの順序が異なります")
	}
	if parts[2].Text != "ROLE: test" {
		t.Errorf("プロンプトが最後のパートにありません: %q", parts[2].Text)
	}
}

func TestGenerateImage_NoImage(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantKind error
	}{
		{"空のレスポンス", nil, domain.ErrNoImageReturned},
		{"候補なし", &genai.GenerateContentResponse{}, domain.ErrNoImageReturned},
		{"テキストのみ", responseWithParts(genai.NewPartFromText("sorry")), domain.ErrNoImageReturned},
		{
			"安全フィルター",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			domain.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClientWithModels(&mockModels{resp: tt.resp}, testConfig(), zerolog.Nop())
			_, err := client.GenerateImage(context.Background(), application.GenerationRequest{Prompt: "p"})
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("期待される種別: %v, 実際: %v", tt.wantKind, err)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"401", genai.APIError{Code: 401, Message: "unauthorized"}, domain.ErrInvalidCredential},
		{"403 ポインタ", &genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, domain.ErrInvalidCredential},
		{"404", fmt.Errorf("wrapped: %w", genai.APIError{Code: 404, Message: "Requested entity was not found."}), domain.ErrInvalidCredential},
		{"APIキー不正の文字列", errors.New("Error 400, API key not valid. Please pass a valid API key."), domain.ErrInvalidCredential},
		{"API_KEY_INVALID", errors.New("reason: API_KEY_INVALID"), domain.ErrInvalidCredential},
		{"クォータ超過", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, domain.ErrTransport},
		{"サーバーエラー", genai.APIError{Code: 500, Status: "INTERNAL"}, domain.ErrTransport},
		{"ネットワーク", errors.New("dial tcp: connection refused"), domain.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError(tt.err)
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("期待される種別: %v, 実際: %v", tt.wantKind, err)
			}
			if !strings.Contains(err.Error(), tt.err.Error()) {
				t.Errorf("元のエラーが保持されていません: %v", err)
			}
		})
	}

	if classifyError(nil) != nil {
		t.Error("nilはnilのまま返すべきです")
	}
}

func TestGenerateImage_CredentialFailure(t *testing.T) {
	models := &mockModels{err: genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}}
	client := newClientWithModels(models, testConfig(), zerolog.Nop())

	_, err := client.GenerateImage(context.Background(), application.GenerationRequest{Prompt: "p"})
	if !domain.IsCredentialError(err) {
		t.Errorf("認証エラーに分類されるべきです: %v", err)
	}
}

func TestAnalyzeProduct(t *testing.T) {
	body := `{
		"category": "leather handbag",
		"attributes": {"colors": ["tan"], "material": "leather", "textures": ["pebbled"], "logoPresent": true, "patternDetails": ""},
		"recommendedMood": "quiet luxury",
		"recommendedLighting": "soft window light",
		"locationSuggestions": [{"name": "Marble Lobby", "description": "calm", "backgroundDirective": "white marble"}],
		"poseSuggestions": [{"poseName": "Shoulder", "creativePrompt": "bag on shoulder", "recommendedShotType": "mid shot"}],
		"suggestedDetailShots": [{"focus": "clasp", "description": "brass clasp"}]
	}`
	models := &mockModels{resp: responseWithParts(genai.NewPartFromText(body))}
	client := newClientWithModels(models, testConfig(), zerolog.Nop())

	result, err := client.AnalyzeProduct(context.Background(), []domain.ReferenceImage{{ID: "p", MIMEType: "image/png", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("解析に失敗: %v", err)
	}

	want := &domain.AnalysisResult{
		Category: "leather handbag",
		Attributes: domain.ProductAttributes{
			Colors: []string{"tan"}, Material: "leather", Textures: []string{"pebbled"}, LogoPresent: true,
		},
		RecommendedMood:     "quiet luxury",
		RecommendedLighting: "soft window light",
		Environments:        []domain.EnvironmentSuggestion{{Name: "Marble Lobby", Description: "calm", BackgroundDirective: "white marble"}},
		Poses:               []domain.PoseSuggestion{{Name: "Shoulder", Directive: "bag on shoulder", RecommendedShotType: "mid shot"}},
		DetailShots:         []domain.DetailShotSuggestion{{Focus: "clasp", Description: "brass clasp"}},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("解析結果が異なります (-want +got):\n%s", diff)
	}
	if models.model != "gemini-2.5-flash" {
		t.Errorf("期待されるモデル: gemini-2.5-flash, 実際: %s", models.model)
	}
	if models.config.ResponseMIMEType != "application/json" || models.config.ResponseSchema == nil {
		t.Error("JSON形式の応答が要求されていません")
	}
}

func TestAnalyzeProduct_Failures(t *testing.T) {
	tests := []struct {
		name     string
		models   *mockModels
		wantKind error
	}{
		{"不正なJSON", &mockModels{resp: responseWithParts(genai.NewPartFromText("{not json"))}, domain.ErrTransport},
		{"空の応答", &mockModels{resp: responseWithParts()}, domain.ErrTransport},
		{"認証エラー", &mockModels{err: genai.APIError{Code: 401}}, domain.ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClientWithModels(tt.models, testConfig(), zerolog.Nop())
			_, err := client.AnalyzeProduct(context.Background(), []domain.ReferenceImage{{ID: "p"}})
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("期待される種別: %v, 実際: %v", tt.wantKind, err)
			}
		})
	}
}

func TestParseAnalysis_CodeFence(t *testing.T) {
	result, err := parseAnalysis("```json\n{\"category\": \"sneaker\"}\n```")
	if err != nil {
		t.Fatalf("コードブロック付きの応答の解析に失敗: %v", err)
	}
	if result.Category != "sneaker" {
		t.Errorf("期待されるカテゴリ: sneaker, 実際: %s", result.Category)
	}
}
