package gemini

import (
	"context"
	"fmt"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GenerateImage は、参照画像とプロンプトから1枚の画像を生成します
// リトライは行いません
func (g *GeminiAPIClient) GenerateImage(ctx context.Context, req application.GenerationRequest) (domain.ReferenceImage, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	g.logger.Debug().
		Str("model", g.config.ImageModelName).
		Int("images", len(req.Images)).
		Int("prompt_len", len(req.Prompt)).
		Str("aspect", req.AspectRatio.ModelValue()).
		Str("resolution", req.Resolution.String()).
		Msg("画像生成をリクエストしています")

	resp, err := g.models.GenerateContent(ctx, g.config.ImageModelName, buildContents(req.Prompt, req.Images), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio.ModelValue(),
		},
	})
	if err != nil {
		return domain.ReferenceImage{}, classifyError(fmt.Errorf("Gemini APIからの画像生成応答取得に失敗: %w", err))
	}

	img, err := extractImage(resp)
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	g.logger.Debug().Str("mime", img.MIMEType).Int("bytes", len(img.Data)).Msg("画像を受信しました")
	return img, nil
}

// buildContents は、画像を先に、プロンプトを最後に並べたリクエストを作成します
func buildContents(prompt string, images []domain.ReferenceImage) []*genai.Content {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     img.Data,
			},
		})
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	return []*genai.Content{{Role: "user", Parts: parts}}
}

// extractImage は、レスポンスから最初のインライン画像を取り出します
func extractImage(resp *genai.GenerateContentResponse) (domain.ReferenceImage, error) {
	if resp == nil {
		return domain.ReferenceImage{}, domain.NewGenerationError(domain.ErrNoImageReturned, fmt.Errorf("レスポンスが空です"))
	}

	var reason genai.FinishReason
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}
		reason = candidate.FinishReason
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			id := uuid.NewString()
			img := domain.ReferenceImage{
				ID:       id,
				MIMEType: mimeType,
				Data:     part.InlineData.Data,
			}
			img.Name = fmt.Sprintf("%s.%s", id, img.Extension())
			return img, nil
		}
	}

	if reason == genai.FinishReasonSafety {
		// 安全フィルターによるブロックは通信エラーとして扱う
		return domain.ReferenceImage{}, domain.NewGenerationError(domain.ErrTransport, fmt.Errorf("安全フィルターにより生成がブロックされました: %s", reason))
	}
	return domain.ReferenceImage{}, domain.NewGenerationError(domain.ErrNoImageReturned, fmt.Errorf("候補数 %d, 終了理由 %q", len(resp.Candidates), reason))
}
