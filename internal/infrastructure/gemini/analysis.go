package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studiobot/internal/domain"

	"google.golang.org/genai"
)

const analysisPrompt = `You are a fashion and product photography director.
Analyze the attached product images and plan a professional photoshoot.

Return:
- category: the product category in a few words
- attributes: dominant colors, primary material, visible textures, whether a logo is present, and any pattern details
- recommendedMood and recommendedLighting for the campaign
- locationSuggestions: 3 to 5 environments, each with a name, a short description and a backgroundDirective written as an instruction for an image model
- poseSuggestions: 4 to 6 poses, each with a poseName, a creativePrompt written as an instruction for an image model, and a recommendedShotType chosen from: full shot, mid shot, close-up, macro detail, lifestyle, walking
- suggestedDetailShots: close-up opportunities with a focus and a description

Describe only what is visible. Do not invent brand names.`

// AnalyzeProduct は、商品画像を解析して撮影プランの提案を返します
// 応答がJSONとして解釈できない場合は通信エラーとして扱います
func (g *GeminiAPIClient) AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage) (*domain.AnalysisResult, error) {
	if len(images) == 0 {
		return nil, domain.ErrMissingProductImage
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	g.logger.Debug().Str("model", g.config.AnalysisModelName).Int("images", len(images)).Msg("商品解析をリクエストしています")

	resp, err := g.models.GenerateContent(ctx, g.config.AnalysisModelName, buildContents(analysisPrompt, images), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	})
	if err != nil {
		return nil, classifyError(fmt.Errorf("Gemini APIからの解析応答取得に失敗: %w", err))
	}

	return parseAnalysis(responseText(resp))
}

// responseText は、レスポンスのテキスト部分を連結して返します
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// parseAnalysis は、解析結果のJSONを読み取ります
func parseAnalysis(text string) (*domain.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	// コードブロックで囲まれて返ることがある
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, domain.NewGenerationError(domain.ErrTransport, fmt.Errorf("解析結果が空です"))
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, domain.NewGenerationError(domain.ErrTransport, fmt.Errorf("解析結果のJSON解析に失敗: %w", err))
	}
	return &result, nil
}

func stringSchema(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func stringArraySchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func objectArraySchema(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

// analysisSchema は、domain.AnalysisResult のJSON表現に対応するスキーマです
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": stringSchema("product category"),
			"attributes": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"colors":         stringArraySchema(),
					"material":       stringSchema("primary material"),
					"textures":       stringArraySchema(),
					"logoPresent":    {Type: genai.TypeBoolean},
					"patternDetails": stringSchema("pattern details"),
				},
				Required: []string{"colors", "material", "textures", "logoPresent", "patternDetails"},
			},
			"recommendedMood":     stringSchema("campaign mood"),
			"recommendedLighting": stringSchema("lighting setup"),
			"locationSuggestions": objectArraySchema(map[string]*genai.Schema{
				"name":                stringSchema("environment name"),
				"description":         stringSchema("short description"),
				"backgroundDirective": stringSchema("instruction for the image model"),
			}, "name", "description", "backgroundDirective"),
			"poseSuggestions": objectArraySchema(map[string]*genai.Schema{
				"poseName":            stringSchema("pose name"),
				"creativePrompt":      stringSchema("instruction for the image model"),
				"recommendedShotType": stringSchema("one of: full shot, mid shot, close-up, macro detail, lifestyle, walking"),
			}, "poseName", "creativePrompt", "recommendedShotType"),
			"suggestedDetailShots": objectArraySchema(map[string]*genai.Schema{
				"focus":       stringSchema("detail to focus on"),
				"description": stringSchema("what the shot shows"),
			}, "focus", "description"),
		},
		Required: []string{"category", "attributes", "locationSuggestions", "poseSuggestions"},
	}
}
