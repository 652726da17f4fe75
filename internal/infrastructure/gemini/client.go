package gemini

import (
	"context"
	"fmt"

	"studiobot/internal/application"
	"studiobot/internal/infrastructure/config"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// contentGenerator は、genai.Models のうちこのパッケージが使う部分です
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAPIClient は、Gemini APIで画像生成と商品解析を行うクライアントです
// 1つのインスタンスは1つのAPIキーに対応します
type GeminiAPIClient struct {
	models contentGenerator
	config config.GeminiConfig
	logger zerolog.Logger
}

var _ application.StudioClient = (*GeminiAPIClient)(nil)

// NewGeminiAPIClient は新しいGeminiAPIClientインスタンスを作成します
func NewGeminiAPIClient(ctx context.Context, apiKey string, geminiConfig config.GeminiConfig, logger zerolog.Logger) (*GeminiAPIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err)
	}
	return newClientWithModels(client.Models, geminiConfig, logger), nil
}

func newClientWithModels(models contentGenerator, geminiConfig config.GeminiConfig, logger zerolog.Logger) *GeminiAPIClient {
	return &GeminiAPIClient{
		models: models,
		config: geminiConfig,
		logger: logger.With().Str("component", "gemini").Logger(),
	}
}

// NewClientFactory は、APIキーごとにクライアントを作成するファクトリを返します
func NewClientFactory(geminiConfig config.GeminiConfig, logger zerolog.Logger) application.ClientFactory {
	return func(ctx context.Context, apiKey string) (application.StudioClient, error) {
		return NewGeminiAPIClient(ctx, apiKey, geminiConfig, logger)
	}
}

// withTimeout は、設定されたリクエストタイムアウトを適用します
func (g *GeminiAPIClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.config.RequestTimeout)
}
