package application

import (
	"context"

	"studiobot/internal/domain"
)

// GenerationRequest は、1回の画像生成リクエストです
type GenerationRequest struct {
	Prompt      string
	Images      []domain.ReferenceImage
	AspectRatio domain.AspectRatio
	Resolution  domain.Resolution
}

// ImageGenerator は、画像生成APIとの通信を行うクライアントのインターフェースです
// 失敗時は domain.GenerationError（InvalidCredential / NoImageReturned / Transport）を返します
// リトライは行いません
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req GenerationRequest) (domain.ReferenceImage, error)
}

// ProductAnalyzer は、商品画像の解析APIとの通信を行うクライアントのインターフェースです
type ProductAnalyzer interface {
	AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage) (*domain.AnalysisResult, error)
}

// StudioClient は、生成と解析の両方を提供するクライアントです
type StudioClient interface {
	ImageGenerator
	ProductAnalyzer
}

// ClientFactory は、APIキーからStudioClientを作成する関数です
type ClientFactory func(ctx context.Context, apiKey string) (StudioClient, error)

// ClientProvider は、所有者ごとのクライアントを提供します
type ClientProvider interface {
	ClientFor(ctx context.Context, ownerID string) (StudioClient, error)
}
