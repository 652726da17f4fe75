package application

import (
	"context"
	"fmt"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// AnalysisService は、商品画像の解析とその結果の状態への反映を担当するアプリケーションサービスです
type AnalysisService struct {
	store   *StudioStore
	clients ClientProvider
	ownerID string
	logger  zerolog.Logger
}

// NewAnalysisService は新しいAnalysisServiceインスタンスを作成します
func NewAnalysisService(store *StudioStore, clients ClientProvider, ownerID string, logger zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		store:   store,
		clients: clients,
		ownerID: ownerID,
		logger:  logger.With().Str("component", "analysis").Str("owner", ownerID).Logger(),
	}
}

// Analyze は、現在の商品画像を解析し、結果で解析結果を丸ごと置き換えます
func (s *AnalysisService) Analyze(ctx context.Context) (*domain.AnalysisResult, error) {
	products := s.store.Snapshot().Images.Product
	if len(products) == 0 {
		return nil, domain.ErrMissingProductImage
	}

	client, err := s.clients.ClientFor(ctx, s.ownerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("images", len(products)).Msg("商品画像を解析しています")
	result, err := client.AnalyzeProduct(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("商品画像の解析に失敗: %w", err)
	}

	if err := s.store.Dispatch(SetAnalysis{Result: result}); err != nil {
		return nil, fmt.Errorf("解析結果の反映に失敗: %w", err)
	}
	s.logger.Info().
		Str("category", result.Category).
		Int("environments", len(result.Environments)).
		Int("poses", len(result.Poses)).
		Msg("解析が完了しました")
	return result, nil
}
