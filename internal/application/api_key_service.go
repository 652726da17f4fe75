package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// CredentialService は、所有者ごとのAPIキーの管理とクライアントの選択を行うアプリケーションサービスです
type CredentialService struct {
	repo          domain.CredentialRepository
	factory       ClientFactory
	defaultAPIKey string
	logger        zerolog.Logger

	mu      sync.Mutex
	clients map[string]StudioClient
}

// NewCredentialService は新しいCredentialServiceインスタンスを作成します
func NewCredentialService(repo domain.CredentialRepository, factory ClientFactory, defaultAPIKey string, logger zerolog.Logger) *CredentialService {
	return &CredentialService{
		repo:          repo,
		factory:       factory,
		defaultAPIKey: defaultAPIKey,
		logger:        logger.With().Str("component", "credential").Logger(),
		clients:       make(map[string]StudioClient),
	}
}

// SetCredential は、指定された所有者のAPIキーを設定します
func (s *CredentialService) SetCredential(ctx context.Context, ownerID, apiKey, setBy string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("APIキーが空です")
	}
	if len(apiKey) < 10 {
		return fmt.Errorf("APIキーが短すぎます")
	}

	if err := s.repo.SetAPIKey(ctx, ownerID, apiKey, setBy); err != nil {
		return fmt.Errorf("APIキーの保存に失敗: %w", err)
	}
	s.logger.Info().Str("owner", ownerID).Str("set_by", setBy).Msg("APIキーを設定しました")
	return nil
}

// DeleteCredential は、指定された所有者のAPIキーを削除します
func (s *CredentialService) DeleteCredential(ctx context.Context, ownerID string) error {
	if err := s.repo.DeleteAPIKey(ctx, ownerID); err != nil {
		return fmt.Errorf("APIキーの削除に失敗: %w", err)
	}
	s.logger.Info().Str("owner", ownerID).Msg("APIキーを削除しました")
	return nil
}

// HasCustomCredential は、指定された所有者に専用のAPIキーが設定されているかを確認します
func (s *CredentialService) HasCustomCredential(ctx context.Context, ownerID string) (bool, error) {
	return s.repo.HasAPIKey(ctx, ownerID)
}

// CredentialInfo は、指定された所有者のAPIキー情報を取得します（APIキーは伏せられます）
func (s *CredentialService) CredentialInfo(ctx context.Context, ownerID string) (domain.OwnerCredential, error) {
	return s.repo.GetInfo(ctx, ownerID)
}

// ClientFor は、所有者のAPIキー（未設定の場合はデフォルトキー）でクライアントを返します
func (s *CredentialService) ClientFor(ctx context.Context, ownerID string) (StudioClient, error) {
	apiKey, err := s.repo.GetAPIKey(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, fmt.Errorf("APIキーの取得に失敗: %w", err)
		}
		apiKey = s.defaultAPIKey
	}
	if apiKey == "" {
		return nil, domain.ErrCredentialNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[apiKey]; ok {
		return c, nil
	}
	c, err := s.factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("クライアントの作成に失敗: %w", err)
	}
	s.clients[apiKey] = c
	return c, nil
}
