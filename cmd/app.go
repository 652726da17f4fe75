package main

import (
	"context"
	"fmt"

	"studiobot/configs"
	"studiobot/internal/application"
	"studiobot/internal/domain"
	discordInfra "studiobot/internal/infrastructure/discord"
	"studiobot/internal/infrastructure/gemini"
	"studiobot/internal/infrastructure/history"
	"studiobot/internal/infrastructure/logging"
	"studiobot/internal/infrastructure/storage"

	"github.com/rs/zerolog"
)

// app は、各コマンドで共有するサービス群です
type app struct {
	config      *configs.Config
	logger      zerolog.Logger
	images      *storage.FileImageStore
	history     *application.HistoryService
	credentials *application.CredentialService
	studios     *application.StudioRegistry

	closers []func() error
}

// newApp は、設定を読み込んでサービスを組み立てます
func newApp(ctx context.Context) (*app, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		return nil, err
	}

	a := &app{config: config, logger: logger}

	repo, err := a.historyRepository(ctx)
	if err != nil {
		return nil, err
	}

	a.images = storage.NewFileImageStore(config.Studio.OutputDir)
	a.history = application.NewHistoryService(repo, a.images, config.History.MaxEntries, logger)
	a.credentials = application.NewCredentialService(
		discordInfra.NewMemoryCredentialRepository(),
		gemini.NewClientFactory(config.Gemini, logger),
		config.Gemini.APIKey,
		logger,
	)
	a.studios = application.NewStudioRegistry(a.credentials, a.credentials, a.history, logger)
	return a, nil
}

func (a *app) historyRepository(ctx context.Context) (domain.HistoryRepository, error) {
	cfg := a.config.History
	switch cfg.Backend {
	case configs.HistoryBackendRedis:
		rdb, err := history.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.logger.Info().Str("key", cfg.Key).Msg("履歴の保存先にRedisを使用します")
		return history.NewRedisRepository(rdb, cfg.Key), nil
	default:
		a.logger.Info().Str("path", cfg.FilePath).Msg("履歴の保存先にファイルを使用します")
		return history.NewFileRepository(cfg.FilePath), nil
	}
}

// localStudio は、CLI用の所有者で1つのスタジオを用意します
// 環境変数のAPIキーはその所有者専用のキーとして扱います
func (a *app) localStudio(ctx context.Context) (*application.Studio, error) {
	if err := a.config.ValidateForLocal(); err != nil {
		return nil, err
	}
	owner := a.config.Studio.DefaultOwner
	if err := a.credentials.SetCredential(ctx, owner, a.config.Gemini.APIKey, "cli"); err != nil {
		return nil, fmt.Errorf("APIキーの登録に失敗: %w", err)
	}
	return a.studios.Get(owner, owner), nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn().Err(err).Msg("リソースの解放に失敗しました")
		}
	}
}
