package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	discordInfra "studiobot/internal/infrastructure/discord"
	discordPres "studiobot/internal/presentation/discord"
	"studiobot/internal/presentation/httpapi"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Discord Botとして起動します",
		Long: `Discordに接続し、スラッシュコマンドで撮影スタジオを操作できるようにします。

HTTP_ADDR（または --http）を指定すると、セッションの状態と生成結果を参照する
読み取り専用のHTTP APIも起動します。`,
		Example: `  # Botを起動
  studiobot serve

  # 状態参照APIを :8080 で併せて起動
  studiobot serve --http :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.config.HTTP.Addr = addr
			}
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "状態参照APIの待ち受けアドレス（HTTP_ADDRより優先）")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if err := a.config.ValidateForDiscord(); err != nil {
		return err
	}
	logger := a.logger

	session, err := discordgo.New("Bot " + a.config.Discord.BotToken)
	if err != nil {
		return fmt.Errorf("Discordセッションの作成に失敗: %w", err)
	}

	user, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("Bot情報の取得に失敗: %w", err)
	}
	logger.Info().Str("user", user.Username).Str("id", user.ID).Msg("Bot情報を取得しました")

	slashCommandHandler := discordPres.NewSlashCommandHandler(
		session,
		a.credentials,
		a.studios,
		a.history,
		discordInfra.NewSessionAttachmentFetcher(session),
		logger,
	)
	handler := discordPres.NewDiscordHandler(session, slashCommandHandler, logger)
	handler.SetupHandlers()

	if err := session.Open(); err != nil {
		return fmt.Errorf("Discordへの接続に失敗: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Discordセッションのクローズに失敗しました")
		}
	}()

	if err := slashCommandHandler.SetupSlashCommands(); err != nil {
		return fmt.Errorf("スラッシュコマンドの設定に失敗: %w", err)
	}
	logger.Info().Int("commands", len(discordPres.Commands())).Msg("Discordに接続しました。Botが準備完了しました")

	serverErr := make(chan error, 1)
	var server *http.Server
	if a.config.HTTP.Addr != "" {
		api := httpapi.NewServer(a.studios, a.history, a.images, logger)
		server = &http.Server{
			Addr:              a.config.HTTP.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", server.Addr).Msg("状態参照APIを起動しました")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("終了シグナルを受信しました。Botを停止中...")
	case err := <-serverErr:
		return fmt.Errorf("状態参照APIの起動に失敗: %w", err)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("状態参照APIの停止に失敗しました")
		}
	}
	logger.Info().Msg("Botが正常に停止しました")
	return nil
}
