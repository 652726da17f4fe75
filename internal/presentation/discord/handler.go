package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// DiscordHandler は、Discordのイベントハンドラです
type DiscordHandler struct {
	session             *discordgo.Session
	slashCommandHandler *SlashCommandHandler
	botUsername         string
	logger              zerolog.Logger
}

// DiscordMessageLimit は、Discordのメッセージ長制限です
const DiscordMessageLimit = 2000

// NewDiscordHandler は新しいDiscordHandlerインスタンスを作成します
func NewDiscordHandler(session *discordgo.Session, slashCommandHandler *SlashCommandHandler, logger zerolog.Logger) *DiscordHandler {
	return &DiscordHandler{
		session:             session,
		slashCommandHandler: slashCommandHandler,
		logger:              logger,
	}
}

// SetupHandlers は、Discordのイベントハンドラを設定します
func (h *DiscordHandler) SetupHandlers() {
	h.session.AddHandler(h.handleReady)

	// スラッシュコマンドハンドラーを設定
	if h.slashCommandHandler != nil {
		h.slashCommandHandler.SetupSlashCommandHandlers()
	}
}

// handleReady は、Botが準備完了した際のイベントを処理します
func (h *DiscordHandler) handleReady(_ *discordgo.Session, event *discordgo.Ready) {
	h.botUsername = event.User.Username
	h.logger.Info().Str("user", event.User.Username).Int("guilds", len(event.Guilds)).Msg("Botが準備完了しました")
}
