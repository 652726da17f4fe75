package discord

import (
	"context"
	"fmt"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// AttachmentFetcher は、Discordの添付ファイルを参照画像として取り込みます
type AttachmentFetcher interface {
	Fetch(ctx context.Context, a *discordgo.MessageAttachment) (domain.ReferenceImage, error)
}

// SlashCommandHandler は、Discordのスラッシュコマンドを処理するハンドラーです
type SlashCommandHandler struct {
	session     *discordgo.Session
	credentials *application.CredentialService
	studios     *application.StudioRegistry
	history     *application.HistoryService
	fetcher     AttachmentFetcher
	logger      zerolog.Logger
}

// NewSlashCommandHandler は新しいSlashCommandHandlerインスタンスを作成します
func NewSlashCommandHandler(
	session *discordgo.Session,
	credentials *application.CredentialService,
	studios *application.StudioRegistry,
	history *application.HistoryService,
	fetcher AttachmentFetcher,
	logger zerolog.Logger,
) *SlashCommandHandler {
	return &SlashCommandHandler{
		session:     session,
		credentials: credentials,
		studios:     studios,
		history:     history,
		fetcher:     fetcher,
		logger:      logger.With().Str("component", "discord").Logger(),
	}
}

// 設定系のコマンドは本人にだけ表示します
var ephemeralCommands = map[string]bool{
	"set-api": true,
	"del-api": true,
	"status":  true,
}

func choices[T interface {
	String() string
	DisplayName() string
}](values []T) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: v.DisplayName(), Value: v.String()})
	}
	return out
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func intOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func boolOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        name,
		Description: description,
	}
}

func choiceOption(name, description string, required bool, c []*discordgo.ApplicationCommandOptionChoice) *discordgo.ApplicationCommandOption {
	opt := stringOption(name, description, required)
	opt.Choices = c
	return opt
}

// Commands は、登録するスラッシュコマンドの定義を返します
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "set-api",
			Description: "このサーバー用のGemini APIキーを設定します",
			Options:     []*discordgo.ApplicationCommandOption{stringOption("api-key", "Gemini APIキー", true)},
		},
		{
			Name:        "del-api",
			Description: "このサーバー用のGemini APIキーを削除します",
		},
		{
			Name:        "status",
			Description: "APIキーの設定状況とスタジオの状態を表示します",
		},
		{
			Name:        "studio-image",
			Description: "参照画像を追加・削除・一覧表示します",
			Options: []*discordgo.ApplicationCommandOption{
				choiceOption("collection", "画像の種類", true, choices(domain.AllImageCollections())),
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "file",
					Description: "追加する画像",
				},
				intOption("remove", "削除する画像の番号", false),
			},
		},
		{
			Name:        "studio-scene",
			Description: "シーン設定を変更します",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("title", "撮影タイトル", false),
				stringOption("location", "ロケーション", false),
				stringOption("vibe", "雰囲気", false),
				stringOption("brief", "全体の指示", false),
				stringOption("negative", "避けたい要素", false),
				boolOption("use-model", "モデルを起用する"),
			},
		},
		{
			Name:        "studio-quality",
			Description: "品質レベルと撮影機材を変更します",
			Options: []*discordgo.ApplicationCommandOption{
				choiceOption("field", "品質項目", false, choices(domain.AllQualityFields())),
				intOption("level", "レベル（範囲外の値は丸められます）", false),
				stringOption("lens", "レンズ", false),
				stringOption("camera", "カメラボディ", false),
				stringOption("lighting", "ライティング", false),
				choiceOption("resolution", "出力解像度", false, choices(domain.AllResolutions())),
			},
		},
		{
			Name:        "studio-consistency",
			Description: "一貫性の固定指示を切り替えます",
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("background", "背景を固定する"),
				boolOption("model", "モデルを固定する"),
				boolOption("product-details", "商品のディテールを固定する"),
			},
		},
		{
			Name:        "studio-aspect",
			Description: "出力画像の縦横比を変更します",
			Options: []*discordgo.ApplicationCommandOption{
				choiceOption("ratio", "縦横比", true, choices(domain.AllAspectRatios())),
			},
		},
		{
			Name:        "studio-shot-add",
			Description: "ショットを追加します",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("pose", "ポーズ", true),
				choiceOption("type", "ショット種別", false, choices(domain.AllShotTypes())),
				choiceOption("angle", "カメラアングル", false, choices(domain.AllCameraAngles())),
				stringOption("area", "シーン内の場所", false),
				stringOption("override", "このショットだけの追加指示", false),
			},
		},
		{
			Name:        "studio-shot-remove",
			Description: "ショットを削除します",
			Options:     []*discordgo.ApplicationCommandOption{intOption("number", "ショット番号", true)},
		},
		{
			Name:        "studio-shot-duplicate",
			Description: "ショットを複製します",
			Options:     []*discordgo.ApplicationCommandOption{intOption("number", "ショット番号", true)},
		},
		{
			Name:        "studio-shots",
			Description: "ショット一覧を表示します",
		},
		{
			Name:        "studio-analyze",
			Description: "商品画像を解析して環境とポーズを提案します",
		},
		{
			Name:        "studio-accept-env",
			Description: "提案された環境をシーンに反映します",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("number", "環境の番号", true),
				stringOption("directive", "採用前に背景の指示を書き換える", false),
			},
		},
		{
			Name:        "studio-accept-pose",
			Description: "提案されたポーズをショットに追加します",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("number", "ポーズの番号", true),
				stringOption("directive", "採用前にポーズの指示を書き換える", false),
			},
		},
		{
			Name:        "studio-run",
			Description: "すべてのショットを順番に撮影します",
		},
		{
			Name:        "studio-redo",
			Description: "直近の撮影の1ショットだけをやり直します",
			Options: []*discordgo.ApplicationCommandOption{
				intOption("number", "ショット番号", true),
				stringOption("pose", "ポーズを書き換えてからやり直す", false),
			},
		},
		{
			Name:        "studio-cancel",
			Description: "実行中の撮影をキャンセルします",
		},
		{
			Name:        "studio-reset",
			Description: "スタジオを初期状態に戻します",
		},
		{
			Name:        "studio-history",
			Description: "撮影履歴を表示します",
		},
	}
}

// commandFunc は、1つのコマンドの処理です
// 途中経過はoutに送信し、最終的な応答を返します
type commandFunc func(ctx context.Context, req commandRequest, out replier) (reply, error)

func (h *SlashCommandHandler) handlers() map[string]commandFunc {
	return map[string]commandFunc{
		"set-api":               h.handleSetAPI,
		"del-api":               h.handleDelAPI,
		"status":                h.handleStatus,
		"studio-image":          h.handleImage,
		"studio-scene":          h.handleScene,
		"studio-quality":        h.handleQuality,
		"studio-consistency":    h.handleConsistency,
		"studio-aspect":         h.handleAspect,
		"studio-shot-add":       h.handleShotAdd,
		"studio-shot-remove":    h.handleShotRemove,
		"studio-shot-duplicate": h.handleShotDuplicate,
		"studio-shots":          h.handleShots,
		"studio-analyze":        h.handleAnalyze,
		"studio-accept-env":     h.handleAcceptEnvironment,
		"studio-accept-pose":    h.handleAcceptPose,
		"studio-run":            h.handleRun,
		"studio-redo":           h.handleRedo,
		"studio-cancel":         h.handleCancel,
		"studio-reset":          h.handleReset,
		"studio-history":        h.handleHistory,
	}
}

// SetupSlashCommands は、スラッシュコマンドを設定します
func (h *SlashCommandHandler) SetupSlashCommands() error {
	// BotのユーザーIDを取得
	user, err := h.session.User("@me")
	if err != nil {
		return fmt.Errorf("Botユーザー情報の取得に失敗: %w", err)
	}

	// グローバルコマンドとして登録
	for _, command := range Commands() {
		if _, err := h.session.ApplicationCommandCreate(user.ID, "", command); err != nil {
			h.logger.Error().Err(err).Str("command", command.Name).Msg("スラッシュコマンドの登録に失敗しました")
			return err
		}
		h.logger.Info().Str("command", command.Name).Msg("スラッシュコマンドを登録しました")
	}
	return nil
}

// SetupSlashCommandHandlers は、スラッシュコマンドのハンドラーを設定します
func (h *SlashCommandHandler) SetupSlashCommandHandlers() {
	h.session.AddHandler(h.handleInteractionCreate)
}

// handleInteractionCreate は、インタラクション作成イベントを処理します
// 生成に時間がかかるため、先に応答を保留してから処理結果で応答を書き換えます
func (h *SlashCommandHandler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	req := newCommandRequest(i)
	var flags discordgo.MessageFlags
	if ephemeralCommands[req.Name] {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		h.logger.Error().Err(err).Str("command", req.Name).Msg("インタラクションへの応答に失敗しました")
		return
	}

	h.execute(context.Background(), req, newInteractionReplier(s, i.Interaction, h.logger))
}

// execute は、コマンドを実行して応答を送信します
func (h *SlashCommandHandler) execute(ctx context.Context, req commandRequest, out replier) {
	log := h.logger.With().Str("command", req.Name).Str("channel", req.ChannelID).Logger()
	once := &onceReplier{replier: out}

	fn, ok := h.handlers()[req.Name]
	if !ok {
		log.Warn().Msg("未知のスラッシュコマンドです")
		once.Reply(reply{Content: "❌ 未知のコマンドです。"})
		return
	}

	r, err := fn(ctx, req, once)
	if err != nil {
		log.Warn().Err(err).Msg("コマンドの実行に失敗しました")
		r = reply{Content: formatError(err)}
	}
	if err := once.Reply(r); err != nil {
		log.Error().Err(err).Msg("応答の送信に失敗しました")
	}
}

// commandRequest は、インタラクションから取り出したコマンドの入力です
type commandRequest struct {
	Name        string
	GuildID     string
	ChannelID   string
	UserID      string
	UserName    string
	IsAdmin     bool
	Options     map[string]*discordgo.ApplicationCommandInteractionDataOption
	Attachments map[string]*discordgo.MessageAttachment
}

func newCommandRequest(i *discordgo.InteractionCreate) commandRequest {
	data := i.ApplicationCommandData()
	req := commandRequest{
		Name:      data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		IsAdmin:   hasAdminPermission(i.Member),
		Options:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
	}
	for _, o := range data.Options {
		req.Options[o.Name] = o
	}
	if data.Resolved != nil {
		req.Attachments = data.Resolved.Attachments
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
		req.UserName = i.Member.User.Username
	case i.User != nil:
		req.UserID = i.User.ID
		req.UserName = i.User.Username
	}
	return req
}

// OwnerID は、APIキーの所有者を返します。DMではユーザー単位になります
func (r commandRequest) OwnerID() string {
	if r.GuildID != "" {
		return r.GuildID
	}
	return "dm:" + r.UserID
}

func (r commandRequest) stringValue(name string) (string, bool) {
	o, ok := r.Options[name]
	if !ok {
		return "", false
	}
	v, ok := o.Value.(string)
	return v, ok
}

func (r commandRequest) intValue(name string) (int, bool) {
	o, ok := r.Options[name]
	if !ok {
		return 0, false
	}
	switch v := o.Value.(type) {
	case float64:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func (r commandRequest) boolValue(name string) (bool, bool) {
	o, ok := r.Options[name]
	if !ok {
		return false, false
	}
	v, ok := o.Value.(bool)
	return v, ok
}

func (r commandRequest) attachment(name string) (*discordgo.MessageAttachment, bool) {
	id, ok := r.stringValue(name)
	if !ok {
		return nil, false
	}
	a, ok := r.Attachments[id]
	return a, ok && a != nil
}

// hasAdminPermission は、メンバーが管理者権限を持っているかをチェックします
func hasAdminPermission(member *discordgo.Member) bool {
	if member == nil {
		return false
	}

	// 管理者権限をチェック（Permissionsはint64のビットフラグ）
	return member.Permissions&discordgo.PermissionAdministrator != 0
}
