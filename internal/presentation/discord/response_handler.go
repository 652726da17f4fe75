package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// reply は、1回分の応答です
type reply struct {
	Content string
	Files   []*discordgo.File
}

// replier は、コマンドへの応答の送信先です
type replier interface {
	// Reply は、保留中の応答を書き換えます
	Reply(r reply) error
	// Send は、同じチャンネルに追加のメッセージを送信します
	Send(r reply) error
}

// onceReplier は、2回目以降のReplyを追加メッセージとして送信します
type onceReplier struct {
	replier
	replied bool
}

func (o *onceReplier) Reply(r reply) error {
	if o.replied {
		return o.replier.Send(r)
	}
	o.replied = true
	return o.replier.Reply(r)
}

// interactionReplier は、Discordのインタラクションに応答します
type interactionReplier struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	logger      zerolog.Logger
}

func newInteractionReplier(s *discordgo.Session, i *discordgo.Interaction, logger zerolog.Logger) *interactionReplier {
	return &interactionReplier{session: s, interaction: i, logger: logger}
}

func (r *interactionReplier) Reply(rep reply) error {
	content := truncateMessage(rep.Content)
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
		Files:   rep.Files,
	})
	if err != nil {
		return fmt.Errorf("応答の書き換えに失敗: %w", err)
	}
	return nil
}

func (r *interactionReplier) Send(rep reply) error {
	_, err := r.session.ChannelMessageSendComplex(r.interaction.ChannelID, &discordgo.MessageSend{
		Content: truncateMessage(rep.Content),
		Files:   rep.Files,
	})
	if err != nil {
		return fmt.Errorf("メッセージの送信に失敗: %w", err)
	}
	r.logger.Debug().Int("files", len(rep.Files)).Msg("メッセージを送信しました")
	return nil
}

// truncateMessage は、Discordの文字数制限に収まるように末尾を切り詰めます
func truncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= DiscordMessageLimit {
		return s
	}
	const suffix = "\n…（省略されました）"
	limit := DiscordMessageLimit - utf8.RuneCountInString(suffix)
	runes := []rune(s)
	return string(runes[:limit]) + suffix
}

// imageFile は、生成結果をアップロード用のファイルに変換します
func imageFile(title string, index int, res domain.GenerationResult) *discordgo.File {
	return &discordgo.File{
		Name:        domain.ExportFileName(title, index, res.ShotID, res.Image.Extension()),
		ContentType: res.Image.MIMEType,
		Reader:      bytes.NewReader(res.Image.Data),
	}
}

// formatError は、エラーを利用者向けのメッセージにフォーマットします
func formatError(err error) string {
	switch {
	case errors.Is(err, errAdminRequired):
		return "❌ このコマンドを実行するには管理者権限が必要です。"
	case errors.Is(err, domain.ErrInvalidCredential):
		return "🔑 **APIキーが無効です**\n/set-api で有効なAPIキーを設定し直してください。"
	case errors.Is(err, domain.ErrCredentialNotFound):
		return "🔑 **APIキーが設定されていません**\n/set-api でAPIキーを設定してください。"
	case errors.Is(err, domain.ErrBatchInProgress):
		return "⏳ **撮影中です**\n完了を待つか、/studio-cancel でキャンセルしてから再度お試しください。"
	case errors.Is(err, domain.ErrResolutionRequiresCredential):
		return "🔒 **この解像度にはサーバー専用のAPIキーが必要です**\n/set-api でAPIキーを設定してから選択してください。"
	case errors.Is(err, domain.ErrNoImageReturned):
		return "🚫 **画像が返されませんでした**\n安全フィルターによりブロックされた可能性があります。ポーズや指示を変えてお試しください。"
	case errors.Is(err, context.DeadlineExceeded):
		return "⏰ **タイムアウトしました**\n\n処理に時間がかかりすぎました。以下の対処法をお試しください：\n\n" +
			"- 参照画像の枚数を減らしてみる\n" +
			"- 解像度を下げてみる\n" +
			"- しばらく待ってから再度お試しください"
	case errors.Is(err, application.ErrRunCancelled):
		return "⏹️ **撮影をキャンセルしました**"
	case errors.Is(err, domain.ErrMissingProductImage),
		errors.Is(err, domain.ErrMissingReferenceImage),
		errors.Is(err, domain.ErrNoShots),
		errors.Is(err, domain.ErrShotNotFound),
		errors.Is(err, domain.ErrImageNotFound),
		errors.Is(err, domain.ErrSuggestionNotFound),
		errors.Is(err, domain.ErrNoAnalysis),
		errors.Is(err, domain.ErrNoRun),
		errors.Is(err, domain.ErrInvalidOption):
		return fmt.Sprintf("⚠️ **入力を確認してください**\n%s", err.Error())
	default:
		return fmt.Sprintf("❌ **エラーが発生しました**\n%s", err.Error())
	}
}

// formatRunOutcome は、バッチ実行の最終状態をメッセージにフォーマットします
func formatRunOutcome(run *domain.RunRecord, err error) string {
	if run == nil {
		if err != nil {
			return formatError(err)
		}
		return "⚠️ 実行記録がありません。"
	}

	done := len(run.Results)
	total := len(run.Shots)
	failedNo := run.ShotIndex(run.FailedShot) + 1

	switch run.Phase {
	case domain.RunCompleted:
		msg := fmt.Sprintf("✅ **撮影が完了しました**（%d/%d 枚）", done, total)
		if err != nil {
			msg += "\n" + formatError(err)
		}
		return msg
	case domain.RunAwaitingCredential:
		return fmt.Sprintf("🔑 **APIキーの問題で撮影を一時停止しました**（ショット %d）\n\n"+
			"生成済みの %d 枚とアンカー画像は保持されています。\n"+
			"/set-api で有効なAPIキーを設定してから、/studio-redo number:%d でショット %d 以降を1枚ずつやり直してください。",
			failedNo, done, failedNo, failedNo)
	case domain.RunCancelled:
		return fmt.Sprintf("⏹️ **撮影をキャンセルしました**（%d/%d 枚）", done, total)
	case domain.RunFailed:
		reason := "不明なエラー"
		if err != nil {
			reason = err.Error()
		}
		return fmt.Sprintf("❌ **ショット %d の生成に失敗したため撮影を中断しました**\n%s\n\n生成済みの %d 枚は保持されています。",
			failedNo, reason, done)
	default:
		return fmt.Sprintf("ℹ️ 撮影状態: %s（%d/%d 枚）", run.Phase.DisplayName(), done, total)
	}
}

// formatShots は、ショット一覧をフォーマットします
func formatShots(st application.StudioState) string {
	if len(st.Shots) == 0 {
		return "📋 ショットはまだありません。/studio-shot-add で追加してください。"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **ショット一覧**（%d件）\n", len(st.Shots))
	for i, shot := range st.Shots {
		mark := "▫️"
		if st.Run != nil {
			if _, ok := st.Run.Result(shot.ID); ok {
				mark = "✅"
			}
		}
		fmt.Fprintf(&b, "%s %d. [%s / %s] %s", mark, i+1, shot.ShotType.DisplayName(), shot.Angle.DisplayName(), shot.Pose)
		if shot.SceneArea != "" {
			fmt.Fprintf(&b, "（%s）", shot.SceneArea)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatImages は、コレクションの画像一覧をフォーマットします
func formatImages(c domain.ImageCollection, images []domain.ReferenceImage) string {
	if len(images) == 0 {
		return fmt.Sprintf("🖼️ %sはまだありません。", c.DisplayName())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🖼️ **%s**（%d枚）\n", c.DisplayName(), len(images))
	for i, img := range images {
		fmt.Fprintf(&b, "%d. %s\n", i+1, img.Name)
	}
	return b.String()
}

// formatAnalysis は、解析結果と提案をフォーマットします
func formatAnalysis(a *domain.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 **解析結果**: %s\n", a.Category)
	if a.RecommendedMood != "" {
		fmt.Fprintf(&b, "🎨 ムード: %s\n", a.RecommendedMood)
	}
	if a.RecommendedLighting != "" {
		fmt.Fprintf(&b, "💡 ライティング: %s\n", a.RecommendedLighting)
	}
	if m := a.Attributes.Material; m != "" {
		fmt.Fprintf(&b, "🧵 素材: %s\n", m)
	}

	if len(a.Environments) > 0 {
		b.WriteString("\n**環境の提案**\n")
		for i, env := range a.Environments {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, env.Name, env.Description)
		}
	}
	if len(a.Poses) > 0 {
		b.WriteString("\n**ポーズの提案**\n")
		for i, p := range a.Poses {
			fmt.Fprintf(&b, "%d. %s（%s）: %s\n", i+1, p.Name, p.RecommendedShotType, p.Directive)
		}
	}
	b.WriteString("\n/studio-accept-env で環境を、/studio-accept-pose でポーズを採用できます。")
	return b.String()
}

// formatStatus は、APIキーの設定状況とスタジオの状態をフォーマットします
func formatStatus(cred *domain.OwnerCredential, st application.StudioState) string {
	var b strings.Builder
	b.WriteString("📊 **スタジオの状態**\n\n")

	if cred != nil {
		fmt.Fprintf(&b, "✅ **APIキー**: 設定済み（%s）\n👤 **設定者**: %s\n📅 **設定日**: %s\n",
			cred.APIKey, cred.SetBy, cred.SetAt.Format("2006年1月2日 15:04"))
	} else {
		b.WriteString("❌ **APIキー**: 未設定（デフォルトを使用）\n")
	}

	fmt.Fprintf(&b, "🖼️ **画像**: ")
	for i, c := range domain.AllImageCollections() {
		if i > 0 {
			b.WriteString(" / ")
		}
		fmt.Fprintf(&b, "%s %d", c.DisplayName(), len(st.Images.Collection(c)))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "🎬 **シーン**: %s", st.Scene.DisplayTitle())
	if st.Scene.Location != "" {
		fmt.Fprintf(&b, "（%s）", st.Scene.Location)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "📐 **縦横比**: %s / **解像度**: %s\n", st.AspectRatio.DisplayName(), st.Quality.Resolution.DisplayName())
	fmt.Fprintf(&b, "📸 **ショット**: %d件\n", len(st.Shots))

	if st.Run != nil {
		fmt.Fprintf(&b, "▶️ **撮影状態**: %s（%d/%d 枚）\n", st.Run.Phase.DisplayName(), len(st.Run.Results), len(st.Run.Shots))
	} else {
		b.WriteString("▶️ **撮影状態**: 未実行\n")
	}
	return b.String()
}

// formatHistory は、撮影履歴をフォーマットします
func formatHistory(entries []domain.ProjectHistoryEntry, limit int) string {
	if len(entries) == 0 {
		return "🗂️ 撮影履歴はまだありません。"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗂️ **撮影履歴**（%d件）\n", len(entries))
	for i, e := range entries {
		if i >= limit {
			fmt.Fprintf(&b, "…ほか %d 件\n", len(entries)-limit)
			break
		}
		fmt.Fprintf(&b, "%d. %s（%s）\n", i+1, e.Title, e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return b.String()
}
