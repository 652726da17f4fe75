package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// 履歴の表示件数
const historyDisplayLimit = 10

var errAdminRequired = errors.New("このコマンドを実行するには管理者権限が必要です")

func (h *SlashCommandHandler) studio(req commandRequest) *application.Studio {
	return h.studios.Get(req.ChannelID, req.OwnerID())
}

func text(format string, args ...any) reply {
	return reply{Content: fmt.Sprintf(format, args...)}
}

// handleSetAPI は、/set-apiコマンドを処理します
func (h *SlashCommandHandler) handleSetAPI(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	if req.GuildID != "" && !req.IsAdmin {
		return reply{}, errAdminRequired
	}
	apiKey, ok := req.stringValue("api-key")
	if !ok {
		return text("❌ APIキーが指定されていません。"), nil
	}

	if err := h.credentials.SetCredential(ctx, req.OwnerID(), apiKey, req.UserName); err != nil {
		return reply{}, err
	}

	msg := fmt.Sprintf("✅ このサーバー用のGemini APIキーを設定しました。\n設定者: %s", req.UserName)
	if s, ok := h.studios.Lookup(req.ChannelID); ok {
		if run := s.Store.Snapshot().Run; run != nil && run.Phase == domain.RunAwaitingCredential {
			msg += fmt.Sprintf("\n\n一時停止中の撮影があります。/studio-redo number:%d でやり直せます。", run.ShotIndex(run.FailedShot)+1)
		}
	}
	return reply{Content: msg}, nil
}

// handleDelAPI は、/del-apiコマンドを処理します
func (h *SlashCommandHandler) handleDelAPI(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	if req.GuildID != "" && !req.IsAdmin {
		return reply{}, errAdminRequired
	}
	if err := h.credentials.DeleteCredential(ctx, req.OwnerID()); err != nil {
		return reply{}, err
	}
	return text("✅ このサーバー用のGemini APIキーを削除しました。\n今後はデフォルトのAPIキーを使用します。"), nil
}

// handleStatus は、/statusコマンドを処理します
func (h *SlashCommandHandler) handleStatus(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	has, err := h.credentials.HasCustomCredential(ctx, req.OwnerID())
	if err != nil {
		return reply{}, fmt.Errorf("設定状況の確認に失敗: %w", err)
	}
	var cred *domain.OwnerCredential
	if has {
		info, err := h.credentials.CredentialInfo(ctx, req.OwnerID())
		if err != nil {
			return reply{}, fmt.Errorf("設定情報の取得に失敗: %w", err)
		}
		cred = &info
	}
	return reply{Content: formatStatus(cred, h.studio(req).Store.Snapshot())}, nil
}

// handleImage は、/studio-imageコマンドを処理します
func (h *SlashCommandHandler) handleImage(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	value, _ := req.stringValue("collection")
	collection, err := domain.ParseImageCollection(value)
	if err != nil {
		return reply{}, err
	}
	s := h.studio(req)

	if a, ok := req.attachment("file"); ok {
		img, err := h.fetcher.Fetch(ctx, a)
		if err != nil {
			return reply{}, err
		}
		if err := s.Store.Dispatch(application.AddImage{Collection: collection, Image: img}); err != nil {
			return reply{}, err
		}
		st := s.Store.Snapshot()
		images := st.Images.Collection(collection)
		return text("✅ %sに %s を追加しました（%d枚目）。", collection.DisplayName(), img.Name, len(images)), nil
	}

	if n, ok := req.intValue("remove"); ok {
		st := s.Store.Snapshot()
		images := st.Images.Collection(collection)
		if n < 1 || n > len(images) {
			return reply{}, fmt.Errorf("画像番号 %d: %w", n, domain.ErrImageNotFound)
		}
		if err := s.Store.Dispatch(application.RemoveImage{Collection: collection, ImageID: images[n-1].ID}); err != nil {
			return reply{}, err
		}
		return text("🗑️ %sから %s を削除しました。", collection.DisplayName(), images[n-1].Name), nil
	}

	st := s.Store.Snapshot()
	return reply{Content: formatImages(collection, st.Images.Collection(collection))}, nil
}

// handleScene は、/studio-sceneコマンドを処理します
func (h *SlashCommandHandler) handleScene(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	var cmds []application.Command
	for _, f := range []struct {
		option string
		field  application.SceneField
	}{
		{"title", application.SceneTitle},
		{"location", application.SceneLocation},
		{"vibe", application.SceneVibe},
		{"brief", application.SceneBrief},
		{"negative", application.SceneNegative},
	} {
		if v, ok := req.stringValue(f.option); ok {
			cmds = append(cmds, application.SetSceneField{Field: f.field, Value: strings.TrimSpace(v)})
		}
	}
	if v, ok := req.boolValue("use-model"); ok {
		cmds = append(cmds, application.SetUseModel{UseModel: v})
	}
	if len(cmds) == 0 {
		return text("ℹ️ 変更する項目を1つ以上指定してください。"), nil
	}

	anchored := s.Store.Snapshot().Anchor() != nil
	for _, cmd := range cmds {
		if err := s.Store.Dispatch(cmd); err != nil {
			return reply{}, err
		}
	}
	msg := "✅ シーン設定を更新しました。"
	if anchored && s.Store.Snapshot().Anchor() == nil {
		msg += "\nロケーションが変わったため、アンカー画像を破棄しました。"
	}
	return reply{Content: msg}, nil
}

// handleQuality は、/studio-qualityコマンドを処理します
func (h *SlashCommandHandler) handleQuality(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	var lines []string

	if value, ok := req.stringValue("field"); ok {
		field, err := domain.ParseQualityField(value)
		if err != nil {
			return reply{}, err
		}
		level, ok := req.intValue("level")
		if !ok {
			return text("ℹ️ %s のレベルを指定してください。", field.DisplayName()), nil
		}
		if err := s.Store.Dispatch(application.SetQualityLevel{Field: field, Value: level}); err != nil {
			return reply{}, err
		}
		lines = append(lines, fmt.Sprintf("%s: %d", field.DisplayName(), s.Store.Snapshot().Quality.Level(field)))
	}

	for _, f := range []struct {
		option string
		field  application.HardwareField
	}{
		{"lens", application.HardwareLens},
		{"camera", application.HardwareCameraBody},
		{"lighting", application.HardwareLighting},
	} {
		if v, ok := req.stringValue(f.option); ok {
			if err := s.Store.Dispatch(application.SetHardware{Field: f.field, Value: strings.TrimSpace(v)}); err != nil {
				return reply{}, err
			}
			lines = append(lines, fmt.Sprintf("%s: %s", f.option, v))
		}
	}

	if value, ok := req.stringValue("resolution"); ok {
		r, err := domain.ParseResolution(value)
		if err != nil {
			return reply{}, err
		}
		if err := s.SetResolution(ctx, r); err != nil {
			return reply{}, err
		}
		lines = append(lines, fmt.Sprintf("解像度: %s", r.DisplayName()))
	}

	if len(lines) == 0 {
		return text("ℹ️ 変更する項目を1つ以上指定してください。"), nil
	}
	return text("✅ 品質設定を更新しました。\n%s", strings.Join(lines, "\n")), nil
}

// handleConsistency は、/studio-consistencyコマンドを処理します
func (h *SlashCommandHandler) handleConsistency(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	flags := s.Store.Snapshot().Consistency
	if v, ok := req.boolValue("background"); ok {
		flags.Background = v
	}
	if v, ok := req.boolValue("model"); ok {
		flags.Model = v
	}
	if v, ok := req.boolValue("product-details"); ok {
		flags.ProductDetails = v
	}
	if err := s.Store.Dispatch(application.SetConsistency{Flags: flags}); err != nil {
		return reply{}, err
	}
	return text("✅ 一貫性の設定を更新しました。\n背景: %s / モデル: %s / 商品ディテール: %s",
		onOff(flags.Background), onOff(flags.Model), onOff(flags.ProductDetails)), nil
}

func onOff(v bool) string {
	if v {
		return "固定"
	}
	return "自由"
}

// handleAspect は、/studio-aspectコマンドを処理します
func (h *SlashCommandHandler) handleAspect(_ context.Context, req commandRequest, _ replier) (reply, error) {
	value, _ := req.stringValue("ratio")
	ratio, err := domain.ParseAspectRatio(value)
	if err != nil {
		return reply{}, err
	}
	if err := h.studio(req).Store.Dispatch(application.SetAspectRatio{Ratio: ratio}); err != nil {
		return reply{}, err
	}
	return text("✅ 縦横比を %s に変更しました。", ratio.DisplayName()), nil
}

// handleShotAdd は、/studio-shot-addコマンドを処理します
func (h *SlashCommandHandler) handleShotAdd(_ context.Context, req commandRequest, _ replier) (reply, error) {
	pose, _ := req.stringValue("pose")
	if strings.TrimSpace(pose) == "" {
		return text("❌ ポーズが指定されていません。"), nil
	}

	shotType := domain.ShotTypeMid
	if v, ok := req.stringValue("type"); ok {
		t, err := domain.ParseShotType(v)
		if err != nil {
			return reply{}, err
		}
		shotType = t
	}
	angle := domain.CameraAngleEyeLevel
	if v, ok := req.stringValue("angle"); ok {
		a, err := domain.ParseCameraAngle(v)
		if err != nil {
			return reply{}, err
		}
		angle = a
	}

	shot := domain.NewShotSpec(pose, shotType, angle)
	shot.SceneArea, _ = req.stringValue("area")
	shot.CreativeOverride, _ = req.stringValue("override")

	s := h.studio(req)
	if err := s.Store.Dispatch(application.AddShot{Shot: shot}); err != nil {
		return reply{}, err
	}
	return text("✅ ショット %d を追加しました: %s", len(s.Store.Snapshot().Shots), shot.Pose), nil
}

// handleShotRemove は、/studio-shot-removeコマンドを処理します
func (h *SlashCommandHandler) handleShotRemove(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	n, _ := req.intValue("number")
	shot, err := s.ShotByIndex(n)
	if err != nil {
		return reply{}, err
	}
	if err := s.Store.Dispatch(application.RemoveShot{ShotID: shot.ID}); err != nil {
		return reply{}, err
	}
	return text("🗑️ ショット %d を削除しました: %s", n, shot.Pose), nil
}

// handleShotDuplicate は、/studio-shot-duplicateコマンドを処理します
func (h *SlashCommandHandler) handleShotDuplicate(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	n, _ := req.intValue("number")
	shot, err := s.ShotByIndex(n)
	if err != nil {
		return reply{}, err
	}
	if err := s.Store.Dispatch(application.DuplicateShot{ShotID: shot.ID}); err != nil {
		return reply{}, err
	}
	return text("✅ ショット %d を複製しました（ショット %d）。", n, n+1), nil
}

// handleShots は、/studio-shotsコマンドを処理します
func (h *SlashCommandHandler) handleShots(_ context.Context, req commandRequest, _ replier) (reply, error) {
	return reply{Content: formatShots(h.studio(req).Store.Snapshot())}, nil
}

// handleAnalyze は、/studio-analyzeコマンドを処理します
func (h *SlashCommandHandler) handleAnalyze(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	result, err := h.studio(req).Analysis.Analyze(ctx)
	if err != nil {
		return reply{}, err
	}
	return reply{Content: formatAnalysis(result)}, nil
}

// handleAcceptEnvironment は、/studio-accept-envコマンドを処理します
func (h *SlashCommandHandler) handleAcceptEnvironment(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	n, _ := req.intValue("number")
	if d, ok := req.stringValue("directive"); ok {
		if err := s.Store.Dispatch(application.EditEnvironmentSuggestion{Index: n - 1, BackgroundDirective: strings.TrimSpace(d)}); err != nil {
			return reply{}, err
		}
	}
	if err := s.Store.Dispatch(application.AcceptEnvironment{Index: n - 1}); err != nil {
		return reply{}, err
	}
	return text("✅ 環境 %d をシーンに反映しました: %s", n, s.Store.Snapshot().Scene.Location), nil
}

// handleAcceptPose は、/studio-accept-poseコマンドを処理します
func (h *SlashCommandHandler) handleAcceptPose(_ context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	n, _ := req.intValue("number")
	if d, ok := req.stringValue("directive"); ok {
		if err := s.Store.Dispatch(application.EditPoseSuggestion{Index: n - 1, Directive: strings.TrimSpace(d)}); err != nil {
			return reply{}, err
		}
	}
	if err := s.Store.Dispatch(application.AcceptPose{Index: n - 1}); err != nil {
		return reply{}, err
	}
	st := s.Store.Snapshot()
	return text("✅ ポーズ %d をショット %d として追加しました: %s", n, len(st.Shots), st.Shots[len(st.Shots)-1].Pose), nil
}

// handleRun は、/studio-runコマンドを処理します
// 結果は生成された順に1枚ずつ送信します
func (h *SlashCommandHandler) handleRun(ctx context.Context, req commandRequest, out replier) (reply, error) {
	s := h.studio(req)
	st := s.Store.Snapshot()
	total := len(st.Shots)
	title := st.Scene.DisplayTitle()

	if st.Run != nil && st.Run.Phase.IsRunning() {
		return reply{}, domain.ErrBatchInProgress
	}
	if err := st.Images.Validate(); err != nil {
		return reply{}, err
	}
	if total == 0 {
		return reply{}, domain.ErrNoShots
	}
	prevRunID := ""
	if st.Run != nil {
		prevRunID = st.Run.ID
	}

	if err := out.Reply(text("🎬 **撮影を開始しました**（%d ショット）\n/studio-cancel でキャンセルできます。", total)); err != nil {
		h.logger.Warn().Err(err).Msg("開始メッセージの送信に失敗しました")
	}

	n := 0
	var runErr error
	for res, err := range s.Orchestrator.Run(ctx) {
		if err != nil {
			runErr = err
			break
		}
		n++
		if err := out.Send(reply{
			Content: fmt.Sprintf("📸 ショット %d/%d", n, total),
			Files:   []*discordgo.File{imageFile(title, n, res)},
		}); err != nil {
			h.logger.Warn().Err(err).Str("shot", res.ShotID).Msg("生成結果の送信に失敗しました")
		}
	}

	run := s.Store.Snapshot().Run
	if runErr != nil && (run == nil || run.ID == prevRunID) {
		// 実行記録が作られる前に拒否された
		return reply{}, runErr
	}
	return reply{Content: formatRunOutcome(run, runErr)}, nil
}

// handleRedo は、/studio-redoコマンドを処理します
func (h *SlashCommandHandler) handleRedo(ctx context.Context, req commandRequest, _ replier) (reply, error) {
	s := h.studio(req)
	n, _ := req.intValue("number")
	shot, err := s.RunShotByIndex(n)
	if err != nil {
		return reply{}, err
	}

	if pose, ok := req.stringValue("pose"); ok && strings.TrimSpace(pose) != "" {
		edited := shot
		if current, err := s.ShotByID(shot.ID); err == nil {
			edited = current
		}
		edited.Pose = strings.TrimSpace(pose)
		if err := s.Store.Dispatch(application.UpdateShot{Shot: edited}); err != nil {
			return reply{}, fmt.Errorf("ショットの更新に失敗: %w", err)
		}
	}

	res, err := s.Orchestrator.Redo(ctx, shot.ID)
	if err != nil {
		return reply{}, err
	}
	title := s.Store.Snapshot().Scene.DisplayTitle()
	return reply{
		Content: fmt.Sprintf("🔁 ショット %d をやり直しました。", n),
		Files:   []*discordgo.File{imageFile(title, n, res)},
	}, nil
}

// handleCancel は、/studio-cancelコマンドを処理します
func (h *SlashCommandHandler) handleCancel(_ context.Context, req commandRequest, _ replier) (reply, error) {
	if !h.studio(req).Orchestrator.Cancel() {
		return text("ℹ️ 実行中の撮影はありません。"), nil
	}
	return text("⏹️ 撮影をキャンセルしました。生成中のショットも中断します。"), nil
}

// handleReset は、/studio-resetコマンドを処理します
func (h *SlashCommandHandler) handleReset(_ context.Context, req commandRequest, _ replier) (reply, error) {
	if err := h.studio(req).Store.Dispatch(application.Reset{}); err != nil {
		return reply{}, err
	}
	return text("🧹 スタジオを初期状態に戻しました。"), nil
}

// handleHistory は、/studio-historyコマンドを処理します
func (h *SlashCommandHandler) handleHistory(ctx context.Context, _ commandRequest, _ replier) (reply, error) {
	entries, err := h.history.List(ctx)
	if err != nil {
		return reply{}, err
	}
	return reply{Content: formatHistory(entries, historyDisplayLimit)}, nil
}
