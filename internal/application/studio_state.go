package application

import (
	"fmt"
	"sync"
	"time"

	"studiobot/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StudioState は、1つのスタジオが保持する状態全体です
type StudioState struct {
	Images      domain.ImageSet
	Shots       []domain.ShotSpec
	Quality     domain.QualityConfig
	Consistency domain.ConsistencyFlags
	Scene       domain.SceneContext
	AspectRatio domain.AspectRatio
	Analysis    *domain.AnalysisResult
	Run         *domain.RunRecord
}

// DefaultStudioState は、初期状態を返します
func DefaultStudioState() StudioState {
	return StudioState{
		Quality:     domain.DefaultQualityConfig(),
		Consistency: domain.DefaultConsistencyFlags(),
		AspectRatio: domain.AspectRatioPortrait34,
	}
}

// Clone は、状態の複製を返します（画像データ自体は共有します）
func (s StudioState) Clone() StudioState {
	c := s
	c.Images = s.Images.Clone()
	c.Shots = append([]domain.ShotSpec(nil), s.Shots...)
	c.Analysis = s.Analysis.Clone()
	c.Run = s.Run.Clone()
	return c
}

// Anchor は、現在の実行記録のアンカーを返します
func (s StudioState) Anchor() *domain.StyleAnchor {
	if s.Run == nil {
		return nil
	}
	return s.Run.Anchor
}

func (s *StudioState) shotIndex(id string) int {
	for i, shot := range s.Shots {
		if shot.ID == id {
			return i
		}
	}
	return -1
}

// clearAnchor は、アンカーを破棄します。実行中は終了時まで破棄を保留します
func (s *StudioState) clearAnchor() {
	if s.Run != nil {
		s.Run.InvalidateAnchor()
	}
}

// SceneField は、シーン設定の入力項目を表します
type SceneField int

const (
	SceneTitle SceneField = iota
	SceneLocation
	SceneVibe
	SceneBrief
	SceneNegative
)

// HardwareField は、撮影機材の入力項目を表します
type HardwareField int

const (
	HardwareLens HardwareField = iota
	HardwareCameraBody
	HardwareLighting
)

// Command は、StudioStoreへの状態変更要求です
type Command interface {
	commandName() string
}

// AddImage は、画像をコレクションに追加します
type AddImage struct {
	Collection domain.ImageCollection
	Image      domain.ReferenceImage
}

// RemoveImage は、画像をコレクションから削除します
type RemoveImage struct {
	Collection domain.ImageCollection
	ImageID    string
}

// SetSceneField は、シーン設定の1項目を変更します
// ロケーションの変更はアンカーを破棄します
type SetSceneField struct {
	Field SceneField
	Value string
}

// SetUseModel は、モデルを起用するかどうかを変更します
type SetUseModel struct {
	UseModel bool
}

// SetQualityLevel は、品質レベルを範囲内に丸めて設定します
type SetQualityLevel struct {
	Field domain.QualityField
	Value int
}

// SetHardware は、撮影機材の1項目を変更します
type SetHardware struct {
	Field HardwareField
	Value string
}

// SetResolution は、出力解像度を変更します
// 標準より高い解像度は、専用の認証情報が確認済みの場合のみ受け付けます
type SetResolution struct {
	Resolution    domain.Resolution
	HasCredential bool
}

// SetAspectRatio は、縦横比を変更します
type SetAspectRatio struct {
	Ratio domain.AspectRatio
}

// SetConsistency は、一貫性フラグを変更します
type SetConsistency struct {
	Flags domain.ConsistencyFlags
}

// AddShot は、ショットを末尾に追加します
type AddShot struct {
	Shot domain.ShotSpec
}

// UpdateShot は、同じIDのショットを置き換えます
type UpdateShot struct {
	Shot domain.ShotSpec
}

// RemoveShot は、ショットを削除します
type RemoveShot struct {
	ShotID string
}

// DuplicateShot は、ショットの複製を直後に挿入します
type DuplicateShot struct {
	ShotID string
	NewID  string
}

// SetAnalysis は、解析結果を丸ごと置き換えます
type SetAnalysis struct {
	Result *domain.AnalysisResult
}

// EditPoseSuggestion は、採用前の提案ポーズの指示文を編集します
type EditPoseSuggestion struct {
	Index     int
	Directive string
}

// EditEnvironmentSuggestion は、採用前の提案環境の背景指示を編集します
type EditEnvironmentSuggestion struct {
	Index               int
	BackgroundDirective string
}

// AcceptEnvironment は、提案環境をシーンに反映します
type AcceptEnvironment struct {
	Index int
}

// AcceptPose は、提案ポーズから新しいショットを作成します
type AcceptPose struct {
	Index int
}

// Reset は、スタジオを初期状態に戻します
type Reset struct{}

// 実行記録を操作するコマンドはオーケストレーターからのみ発行されます
type beginRun struct {
	now   time.Time
	frame *runFrame
}

type recordResult struct {
	runID  string
	result domain.GenerationResult
}

type finishRun struct {
	runID  string
	phase  domain.RunPhase
	shotID string
	err    error
	now    time.Time
}

type replaceResult struct {
	runID  string
	result domain.GenerationResult
}

func (AddImage) commandName() string                  { return "add-image" }
func (RemoveImage) commandName() string               { return "remove-image" }
func (SetSceneField) commandName() string             { return "set-scene-field" }
func (SetUseModel) commandName() string               { return "set-use-model" }
func (SetQualityLevel) commandName() string           { return "set-quality-level" }
func (SetHardware) commandName() string               { return "set-hardware" }
func (SetResolution) commandName() string             { return "set-resolution" }
func (SetAspectRatio) commandName() string            { return "set-aspect-ratio" }
func (SetConsistency) commandName() string            { return "set-consistency" }
func (AddShot) commandName() string                   { return "add-shot" }
func (UpdateShot) commandName() string                { return "update-shot" }
func (RemoveShot) commandName() string                { return "remove-shot" }
func (DuplicateShot) commandName() string             { return "duplicate-shot" }
func (SetAnalysis) commandName() string               { return "set-analysis" }
func (EditPoseSuggestion) commandName() string        { return "edit-pose-suggestion" }
func (EditEnvironmentSuggestion) commandName() string { return "edit-environment-suggestion" }
func (AcceptEnvironment) commandName() string         { return "accept-environment" }
func (AcceptPose) commandName() string                { return "accept-pose" }
func (Reset) commandName() string                     { return "reset" }
func (beginRun) commandName() string                  { return "begin-run" }
func (recordResult) commandName() string              { return "record-result" }
func (finishRun) commandName() string                 { return "finish-run" }
func (replaceResult) commandName() string             { return "replace-result" }

// StudioStore は、スタジオ状態の唯一の所有者です
// すべての変更はDispatchを通じて直列化されます
type StudioStore struct {
	mu     sync.RWMutex
	state  StudioState
	logger zerolog.Logger
}

// NewStudioStore は新しいStudioStoreインスタンスを作成します
func NewStudioStore(logger zerolog.Logger) *StudioStore {
	return &StudioStore{
		state:  DefaultStudioState(),
		logger: logger,
	}
}

// Snapshot は、現在の状態の複製を返します
func (s *StudioStore) Snapshot() StudioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Dispatch は、コマンドを適用します。失敗した場合、状態は変更されません
func (s *StudioStore) Dispatch(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := reduce(&next, cmd); err != nil {
		s.logger.Debug().Str("command", cmd.commandName()).Err(err).Msg("コマンドを拒否しました")
		return err
	}
	s.state = next
	s.logger.Debug().Str("command", cmd.commandName()).Msg("コマンドを適用しました")
	return nil
}

func reduce(st *StudioState, cmd Command) error {
	switch c := cmd.(type) {
	case AddImage:
		return st.Images.Add(c.Collection, c.Image)

	case RemoveImage:
		return st.Images.Remove(c.Collection, c.ImageID)

	case SetSceneField:
		switch c.Field {
		case SceneTitle:
			st.Scene.Title = c.Value
		case SceneLocation:
			if st.Scene.Location != c.Value {
				st.clearAnchor()
			}
			st.Scene.Location = c.Value
		case SceneVibe:
			st.Scene.Vibe = c.Value
		case SceneBrief:
			st.Scene.GlobalBrief = c.Value
		case SceneNegative:
			st.Scene.NegativeConstraints = c.Value
		default:
			return fmt.Errorf("scene field %d: %w", c.Field, domain.ErrInvalidOption)
		}

	case SetUseModel:
		st.Scene.UseModel = c.UseModel

	case SetQualityLevel:
		if _, err := st.Quality.SetLevel(c.Field, c.Value); err != nil {
			return err
		}

	case SetHardware:
		switch c.Field {
		case HardwareLens:
			st.Quality.Lens = c.Value
		case HardwareCameraBody:
			st.Quality.CameraBody = c.Value
		case HardwareLighting:
			st.Quality.Lighting = c.Value
		default:
			return fmt.Errorf("hardware field %d: %w", c.Field, domain.ErrInvalidOption)
		}

	case SetResolution:
		if c.Resolution < domain.ResolutionLow || c.Resolution > domain.ResolutionHigh {
			return fmt.Errorf("resolution %d: %w", c.Resolution, domain.ErrInvalidOption)
		}
		if c.Resolution > domain.ResolutionLow && !c.HasCredential {
			return domain.ErrResolutionRequiresCredential
		}
		st.Quality.Resolution = c.Resolution

	case SetAspectRatio:
		if c.Ratio < domain.AspectRatioSquare || c.Ratio > domain.AspectRatioLandscape {
			return fmt.Errorf("aspect ratio %d: %w", c.Ratio, domain.ErrInvalidOption)
		}
		st.AspectRatio = c.Ratio

	case SetConsistency:
		st.Consistency = c.Flags

	case AddShot:
		shot := c.Shot
		if shot.ID == "" {
			shot.ID = uuid.NewString()
		}
		if st.shotIndex(shot.ID) >= 0 {
			return fmt.Errorf("shot %s は既に存在します: %w", shot.ID, domain.ErrInvalidOption)
		}
		st.Shots = append(st.Shots, shot)

	case UpdateShot:
		i := st.shotIndex(c.Shot.ID)
		if i < 0 {
			return fmt.Errorf("shot %s: %w", c.Shot.ID, domain.ErrShotNotFound)
		}
		st.Shots[i] = c.Shot

	case RemoveShot:
		i := st.shotIndex(c.ShotID)
		if i < 0 {
			return fmt.Errorf("shot %s: %w", c.ShotID, domain.ErrShotNotFound)
		}
		st.Shots = append(st.Shots[:i:i], st.Shots[i+1:]...)

	case DuplicateShot:
		i := st.shotIndex(c.ShotID)
		if i < 0 {
			return fmt.Errorf("shot %s: %w", c.ShotID, domain.ErrShotNotFound)
		}
		dup := st.Shots[i].Duplicate()
		if c.NewID != "" {
			dup.ID = c.NewID
		}
		st.Shots = append(st.Shots[:i+1:i+1], append([]domain.ShotSpec{dup}, st.Shots[i+1:]...)...)

	case SetAnalysis:
		st.Analysis = c.Result.Clone()

	case EditPoseSuggestion:
		if _, err := st.Analysis.Pose(c.Index); err != nil {
			return err
		}
		st.Analysis.Poses[c.Index].Directive = c.Directive

	case EditEnvironmentSuggestion:
		if _, err := st.Analysis.Environment(c.Index); err != nil {
			return err
		}
		st.Analysis.Environments[c.Index].BackgroundDirective = c.BackgroundDirective

	case AcceptEnvironment:
		env, err := st.Analysis.Environment(c.Index)
		if err != nil {
			return err
		}
		st.Scene.Location = env.Name
		st.Scene.GlobalBrief = env.BackgroundDirective
		if st.Scene.GlobalBrief == "" {
			st.Scene.GlobalBrief = env.Description
		}
		st.clearAnchor()

	case AcceptPose:
		pose, err := st.Analysis.Pose(c.Index)
		if err != nil {
			return err
		}
		st.Shots = append(st.Shots, pose.ToShotSpec())

	case Reset:
		if st.Run != nil && st.Run.Phase.IsRunning() {
			return domain.ErrBatchInProgress
		}
		*st = DefaultStudioState()

	case beginRun:
		if st.Run != nil && st.Run.Phase.IsRunning() {
			return domain.ErrBatchInProgress
		}
		if err := st.Images.Validate(); err != nil {
			return err
		}
		if len(st.Shots) == 0 {
			return domain.ErrNoShots
		}
		st.Run = domain.NewRunRecord(st.Shots, c.now)
		*c.frame = runFrame{
			runID:       st.Run.ID,
			shots:       append([]domain.ShotSpec(nil), st.Shots...),
			images:      st.Images.Clone(),
			quality:     st.Quality,
			consistency: st.Consistency,
			scene:       st.Scene,
			aspectRatio: st.AspectRatio,
			analysis:    st.Analysis.Clone(),
		}

	case recordResult:
		if st.Run == nil || st.Run.ID != c.runID {
			return domain.ErrNoRun
		}
		return st.Run.Record(c.result)

	case finishRun:
		if st.Run == nil || st.Run.ID != c.runID {
			return domain.ErrNoRun
		}
		st.Run.Finish(c.phase, c.shotID, c.err, c.now)

	case replaceResult:
		if st.Run == nil || st.Run.ID != c.runID {
			return domain.ErrNoRun
		}
		if st.Run.Phase.IsRunning() {
			return domain.ErrBatchInProgress
		}
		return st.Run.ReplaceResult(c.result)

	default:
		return fmt.Errorf("command %T: %w", cmd, domain.ErrInvalidOption)
	}
	return nil
}
