package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// ErrRunCancelled は、バッチ実行がキャンセルされた場合のエラーです
var ErrRunCancelled = errors.New("バッチ実行がキャンセルされました")

// runFrame は、実行開始時点で固定された入力です
type runFrame struct {
	runID       string
	shots       []domain.ShotSpec
	images      domain.ImageSet
	quality     domain.QualityConfig
	consistency domain.ConsistencyFlags
	scene       domain.SceneContext
	aspectRatio domain.AspectRatio
	analysis    *domain.AnalysisResult
}

func frameFromState(st StudioState) runFrame {
	f := runFrame{
		shots:       st.Shots,
		images:      st.Images,
		quality:     st.Quality,
		consistency: st.Consistency,
		scene:       st.Scene,
		aspectRatio: st.AspectRatio,
		analysis:    st.Analysis,
	}
	if st.Run != nil {
		f.runID = st.Run.ID
	}
	return f
}

// BatchOrchestrator は、ショット一覧を順番に生成し、アンカー画像を後続ショットへ引き継ぎます
// ショットは必ず1枚ずつ直列に生成されます
type BatchOrchestrator struct {
	store    *StudioStore
	clients  ClientProvider
	ownerID  string
	compiler *domain.PromptCompiler
	history  *HistoryService
	logger   zerolog.Logger
	now      func() time.Time

	// runMu は実行とやり直しを直列化します
	runMu    sync.Mutex
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewBatchOrchestrator は新しいBatchOrchestratorインスタンスを作成します
// historyがnilの場合、履歴は記録されません
func NewBatchOrchestrator(store *StudioStore, clients ClientProvider, ownerID string, history *HistoryService, logger zerolog.Logger) *BatchOrchestrator {
	return &BatchOrchestrator{
		store:    store,
		clients:  clients,
		ownerID:  ownerID,
		compiler: domain.NewPromptCompiler(),
		history:  history,
		logger:   logger.With().Str("component", "orchestrator").Str("owner", ownerID).Logger(),
		now:      time.Now,
	}
}

// Run は、現在のショット一覧のスナップショットに対してバッチ実行を行い、
// 各ショットの結果をショット順に返します
//
// 失敗した場合は最後にエラーを1つ返して終了します。呼び出し側が途中で反復をやめた場合はキャンセル扱いになります
func (o *BatchOrchestrator) Run(ctx context.Context) iter.Seq2[domain.GenerationResult, error] {
	return func(yield func(domain.GenerationResult, error) bool) {
		if !o.runMu.TryLock() {
			yield(domain.GenerationResult{}, domain.ErrBatchInProgress)
			return
		}
		defer o.runMu.Unlock()

		ctx, cancel := context.WithCancel(ctx)
		o.setCancel(cancel)
		defer func() {
			o.setCancel(nil)
			cancel()
		}()

		var frame runFrame
		if err := o.store.Dispatch(beginRun{now: o.now(), frame: &frame}); err != nil {
			yield(domain.GenerationResult{}, fmt.Errorf("バッチ実行を開始できません: %w", err))
			return
		}
		log := o.logger.With().Str("run", frame.runID).Logger()
		log.Info().Int("shots", len(frame.shots)).Msg("バッチ実行を開始しました")

		client, err := o.clients.ClientFor(ctx, o.ownerID)
		if err != nil {
			phase := domain.RunFailed
			if errors.Is(err, domain.ErrCredentialNotFound) {
				phase = domain.RunAwaitingCredential
			}
			o.finish(frame.runID, phase, frame.shots[0].ID, err)
			yield(domain.GenerationResult{}, err)
			return
		}

		var anchor *domain.StyleAnchor
		for i, shot := range frame.shots {
			if ctx.Err() != nil {
				o.finish(frame.runID, domain.RunCancelled, shot.ID, ErrRunCancelled)
				yield(domain.GenerationResult{}, ErrRunCancelled)
				return
			}

			res, err := o.generate(ctx, client, frame, shot, anchor)
			if err != nil {
				phase := domain.RunFailed
				switch {
				case ctx.Err() != nil:
					phase = domain.RunCancelled
					err = fmt.Errorf("%w: %w", ErrRunCancelled, err)
				case domain.IsCredentialError(err):
					phase = domain.RunAwaitingCredential
				}
				log.Warn().Err(err).Int("index", i).Str("shot", shot.ID).Str("phase", phase.String()).Msg("ショットの生成に失敗しました")
				o.finish(frame.runID, phase, shot.ID, err)
				yield(domain.GenerationResult{}, err)
				return
			}

			if err := o.store.Dispatch(recordResult{runID: frame.runID, result: res}); err != nil {
				o.finish(frame.runID, domain.RunFailed, shot.ID, err)
				yield(domain.GenerationResult{}, fmt.Errorf("結果の記録に失敗: %w", err))
				return
			}
			if anchor == nil {
				anchor = &domain.StyleAnchor{ShotID: shot.ID, Image: res.Image}
				log.Info().Str("shot", shot.ID).Msg("アンカー画像を確定しました")
			}
			log.Info().Int("index", i).Str("shot", shot.ID).Msg("ショットを生成しました")

			if !yield(res, nil) {
				o.finish(frame.runID, domain.RunCancelled, "", ErrRunCancelled)
				return
			}
		}

		o.finish(frame.runID, domain.RunCompleted, "", nil)
		log.Info().Msg("バッチ実行が完了しました")

		if o.history != nil && anchor != nil {
			title := frame.scene.DisplayTitle()
			if _, err := o.history.Record(ctx, title, anchor.Image, o.now()); err != nil {
				log.Error().Err(err).Msg("履歴の保存に失敗しました")
				yield(domain.GenerationResult{}, fmt.Errorf("履歴の保存に失敗: %w", err))
			}
		}
	}
}

// Execute は、バッチ実行を最後まで行い、各結果をコールバックに渡します
// 最終的な実行記録を返します
func (o *BatchOrchestrator) Execute(ctx context.Context, onResult func(domain.GenerationResult)) (*domain.RunRecord, error) {
	var runErr error
	for res, err := range o.Run(ctx) {
		if err != nil {
			runErr = err
			break
		}
		if onResult != nil {
			onResult(res)
		}
	}
	return o.store.Snapshot().Run, runErr
}

// Redo は、直近の実行の1ショットだけを再生成し、その結果をその場で置き換えます
// 他のショットの結果とアンカーは変更されません
func (o *BatchOrchestrator) Redo(ctx context.Context, shotID string) (domain.GenerationResult, error) {
	if !o.runMu.TryLock() {
		return domain.GenerationResult{}, domain.ErrBatchInProgress
	}
	defer o.runMu.Unlock()

	st := o.store.Snapshot()
	if st.Run == nil {
		return domain.GenerationResult{}, domain.ErrNoRun
	}
	if err := st.Images.Validate(); err != nil {
		return domain.GenerationResult{}, err
	}
	shot, err := st.Run.Shot(shotID)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if i := st.shotIndex(shotID); i >= 0 {
		shot = st.Shots[i]
	}

	client, err := o.clients.ClientFor(ctx, o.ownerID)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	res, err := o.generate(ctx, client, frameFromState(st), shot, st.Run.AnchorFor(shotID))
	if err != nil {
		o.logger.Warn().Err(err).Str("shot", shotID).Msg("ショットのやり直しに失敗しました")
		return domain.GenerationResult{}, err
	}
	if err := o.store.Dispatch(replaceResult{runID: st.Run.ID, result: res}); err != nil {
		return domain.GenerationResult{}, fmt.Errorf("やり直し結果の反映に失敗: %w", err)
	}
	o.logger.Info().Str("shot", shotID).Msg("ショットをやり直しました")
	return res, nil
}

// Cancel は、実行中のバッチをキャンセルします。実行中でなければfalseを返します
func (o *BatchOrchestrator) Cancel() bool {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	if o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Compiler は、プロンプトの組み立てに使うコンパイラを返します
func (o *BatchOrchestrator) Compiler() *domain.PromptCompiler {
	return o.compiler
}

func (o *BatchOrchestrator) setCancel(cancel context.CancelFunc) {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	o.cancel = cancel
}

func (o *BatchOrchestrator) finish(runID string, phase domain.RunPhase, shotID string, err error) {
	if dErr := o.store.Dispatch(finishRun{runID: runID, phase: phase, shotID: shotID, err: err, now: o.now()}); dErr != nil {
		o.logger.Error().Err(dErr).Str("run", runID).Msg("実行状態の更新に失敗しました")
	}
}

func (o *BatchOrchestrator) generate(ctx context.Context, client ImageGenerator, f runFrame, shot domain.ShotSpec, anchor *domain.StyleAnchor) (domain.GenerationResult, error) {
	prompt := o.compiler.Compile(domain.PromptInput{
		Shot:        shot,
		Images:      f.images,
		Quality:     f.quality,
		Consistency: f.consistency,
		Scene:       f.scene,
		Anchor:      anchor,
		Analysis:    f.analysis,
	})

	images := f.images.Ordered()
	if anchor != nil {
		images = append(images, anchor.Image)
	}

	img, err := client.GenerateImage(ctx, GenerationRequest{
		Prompt:      prompt,
		Images:      images,
		AspectRatio: f.aspectRatio,
		Resolution:  f.quality.Resolution,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("ショット %s の生成に失敗: %w", shot.ID, err)
	}
	return domain.GenerationResult{
		ShotID:    shot.ID,
		Image:     img,
		Prompt:    prompt,
		CreatedAt: o.now(),
	}, nil
}
