package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunPhase は、バッチ実行の状態を表します
type RunPhase int

const (
	RunIdle RunPhase = iota
	RunRunningNoAnchor
	RunRunningAnchored
	RunCompleted
	RunFailed
	RunAwaitingCredential
	RunCancelled
)

var runPhases = []discordOptionData{
	{"idle", "待機中"},
	{"running", "実行中"},
	{"running-anchored", "実行中（アンカー確定）"},
	{"completed", "完了"},
	{"failed", "失敗"},
	{"awaiting-credential", "APIキー待ち"},
	{"cancelled", "キャンセル"},
}

// String はRunPhaseの値を返します
func (p RunPhase) String() string { return optionValue(runPhases, int(p)) }

// DisplayName はRunPhaseの日本語名を返します
func (p RunPhase) DisplayName() string { return optionDisplayName(runPhases, int(p)) }

// IsRunning は、実行中の状態かどうかを返します
func (p RunPhase) IsRunning() bool {
	return p == RunRunningNoAnchor || p == RunRunningAnchored
}

// StyleAnchor は、実行中で最初に成功した生成画像です
// 以降のショットの背景・人物の基準として使われます
type StyleAnchor struct {
	ShotID string
	Image  ReferenceImage
}

// GenerationResult は、1ショット分の生成結果です
type GenerationResult struct {
	ShotID    string
	Image     ReferenceImage
	Prompt    string
	CreatedAt time.Time
}

// RunRecord は、1回のバッチ実行の記録です
// アンカーは実行ごとに一度だけ None から Some に遷移します
type RunRecord struct {
	ID         string
	Phase      RunPhase
	Shots      []ShotSpec
	Results    []GenerationResult
	Anchor     *StyleAnchor
	// StaleAnchor は、実行中に撮影環境が変わり、終了時にアンカーを破棄することを示します
	StaleAnchor bool
	FailedShot string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRunRecord は、ショット一覧のスナップショットから新しい実行記録を作成します
func NewRunRecord(shots []ShotSpec, now time.Time) *RunRecord {
	return &RunRecord{
		ID:        uuid.NewString(),
		Phase:     RunRunningNoAnchor,
		Shots:     append([]ShotSpec(nil), shots...),
		StartedAt: now,
	}
}

// ShotIndex は、スナップショット内のショット位置を返します。存在しない場合は-1です
func (r *RunRecord) ShotIndex(shotID string) int {
	for i, s := range r.Shots {
		if s.ID == shotID {
			return i
		}
	}
	return -1
}

// Shot は、スナップショット内のショットを返します
func (r *RunRecord) Shot(shotID string) (ShotSpec, error) {
	i := r.ShotIndex(shotID)
	if i < 0 {
		return ShotSpec{}, fmt.Errorf("shot %s: %w", shotID, ErrShotNotFound)
	}
	return r.Shots[i], nil
}

// Result は、指定されたショットの結果を返します
func (r *RunRecord) Result(shotID string) (GenerationResult, bool) {
	for _, res := range r.Results {
		if res.ShotID == shotID {
			return res, true
		}
	}
	return GenerationResult{}, false
}

// Record は、成功したショットの結果を追加します
// 最初の成功でアンカーを確定します
func (r *RunRecord) Record(res GenerationResult) error {
	if !r.Phase.IsRunning() {
		return fmt.Errorf("phase %s: %w", r.Phase, ErrNoRun)
	}
	if r.ShotIndex(res.ShotID) < 0 {
		return fmt.Errorf("shot %s: %w", res.ShotID, ErrShotNotFound)
	}
	r.Results = append(r.Results, res)
	if r.Anchor == nil {
		r.Anchor = &StyleAnchor{ShotID: res.ShotID, Image: res.Image}
		r.Phase = RunRunningAnchored
	}
	return nil
}

// Finish は、実行を終端状態に遷移させます
func (r *RunRecord) Finish(phase RunPhase, shotID string, err error, now time.Time) {
	r.Phase = phase
	r.FailedShot = shotID
	r.Err = err
	r.FinishedAt = now
	if r.StaleAnchor {
		r.Anchor = nil
		r.StaleAnchor = false
	}
}

// InvalidateAnchor は、撮影環境の変更に伴いアンカーを無効にします
// 実行中は進行中のショットに影響しないよう、終了時まで破棄を保留します
func (r *RunRecord) InvalidateAnchor() {
	if r.Phase.IsRunning() {
		r.StaleAnchor = true
		return
	}
	r.Anchor = nil
}

// AnchorFor は、指定されたショットを生成する際に参照するアンカーを返します
// アンカー自身の元ショットにはアンカーを適用しません
func (r *RunRecord) AnchorFor(shotID string) *StyleAnchor {
	if r.Anchor == nil || r.Anchor.ShotID == shotID {
		return nil
	}
	return r.Anchor
}

// ReplaceResult は、やり直しの結果で1ショット分を置き換えます
// 結果がまだない（失敗した）ショットの場合はショット順の位置に挿入します
func (r *RunRecord) ReplaceResult(res GenerationResult) error {
	idx := r.ShotIndex(res.ShotID)
	if idx < 0 {
		return fmt.Errorf("shot %s: %w", res.ShotID, ErrShotNotFound)
	}
	for i := range r.Results {
		if r.Results[i].ShotID == res.ShotID {
			r.Results[i] = res
			return nil
		}
	}

	pos := len(r.Results)
	for i, existing := range r.Results {
		if r.ShotIndex(existing.ShotID) > idx {
			pos = i
			break
		}
	}
	r.Results = append(r.Results[:pos:pos], append([]GenerationResult{res}, r.Results[pos:]...)...)
	if r.FailedShot == res.ShotID {
		r.FailedShot = ""
	}
	return nil
}

// Clone は、スライスを複製した実行記録を返します
func (r *RunRecord) Clone() *RunRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Shots = append([]ShotSpec(nil), r.Shots...)
	c.Results = append([]GenerationResult(nil), r.Results...)
	if r.Anchor != nil {
		a := *r.Anchor
		c.Anchor = &a
	}
	return &c
}
