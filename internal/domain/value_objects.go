package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ShotSpec は、1枚分の撮影計画を表現する値オブジェクトです
type ShotSpec struct {
	ID               string
	Pose             string
	ShotType         ShotType
	Angle            CameraAngle
	SceneArea        string
	CreativeOverride string
}

// NewShotSpec は、新しいIDを採番してShotSpecを作成します
func NewShotSpec(pose string, shotType ShotType, angle CameraAngle) ShotSpec {
	return ShotSpec{
		ID:       uuid.NewString(),
		Pose:     strings.TrimSpace(pose),
		ShotType: shotType,
		Angle:    angle,
	}
}

// Duplicate は、新しいIDを持つ複製を返します
func (s ShotSpec) Duplicate() ShotSpec {
	dup := s
	dup.ID = uuid.NewString()
	return dup
}

// String はShotSpecの文字列表現を返します
func (s ShotSpec) String() string {
	return fmt.Sprintf("ShotSpec{ID: %s, Pose: %s, ShotType: %s, Angle: %s}", s.ID, s.Pose, s.ShotType, s.Angle)
}

// ConsistencyFlags は、プロンプトに固定指示を含めるかどうかの3つの独立したフラグです
type ConsistencyFlags struct {
	Background     bool
	Model          bool
	ProductDetails bool
}

// DefaultConsistencyFlags は、すべての固定指示を有効にしたフラグを返します
func DefaultConsistencyFlags() ConsistencyFlags {
	return ConsistencyFlags{Background: true, Model: true, ProductDetails: true}
}

// SceneContext は、撮影全体に共通するシーン情報です
type SceneContext struct {
	Title               string
	Location            string
	Vibe                string
	GlobalBrief         string
	NegativeConstraints string
	UseModel            bool
}

// DisplayTitle は、履歴などに表示するタイトルを返します
func (s SceneContext) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "Untitled Shoot"
}

// Slug は、タイトルをファイル名に使える形に変換します
func Slug(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "shoot"
	}
	return s
}

// ExportFileName は、書き出すファイル名（<タイトル>-<番号>-<ショットID>.<拡張子>）を返します
func ExportFileName(title string, index int, shotID, ext string) string {
	return fmt.Sprintf("%s-%d-%s.%s", Slug(title), index, shotID, ext)
}
