package domain

import (
	"fmt"
	"strings"
)

// ProductAttributes は、解析で得られた商品の素材・色・質感の情報です
type ProductAttributes struct {
	Colors         []string `json:"colors" yaml:"colors"`
	Material       string   `json:"material" yaml:"material"`
	Textures       []string `json:"textures" yaml:"textures"`
	LogoPresent    bool     `json:"logoPresent" yaml:"logo_present"`
	PatternDetails string   `json:"patternDetails" yaml:"pattern_details"`
}

// IsEmpty は、属性が1つも得られていないかを返します
func (a ProductAttributes) IsEmpty() bool {
	return len(a.Colors) == 0 && a.Material == "" && len(a.Textures) == 0 && !a.LogoPresent && a.PatternDetails == ""
}

// EnvironmentSuggestion は、提案された撮影環境です
type EnvironmentSuggestion struct {
	Name                string `json:"name" yaml:"name"`
	Description         string `json:"description" yaml:"description"`
	BackgroundDirective string `json:"backgroundDirective" yaml:"background_directive"`
}

// PoseSuggestion は、提案されたポーズです
type PoseSuggestion struct {
	Name                string `json:"poseName" yaml:"name"`
	Directive           string `json:"creativePrompt" yaml:"directive"`
	RecommendedShotType string `json:"recommendedShotType" yaml:"recommended_shot_type"`
	EnvironmentAffinity string `json:"environmentAffinity,omitempty" yaml:"environment_affinity,omitempty"`
}

// ToShotSpec は、提案からShotSpecを作成します
// 推奨ショット種別が解釈できない場合はミドルショットとします
func (p PoseSuggestion) ToShotSpec() ShotSpec {
	shotType, err := ParseShotType(p.RecommendedShotType)
	if err != nil {
		shotType = ShotTypeMid
	}
	pose := strings.TrimSpace(p.Directive)
	if pose == "" {
		pose = p.Name
	}
	return NewShotSpec(pose, shotType, CameraAngleEyeLevel)
}

// DetailShotSuggestion は、提案されたディテールショットです
type DetailShotSuggestion struct {
	Focus       string `json:"focus" yaml:"focus"`
	Description string `json:"description" yaml:"description"`
}

// AnalysisResult は、商品画像の解析結果です
// 受信後は不変で、再解析時には丸ごと置き換えられます
type AnalysisResult struct {
	Category            string                  `json:"category" yaml:"category"`
	Attributes          ProductAttributes       `json:"attributes" yaml:"attributes"`
	RecommendedMood     string                  `json:"recommendedMood" yaml:"recommended_mood"`
	RecommendedLighting string                  `json:"recommendedLighting" yaml:"recommended_lighting"`
	Environments        []EnvironmentSuggestion `json:"locationSuggestions" yaml:"environments"`
	Poses               []PoseSuggestion        `json:"poseSuggestions" yaml:"poses"`
	DetailShots         []DetailShotSuggestion  `json:"suggestedDetailShots" yaml:"detail_shots"`
}

// Environment は、インデックスで提案環境を取得します
func (a *AnalysisResult) Environment(i int) (EnvironmentSuggestion, error) {
	if a == nil {
		return EnvironmentSuggestion{}, ErrNoAnalysis
	}
	if i < 0 || i >= len(a.Environments) {
		return EnvironmentSuggestion{}, fmt.Errorf("environment %d: %w", i, ErrSuggestionNotFound)
	}
	return a.Environments[i], nil
}

// Pose は、インデックスで提案ポーズを取得します
func (a *AnalysisResult) Pose(i int) (PoseSuggestion, error) {
	if a == nil {
		return PoseSuggestion{}, ErrNoAnalysis
	}
	if i < 0 || i >= len(a.Poses) {
		return PoseSuggestion{}, fmt.Errorf("pose %d: %w", i, ErrSuggestionNotFound)
	}
	return a.Poses[i], nil
}

// Clone は、スライスを複製した解析結果を返します
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	c := *a
	c.Attributes.Colors = append([]string(nil), a.Attributes.Colors...)
	c.Attributes.Textures = append([]string(nil), a.Attributes.Textures...)
	c.Environments = append([]EnvironmentSuggestion(nil), a.Environments...)
	c.Poses = append([]PoseSuggestion(nil), a.Poses...)
	c.DetailShots = append([]DetailShotSuggestion(nil), a.DetailShots...)
	return &c
}
