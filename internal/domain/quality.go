package domain

import "fmt"

// レベルの範囲
const (
	MinLevel      = 1
	MaxLevel      = 5
	MinGrainLevel = 0
	MaxGrainLevel = 3
)

// QualityField は、数値で調整できる品質項目を表します
type QualityField int

const (
	QualityPremium QualityField = iota
	QualityRealism
	QualityDetail
	QualityBackgroundClean
	QualityContrast
	QualitySharpness
	QualityDepthOfField
	QualityGrain
)

var qualityFields = []discordOptionData{
	{"premium", "プレミアム/レタッチ"},
	{"realism", "リアリズム"},
	{"detail", "ディテール/質感"},
	{"bg-clean", "背景のクリーンさ"},
	{"contrast", "コントラスト"},
	{"sharpness", "シャープネス"},
	{"dof", "被写界深度"},
	{"grain", "フィルムグレイン"},
}

// String はQualityFieldの値を返します
func (f QualityField) String() string { return optionValue(qualityFields, int(f)) }

// DisplayName はQualityFieldの日本語名を返します
func (f QualityField) DisplayName() string { return optionDisplayName(qualityFields, int(f)) }

// Range は、項目が取りうる最小値と最大値を返します
func (f QualityField) Range() (int, int) {
	if f == QualityGrain {
		return MinGrainLevel, MaxGrainLevel
	}
	return MinLevel, MaxLevel
}

// Clamp は、値を項目の範囲内に収めます
func (f QualityField) Clamp(v int) int {
	lo, hi := f.Range()
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseQualityField は、文字列からQualityFieldを解釈します
func ParseQualityField(s string) (QualityField, error) {
	i, err := parseOption(qualityFields, "quality field", s)
	return QualityField(i), err
}

// AllQualityFields はすべてのQualityFieldを返します
func AllQualityFields() []QualityField {
	return []QualityField{
		QualityPremium,
		QualityRealism,
		QualityDetail,
		QualityBackgroundClean,
		QualityContrast,
		QualitySharpness,
		QualityDepthOfField,
		QualityGrain,
	}
}

// QualityConfig は、品質レベルと撮影機材の設定です
// レベル値はSetLevelまたはNormalizeを通すことで常に範囲内に保たれます
type QualityConfig struct {
	Premium         int
	Realism         int
	Detail          int
	BackgroundClean int
	Contrast        int
	Sharpness       int
	DepthOfField    int
	Grain           int

	Lens       string
	CameraBody string
	Lighting   string
	Resolution Resolution
}

// DefaultQualityConfig は、デフォルトの品質設定を返します
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		Premium:         5,
		Realism:         5,
		Detail:          5,
		BackgroundClean: 4,
		Contrast:        3,
		Sharpness:       5,
		DepthOfField:    4,
		Grain:           1,
		Lens:            "DSLR 50mm",
		CameraBody:      "Full-frame DSLR",
		Lighting:        "Soft Studio",
		Resolution:      ResolutionLow,
	}
}

func (q *QualityConfig) field(f QualityField) *int {
	switch f {
	case QualityPremium:
		return &q.Premium
	case QualityRealism:
		return &q.Realism
	case QualityDetail:
		return &q.Detail
	case QualityBackgroundClean:
		return &q.BackgroundClean
	case QualityContrast:
		return &q.Contrast
	case QualitySharpness:
		return &q.Sharpness
	case QualityDepthOfField:
		return &q.DepthOfField
	case QualityGrain:
		return &q.Grain
	}
	return nil
}

// Level は、指定された項目の値を返します
func (q QualityConfig) Level(f QualityField) int {
	if p := q.field(f); p != nil {
		return *p
	}
	return 0
}

// SetLevel は、値を範囲内に丸めて設定し、実際に保存された値を返します
func (q *QualityConfig) SetLevel(f QualityField, v int) (int, error) {
	p := q.field(f)
	if p == nil {
		return 0, fmt.Errorf("quality field %d: %w", f, ErrInvalidOption)
	}
	*p = f.Clamp(v)
	return *p, nil
}

// Normalize は、すべてのレベル値を範囲内に丸めます
func (q *QualityConfig) Normalize() {
	for _, f := range AllQualityFields() {
		p := q.field(f)
		*p = f.Clamp(*p)
	}
	if q.Resolution < ResolutionLow || q.Resolution > ResolutionHigh {
		q.Resolution = ResolutionLow
	}
}
