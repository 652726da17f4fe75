package domain

import (
	"fmt"
	"strings"
)

// プロンプト内の見出し
const (
	AnchorLockHeader       = "ENVIRONMENT LOCK"
	FidelityOverrideHeader = "PRODUCT FIDELITY OVERRIDE"
	IdentityLockHeader     = "SUBJECT IDENTITY LOCK"
	NegativeHeader         = "NEGATIVE CONSTRAINTS"
)

// DefaultNegativeConstraints は、シーンに独自の指定がない場合のネガティブ制約です
var DefaultNegativeConstraints = []string{
	"distorted or warped product",
	"logo drift or altered branding",
	"color drift from the product image",
	"extra or extraneous limbs, warped hands",
	"watermarks, random text, signatures",
	"low resolution, blur, compression artifacts",
}

// PromptInput は、1ショット分のプロンプトを組み立てるための入力です
type PromptInput struct {
	Shot        ShotSpec
	Images      ImageSet
	Quality     QualityConfig
	Consistency ConsistencyFlags
	Scene       SceneContext
	Anchor      *StyleAnchor
	Analysis    *AnalysisResult
}

func (in PromptInput) identityLocked() bool {
	return in.Consistency.Model && in.Images.HasModelReference()
}

// promptRule は、条件とブロック生成関数の組です
type promptRule struct {
	name    string
	applies func(PromptInput) bool
	block   func(PromptInput) string
}

// PromptCompiler は、撮影設定から生成用の指示文を組み立てるビジネスロジックを担当します
// 同じ入力に対しては常に同じ文字列を返します
type PromptCompiler struct {
	rules []promptRule
}

// NewPromptCompiler は新しいPromptCompilerインスタンスを作成します
func NewPromptCompiler() *PromptCompiler {
	return &PromptCompiler{rules: defaultPromptRules()}
}

func always(PromptInput) bool { return true }

func defaultPromptRules() []promptRule {
	return []promptRule{
		{"preamble", always, preambleBlock},
		{"fidelity", func(in PromptInput) bool { return in.Consistency.ProductDetails }, fidelityBlock},
		{"aesthetic", func(in PromptInput) bool { return !in.Consistency.ProductDetails }, aestheticBlock},
		{"identity-lock", PromptInput.identityLocked, identityLockBlock},
		{"generic-model", func(in PromptInput) bool {
			return !in.identityLocked() && (in.Scene.UseModel || in.Images.HasModelReference())
		}, genericModelBlock},
		{"anchor-lock", func(in PromptInput) bool { return in.Anchor != nil }, anchorBlock},
		{"scene", func(in PromptInput) bool { return in.Anchor == nil || !in.Consistency.Background }, sceneBlock},
		{"hardware", always, hardwareBlock},
		{"shot", always, shotBlock},
		{"negative", always, negativeBlock},
	}
}

// Compile は、ルールを定義順に適用してプロンプトを生成します
func (c *PromptCompiler) Compile(in PromptInput) string {
	blocks := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if !r.applies(in) {
			continue
		}
		if b := strings.TrimSpace(r.block(in)); b != "" {
			blocks = append(blocks, b)
		}
	}
	blocks = append(blocks, "Output a single, sharp, photorealistic image.")
	return strings.Join(blocks, "\n\n")
}

// RuleNames は、適用順のルール名を返します
func (c *PromptCompiler) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

func writeLine(b *strings.Builder, format string, args ...any) {
	b.WriteString(fmt.Sprintf(format, args...))
	b.WriteString("\n")
}

func writeOptional(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		writeLine(b, "- %s: %s", label, v)
	}
}

func preambleBlock(in PromptInput) string {
	var b strings.Builder
	writeLine(&b, "ROLE: Award-winning commercial product photographer and high-end retoucher.")
	if len(in.Images.Product) == 0 {
		writeLine(&b, "TASK: Produce a high-fidelity commercial product capture for %q.", in.Scene.DisplayTitle())
	} else {
		writeLine(&b, "TASK: Produce a high-fidelity commercial product capture for %q using the PRODUCT image(s) as the only ground truth for the product design.", in.Scene.DisplayTitle())
	}

	var manifest []string
	add := func(label string, imgs []ReferenceImage) {
		for _, img := range imgs {
			manifest = append(manifest, fmt.Sprintf("- [%d] %s: %s", len(manifest)+1, label, img.Name))
		}
	}
	add("PRODUCT", in.Images.Product)
	add("DETAIL", in.Images.Detail)
	add("REFERENCE", in.Images.Reference)
	add("MODEL REFERENCE", in.Images.ModelSheet)
	if in.Anchor != nil {
		add("STYLE ANCHOR", []ReferenceImage{in.Anchor.Image})
	}
	if len(manifest) > 0 {
		writeLine(&b, "ATTACHED IMAGES (in order):")
		for _, line := range manifest {
			writeLine(&b, "%s", line)
		}
	}
	return b.String()
}

func fidelityBlock(in PromptInput) string {
	var b strings.Builder
	writeLine(&b, "%s:", FidelityOverrideHeader)
	writeLine(&b, "- Replicate the product exactly: material, branding, logo, typography, print, texture, stitching, and color.")
	writeLine(&b, "- Do not alter the product geometry, shape, or proportions. No stylization of the product itself.")
	if len(in.Images.Detail) > 0 {
		writeLine(&b, "- Use the DETAIL image(s) for micro-detail: seams, hardware, fabric weave.")
	}
	if in.Analysis != nil && len(in.Images.Product) > 0 {
		a := in.Analysis.Attributes
		writeOptional(&b, "Material", a.Material)
		writeOptional(&b, "Colors", strings.Join(a.Colors, ", "))
		writeOptional(&b, "Textures", strings.Join(a.Textures, ", "))
		writeOptional(&b, "Pattern", a.PatternDetails)
		if a.LogoPresent {
			writeLine(&b, "- Logo: present; keep it sharp, legible, and unaltered.")
		}
	}
	return b.String()
}

func aestheticBlock(in PromptInput) string {
	return "PRODUCT STYLE: Keep the general aesthetic of the product recognizable. Minor stylistic interpretation is acceptable."
}

func identityLockBlock(in PromptInput) string {
	return IdentityLockHeader + ": The model must match the MODEL REFERENCE image exactly: face, identity, skin tone, hair, and body proportions."
}

func genericModelBlock(in PromptInput) string {
	if in.Images.HasModelReference() {
		return "MODEL: The model may be loosely inspired by the MODEL REFERENCE image; an exact identity match is not required."
	}
	if v := strings.TrimSpace(in.Scene.Vibe); v != "" {
		return fmt.Sprintf("MODEL: A professional model whose styling matches the brand vibe %q.", v)
	}
	return "MODEL: A professional model whose styling matches the creative brief."
}

func anchorBlock(in PromptInput) string {
	if !in.Consistency.Background {
		return "STYLE CONSISTENCY: Keep the lighting and color grading consistent with the STYLE ANCHOR image. The set itself may vary."
	}
	return AnchorLockHeader + ": Reuse the architecture, lighting, and floor of the STYLE ANCHOR image without deviation. Only the pose, framing, and camera angle change."
}

func sceneBlock(in PromptInput) string {
	var b strings.Builder
	writeLine(&b, "ENVIRONMENT:")
	writeOptional(&b, "Location", in.Scene.Location)
	writeOptional(&b, "Brand vibe", in.Scene.Vibe)
	writeOptional(&b, "Background brief", in.Scene.GlobalBrief)
	if len(in.Images.Reference) > 0 {
		writeLine(&b, "- Match the REFERENCE image(s) for camera angle, framing, and lighting direction.")
	}
	if in.Consistency.Background {
		writeLine(&b, "- This set is the fixed environment for the whole series.")
	}
	return b.String()
}

func hardwareBlock(in PromptInput) string {
	q := in.Quality
	var b strings.Builder
	writeLine(&b, "TECHNICAL SPECS:")
	writeOptional(&b, "Lens", q.Lens)
	writeOptional(&b, "Camera body", q.CameraBody)
	writeOptional(&b, "Lighting style", q.Lighting)
	writeLine(&b, "- Depth of field: %d/%d (higher = shallower, creamier bokeh)", q.DepthOfField, MaxLevel)
	writeLine(&b, "- Output resolution: %s", q.Resolution)
	writeLine(&b, "QUALITY CONTROLS (scale %d-%d):", MinLevel, MaxLevel)
	writeLine(&b, "- Premium/retouch level: %d/%d", q.Premium, MaxLevel)
	writeLine(&b, "- Realism: %d/%d (prioritize natural camera imperfections)", q.Realism, MaxLevel)
	writeLine(&b, "- Detail/texture: %d/%d", q.Detail, MaxLevel)
	writeLine(&b, "- Background cleanliness: %d/%d", q.BackgroundClean, MaxLevel)
	writeLine(&b, "- Contrast: %d/%d", q.Contrast, MaxLevel)
	writeLine(&b, "- Sharpness on product: %d/%d", q.Sharpness, MaxLevel)
	writeLine(&b, "- Film grain: %d/%d (0 = none, %d = strong)", q.Grain, MaxGrainLevel, MaxGrainLevel)
	if q.Premium >= 4 {
		writeLine(&b, "RETOUCHING: Apply high-end commercial retouching: clean edges, remove distracting dust, balanced skin tones, premium color grading.")
	}
	return b.String()
}

func shotBlock(in PromptInput) string {
	s := in.Shot
	var b strings.Builder
	writeLine(&b, "SHOT:")
	writeOptional(&b, "Pose/action", s.Pose)
	writeLine(&b, "- Shot type: %s", s.ShotType)
	writeLine(&b, "- Camera angle: %s", s.Angle)
	writeOptional(&b, "Scene area", s.SceneArea)
	writeOptional(&b, "Creative override", s.CreativeOverride)
	return b.String()
}

func negativeBlock(in PromptInput) string {
	var b strings.Builder
	writeLine(&b, "%s:", NegativeHeader)
	if custom := strings.TrimSpace(in.Scene.NegativeConstraints); custom != "" {
		writeLine(&b, "- %s", custom)
		return b.String()
	}
	for _, n := range DefaultNegativeConstraints {
		writeLine(&b, "- no %s", n)
	}
	return b.String()
}
