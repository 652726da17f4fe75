package domain

import (
	"fmt"
	"strings"
)

// ShotType はショットの画角種別を表す定数です
type ShotType int

const (
	ShotTypeFull ShotType = iota
	ShotTypeMid
	ShotTypeCloseUp
	ShotTypeMacro
	ShotTypeLifestyle
	ShotTypeWalking
)

// CameraAngle はカメラアングルを表す定数です
type CameraAngle int

const (
	CameraAngleEyeLevel CameraAngle = iota
	CameraAngleLow
	CameraAngleTopDown
	CameraAngleSide
)

// AspectRatio は出力画像の縦横比を表す定数です
type AspectRatio int

const (
	AspectRatioSquare AspectRatio = iota
	AspectRatioPortrait45
	AspectRatioPortrait34
	AspectRatioStory
	AspectRatioLandscape
)

// Resolution は出力解像度のティアを表す定数です
type Resolution int

const (
	ResolutionLow Resolution = iota
	ResolutionMedium
	ResolutionHigh
)

// discordOptionData は選択肢の値と表示名を保持します
type discordOptionData struct {
	Value       string
	DisplayName string
}

var shotTypes = []discordOptionData{
	{"full shot", "全身"},
	{"mid shot", "ミドル"},
	{"close-up", "クローズアップ"},
	{"macro detail", "マクロ"},
	{"lifestyle", "ライフスタイル"},
	{"walking", "ウォーキング"},
}

var cameraAngles = []discordOptionData{
	{"eye-level", "目線"},
	{"low", "ローアングル"},
	{"top-down", "真上"},
	{"side", "真横"},
}

var aspectRatios = []discordOptionData{
	{"1:1", "正方形"},
	{"4:5", "縦長 4:5"},
	{"3:4", "縦長 3:4"},
	{"9:16", "ストーリー"},
	{"16:9", "横長"},
}

var resolutions = []discordOptionData{
	{"1K", "標準 (1K)"},
	{"2K", "高解像度 (2K)"},
	{"4K", "最高解像度 (4K)"},
}

func optionValue(table []discordOptionData, i int) string {
	if i >= 0 && i < len(table) {
		return table[i].Value
	}
	return table[0].Value
}

func optionDisplayName(table []discordOptionData, i int) string {
	if i >= 0 && i < len(table) {
		return table[i].DisplayName
	}
	return table[0].DisplayName
}

// parseOption は、値（大文字小文字を無視）からテーブルのインデックスを探します
func parseOption(table []discordOptionData, kind, s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for i, o := range table {
		if strings.ToLower(o.Value) == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s %q: %w", kind, s, ErrInvalidOption)
}

// String はShotTypeの値を返します
func (t ShotType) String() string { return optionValue(shotTypes, int(t)) }

// DisplayName はShotTypeの日本語名を返します
func (t ShotType) DisplayName() string { return optionDisplayName(shotTypes, int(t)) }

// String はCameraAngleの値を返します
func (a CameraAngle) String() string { return optionValue(cameraAngles, int(a)) }

// DisplayName はCameraAngleの日本語名を返します
func (a CameraAngle) DisplayName() string { return optionDisplayName(cameraAngles, int(a)) }

// String はAspectRatioの値を返します
func (r AspectRatio) String() string { return optionValue(aspectRatios, int(r)) }

// DisplayName はAspectRatioの日本語名を返します
func (r AspectRatio) DisplayName() string { return optionDisplayName(aspectRatios, int(r)) }

// ModelValue は、生成モデルが受け付ける縦横比を返します（4:5は3:4として送信）
func (r AspectRatio) ModelValue() string {
	if r == AspectRatioPortrait45 {
		return AspectRatioPortrait34.String()
	}
	return r.String()
}

// String はResolutionの値を返します
func (r Resolution) String() string { return optionValue(resolutions, int(r)) }

// DisplayName はResolutionの日本語名を返します
func (r Resolution) DisplayName() string { return optionDisplayName(resolutions, int(r)) }

// ParseShotType は、文字列からShotTypeを解釈します
func ParseShotType(s string) (ShotType, error) {
	i, err := parseOption(shotTypes, "shot type", s)
	return ShotType(i), err
}

// ParseCameraAngle は、文字列からCameraAngleを解釈します
func ParseCameraAngle(s string) (CameraAngle, error) {
	i, err := parseOption(cameraAngles, "camera angle", s)
	return CameraAngle(i), err
}

// ParseAspectRatio は、文字列からAspectRatioを解釈します
func ParseAspectRatio(s string) (AspectRatio, error) {
	i, err := parseOption(aspectRatios, "aspect ratio", s)
	return AspectRatio(i), err
}

// ParseResolution は、文字列からResolutionを解釈します
// low/medium/high の別名も受け付けます
func ParseResolution(s string) (Resolution, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "low":
		return ResolutionLow, nil
	case "medium":
		return ResolutionMedium, nil
	case "high":
		return ResolutionHigh, nil
	}
	i, err := parseOption(resolutions, "resolution", s)
	return Resolution(i), err
}

// AllShotTypes はすべてのShotTypeを返します
func AllShotTypes() []ShotType {
	return []ShotType{
		ShotTypeFull,
		ShotTypeMid,
		ShotTypeCloseUp,
		ShotTypeMacro,
		ShotTypeLifestyle,
		ShotTypeWalking,
	}
}

// AllCameraAngles はすべてのCameraAngleを返します
func AllCameraAngles() []CameraAngle {
	return []CameraAngle{
		CameraAngleEyeLevel,
		CameraAngleLow,
		CameraAngleTopDown,
		CameraAngleSide,
	}
}

// AllAspectRatios はすべてのAspectRatioを返します
func AllAspectRatios() []AspectRatio {
	return []AspectRatio{
		AspectRatioSquare,
		AspectRatioPortrait45,
		AspectRatioPortrait34,
		AspectRatioStory,
		AspectRatioLandscape,
	}
}

// AllResolutions はすべてのResolutionを返します
func AllResolutions() []Resolution {
	return []Resolution{
		ResolutionLow,
		ResolutionMedium,
		ResolutionHigh,
	}
}
