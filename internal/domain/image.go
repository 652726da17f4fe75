package domain

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ImageCollection は、参照画像が属するコレクションを表します
type ImageCollection int

const (
	CollectionProduct ImageCollection = iota
	CollectionDetail
	CollectionReference
	CollectionModelSheet
)

var imageCollections = []discordOptionData{
	{"product", "商品画像"},
	{"detail", "ディテール画像"},
	{"reference", "参照画像"},
	{"model", "モデルシート"},
}

// String はImageCollectionの値を返します
func (c ImageCollection) String() string { return optionValue(imageCollections, int(c)) }

// DisplayName はImageCollectionの日本語名を返します
func (c ImageCollection) DisplayName() string { return optionDisplayName(imageCollections, int(c)) }

// ParseImageCollection は、文字列からImageCollectionを解釈します
func ParseImageCollection(s string) (ImageCollection, error) {
	i, err := parseOption(imageCollections, "collection", s)
	return ImageCollection(i), err
}

// AllImageCollections はすべてのImageCollectionを返します
func AllImageCollections() []ImageCollection {
	return []ImageCollection{
		CollectionProduct,
		CollectionDetail,
		CollectionReference,
		CollectionModelSheet,
	}
}

// ReferenceImage は、取り込まれた画像を表す不変の値オブジェクトです
type ReferenceImage struct {
	ID       string
	Name     string
	MIMEType string
	Data     []byte
}

// NewReferenceImage は、新しいIDを採番してReferenceImageを作成します
// MIMEタイプが空の場合はデータから推定します
func NewReferenceImage(name, mimeType string, data []byte) ReferenceImage {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return ReferenceImage{
		ID:       uuid.NewString(),
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
	}
}

// Extension は、MIMEタイプに対応するファイル拡張子を返します
func (img ReferenceImage) Extension() string {
	switch strings.ToLower(img.MIMEType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

// String はReferenceImageの文字列表現を返します（データ本体は含めません）
func (img ReferenceImage) String() string {
	return fmt.Sprintf("ReferenceImage{ID: %s, Name: %s, MIMEType: %s, Size: %d}", img.ID, img.Name, img.MIMEType, len(img.Data))
}

// ImageSet は、コレクションごとの参照画像をまとめたものです
type ImageSet struct {
	Product    []ReferenceImage
	Detail     []ReferenceImage
	Reference  []ReferenceImage
	ModelSheet []ReferenceImage
}

// Collection は、指定されたコレクションの画像一覧を返します
func (s *ImageSet) Collection(c ImageCollection) []ReferenceImage {
	switch c {
	case CollectionProduct:
		return s.Product
	case CollectionDetail:
		return s.Detail
	case CollectionReference:
		return s.Reference
	case CollectionModelSheet:
		return s.ModelSheet
	}
	return nil
}

func (s *ImageSet) collectionPtr(c ImageCollection) *[]ReferenceImage {
	switch c {
	case CollectionProduct:
		return &s.Product
	case CollectionDetail:
		return &s.Detail
	case CollectionReference:
		return &s.Reference
	case CollectionModelSheet:
		return &s.ModelSheet
	}
	return nil
}

// Add は、画像をコレクションに追加します。同じIDの画像がある場合はエラーを返します
func (s *ImageSet) Add(c ImageCollection, img ReferenceImage) error {
	p := s.collectionPtr(c)
	if p == nil {
		return fmt.Errorf("collection %d: %w", c, ErrInvalidOption)
	}
	for _, existing := range *p {
		if existing.ID == img.ID {
			return fmt.Errorf("%s/%s: %w", c, img.ID, ErrDuplicateImageID)
		}
	}
	*p = append(*p, img)
	return nil
}

// Remove は、コレクションから画像を削除します
func (s *ImageSet) Remove(c ImageCollection, id string) error {
	p := s.collectionPtr(c)
	if p == nil {
		return fmt.Errorf("collection %d: %w", c, ErrInvalidOption)
	}
	for i, existing := range *p {
		if existing.ID == id {
			*p = append((*p)[:i:i], (*p)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s/%s: %w", c, id, ErrImageNotFound)
}

// Clone は、スライスを複製したImageSetを返します（画像データ自体は共有します）
func (s ImageSet) Clone() ImageSet {
	return ImageSet{
		Product:    append([]ReferenceImage(nil), s.Product...),
		Detail:     append([]ReferenceImage(nil), s.Detail...),
		Reference:  append([]ReferenceImage(nil), s.Reference...),
		ModelSheet: append([]ReferenceImage(nil), s.ModelSheet...),
	}
}

// HasModelReference は、モデルの参照画像が提供されているかを返します
func (s ImageSet) HasModelReference() bool {
	return len(s.ModelSheet) > 0
}

// Ordered は、生成リクエストに添付する順序（商品、ディテール、参照、モデルシート）で画像を返します
func (s ImageSet) Ordered() []ReferenceImage {
	out := make([]ReferenceImage, 0, len(s.Product)+len(s.Detail)+len(s.Reference)+len(s.ModelSheet))
	out = append(out, s.Product...)
	out = append(out, s.Detail...)
	out = append(out, s.Reference...)
	out = append(out, s.ModelSheet...)
	return out
}

// Validate は、バッチ開始に必要な画像が揃っているかを検証します
func (s ImageSet) Validate() error {
	if len(s.Product) == 0 {
		return ErrMissingProductImage
	}
	if len(s.Reference) == 0 {
		return ErrMissingReferenceImage
	}
	return nil
}
