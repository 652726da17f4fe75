package domain

import (
	"errors"
	"fmt"
)

// ドメイン固有のエラー型を定義
var (
	// ErrMissingProductImage は、商品画像が未登録の場合のエラーです
	ErrMissingProductImage = errors.New("商品画像が登録されていません")

	// ErrMissingReferenceImage は、参照画像が未登録の場合のエラーです
	ErrMissingReferenceImage = errors.New("参照画像が登録されていません")

	// ErrNoShots は、ショットが1件もない場合のエラーです
	ErrNoShots = errors.New("ショットが登録されていません")

	// ErrShotNotFound は、指定されたショットが存在しない場合のエラーです
	ErrShotNotFound = errors.New("ショットが見つかりません")

	// ErrImageNotFound は、指定された画像が存在しない場合のエラーです
	ErrImageNotFound = errors.New("画像が見つかりません")

	// ErrDuplicateImageID は、同じコレクション内で画像IDが重複した場合のエラーです
	ErrDuplicateImageID = errors.New("画像IDが重複しています")

	// ErrInvalidOption は、列挙値として解釈できない入力の場合のエラーです
	ErrInvalidOption = errors.New("無効な選択肢です")

	// ErrSuggestionNotFound は、指定された提案が存在しない場合のエラーです
	ErrSuggestionNotFound = errors.New("提案が見つかりません")

	// ErrNoAnalysis は、解析結果がまだない場合のエラーです
	ErrNoAnalysis = errors.New("解析結果がありません")

	// ErrBatchInProgress は、バッチ実行中に別の実行が要求された場合のエラーです
	ErrBatchInProgress = errors.New("バッチ実行中です")

	// ErrNoRun は、対象となる実行記録がない場合のエラーです
	ErrNoRun = errors.New("実行記録がありません")

	// ErrResolutionRequiresCredential は、専用の認証情報なしで高解像度を選択した場合のエラーです
	ErrResolutionRequiresCredential = errors.New("この解像度にはサーバー専用のAPIキーが必要です")

	// ErrCredentialNotFound は、認証情報が設定されていない場合のエラーです
	ErrCredentialNotFound = errors.New("APIキーが設定されていません")

	// ErrUnsupportedHistoryVersion は、履歴のスキーマバージョンが未対応の場合のエラーです
	ErrUnsupportedHistoryVersion = errors.New("未対応の履歴バージョンです")
)

// 生成クライアントの失敗種別
var (
	// ErrInvalidCredential は、認証情報が無効または対象が見つからない場合のエラーです
	ErrInvalidCredential = errors.New("認証情報が無効です")

	// ErrNoImageReturned は、レスポンスに画像データが含まれていない場合のエラーです
	ErrNoImageReturned = errors.New("レスポンスに画像データが含まれていません")

	// ErrTransport は、その他のリモート呼び出しの失敗です
	ErrTransport = errors.New("リモート呼び出しに失敗しました")
)

// GenerationError は、生成・解析クライアントが返す分類済みのエラーです
type GenerationError struct {
	Kind error
	Err  error
}

// NewGenerationError は、種別と原因からGenerationErrorを作成します
func NewGenerationError(kind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Error(), e.Err)
}

// Unwrap は、種別と原因の両方を返します
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsCredentialError は、エラーが認証情報の再選択を必要とするかを判定します
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
