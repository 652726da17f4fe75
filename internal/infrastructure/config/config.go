package config

import "time"

// GeminiConfig は、Gemini API関連の設定を定義します
type GeminiConfig struct {
	APIKey            string
	ImageModelName    string // 画像生成用モデル名
	AnalysisModelName string // 商品解析用モデル名
	RequestTimeout    time.Duration
}

// DiscordConfig は、Discord関連の設定を定義します
type DiscordConfig struct {
	BotToken string
}

// StudioConfig は、スタジオ全体の設定を定義します
type StudioConfig struct {
	OutputDir    string // 書き出し先とプレビュー画像の保存先
	DefaultOwner string // CLIから利用する場合の所有者ID
}

// HistoryConfig は、プロジェクト履歴の保存先を定義します
type HistoryConfig struct {
	Backend    string // "file" または "redis"
	FilePath   string
	RedisURL   string
	Key        string
	MaxEntries int
}

// LogConfig は、ログ出力の設定を定義します
type LogConfig struct {
	Level  string
	Pretty bool
}

// HTTPConfig は、状態参照用HTTP APIの設定を定義します
type HTTPConfig struct {
	Addr string // 空の場合は起動しません
}
