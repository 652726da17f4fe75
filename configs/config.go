package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"studiobot/internal/domain"
	"studiobot/internal/infrastructure/config"

	"github.com/joho/godotenv"
)

// 履歴の保存先
const (
	HistoryBackendFile  = "file"
	HistoryBackendRedis = "redis"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Discord config.DiscordConfig
	Gemini  config.GeminiConfig
	Studio  config.StudioConfig
	History config.HistoryConfig
	Log     config.LogConfig
	HTTP    config.HTTPConfig
}

// LoadConfig は、.envファイルと環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルが存在しない場合は環境変数のみを使う
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}

	config := &Config{
		Discord: config.DiscordConfig{
			BotToken: getEnvOrDefault("DISCORD_BOT_TOKEN", ""),
		},
		Gemini: config.GeminiConfig{
			APIKey:            getEnvOrDefault("GEMINI_API_KEY", ""),
			ImageModelName:    getEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			AnalysisModelName: getEnvOrDefault("GEMINI_ANALYSIS_MODEL", "gemini-2.5-flash"),
			RequestTimeout:    getEnvAsDurationOrDefault("REQUEST_TIMEOUT", 2*time.Minute),
		},
		Studio: config.StudioConfig{
			OutputDir:    getEnvOrDefault("STUDIO_OUTPUT_DIR", "output"),
			DefaultOwner: getEnvOrDefault("STUDIO_OWNER", domain.LocalOwnerID),
		},
		History: config.HistoryConfig{
			Backend:    getEnvOrDefault("HISTORY_BACKEND", HistoryBackendFile),
			FilePath:   getEnvOrDefault("HISTORY_FILE", "data/history.json"),
			RedisURL:   getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
			Key:        getEnvOrDefault("HISTORY_KEY", "studiobot:history"),
			MaxEntries: getEnvAsIntOrDefault("HISTORY_MAX_ENTRIES", 50),
		},
		Log: config.LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Pretty: getEnvAsBoolOrDefault("LOG_PRETTY", false),
		},
		HTTP: config.HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate は、設定の妥当性を検証します
func (c *Config) Validate() error {
	if c.Gemini.ImageModelName == "" {
		return fmt.Errorf("GEMINI_IMAGE_MODEL が設定されていません")
	}

	if c.Gemini.AnalysisModelName == "" {
		return fmt.Errorf("GEMINI_ANALYSIS_MODEL が設定されていません")
	}

	if c.Gemini.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT は正の値である必要があります")
	}

	switch c.History.Backend {
	case HistoryBackendFile:
		if c.History.FilePath == "" {
			return fmt.Errorf("HISTORY_FILE が設定されていません")
		}
	case HistoryBackendRedis:
		if c.History.RedisURL == "" {
			return fmt.Errorf("REDIS_URL が設定されていません")
		}
		if c.History.Key == "" {
			return fmt.Errorf("HISTORY_KEY が設定されていません")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND は file または redis である必要があります: %s", c.History.Backend)
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("HISTORY_MAX_ENTRIES は0以上である必要があります")
	}

	if c.Studio.OutputDir == "" {
		return fmt.Errorf("STUDIO_OUTPUT_DIR が設定されていません")
	}

	return nil
}

// ValidateForDiscord は、Discord Botとして起動するための設定を検証します
// サーバーごとのAPIキーを使えるため、GEMINI_API_KEY は必須ではありません
func (c *Config) ValidateForDiscord() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN が設定されていません")
	}
	return nil
}

// ValidateForLocal は、CLIから生成・解析を行うための設定を検証します
func (c *Config) ValidateForLocal() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY が設定されていません")
	}
	return nil
}

// getEnvOrDefault は、環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は、環境変数を整数として取得し、存在しない場合はデフォルト値を返します
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は、環境変数を時間として取得し、存在しない場合はデフォルト値を返します
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は、環境変数を真偽値として取得し、存在しない場合はデフォルト値を返します
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
