package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"studiobot/internal/infrastructure/config"

	"github.com/rs/zerolog"
)

// New は、設定に従ってzerolog.Loggerを作成します
// prettyがtrueの場合は人が読みやすいコンソール形式で出力します
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter は、出力先を指定してLoggerを作成します
func NewWithWriter(w io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("LOG_LEVEL の解析に失敗: %w", err)
		}
		level = parsed
	}

	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", "studiobot").
		Logger(), nil
}
