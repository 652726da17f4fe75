package httpapi

import (
	"net/http"
	"time"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// PreviewOpener は、履歴のプレビュー画像を参照から読み込みます
type PreviewOpener interface {
	Open(ref string) (domain.ReferenceImage, error)
}

// Server は、スタジオの状態を参照するための読み取り専用HTTP APIです
type Server struct {
	studios  *application.StudioRegistry
	history  *application.HistoryService
	previews PreviewOpener
	logger   zerolog.Logger
}

// NewServer は新しいServerインスタンスを作成します
func NewServer(studios *application.StudioRegistry, history *application.HistoryService, previews PreviewOpener, logger zerolog.Logger) *Server {
	return &Server{
		studios:  studios,
		history:  history,
		previews: previews,
		logger:   logger,
	}
}

// Router は、APIのルーティングを組み立てます
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(s.logger),
	)

	r.Get("/healthz", s.health)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.listHistory)
		r.Get("/{id}/preview", s.historyPreview)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Get("/{id}", s.getSession)
		r.Get("/{id}/results", s.listResults)
		r.Get("/{id}/results/{n}/image", s.resultImage)
	})

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogger は、リクエストごとにアクセスログを出力します
func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("HTTPリクエストを処理しました")
		})
	}
}
