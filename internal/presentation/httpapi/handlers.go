package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/go-chi/chi/v5"
)

type sessionSummary struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	Title       string         `json:"title"`
	Location    string         `json:"location,omitempty"`
	AspectRatio string         `json:"aspectRatio"`
	Resolution  string         `json:"resolution"`
	Images      map[string]int `json:"images"`
	Shots       int            `json:"shots"`
	Run         *runSummary    `json:"run,omitempty"`
}

type runSummary struct {
	ID         string     `json:"id"`
	Phase      string     `json:"phase"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	FailedShot int        `json:"failedShot,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type resultView struct {
	Number    int       `json:"number"`
	ShotID    string    `json:"shotId"`
	Pose      string    `json:"pose"`
	MIMEType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
	ImageURL  string    `json:"imageUrl"`
}

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("レスポンスの書き込みに失敗しました")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.json(w, code, map[string]string{"error": msg})
}

func (s *Server) image(w http.ResponseWriter, img domain.ReferenceImage) {
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	if _, err := w.Write(img.Data); err != nil {
		s.logger.Warn().Err(err).Str("image", img.ID).Msg("画像の書き込みに失敗しました")
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("履歴の取得に失敗しました")
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if entries == nil {
		entries = []domain.ProjectHistoryEntry{}
	}
	s.json(w, http.StatusOK, entries)
}

func (s *Server) historyPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.history.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("履歴の取得に失敗しました")
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		if e.PreviewImageRef == "" || s.previews == nil {
			break
		}
		img, err := s.previews.Open(e.PreviewImageRef)
		if err != nil {
			s.logger.Warn().Err(err).Str("entry", id).Msg("プレビュー画像の読み込みに失敗しました")
			break
		}
		s.image(w, img)
		return
	}
	s.writeError(w, http.StatusNotFound, "preview not found")
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	s.json(w, http.StatusOK, map[string][]string{"sessions": s.studios.Sessions()})
}

// lookup は、URLのセッションIDからStudioを返します。見つからない場合は404を書き込みます
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*application.Studio, bool) {
	studio, ok := s.studios.Lookup(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
	}
	return studio, ok
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	studio, ok := s.lookup(w, r)
	if !ok {
		return
	}
	st := studio.Store.Snapshot()

	summary := sessionSummary{
		ID:          studio.SessionID,
		Owner:       studio.OwnerID,
		Title:       st.Scene.DisplayTitle(),
		Location:    st.Scene.Location,
		AspectRatio: st.AspectRatio.String(),
		Resolution:  st.Quality.Resolution.String(),
		Images:      make(map[string]int),
		Shots:       len(st.Shots),
	}
	for _, c := range domain.AllImageCollections() {
		summary.Images[c.String()] = len(st.Images.Collection(c))
	}
	if run := st.Run; run != nil {
		rs := &runSummary{
			ID:        run.ID,
			Phase:     run.Phase.String(),
			Total:     len(run.Shots),
			Completed: len(run.Results),
			StartedAt: run.StartedAt,
		}
		if run.FailedShot != "" {
			rs.FailedShot = run.ShotIndex(run.FailedShot) + 1
		}
		if run.Err != nil {
			rs.Error = run.Err.Error()
		}
		if !run.FinishedAt.IsZero() {
			finished := run.FinishedAt
			rs.FinishedAt = &finished
		}
		summary.Run = rs
	}
	s.json(w, http.StatusOK, summary)
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	studio, ok := s.lookup(w, r)
	if !ok {
		return
	}
	run := studio.Store.Snapshot().Run
	views := []resultView{}
	if run != nil {
		for _, res := range run.Results {
			n := run.ShotIndex(res.ShotID) + 1
			shot, _ := run.Shot(res.ShotID)
			views = append(views, resultView{
				Number:    n,
				ShotID:    res.ShotID,
				Pose:      shot.Pose,
				MIMEType:  res.Image.MIMEType,
				CreatedAt: res.CreatedAt,
				ImageURL:  fmt.Sprintf("/sessions/%s/results/%d/image", studio.SessionID, n),
			})
		}
	}
	s.json(w, http.StatusOK, views)
}

func (s *Server) resultImage(w http.ResponseWriter, r *http.Request) {
	studio, ok := s.lookup(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid shot number")
		return
	}
	shot, err := studio.RunShotByIndex(n)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "shot not found")
		return
	}
	res, ok := studio.Store.Snapshot().Run.Result(shot.ID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	s.image(w, res.Image)
}
