package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"studiobot/internal/application"
	"studiobot/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
}

func (c *stubClient) GenerateImage(ctx context.Context, req application.GenerationRequest) (domain.ReferenceImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return domain.ReferenceImage{ID: "gen", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G', byte(c.calls)}}, nil
}

func (c *stubClient) AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage) (*domain.AnalysisResult, error) {
	return nil, errors.New("not used")
}

type stubProvider struct{ client *stubClient }

func (p stubProvider) ClientFor(ctx context.Context, ownerID string) (application.StudioClient, error) {
	return p.client, nil
}

func (p stubProvider) HasCustomCredential(ctx context.Context, ownerID string) (bool, error) {
	return false, nil
}

type memHistory struct {
	entries []domain.ProjectHistoryEntry
}

func (m *memHistory) Load(ctx context.Context) ([]domain.ProjectHistoryEntry, error) {
	return m.entries, nil
}

func (m *memHistory) Save(ctx context.Context, entries []domain.ProjectHistoryEntry) error {
	m.entries = entries
	return nil
}

// memPreviews は、Putした画像を参照名で保持します
type memPreviews struct {
	images map[string]domain.ReferenceImage
}

func (m *memPreviews) Put(ctx context.Context, name string, img domain.ReferenceImage) (string, error) {
	ref := "previews/" + name
	m.images[ref] = img
	return ref, nil
}

func (m *memPreviews) Open(ref string) (domain.ReferenceImage, error) {
	img, ok := m.images[ref]
	if !ok {
		return domain.ReferenceImage{}, domain.ErrImageNotFound
	}
	return img, nil
}

func newTestServer(t *testing.T) (*Server, *application.StudioRegistry) {
	t.Helper()
	logger := zerolog.Nop()
	provider := stubProvider{client: &stubClient{}}
	previews := &memPreviews{images: make(map[string]domain.ReferenceImage)}
	history := application.NewHistoryService(&memHistory{}, previews, 0, logger)
	studios := application.NewStudioRegistry(provider, provider, history, logger)
	return NewServer(studios, history, previews, logger), studios
}

func shoot(t *testing.T, studios *application.StudioRegistry) *application.Studio {
	t.Helper()
	s := studios.Get("channel-1", "guild-1")
	cmds := []application.Command{
		application.AddImage{Collection: domain.CollectionProduct, Image: domain.NewReferenceImage("bag.png", "image/png", []byte("bag"))},
		application.AddImage{Collection: domain.CollectionReference, Image: domain.NewReferenceImage("model.png", "image/png", []byte("model"))},
		application.SetSceneField{Field: application.SceneTitle, Value: "Autumn Drop"},
		application.AddShot{Shot: domain.NewShotSpec("standing", domain.ShotTypeFull, domain.CameraAngleEyeLevel)},
		application.AddShot{Shot: domain.NewShotSpec("sitting", domain.ShotTypeMid, domain.CameraAngleLow)},
	}
	for _, cmd := range cmds {
		if err := s.Store.Dispatch(cmd); err != nil {
			t.Fatalf("コマンドの適用に失敗: %v", err)
		}
	}
	if _, err := s.Orchestrator.Execute(context.Background(), nil); err != nil {
		t.Fatalf("撮影に失敗: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv.Router(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード: 期待 200, 実際 %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("JSONの解析に失敗: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("statusが異なります: %v", body)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, studios := newTestServer(t)
	h := srv.Router()
	s := shoot(t, studios)

	rec := get(t, h, "/sessions/")
	var sessions map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("JSONの解析に失敗: %v", err)
	}
	if diff := cmp.Diff([]string{"channel-1"}, sessions["sessions"]); diff != "" {
		t.Errorf("セッション一覧が異なります (-want +got):\n%s", diff)
	}

	rec = get(t, h, "/sessions/channel-1")
	var summary sessionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("JSONの解析に失敗: %v", err)
	}
	if summary.Title != "Autumn Drop" || summary.Shots != 2 || summary.Images["product"] != 1 {
		t.Errorf("セッションの概要が異なります: %+v", summary)
	}
	if summary.Run == nil || summary.Run.Phase != "completed" || summary.Run.Completed != 2 || summary.Run.FinishedAt == nil {
		t.Errorf("実行状態が異なります: %+v", summary.Run)
	}

	rec = get(t, h, "/sessions/channel-1/results")
	var results []resultView
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("JSONの解析に失敗: %v", err)
	}
	if len(results) != 2 || results[1].Number != 2 || results[1].Pose != "sitting" {
		t.Fatalf("結果一覧が異なります: %+v", results)
	}

	rec = get(t, h, results[1].ImageURL)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("画像の取得に失敗: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	run := s.Store.Snapshot().Run
	if diff := cmp.Diff(run.Results[1].Image.Data, rec.Body.Bytes()); diff != "" {
		t.Errorf("画像データが異なります (-want +got):\n%s", diff)
	}
}

func TestNotFound(t *testing.T) {
	srv, studios := newTestServer(t)
	h := srv.Router()
	shoot(t, studios)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"存在しないセッション", "/sessions/missing", http.StatusNotFound},
		{"存在しないセッションの結果", "/sessions/missing/results", http.StatusNotFound},
		{"範囲外のショット", "/sessions/channel-1/results/9/image", http.StatusNotFound},
		{"不正なショット番号", "/sessions/channel-1/results/abc/image", http.StatusBadRequest},
		{"存在しない履歴", "/history/missing/preview", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := get(t, h, tt.path); rec.Code != tt.want {
				t.Errorf("ステータスコード: 期待 %d, 実際 %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHistoryEndpoints(t *testing.T) {
	srv, studios := newTestServer(t)
	h := srv.Router()

	rec := get(t, h, "/history/")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("空の履歴は空配列になるべきです: %d %q", rec.Code, rec.Body.String())
	}

	shoot(t, studios)

	rec = get(t, h, "/history/")
	var entries []domain.ProjectHistoryEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("JSONの解析に失敗: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Autumn Drop" {
		t.Fatalf("履歴が異なります: %+v", entries)
	}
	if time.Since(entries[0].CreatedAt) > time.Minute {
		t.Errorf("作成日時が異なります: %v", entries[0].CreatedAt)
	}

	rec = get(t, h, "/history/"+entries[0].ID+"/preview")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("プレビュー画像の取得に失敗: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}
