package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// fakeClient は、テスト用のモック生成・解析クライアントです
type fakeClient struct {
	mu          sync.Mutex
	name        string
	calls       []GenerationRequest
	failAt      map[int]error
	onCall      func(i int)
	analysis    *domain.AnalysisResult
	analysisErr error
	analyzed    int
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{name: name, failAt: make(map[int]error)}
}

func (f *fakeClient) GenerateImage(ctx context.Context, req GenerationRequest) (domain.ReferenceImage, error) {
	f.mu.Lock()
	i := len(f.calls)
	f.calls = append(f.calls, req)
	err := f.failAt[i]
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(i)
	}
	if err != nil {
		return domain.ReferenceImage{}, err
	}
	return domain.ReferenceImage{
		ID:       fmt.Sprintf("%s-%d", f.name, i),
		Name:     fmt.Sprintf("%s-%d.png", f.name, i),
		MIMEType: "image/png",
		Data:     []byte{0x89, 'P', 'N', 'G', byte(i)},
	}, nil
}

func (f *fakeClient) AnalyzeProduct(ctx context.Context, images []domain.ReferenceImage) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzed++
	return f.analysis, f.analysisErr
}

func (f *fakeClient) Calls() []GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]GenerationRequest(nil), f.calls...)
}

// fakeProvider は、所有者に関係なく同じクライアントを返します
type fakeProvider struct {
	mu     sync.Mutex
	client StudioClient
	err    error
	hasKey bool
}

func (p *fakeProvider) ClientFor(ctx context.Context, ownerID string) (StudioClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client, p.err
}

func (p *fakeProvider) HasCustomCredential(ctx context.Context, ownerID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasKey, nil
}

func (p *fakeProvider) set(client StudioClient, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
	p.err = err
}

// memHistoryRepo は、メモリ上の履歴リポジトリです
type memHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.ProjectHistoryEntry
	saves   int
}

func (r *memHistoryRepo) Load(ctx context.Context) ([]domain.ProjectHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProjectHistoryEntry(nil), r.entries...), nil
}

func (r *memHistoryRepo) Save(ctx context.Context, entries []domain.ProjectHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]domain.ProjectHistoryEntry(nil), entries...)
	r.saves++
	return nil
}

// memImageStore は、メモリ上の画像ストアです
type memImageStore struct {
	mu     sync.Mutex
	images map[string]domain.ReferenceImage
}

func newMemImageStore() *memImageStore {
	return &memImageStore{images: make(map[string]domain.ReferenceImage)}
}

func (s *memImageStore) Put(ctx context.Context, name string, img domain.ReferenceImage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "mem://" + name
	s.images[ref] = img
	return ref, nil
}

func (s *memImageStore) Get(ref string) (domain.ReferenceImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[ref]
	return img, ok
}

type testStudio struct {
	store    *StudioStore
	orch     *BatchOrchestrator
	provider *fakeProvider
	client   *fakeClient
	history  *memHistoryRepo
	images   *memImageStore
}

func mustDispatch(t *testing.T, store *StudioStore, cmds ...Command) {
	t.Helper()
	for _, cmd := range cmds {
		if err := store.Dispatch(cmd); err != nil {
			t.Fatalf("%T の適用に失敗: %v", cmd, err)
		}
	}
}

// newTestStudio は、商品画像・参照画像と3つのショット（s1, s2, s3）を持つスタジオを作成します
func newTestStudio(t *testing.T) *testStudio {
	t.Helper()
	client := newFakeClient("gen")
	provider := &fakeProvider{client: client}
	repo := &memHistoryRepo{}
	images := newMemImageStore()

	store := NewStudioStore(zerolog.Nop())
	history := NewHistoryService(repo, images, 0, zerolog.Nop())
	orch := NewBatchOrchestrator(store, provider, "guild-1", history, zerolog.Nop())

	mustDispatch(t, store,
		AddImage{Collection: domain.CollectionProduct, Image: domain.ReferenceImage{ID: "product", Name: "bag.jpg", MIMEType: "image/jpeg"}},
		AddImage{Collection: domain.CollectionReference, Image: domain.ReferenceImage{ID: "reference", Name: "ref.jpg", MIMEType: "image/jpeg"}},
		SetSceneField{Field: SceneTitle, Value: "Autumn Drop"},
		SetSceneField{Field: SceneLocation, Value: "Paris rooftop"},
		AddShot{Shot: domain.ShotSpec{ID: "s1", Pose: "standing", ShotType: domain.ShotTypeFull}},
		AddShot{Shot: domain.ShotSpec{ID: "s2", Pose: "sitting", ShotType: domain.ShotTypeMid}},
		AddShot{Shot: domain.ShotSpec{ID: "s3", Pose: "walking", ShotType: domain.ShotTypeWalking}},
	)

	return &testStudio{store: store, orch: orch, provider: provider, client: client, history: repo, images: images}
}
