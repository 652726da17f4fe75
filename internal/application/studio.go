package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"studiobot/internal/domain"

	"github.com/rs/zerolog"
)

// CredentialChecker は、所有者に専用の認証情報があるかを確認します
type CredentialChecker interface {
	HasCustomCredential(ctx context.Context, ownerID string) (bool, error)
}

// Studio は、1つの撮影セッションの状態とサービスをまとめたものです
type Studio struct {
	SessionID    string
	OwnerID      string
	Store        *StudioStore
	Orchestrator *BatchOrchestrator
	Analysis     *AnalysisService

	credentials CredentialChecker
}

// NewStudio は新しいStudioインスタンスを作成します
func NewStudio(sessionID, ownerID string, clients ClientProvider, credentials CredentialChecker, history *HistoryService, logger zerolog.Logger) *Studio {
	logger = logger.With().Str("session", sessionID).Logger()
	store := NewStudioStore(logger)
	return &Studio{
		SessionID:    sessionID,
		OwnerID:      ownerID,
		Store:        store,
		Orchestrator: NewBatchOrchestrator(store, clients, ownerID, history, logger),
		Analysis:     NewAnalysisService(store, clients, ownerID, logger),
		credentials:  credentials,
	}
}

// SetResolution は、認証情報の状態を確認したうえで解像度を変更します
func (s *Studio) SetResolution(ctx context.Context, r domain.Resolution) error {
	has := false
	if r > domain.ResolutionLow {
		var err error
		has, err = s.credentials.HasCustomCredential(ctx, s.OwnerID)
		if err != nil {
			return fmt.Errorf("APIキーの確認に失敗: %w", err)
		}
	}
	return s.Store.Dispatch(SetResolution{Resolution: r, HasCredential: has})
}

// ShotByIndex は、1始まりの番号でショットを返します
func (s *Studio) ShotByIndex(n int) (domain.ShotSpec, error) {
	shots := s.Store.Snapshot().Shots
	if n < 1 || n > len(shots) {
		return domain.ShotSpec{}, fmt.Errorf("ショット番号 %d: %w", n, domain.ErrShotNotFound)
	}
	return shots[n-1], nil
}

// ShotByID は、現在のショット一覧からIDでショットを返します
func (s *Studio) ShotByID(id string) (domain.ShotSpec, error) {
	st := s.Store.Snapshot()
	if i := st.shotIndex(id); i >= 0 {
		return st.Shots[i], nil
	}
	return domain.ShotSpec{}, fmt.Errorf("shot %s: %w", id, domain.ErrShotNotFound)
}

// RunShotByIndex は、直近の実行記録の1始まりの番号でショットを返します
func (s *Studio) RunShotByIndex(n int) (domain.ShotSpec, error) {
	run := s.Store.Snapshot().Run
	if run == nil {
		return domain.ShotSpec{}, domain.ErrNoRun
	}
	if n < 1 || n > len(run.Shots) {
		return domain.ShotSpec{}, fmt.Errorf("ショット番号 %d: %w", n, domain.ErrShotNotFound)
	}
	return run.Shots[n-1], nil
}

// StudioRegistry は、セッションIDごとのStudioを管理します
type StudioRegistry struct {
	mu          sync.Mutex
	studios     map[string]*Studio
	clients     ClientProvider
	credentials CredentialChecker
	history     *HistoryService
	logger      zerolog.Logger
}

// NewStudioRegistry は新しいStudioRegistryインスタンスを作成します
func NewStudioRegistry(clients ClientProvider, credentials CredentialChecker, history *HistoryService, logger zerolog.Logger) *StudioRegistry {
	return &StudioRegistry{
		studios:     make(map[string]*Studio),
		clients:     clients,
		credentials: credentials,
		history:     history,
		logger:      logger,
	}
}

// Get は、セッションのStudioを返します。存在しない場合は作成します
func (r *StudioRegistry) Get(sessionID, ownerID string) *Studio {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.studios[sessionID]; ok {
		return s
	}
	s := NewStudio(sessionID, ownerID, r.clients, r.credentials, r.history, r.logger)
	r.studios[sessionID] = s
	r.logger.Info().Str("session", sessionID).Str("owner", ownerID).Msg("スタジオを作成しました")
	return s
}

// Lookup は、既存のStudioを返します
func (r *StudioRegistry) Lookup(sessionID string) (*Studio, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.studios[sessionID]
	return s, ok
}

// Sessions は、管理中のセッションIDを昇順で返します
func (r *StudioRegistry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.studios))
	for id := range r.studios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
