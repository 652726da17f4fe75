package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"studiobot/internal/domain"
)

// MemoryCredentialRepository は、所有者ごとのAPIキーをメモリ上で管理するリポジトリです
// プロセスの再起動でAPIキーは失われます
type MemoryCredentialRepository struct {
	credentials map[string]domain.OwnerCredential
	mutex       sync.RWMutex
	now         func() time.Time
}

var _ domain.CredentialRepository = (*MemoryCredentialRepository)(nil)

// NewMemoryCredentialRepository は新しいMemoryCredentialRepositoryインスタンスを作成します
func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{
		credentials: make(map[string]domain.OwnerCredential),
		now:         time.Now,
	}
}

// SetAPIKey は、指定された所有者のAPIキーを設定します
func (r *MemoryCredentialRepository) SetAPIKey(ctx context.Context, ownerID, apiKey, setBy string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.credentials[ownerID] = domain.NewOwnerCredential(ownerID, apiKey, setBy, r.now())
	return nil
}

// GetAPIKey は、指定された所有者のAPIキーを取得します
func (r *MemoryCredentialRepository) GetAPIKey(ctx context.Context, ownerID string) (string, error) {
	cred, err := r.get(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return cred.APIKey, nil
}

// DeleteAPIKey は、指定された所有者のAPIキーを削除します
func (r *MemoryCredentialRepository) DeleteAPIKey(ctx context.Context, ownerID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.credentials[ownerID]; !exists {
		return fmt.Errorf("所有者 %s: %w", ownerID, domain.ErrCredentialNotFound)
	}
	delete(r.credentials, ownerID)
	return nil
}

// HasAPIKey は、指定された所有者にAPIキーが設定されているかを確認します
func (r *MemoryCredentialRepository) HasAPIKey(ctx context.Context, ownerID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.credentials[ownerID]
	return exists, nil
}

// GetInfo は、指定された所有者の設定情報を取得します（APIキーは伏せられます）
func (r *MemoryCredentialRepository) GetInfo(ctx context.Context, ownerID string) (domain.OwnerCredential, error) {
	cred, err := r.get(ctx, ownerID)
	if err != nil {
		return domain.OwnerCredential{}, err
	}
	return cred.Masked(), nil
}

func (r *MemoryCredentialRepository) get(ctx context.Context, ownerID string) (domain.OwnerCredential, error) {
	if ctx.Err() != nil {
		return domain.OwnerCredential{}, ctx.Err()
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cred, exists := r.credentials[ownerID]
	if !exists {
		return domain.OwnerCredential{}, fmt.Errorf("所有者 %s: %w", ownerID, domain.ErrCredentialNotFound)
	}
	return cred, nil
}
