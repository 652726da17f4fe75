package domain

import (
	"context"
	"time"
)

// LocalOwnerID は、CLIから利用する場合の所有者IDです
const LocalOwnerID = "local"

// OwnerCredential は、所有者（Discordサーバーまたはローカル利用者）固有のAPIキーを表します
type OwnerCredential struct {
	OwnerID string
	APIKey  string
	SetBy   string
	SetAt   time.Time
}

// NewOwnerCredential は新しいOwnerCredentialインスタンスを作成します
func NewOwnerCredential(ownerID, apiKey, setBy string, setAt time.Time) OwnerCredential {
	return OwnerCredential{
		OwnerID: ownerID,
		APIKey:  apiKey,
		SetBy:   setBy,
		SetAt:   setAt,
	}
}

// Masked は、APIキーを伏せた複製を返します
func (c OwnerCredential) Masked() OwnerCredential {
	m := c
	if len(m.APIKey) > 4 {
		m.APIKey = "****" + m.APIKey[len(m.APIKey)-4:]
	} else {
		m.APIKey = "****"
	}
	return m
}

// CredentialRepository は、所有者固有のAPIキーの永続化を行うインターフェースです
type CredentialRepository interface {
	// SetAPIKey は、指定された所有者のAPIキーを設定します
	SetAPIKey(ctx context.Context, ownerID, apiKey, setBy string) error

	// GetAPIKey は、指定された所有者のAPIキーを取得します
	GetAPIKey(ctx context.Context, ownerID string) (string, error)

	// DeleteAPIKey は、指定された所有者のAPIキーを削除します
	DeleteAPIKey(ctx context.Context, ownerID string) error

	// HasAPIKey は、指定された所有者にAPIキーが設定されているかを確認します
	HasAPIKey(ctx context.Context, ownerID string) (bool, error)

	// GetInfo は、指定された所有者の設定情報を取得します（APIキーは伏せられます）
	GetInfo(ctx context.Context, ownerID string) (OwnerCredential, error)
}
