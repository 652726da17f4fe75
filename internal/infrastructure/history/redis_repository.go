package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studiobot/internal/domain"

	"github.com/redis/go-redis/v9"
)

// stringStore は、go-redisクライアントのうち履歴の読み書きに使う部分です
type stringStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRepository は、1つのRedisキーに履歴を保存するリポジトリです
type RedisRepository struct {
	client stringStore
	key    string
}

var _ domain.HistoryRepository = (*RedisRepository)(nil)

// NewRedisRepository は新しいRedisRepositoryインスタンスを作成します
func NewRedisRepository(client stringStore, key string) *RedisRepository {
	return &RedisRepository{client: client, key: key}
}

// Connect は、URLからRedisクライアントを作成し、疎通を確認します
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL の解析に失敗: %w", err)
	}
	opts.DialTimeout = 10 * time.Second
	opts.ReadTimeout = 30 * time.Second
	opts.WriteTimeout = 30 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	return rdb, nil
}

// Load は、キーから履歴を読み込みます。キーがない場合は空を返します
func (r *RedisRepository) Load(ctx context.Context) ([]domain.ProjectHistoryEntry, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Redisからの履歴の読み込みに失敗: %w", err)
	}
	return decodeDocument(data)
}

// Save は、キーの値を履歴全体で置き換えます
func (r *RedisRepository) Save(ctx context.Context, entries []domain.ProjectHistoryEntry) error {
	data, err := encodeDocument(entries)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("Redisへの履歴の書き込みに失敗: %w", err)
	}
	return nil
}
