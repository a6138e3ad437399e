package objecturl

import (
	"context"
	"fmt"
	"time"

	lowimpl "github.com/redis/go-redis/v9"
)

const (
	redisFieldData = "data"
	redisFieldType = "type"
)

// RedisConf locates the Redis server.
type RedisConf struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, "pdfreport:blob:" when empty
}

// RedisStore keeps blobs in Redis hashes that expire after the store TTL.
// URLs are baseURL/{id}.
type RedisStore struct {
	client  *lowimpl.Client
	prefix  string
	baseURL string
	ttl     time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis. The connection is checked with PING.
func NewRedisStore(ctx context.Context, conf RedisConf, baseURL string, ttl time.Duration) (*RedisStore, error) {
	client := lowimpl.NewClient(&lowimpl.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("objecturl: redis ping: %w", err)
	}
	return NewRedisStoreFromClient(client, conf.Prefix, baseURL, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *lowimpl.Client, prefix, baseURL string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "pdfreport:blob:"
	}
	return &RedisStore{client: client, prefix: prefix, baseURL: baseURL, ttl: ttl}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Put(ctx context.Context, data []byte, contentType string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	id := newID()
	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(p lowimpl.Pipeliner) error {
		p.HSet(ctx, key, redisFieldData, data, redisFieldType, contentType)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("objecturl: redis put: %w", err)
	}
	return &Object{
		ID:          id,
		URL:         joinURL(s.baseURL, id),
		ContentType: contentType,
		Size:        len(data),
		Expires:     expiry(time.Now(), s.ttl),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, string, error) {
	if !validID(id) {
		return nil, "", ErrNotFound
	}
	vals, err := s.client.HMGet(ctx, s.key(id), redisFieldData, redisFieldType).Result()
	if err != nil {
		return nil, "", fmt.Errorf("objecturl: redis get: %w", err)
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, "", ErrNotFound
	}
	ct, _ := vals[1].(string)
	return []byte(data), ct, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("objecturl: redis revoke: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
