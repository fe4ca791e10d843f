package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"mangoleaf/internal/model"
)

// RedisSessionStore keeps session state and image blobs in redis. Every key
// expires after ttl so abandoned sessions release their images.
type RedisSessionStore struct {
	client *redisv9.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client *redisv9.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if prefix == "" {
		prefix = "mangoleaf"
	}
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) GetSession(ctx context.Context, id string) (*model.Session, bool, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session failed: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached session failed: %w", err)
	}
	return &session, true, nil
}

func (s *RedisSessionStore) SetSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(session.ID), payload, s.ttl)
		// The selected image lives as long as the session that points at it.
		for _, key := range imageKeys(session) {
			pipe.Expire(ctx, s.blobKey(key), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set session failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) GetBlob(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.blobKey(key)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get blob failed: %w", err)
	}
	return raw, true, nil
}

func (s *RedisSessionStore) SetBlob(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.blobKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set blob failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteBlobs(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.blobKey(key)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis delete blobs failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func imageKeys(session *model.Session) []string {
	if session.Image == nil {
		return nil
	}
	return []string{model.ImageKey(session.Image.ID), model.PreviewKey(session.Image.ID)}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

func (s *RedisSessionStore) blobKey(key string) string {
	return fmt.Sprintf("%s:blob:%s", s.prefix, key)
}
