package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/shipping-admin/internal/model"
)

const sessionKeyPrefix = "console:session:"

// RedisStore хранит сеансы в Redis. Время жизни ключа совпадает со сроком действия токена.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore подключается к Redis по указанному адресу.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

// Save сохраняет сеанс.
func (r *RedisStore) Save(ctx context.Context, s *model.Session) error {
	ttl := s.TokenExpiry.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("save session: token already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get возвращает сеанс по идентификатору.
func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Delete удаляет сеанс.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, sessionKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
