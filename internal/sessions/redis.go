package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

type RedisDirectory struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDirectory connects and pings before returning.
func NewRedisDirectory(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisDirectory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))
	return &RedisDirectory{client: client, ttl: ttl, logger: logger}, nil
}

func (d *RedisDirectory) Put(ctx context.Context, token, roomCode string) error {
	payload, err := json.Marshal(Entry{RoomCode: roomCode, IssuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := d.client.Set(ctx, keyPrefix+token, payload, d.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Get(ctx context.Context, token string) (Entry, error) {
	raw, err := d.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load session: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		d.logger.Warn("Corrupt session entry", zap.Error(err))
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (d *RedisDirectory) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = keyPrefix + tok
	}
	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
