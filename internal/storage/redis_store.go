package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps a capped list of recent messages per room.
// It has no report storage.
type RedisStore struct {
	client *redis.Client
	prefix string
	cap    int64
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client without pinging it.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "strangerly:history"
	}
	return &RedisStore{client: client, prefix: prefix, cap: config.RedisHistoryCap}
}

func (s *RedisStore) key(room string) string {
	return s.prefix + ":" + room
}

// SaveMessage appends to the room list and trims it to the cap.
func (s *RedisStore) SaveMessage(ctx context.Context, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(msg.RoomID), data)
	pipe.LTrim(ctx, s.key(msg.RoomID), -s.cap, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save message for room %s: %w", msg.RoomID, err)
	}
	return nil
}

// RecentMessages reads the tail of the room list, oldest first.
func (s *RedisStore) RecentMessages(ctx context.Context, room string, limit int) ([]models.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(room), -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history for room %s: %w", room, err)
	}

	msgs := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.L().Warn().Err(err).Str(logger.FieldRoom, room).Msg("skipping corrupt history entry")
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
