package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// RedisPublisher публикует события в канал клиента через Redis PUBLISH
// Подписчики (websocket/SSE шлюз) пересылают их в открытые соединения клиента
type RedisPublisher struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisClient создает клиента Redis и проверяет соединение
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrConnect, addr, err)
	}

	return rdb, nil
}

// NewRedisPublisher создает издателя событий
func NewRedisPublisher(rdb goredis.UniversalClient, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

// Publish отправляет событие в канал клиента "<prefix>:<customerID>"
func (p *RedisPublisher) Publish(ctx context.Context, customerID int64, event domain.RealtimeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", ErrPublish, err)
	}
	if err := p.rdb.Publish(ctx, Channel(p.prefix, customerID), raw).Err(); err != nil {
		return fmt.Errorf("%w: customer_id=%d: %v", ErrPublish, customerID, err)
	}
	return nil
}

// Channel имя канала клиента
func Channel(prefix string, customerID int64) string {
	return fmt.Sprintf("%s:%d", prefix, customerID)
}

// LogPublisher пишет события в лог, когда Redis отключён
type LogPublisher struct {
	log Logger
}

// NewLogPublisher создает издателя-заглушку
func NewLogPublisher(log Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish логирует событие
func (p *LogPublisher) Publish(_ context.Context, customerID int64, event domain.RealtimeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", ErrPublish, err)
	}
	p.log.Info("Realtime event customer_id=%d: %s", customerID, raw)
	return nil
}
