package joblock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLock возвращается при ошибке обращения к Redis
var ErrLock = errors.New("joblock: redis error")

// Удаляем ключ, только если он всё ещё принадлежит нам
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis распределённая блокировка (SET NX PX) для нескольких реплик сервиса
//
// TTL должен быть больше максимальной длительности запуска джоба,
// иначе блокировка истечёт до завершения и следующий тик запустится параллельно.
type Redis struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis создает Redis Locker
func NewRedis(client goredis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// TryLock реализует Locker
func (r *Redis) TryLock(ctx context.Context, name string) (func(), bool, error) {
	key := r.key(name)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: SETNX %s: %v", ErrLock, key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Контекст запуска может быть уже отменён, освобождаем с отдельным таймаутом
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err()
	}
	return release, true, nil
}

func (r *Redis) key(name string) string {
	return r.prefix + ":lock:" + name
}
