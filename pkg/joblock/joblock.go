// Package joblock защищает периодические джобы от наложения запусков.
// Если предыдущий запуск ещё выполняется, новый не ждёт, а пропускается.
package joblock

import (
	"context"
	"sync"
	"sync/atomic"
)

// Locker захватывает именованную блокировку без ожидания
type Locker interface {
	// TryLock возвращает ok=false, если блокировка уже занята
	TryLock(ctx context.Context, name string) (release func(), ok bool, err error)
}

// Local блокировка в пределах процесса (compare-and-swap на каждый джоб)
type Local struct {
	mu    sync.Mutex
	flags map[string]*atomic.Bool
}

// NewLocal создает локальный Locker
func NewLocal() *Local {
	return &Local{flags: make(map[string]*atomic.Bool)}
}

// TryLock реализует Locker
func (l *Local) TryLock(_ context.Context, name string) (func(), bool, error) {
	flag := l.flag(name)
	if !flag.CompareAndSwap(false, true) {
		return nil, false, nil
	}

	var once sync.Once
	return func() { once.Do(func() { flag.Store(false) }) }, true, nil
}

func (l *Local) flag(name string) *atomic.Bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, ok := l.flags[name]
	if !ok {
		f = &atomic.Bool{}
		l.flags[name] = f
	}
	return f
}
