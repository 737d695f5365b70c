package memory

import (
	"context"
	"sync"

	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// dayKey ключ блокировки: бизнес + дата + ключ области конфликта
type dayKey struct {
	businessID int64
	date       types.Date
	scopeKey   int64
}

// refMutex мьютекс на канале с буфером 1, ожидание которого можно прервать через ctx
type refMutex struct {
	sem  chan struct{}
	refs int
}

// keyedMutex выдает отдельный мьютекс на каждый ключ и освобождает его,
// когда ключ больше никто не держит и не ждет
type keyedMutex struct {
	mu    sync.Mutex
	locks map[dayKey]*refMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[dayKey]*refMutex)}
}

// Lock ждет блокировку ключа. При отмене ctx возвращает ctx.Err() без захвата.
func (k *keyedMutex) Lock(ctx context.Context, key dayKey) error {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{sem: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, m)
		return ctx.Err()
	}
}

func (k *keyedMutex) Unlock(key dayKey) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}

	<-m.sem
	k.release(key, m)
}

func (k *keyedMutex) release(key dayKey, m *refMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}
