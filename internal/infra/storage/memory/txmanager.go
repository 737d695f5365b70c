package memory

import (
	"context"
	"sync"
)

type txStateKey struct{}

// txState хранит блокировки, взятые внутри "транзакции"
type txState struct {
	mu       sync.Mutex
	held     map[dayKey]struct{}
	releases []func()
}

func (s *txState) hold(key dayKey, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[key] = struct{}{}
	s.releases = append(s.releases, release)
}

func (s *txState) holds(key dayKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[key]
	return ok
}

func (s *txState) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
	s.held = nil
}

func stateFrom(ctx context.Context) (*txState, bool) {
	s, ok := ctx.Value(txStateKey{}).(*txState)
	return s, ok
}

// TxManager менеджер "транзакций" in-memory хранилища.
// Транзакция здесь - это область удержания блокировок дня: все блокировки,
// взятые через Store.LockDay, отпускаются при выходе из fn.
// Отката нет: запись в хранилище должна быть последним шагом fn.
type TxManager struct{}

// NewTxManager создает менеджер транзакций in-memory хранилища
func NewTxManager() *TxManager {
	return &TxManager{}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

func (m *TxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

func (m *TxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, fn)
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	// Вложенный вызов переиспользует внешнюю транзакцию
	if _, ok := stateFrom(ctx); ok {
		return fn(ctx)
	}

	state := &txState{held: make(map[dayKey]struct{})}
	defer state.release()

	return fn(context.WithValue(ctx, txStateKey{}, state))
}
