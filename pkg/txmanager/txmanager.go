// Package txmanager управление транзакциями PostgreSQL через context.
package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wb-go/wbf/retry"

	"github.com/m04kA/SMC-BookingEngine/pkg/dbmetrics"
)

// Параметры повторов сериализуемой транзакции по умолчанию
const (
	DefaultSerializableRetries = 3
	DefaultRetryDelay          = 20 * time.Millisecond
	DefaultRetryBackoff        = 2.0
)

// SQLSTATE коды, при которых сериализуемую транзакцию можно безопасно повторить
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// ErrTransaction возвращается при ошибках начала/фиксации транзакции
var ErrTransaction = errors.New("txmanager: transaction error")

// TxBeginner источник транзакций (*dbmetrics.DB)
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// RetryRecorder получает уведомления о повторах (метрики)
type RetryRecorder interface {
	RecordTxRetry(sqlState string)
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// TransactionManager выполняет функции внутри транзакции, передавая её через context
type TransactionManager struct {
	db         TxBeginner
	maxRetries int
	delay      time.Duration
	backoff    float64
	recorder   RetryRecorder
	logger     Logger
}

// Option настройка менеджера
type Option func(*TransactionManager)

// WithMaxRetries задает количество повторов сериализуемой транзакции
func WithMaxRetries(n int) Option {
	return func(m *TransactionManager) {
		if n >= 0 {
			m.maxRetries = n
		}
	}
}

// WithRetryDelay задает начальную задержку перед повтором и множитель ее роста
func WithRetryDelay(delay time.Duration, backoff float64) Option {
	return func(m *TransactionManager) {
		if delay >= 0 {
			m.delay = delay
		}
		if backoff >= 1 {
			m.backoff = backoff
		}
	}
}

// WithRetryRecorder подключает запись метрик повторов
func WithRetryRecorder(r RetryRecorder) Option {
	return func(m *TransactionManager) { m.recorder = r }
}

// WithLogger подключает логирование повторов
func WithLogger(l Logger) Option {
	return func(m *TransactionManager) { m.logger = l }
}

// NewTransactionManager создает менеджер транзакций
func NewTransactionManager(db TxBeginner, opts ...Option) *TransactionManager {
	m := &TransactionManager{
		db:         db,
		maxRetries: DefaultSerializableRetries,
		delay:      DefaultRetryDelay,
		backoff:    DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do выполняет fn в транзакции READ COMMITTED
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// DoReadOnly выполняет fn в транзакции только для чтения
func (m *TransactionManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

// DoSerializable выполняет fn в транзакции SERIALIZABLE.
// При serialization_failure / deadlock_detected транзакция повторяется целиком
// (до maxRetries раз) с растущей задержкой, поэтому fn должна быть идемпотентной до фиксации.
// Бизнес-ошибки, возвращенные fn, не повторяются. Отмена ctx прерывает ожидание повтора.
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	strategy := retry.Strategy{
		Attempts: m.maxRetries + 1,
		Delay:    m.delay,
		Backoff:  m.backoff,
	}

	var (
		lastErr error
		attempt int
	)

	// retry.DoContext повторяет любую ошибку, поэтому неповторяемые
	// ошибки сохраняются в lastErr и цикл останавливается возвратом nil
	retryErr := retry.DoContext(ctx, strategy, func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			lastErr = err
			return nil
		}

		lastErr = m.run(ctx, opts, fn)

		state, retryable := retryableState(lastErr)
		if !retryable || attempt == strategy.Attempts {
			return nil
		}

		if m.recorder != nil {
			m.recorder.RecordTxRetry(state)
		}
		if m.logger != nil {
			m.logger.Warn("txmanager: retrying serializable transaction (attempt %d/%d, sqlstate=%s)",
				attempt, m.maxRetries, state)
		}
		return lastErr
	})

	// Ненулевая ошибка DoContext означает отмену ctx во время ожидания повтора
	if retryErr != nil {
		return fmt.Errorf("%w: retry interrupted: %w", retryErr, lastErr)
	}
	return lastErr
}

func (m *TransactionManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	// Вложенный вызов переиспользует внешнюю транзакцию
	if dbmetrics.IsInTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTransaction, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dbmetrics.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransaction, err)
	}

	return nil
}

// retryableState проверяет, является ли ошибка конфликтом сериализации
func retryableState(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	code := string(pqErr.Code)
	return code, code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
}
