package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/dbmetrics"
	"github.com/m04kA/SMC-BookingEngine/pkg/psqlbuilder"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

const table = "bookings"

// SQLSTATE коды нарушений ограничений, означающие пересечение интервалов
const (
	sqlStateExclusionViolation = "23P01"
	sqlStateUniqueViolation    = "23505"
)

var columns = []string{
	"id",
	"business_id",
	"service_id",
	"customer_id",
	"staff_id",
	"booking_date",
	"start_minute",
	"end_minute",
	"status",
	"total_price",
	"service_name",
	"notes",
	"cancellation_reason",
	"cancelled_at",
	"cancelled_by",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями в PostgreSQL.
// Если в контексте передана активная транзакция (через dbmetrics.WithTx), все запросы идут в неё.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// LockDay берет транзакционную advisory-блокировку на (бизнес, дата, ключ области).
// Блокировка отпускается при COMMIT/ROLLBACK, поэтому вне транзакции она бессмысленна.
func (r *Repository) LockDay(ctx context.Context, businessID int64, date types.Date, scopeKey int64) error {
	if !dbmetrics.IsInTransaction(ctx) {
		return ErrNoTransaction
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select().
		Column(squirrel.Expr("pg_advisory_xact_lock(?)", advisoryKey(businessID, date, scopeKey))).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: LockDay - build query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: LockDay - execute: %w", ErrExecQuery, err)
	}

	return nil
}

// Insert создает новое бронирование.
// Нарушение ограничения bookings_no_overlap возвращается как *domain.ConflictError без Blocking.
func (r *Repository) Insert(ctx context.Context, booking *domain.Booking, scopeKey int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(table).
		Columns(
			"business_id",
			"service_id",
			"customer_id",
			"staff_id",
			"scope_key",
			"booking_date",
			"start_minute",
			"end_minute",
			"status",
			"total_price",
			"service_name",
			"notes",
		).
		Values(
			booking.BusinessID,
			booking.ServiceID,
			booking.CustomerID,
			booking.StaffID,
			scopeKey,
			booking.Date,
			booking.StartMinute,
			booking.EndMinute,
			booking.Status,
			booking.TotalPrice,
			booking.ServiceName,
			booking.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Insert - build insert query: %w", ErrBuildQuery, err)
	}

	created := *booking
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(&created.ID, &createdAt, &updatedAt)
	if err != nil {
		if isOverlapViolation(err) {
			return nil, &domain.ConflictError{}
		}
		return nil, fmt.Errorf("%w: Insert - execute insert: %w", ErrExecQuery, err)
	}

	created.CreatedAt = createdAt.Time
	created.UpdatedAt = updatedAt.Time

	return &created, nil
}

// FindByBusinessAndDate получает все бронирования бизнеса на дату по возрастанию времени начала
func (r *Repository) FindByBusinessAndDate(ctx context.Context, businessID int64, date types.Date) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"business_id": businessID, "booking_date": date}).
		OrderBy("start_minute ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindByBusinessAndDate - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindByBusinessAndDate - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %w", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %w", ErrScanRow, err)
	}

	return booking, nil
}

// GetByCustomerID получает список бронирований клиента (сначала новые).
// Опционально фильтрует по статусу.
func (r *Repository) GetByCustomerID(ctx context.Context, customerID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("booking_date DESC", "start_minute DESC", "id DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCustomerID - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByCustomerID - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetByBusinessWithFilter получает бронирования бизнеса с фильтрацией по периоду и статусу.
//
// Примеры:
//
//  1. Все активные бронирования бизнеса:
//     filter := domain.BusinessBookingsFilter{BusinessID: 123}
//
//  2. Бронирования на конкретную дату (сортировка по времени начала):
//     filter := domain.BusinessBookingsFilter{BusinessID: 123, StartDate: &d, EndDate: &d}
//
//  3. Все бронирования включая отменённые:
//     filter := domain.BusinessBookingsFilter{BusinessID: 123, IncludeInactive: true}
func (r *Repository) GetByBusinessWithFilter(ctx context.Context, filter domain.BusinessBookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := businessFilterQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessWithFilter - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessWithFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// UpdateStatus применяет изменение статуса условно: UPDATE ... WHERE status = change.From.
// Если строка не обновлена, различаем отсутствие бронирования и конкурентное изменение статуса.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, change domain.StatusChange) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := statusUpdateQuery(id, change).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - build update query: %w", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - execute update: %w", ErrExecQuery, err)
	}

	return booking, nil
}

func businessFilterQuery(filter domain.BusinessBookingsFilter) squirrel.SelectBuilder {
	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"business_id": filter.BusinessID})

	// Фильтрация по периоду
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"booking_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"booking_date": *filter.EndDate})
	}

	// Фильтрация по статусу
	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeInactive {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": statusStrings(domain.OccupyingStatuses)})
	}

	if filter.IsSingleDay() {
		return selectBuilder.OrderBy("start_minute ASC", "id ASC")
	}
	return selectBuilder.OrderBy("booking_date DESC", "start_minute DESC", "id DESC")
}

func statusUpdateQuery(id int64, change domain.StatusChange) squirrel.UpdateBuilder {
	updateBuilder := psqlbuilder.Update(table).
		Set("status", change.To).
		Set("updated_at", change.At)

	if change.IsCancellation() {
		updateBuilder = updateBuilder.
			Set("cancellation_reason", change.Reason).
			Set("cancelled_at", change.At).
			Set("cancelled_by", change.Actor)
	}

	return updateBuilder.
		Where(squirrel.Eq{"id": id, "status": change.From}).
		Suffix("RETURNING " + strings.Join(columns, ", "))
}

// advisoryKey сворачивает ключ блокировки в bigint для pg_advisory_xact_lock
func advisoryKey(businessID int64, date types.Date, scopeKey int64) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "bookings:%d:%s:%d", businessID, date, scopeKey)
	return int64(h.Sum64())
}

func isOverlapViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == sqlStateExclusionViolation || pqErr.Code == sqlStateUniqueViolation
}

func statusStrings(statuses []domain.BookingStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		booking              domain.Booking
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&booking.ID,
		&booking.BusinessID,
		&booking.ServiceID,
		&booking.CustomerID,
		&booking.StaffID,
		&booking.Date,
		&booking.StartMinute,
		&booking.EndMinute,
		&booking.Status,
		&booking.TotalPrice,
		&booking.ServiceName,
		&booking.Notes,
		&booking.CancellationReason,
		&booking.CancelledAt,
		&booking.CancelledBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %w", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %w", ErrScanRow, err)
	}

	return bookings, nil
}
