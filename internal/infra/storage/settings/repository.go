package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/dbmetrics"
	"github.com/m04kA/SMC-BookingEngine/pkg/psqlbuilder"
)

const table = "schedule_settings"

var columns = []string{
	"id",
	"business_id",
	"service_id",
	"slot_step_minutes",
	"advance_booking_days",
	"min_booking_notice_minutes",
	"created_at",
	"updated_at",
}

// Repository репозиторий настроек расписания
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория настроек расписания
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByBusinessAndService получает настройки ровно для (businessID, serviceID).
// serviceID = nil означает настройки для всех услуг бизнеса.
func (r *Repository) GetByBusinessAndService(ctx context.Context, businessID int64, serviceID *int64) (*domain.ScheduleSettings, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := selectQuery(businessID, serviceID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessAndService - build select query: %w", ErrBuildQuery, err)
	}

	settings, err := scanSettings(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBusinessAndService - scan settings: %w", ErrScanRow, err)
	}

	return settings, nil
}

// GetWithHierarchy получает настройки с учетом иерархии приоритетов:
// 1. Настройки для конкретной услуги (businessID, serviceID)
// 2. Настройки для всех услуг бизнеса (businessID, NULL)
//
// Если настройки не найдены ни на одном уровне, возвращает domain.ErrSettingsNotFound
func (r *Repository) GetWithHierarchy(ctx context.Context, businessID int64, serviceID *int64) (*domain.ScheduleSettings, error) {
	if serviceID != nil {
		settings, err := r.GetByBusinessAndService(ctx, businessID, serviceID)
		if err == nil {
			return settings, nil
		}
		if !errors.Is(err, domain.ErrSettingsNotFound) {
			return nil, fmt.Errorf("GetWithHierarchy - level 1 (service): %w", err)
		}
	}

	settings, err := r.GetByBusinessAndService(ctx, businessID, nil)
	if err != nil && !errors.Is(err, domain.ErrSettingsNotFound) {
		return nil, fmt.Errorf("GetWithHierarchy - level 2 (business): %w", err)
	}

	return settings, err
}

// Upsert создает или обновляет настройки для (businessID, serviceID)
func (r *Repository) Upsert(ctx context.Context, settings *domain.ScheduleSettings) (*domain.ScheduleSettings, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := upsertQuery(settings).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %w", ErrBuildQuery, err)
	}

	saved, err := scanSettings(executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %w", ErrExecQuery, err)
	}

	return saved, nil
}

func selectQuery(businessID int64, serviceID *int64) squirrel.SelectBuilder {
	selectBuilder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"business_id": businessID})

	// Фильтрация по service_id (NULL или конкретное значение)
	if serviceID == nil {
		return selectBuilder.Where(squirrel.Eq{"service_id": nil})
	}
	return selectBuilder.Where(squirrel.Eq{"service_id": *serviceID})
}

func upsertQuery(settings *domain.ScheduleSettings) squirrel.InsertBuilder {
	return psqlbuilder.Insert(table).
		Columns(
			"business_id",
			"service_id",
			"slot_step_minutes",
			"advance_booking_days",
			"min_booking_notice_minutes",
		).
		Values(
			settings.BusinessID,
			settings.ServiceID,
			settings.SlotStepMinutes,
			settings.AdvanceBookingDays,
			settings.MinBookingNoticeMinutes,
		).
		Suffix(`ON CONFLICT (business_id, (COALESCE(service_id, 0))) DO UPDATE SET
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			advance_booking_days = EXCLUDED.advance_booking_days,
			min_booking_notice_minutes = EXCLUDED.min_booking_notice_minutes,
			updated_at = NOW()
		RETURNING id, business_id, service_id, slot_step_minutes, advance_booking_days,
			min_booking_notice_minutes, created_at, updated_at`)
}

func scanSettings(row *sql.Row) (*domain.ScheduleSettings, error) {
	var (
		settings             domain.ScheduleSettings
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&settings.ID,
		&settings.BusinessID,
		&settings.ServiceID,
		&settings.SlotStepMinutes,
		&settings.AdvanceBookingDays,
		&settings.MinBookingNoticeMinutes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	settings.CreatedAt = createdAt.Time
	settings.UpdatedAt = updatedAt.Time

	return &settings, nil
}
