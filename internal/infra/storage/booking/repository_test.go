package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/ptr"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

var day = types.NewDate(2026, time.October, 19)

func TestBusinessFilterQuery(t *testing.T) {
	t.Run("active only by default", func(t *testing.T) {
		query, args, err := businessFilterQuery(domain.BusinessBookingsFilter{BusinessID: 7}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "WHERE business_id = $1 AND status IN ($2,$3)")
		assert.Contains(t, query, "ORDER BY booking_date DESC, start_minute DESC, id DESC")
		assert.Equal(t, []interface{}{int64(7), "pending", "confirmed"}, args)
	})

	t.Run("single day sorted by start", func(t *testing.T) {
		query, args, err := businessFilterQuery(domain.BusinessBookingsFilter{
			BusinessID: 7, StartDate: &day, EndDate: &day, IncludeInactive: true,
		}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "booking_date >= $2")
		assert.Contains(t, query, "booking_date <= $3")
		assert.NotContains(t, query, "status IN")
		assert.NotContains(t, query, "status =")
		assert.Contains(t, query, "ORDER BY start_minute ASC, id ASC")
		assert.Len(t, args, 3)
	})

	t.Run("explicit status", func(t *testing.T) {
		status := domain.StatusCancelled
		query, args, err := businessFilterQuery(domain.BusinessBookingsFilter{BusinessID: 7, Status: &status}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "status = $2")
		assert.Equal(t, domain.StatusCancelled, args[1])
	})
}

func TestStatusUpdateQuery(t *testing.T) {
	at := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

	t.Run("compare and set on previous status", func(t *testing.T) {
		query, args, err := statusUpdateQuery(5, domain.StatusChange{
			From: domain.StatusPending, To: domain.StatusConfirmed, At: at,
		}).ToSql()
		require.NoError(t, err)

		assert.Equal(t,
			"UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING "+
				"id, business_id, service_id, customer_id, staff_id, booking_date, start_minute, end_minute, status, "+
				"total_price, service_name, notes, cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at",
			query)
		assert.Equal(t, []interface{}{domain.StatusConfirmed, at, int64(5), domain.StatusPending}, args)
	})

	t.Run("cancellation records metadata", func(t *testing.T) {
		query, args, err := statusUpdateQuery(5, domain.StatusChange{
			From: domain.StatusConfirmed, To: domain.StatusCancelled, At: at, Actor: 42, Reason: ptr.Ptr("sick"),
		}).ToSql()
		require.NoError(t, err)

		assert.Contains(t, query, "cancellation_reason = $3, cancelled_at = $4, cancelled_by = $5")
		assert.Equal(t, int64(42), args[4])
	})
}

func TestAdvisoryKey(t *testing.T) {
	base := advisoryKey(1, day, 0)

	assert.Equal(t, base, advisoryKey(1, day, 0))
	assert.NotEqual(t, base, advisoryKey(2, day, 0))
	assert.NotEqual(t, base, advisoryKey(1, day.AddDays(1), 0))
	assert.NotEqual(t, base, advisoryKey(1, day, 3))
}

func TestIsOverlapViolation(t *testing.T) {
	assert.True(t, isOverlapViolation(&pq.Error{Code: "23P01"}))
	assert.True(t, isOverlapViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isOverlapViolation(&pq.Error{Code: "40001"}))
	assert.False(t, isOverlapViolation(fmt.Errorf("plain")))
}

func TestLockDay_RequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)

	err := repo.LockDay(context.Background(), 1, day, 0)

	assert.ErrorIs(t, err, ErrNoTransaction)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
