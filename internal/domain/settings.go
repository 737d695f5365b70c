package domain

import (
	"fmt"
	"time"
)

// ScheduleSettings represents the slot configuration of a business.
// Supports hierarchical configuration:
// 1. Service-specific (business_id, service_id)
// 2. Business-wide (business_id, NULL)
type ScheduleSettings struct {
	ID                      int64
	BusinessID              int64
	ServiceID               *int64 // NULL = settings for all services
	SlotStepMinutes         int    // slot granularity
	AdvanceBookingDays      int    // 0 = unlimited
	MinBookingNoticeMinutes int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DefaultScheduleSettings returns settings used when nothing is configured
func DefaultScheduleSettings(businessID int64) *ScheduleSettings {
	return &ScheduleSettings{
		BusinessID:              businessID,
		SlotStepMinutes:         DefaultSlotStepMinutes,
		AdvanceBookingDays:      DefaultAdvanceBookingDays,
		MinBookingNoticeMinutes: DefaultMinBookingNoticeMinutes,
	}
}

// IsBusinessWide returns true if the settings apply to every service of the business
func (s *ScheduleSettings) IsBusinessWide() bool {
	return s.ServiceID == nil
}

// HasAdvanceBookingLimit returns true if there's a limit on how far in advance bookings can be made
func (s *ScheduleSettings) HasAdvanceBookingLimit() bool {
	return s.AdvanceBookingDays > 0
}

// ConflictScope defines which bookings compete for the same time
type ConflictScope string

const (
	// ConflictScopeBusiness: any two bookings of a business on a date conflict on overlap
	ConflictScopeBusiness ConflictScope = "business"
	// ConflictScopeStaff: only bookings of the same staff member conflict;
	// bookings without staff share one pool
	ConflictScopeStaff ConflictScope = "staff"
)

// ParseConflictScope validates a scope from configuration
func ParseConflictScope(s string) (ConflictScope, error) {
	switch ConflictScope(s) {
	case ConflictScopeBusiness, ConflictScopeStaff:
		return ConflictScope(s), nil
	case "":
		return ConflictScopeBusiness, nil
	default:
		return "", fmt.Errorf("%w: unknown conflict scope %q", ErrInvalidInput, s)
	}
}

// Key returns the partition key a booking with the given staff falls into
func (s ConflictScope) Key(staffID *int64) int64 {
	if s != ConflictScopeStaff || staffID == nil {
		return 0
	}
	return *staffID
}
