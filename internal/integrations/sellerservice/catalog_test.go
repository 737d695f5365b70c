package sellerservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
[[businesses]]
id = 1
name = "Barbershop"
is_active = true
cancellation_hours = 24

[businesses.working_hours.monday]
is_open = true
open_time = "09:00"
close_time = "17:00"

[[services]]
id = 10
business_id = 1
name = "Haircut"
duration_minutes = 60
price = 1500.0
is_active = true
`

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog(testCatalog, time.UTC)
	require.NoError(t, err)
	ctx := context.Background()

	business, err := catalog.GetBusiness(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, business.Location)
	assert.Equal(t, 540, business.WorkingHours[time.Monday].OpenMinute)

	service, err := catalog.GetService(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 60, service.DurationMinutes)

	_, err = catalog.GetService(ctx, 2, 10)
	assert.ErrorIs(t, err, ErrServiceNotFound, "service of another business")

	_, err = catalog.GetBusiness(ctx, 2)
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog(`[[services]]
id = 1
business_id = 1
duration_minutes = 0`, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = ParseCatalog(`[[businesses]]
id = 1
timezone = "Mars/Olympus"`, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = ParseCatalog(`not = [toml`, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
