package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeString_Minutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "17:00", want: 1020},
		{in: "24:00", want: 1440},
		{in: "24:01", wantErr: ErrTimeOutOfRange},
		{in: "9:30", wantErr: ErrInvalidTimeString},
		{in: "09:60", wantErr: ErrInvalidTimeString},
		{in: "+9:30", wantErr: ErrInvalidTimeString},
		{in: "ab:cd", wantErr: ErrInvalidTimeString},
		{in: "", wantErr: ErrInvalidTimeString},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := TimeString(tt.in).Minutes()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTimeStringFromMinutes(t *testing.T) {
	ts, err := NewTimeStringFromMinutes(9*60 + 5)
	require.NoError(t, err)
	assert.Equal(t, TimeString("09:05"), ts)

	_, err = NewTimeStringFromMinutes(-1)
	assert.ErrorIs(t, err, ErrTimeOutOfRange)

	assert.Equal(t, TimeString("24:00"), MustFromMinutes(MinutesPerDay))
}

func TestDate_ParseAndCompare(t *testing.T) {
	d, err := ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.October, Day: 19}, d)
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "2026-10-19", d.String())

	prev := d.AddDays(-1)
	assert.True(t, prev.Before(d))
	assert.True(t, d.After(prev))
	assert.False(t, d.Before(d))

	_, err = ParseDate("2026-13-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	d := NewDate(2026, time.December, 31)
	assert.Equal(t, NewDate(2027, time.January, 1), d.AddDays(1))
}

func TestToday_UsesLocation(t *testing.T) {
	// 23:30 UTC is already the next day in Moscow (UTC+3)
	now := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	moscow := time.FixedZone("MSK", 3*60*60)

	assert.Equal(t, NewDate(2026, time.October, 18), Today(now, time.UTC))
	assert.Equal(t, NewDate(2026, time.October, 19), Today(now, moscow))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, NewDate(2026, time.March, 1), d)

	require.NoError(t, d.Scan("2026-03-02T00:00:00Z"))
	assert.Equal(t, NewDate(2026, time.March, 2), d)

	assert.Error(t, d.Scan(42))
}

func TestDate_At(t *testing.T) {
	d := NewDate(2026, time.October, 20)
	at := d.At(14*60, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC), at)
}
