package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateWithClampedDay(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		day   int
		want  time.Time
	}{
		{"day fits", 2024, time.March, 15, date(2024, time.March, 15)},
		{"february non-leap", 2023, time.February, 31, date(2023, time.February, 28)},
		{"february leap", 2024, time.February, 31, date(2024, time.February, 29)},
		{"thirty day month", 2024, time.April, 31, date(2024, time.April, 30)},
		{"month overflow", 2024, 13, 5, date(2025, time.January, 5)},
		{"month underflow", 2024, 0, 31, date(2023, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateWithClampedDay(tt.year, tt.month, tt.day, time.UTC))
		})
	}
}

func TestAddMonths(t *testing.T) {
	assert.Equal(t, date(2023, time.February, 28), AddMonths(date(2023, time.January, 31), 1))
	assert.Equal(t, date(2024, time.February, 29), AddMonths(date(2024, time.January, 31), 1))
	assert.Equal(t, date(2025, time.January, 15), AddMonths(date(2024, time.October, 15), 3))
	assert.Equal(t, date(2024, time.February, 29), AddMonths(date(2024, time.March, 31), -1))

	withClock := time.Date(2024, time.January, 31, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.April, 30, 10, 30, 0, 0, time.UTC), AddMonths(withClock, 3))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 30, DaysBetween(date(2024, time.January, 1), date(2024, time.January, 31)))
	assert.Equal(t, -30, DaysBetween(date(2024, time.January, 31), date(2024, time.January, 1)))
	assert.Equal(t, 29, DaysBetween(date(2024, time.February, 1), date(2024, time.March, 1)))

	// time of day is ignored
	from := time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, time.May, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(from, to))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 3, MonthsBetween(date(2023, time.November, 15), date(2024, time.February, 1)))
	assert.Equal(t, 0, MonthsBetween(date(2024, time.May, 1), date(2024, time.May, 31)))
	assert.Equal(t, -2, MonthsBetween(date(2024, time.May, 1), date(2024, time.March, 31)))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(7, 3))
	assert.Equal(t, -1, floorDiv(-1, 3))
	assert.Equal(t, -2, floorDiv(-6, 3))
	assert.Equal(t, 0, floorDiv(0, 12))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}
