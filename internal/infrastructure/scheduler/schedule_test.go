package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"1,,2 * * * *",
		"a * * * *",
	} {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, expr)
	}
}

func TestCronExpression_Next(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	base := time.Date(2024, 3, 4, 10, 17, 42, 0, loc) // Monday

	tests := []struct {
		expr string
		want time.Time
	}{
		{EveryMinute, time.Date(2024, 3, 4, 10, 18, 0, 0, loc)},
		{EveryHour, time.Date(2024, 3, 4, 11, 0, 0, 0, loc)},
		{"*/15 * * * *", time.Date(2024, 3, 4, 10, 30, 0, 0, loc)},
		{DailyAt(20), time.Date(2024, 3, 4, 20, 0, 0, 0, loc)},
		{DailyAt(9), time.Date(2024, 3, 5, 9, 0, 0, 0, loc)},
		{"0 9 * * 6,0", time.Date(2024, 3, 9, 9, 0, 0, 0, loc)},
		{"30 8 1 * *", time.Date(2024, 4, 1, 8, 30, 0, 0, loc)},
		{"0 0 29 2 *", time.Date(2028, 2, 29, 0, 0, 0, 0, loc)},
		{"0 0 31 2 *", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ce.Next(base)), "got %s", ce.Next(base))
			assert.Equal(t, tt.expr, ce.String())
		})
	}
}

func TestCronExpression_NextIsStrictlyAfter(t *testing.T) {
	ce := MustParseCronExpression(DailyAt(20))
	at := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, at.AddDate(0, 0, 1), ce.Next(at))
}

func TestIntervalSchedule(t *testing.T) {
	s := Every(time.Minute)
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(time.Minute), s.Next(at))
	assert.Equal(t, "@every 1m0s", s.String())
}
