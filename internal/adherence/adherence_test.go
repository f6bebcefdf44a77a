package adherence

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		medications  int
		taken        int
		wantRate     int
		wantExpected int
	}{
		{name: "no medications", medications: 0, taken: 0, wantRate: 0, wantExpected: 0},
		{name: "no medications with stray logs", medications: 0, taken: 4, wantRate: 0, wantExpected: 0},
		{name: "two medications nothing taken", medications: 2, taken: 0, wantRate: 0, wantExpected: 60},
		{name: "half taken", medications: 1, taken: 15, wantRate: 50, wantExpected: 30},
		{name: "all taken", medications: 1, taken: 30, wantRate: 100, wantExpected: 30},
		{name: "rounds half up", medications: 4, taken: 3, wantRate: 3, wantExpected: 120},
		{name: "rounds down", medications: 3, taken: 1, wantRate: 1, wantExpected: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, expected := Calculate(tt.medications, tt.taken)
			assert.Equal(t, tt.wantRate, rate)
			assert.Equal(t, tt.wantExpected, expected)
		})
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, time.March, 15, 23, 30, 0, 0, time.UTC)

	start, end := Window(now)
	assert.Equal(t, "2024-02-14", start)
	assert.Equal(t, "2024-03-15", end)
}

func TestWindow_UsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	now := time.Date(2024, time.March, 15, 2, 0, 0, 0, loc)

	_, end := Window(now)
	assert.Equal(t, "2024-03-14", end)
}

func TestWindow_StartAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 19:30 EDT is 23:30 UTC; thirty days earlier the zone was still on EST.
	now := time.Date(2024, time.March, 20, 19, 30, 0, 0, loc)

	start, end := Window(now)
	assert.Equal(t, "2024-02-19", start)
	assert.Equal(t, "2024-03-20", end)
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

	report := Build(now, 2, 0)
	require.Equal(t, 0, report.Rate)
	require.Equal(t, 60, report.ExpectedDoses)
	require.Equal(t, 0, report.TakenDoses)
	assert.Equal(t, "2024-01-01 to 2024-01-31", report.Period())
}
