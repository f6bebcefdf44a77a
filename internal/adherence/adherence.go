// Package adherence computes the dose adherence rate over a fixed window.
//
// Every medication counts as one expected dose per day regardless of its
// declared frequency.
package adherence

import (
	"fmt"
	"math"
	"time"

	"medsbuddy/internal/domain"
)

// WindowDays is the length of the reporting window.
const WindowDays = 30

// Report is the adherence summary for one user.
type Report struct {
	Rate          int
	ExpectedDoses int
	TakenDoses    int
	StartDate     string
	EndDate       string
}

// Period renders the window the way clients display it.
func (r Report) Period() string {
	return fmt.Sprintf("%s to %s", r.StartDate, r.EndDate)
}

// Window returns the inclusive day range ending on now's UTC date.
func Window(now time.Time) (start, end string) {
	now = now.UTC()
	end = domain.DateOf(now)
	start = domain.DateOf(now.AddDate(0, 0, -WindowDays))
	return start, end
}

// Calculate derives the rate from the number of medications and the number
// of taken doses logged inside the window.
func Calculate(medications, taken int) (rate, expected int) {
	expected = medications * WindowDays
	if expected <= 0 {
		return 0, 0
	}
	rate = int(math.Round(100 * float64(taken) / float64(expected)))
	return rate, expected
}

// Build assembles a Report for the window ending at now.
func Build(now time.Time, medications, taken int) Report {
	start, end := Window(now)
	rate, expected := Calculate(medications, taken)
	return Report{
		Rate:          rate,
		ExpectedDoses: expected,
		TakenDoses:    taken,
		StartDate:     start,
		EndDate:       end,
	}
}
