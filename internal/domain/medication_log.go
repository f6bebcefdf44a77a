package domain

import "time"

// DateLayout is the calendar-day format used for ScheduledFor and report windows.
const DateLayout = "2006-01-02"

// MedicationLog records a dose marked as taken.
type MedicationLog struct {
	ID           int64
	MedicationID int64
	UserID       int64
	TakenAt      time.Time
	// ScheduledFor is the logical day of the dose in DateLayout.
	ScheduledFor string
	CreatedAt    time.Time
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate validates a DateLayout string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
