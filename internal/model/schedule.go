package model

import (
	"fmt"
	"time"
)

// Recurrence frequencies.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Schedule is a weekly or monthly recurring meeting schedule.
type Schedule struct {
	Meta

	Frequency string // FrequencyWeekly or FrequencyMonthly
	Interval  int    // every N weeks/months
	Weekday   time.Weekday
	StartTime time.Time
}

// Content renders the schedule as a minimal iCalendar recurrence rule.
// The destination platform stores the rendered rule, not the parts.
func (s *Schedule) Content() string {
	freq := "WEEKLY"
	if s.Frequency == FrequencyMonthly {
		freq = "MONTHLY"
	}

	day := [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}[s.Weekday]

	return fmt.Sprintf(
		"DTSTART:%s\r\nRRULE:FREQ=%s;BYDAY=%s;INTERVAL=%d",
		s.StartTime.Format("20060102T150405"), freq, day, s.Interval,
	)
}
