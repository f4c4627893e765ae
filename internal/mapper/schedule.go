package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
)

// ErrBadFrequency is returned for a recurrence phrase matching no rule.
// Unlike a missing optional field this is a hard error: a phrase we cannot
// interpret means the source file is malformed, and the mapper run aborts.
var ErrBadFrequency = errors.New("unrecognized recurrence frequency")

// ParseFrequency derives a recurrence from a free-text legacy field.
// Rules, in order:
//
//   - single-digit numeric string N            => every N months
//   - "Every Week" (exact, case-sensitive)     => weekly, interval 1
//   - "Every 2 Weeks" (exact, case-sensitive)  => weekly, interval 2
//   - anything else                            => ErrBadFrequency
func ParseFrequency(s string) (frequency string, interval int, err error) {
	v := strings.TrimSpace(s)

	if len(v) == 1 && v[0] >= '0' && v[0] <= '9' {
		return model.FrequencyMonthly, int(v[0] - '0'), nil
	}

	switch v {
	case "Every Week":
		return model.FrequencyWeekly, 1, nil
	case "Every 2 Weeks":
		return model.FrequencyWeekly, 2, nil
	}

	return "", 0, fmt.Errorf("%w: %q", ErrBadFrequency, s)
}

// weekdays maps legacy day names to time.Weekday.
var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// buildSchedule constructs a group schedule from the frequency, day and
// start-time columns. frequencyText is mandatory once present: a phrase
// matching no rule and an unparseable start time are both hard errors.
func buildSchedule(frequencyText, dayText, startText string, dateFormats []string) (*model.Schedule, error) {
	frequency, interval, err := ParseFrequency(frequencyText)
	if err != nil {
		return nil, err
	}

	weekday, ok := weekdays[strings.ToLower(strings.TrimSpace(dayText))]
	if !ok {
		weekday = time.Sunday
	}

	start, err := parseStartTime(startText, dateFormats)
	if err != nil {
		return nil, err
	}

	return &model.Schedule{
		Meta:      model.NewMeta(),
		Frequency: frequency,
		Interval:  interval,
		Weekday:   weekday,
		StartTime: start,
	}, nil
}

// startTimeLayouts are tried for time-of-day columns before falling back
// to the configured date layouts.
var startTimeLayouts = []string{"15:04", "3:04 PM", "3:04PM"}

// parseStartTime parses a mandatory schedule start time.
func parseStartTime(s string, dateFormats []string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if t, ok := legacy.ParseDate(v, startTimeLayouts); ok {
		return t, nil
	}
	return legacy.MustParseDate(v, dateFormats)
}
