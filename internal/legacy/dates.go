package legacy

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnparseableDate is returned when a date string matches none of the
// candidate layouts.
var ErrUnparseableDate = errors.New("date matches no candidate format")

// ParseDate tries each candidate layout in order and returns the first hit.
// An empty string or a string matching no layout returns ok=false; callers
// treat that as an absent optional field.
func ParseDate(s string, formats []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MustParseDate is ParseDate for mandatory fields: a string matching no
// layout is a hard error that aborts the mapper run.
func MustParseDate(s string, formats []string) (time.Time, error) {
	t, ok := ParseDate(s, formats)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}
	return t, nil
}
