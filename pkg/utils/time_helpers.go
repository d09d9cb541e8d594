package utils

import "time"

const DateLayout = "2006-01-02"

// ParseSchedule принимает RFC 3339 или голую дату из <input type="date">.
func ParseSchedule(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// FormatTime форматирует nil как пустую строку.
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
