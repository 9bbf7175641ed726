package format

import (
	"regexp"
	"strconv"
	"time"

	"github.com/itchyny/timefmt-go"
)

var (
	dateTimeParts = regexp.MustCompile(`^(\d{1,4})-(\d{1,2})-(\d{1,2})(?:[Tt ](\d{1,2}):(\d{1,2}):(\d{1,2}))?`)
	timeParts     = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2})`)
)

// IsDateFormat reports whether name is one of the calendar formats ClampDate
// understands.
func IsDateFormat(name string) bool {
	switch name {
	case "date-time", "datetime", "date", "full-date", "time":
		return true
	}
	return false
}

// ClampDate forces the numeric fields of a date-ish string into valid
// calendar ranges and re-renders it as ISO-8601 for the given format.
// Strings that do not look like dates are returned unchanged.
func ClampDate(format, s string) string {
	if format == "time" {
		m := timeParts.FindStringSubmatch(s)
		if m == nil {
			return s
		}
		t := time.Date(1970, 1, 1, clamp(atoi(m[1]), 0, 23), clamp(atoi(m[2]), 0, 59), clamp(atoi(m[3]), 0, 59), 0, time.UTC)
		return timefmt.Format(t, layoutTime)
	}

	m := dateTimeParts.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	year := clamp(atoi(m[1]), 1, 9999)
	month := clamp(atoi(m[2]), 1, 12)
	day := clamp(atoi(m[3]), 1, daysIn(year, time.Month(month)))
	var hour, minute, second int
	if m[4] != "" {
		hour = clamp(atoi(m[4]), 0, 23)
		minute = clamp(atoi(m[5]), 0, 59)
		second = clamp(atoi(m[6]), 0, 59)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	switch format {
	case "date", "full-date":
		return timefmt.Format(t, layoutDate)
	default:
		return timefmt.Format(t, layoutDateTime)
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
