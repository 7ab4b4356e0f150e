package helper

import (
	"fmt"
	"time"
)

// Date part names accepted by DatePartFromTime.
const (
	DatePartHour    = "hour"
	DatePartDay     = "day"
	DatePartWeek    = "week"
	DatePartMonth   = "month"
	DatePartYear    = "year"
	DatePartWeekday = "weekday"
)

// EpochMillisToTimeUtc converts milliseconds since the Unix epoch to a UTC time.Time.
// Decomposition must happen in UTC so output is independent of the host time zone.
func EpochMillisToTimeUtc(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}

// DatePartFromTime extracts the named calendar part from t.
// Weekday numbering is 1 = Sunday through 7 = Saturday.
// Week is the ISO 8601 week of year.
func DatePartFromTime(t time.Time, part string) (int32, error) {
	switch part {
	case DatePartHour:
		return int32(t.Hour()), nil
	case DatePartDay:
		return int32(t.Day()), nil
	case DatePartWeek:
		_, week := t.ISOWeek()
		return int32(week), nil
	case DatePartMonth:
		return int32(t.Month()), nil
	case DatePartYear:
		return int32(t.Year()), nil
	case DatePartWeekday:
		return int32(t.Weekday()) + 1, nil // time.Sunday is 0.
	default:
		return 0, fmt.Errorf("unsupported date part %q", part)
	}
}
