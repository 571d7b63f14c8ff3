package types

import (
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
)

const dateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// ParseDate parses a YYYY-MM-DD literal into days since 1970-01-01.
// Out-of-range components such as 2023-02-30 are rejected.
func ParseDate(s string) (int32, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, dberr.Wrapf(err, dberr.ErrInvalidArgument, "invalid date %q", s)
	}
	return int32(t.Unix() / secondsPerDay), nil
}

// FormatDate renders days since 1970-01-01 as YYYY-MM-DD.
func FormatDate(days int32) string {
	return time.Unix(int64(days)*secondsPerDay, 0).UTC().Format(dateLayout)
}
