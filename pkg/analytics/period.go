package analytics

import "time"

// Period is a rolling window token accepted by the analytics endpoints
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"

	DefaultPeriod = Period30d
)

// ParsePeriod returns the period named by s. Anything unrecognized,
// including the empty string, is DefaultPeriod.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case Period7d, Period30d, Period90d:
		return p
	default:
		return DefaultPeriod
	}
}

// Days is the window length in days
func (p Period) Days() int {
	switch p {
	case Period7d:
		return 7
	case Period90d:
		return 90
	default:
		return 30
	}
}

// Since is the start of the window ending at now
func (p Period) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.Days())
}
