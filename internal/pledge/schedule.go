package pledge

import (
	"time"

	"github.com/sevasangh/portal-api/internal/models"
)

func periodMonths(freq models.PledgeFrequency) int {
	switch freq {
	case models.FrequencyQuarterly:
		return 3
	case models.FrequencyYearly:
		return 12
	default:
		return 1
	}
}

// NextDue advances a due timestamp by one pledge period. The
// arithmetic is calendar-aware: "+1 month" from Jan 31 lands on the
// last valid day of February, not March 2.
func NextDue(from time.Time, freq models.PledgeFrequency) time.Time {
	return addMonthsClamped(from, periodMonths(freq))
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in a month; day 0 of the next
// month is the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
