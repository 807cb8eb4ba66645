package world

import "time"

const (
	secondsPerHour = 60 * 60
	secondsPerDay  = 24 * secondsPerHour
	daysPerYear    = 365
	daysPerMonth   = 24 // months 1-15; month 16 has the remaining 5 days
)

// Calendar converts real time into Illarion time, which runs Factor times
// faster than real time and starts at the unix time Birth.
type Calendar struct {
	Factor   int64
	Birth    int64
	Location *time.Location // DST source; nil means time.Local
}

// IGTime is a point in Illarion time.
type IGTime struct {
	Year, Month, Day     int
	Hour, Minute, Second int
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// RealSecondsPerDay is the length of one in-game day in real seconds.
func (c Calendar) RealSecondsPerDay() int64 {
	return secondsPerDay / c.Factor
}

// dstAdjusted returns the unix time shifted by one hour while the calendar's
// location observes daylight saving time, so days align with civil time.
func (c Calendar) dstAdjusted(now time.Time) int64 {
	t := now.Unix()
	if now.In(c.loc()).IsDST() {
		t += secondsPerHour
	}
	return t
}

// NextDayBoundary returns the wall-clock time of the next in-game day change.
func (c Calendar) NextDayBoundary(now time.Time) time.Time {
	d := c.RealSecondsPerDay()
	t := c.dstAdjusted(now)
	next := ((t-c.Birth)/d+1)*d + c.Birth
	return time.Unix(next, 0)
}

// NextDayAnchor expresses the next day boundary on now's monotonic clock:
// the wall-clock difference is added to now, which keeps its monotonic reading.
func (c Calendar) NextDayAnchor(now time.Time) time.Time {
	return now.Add(c.NextDayBoundary(now).Sub(now.Round(0)))
}

// At converts a real time into Illarion time.
func (c Calendar) At(now time.Time) IGTime {
	ig := (c.dstAdjusted(now) - c.Birth) * c.Factor
	if ig < 0 {
		ig = 0
	}
	year := ig / (daysPerYear * secondsPerDay)
	ig -= year * daysPerYear * secondsPerDay
	day := ig / secondsPerDay
	ig -= day * secondsPerDay

	t := IGTime{
		Year:   int(year),
		Month:  int(day/daysPerMonth) + 1,
		Day:    int(day%daysPerMonth) + 1,
		Hour:   int(ig / secondsPerHour),
		Minute: int(ig % secondsPerHour / 60),
		Second: int(ig % 60),
	}
	return t
}

// DayNumber returns the absolute in-game day index, used to detect day changes.
func (c Calendar) DayNumber(now time.Time) int64 {
	ig := (c.dstAdjusted(now) - c.Birth) * c.Factor
	if ig < 0 {
		return 0
	}
	return ig / secondsPerDay
}
