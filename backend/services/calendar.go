package services

import "time"

const dayLayout = "2006-01-02"

// Calendar turns instants into calendar day keys in a fixed timezone.
// Streaks and daily goals compare day keys, never elapsed hours.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current day key.
func (c *Calendar) Today() string {
	return c.DayOf(c.now())
}

func (c *Calendar) DayOf(t time.Time) string {
	return t.In(c.loc).Format(dayLayout)
}

// DayBefore returns the key of the calendar day preceding day.
// Unparseable input yields "", which never matches a stored date.
func (c *Calendar) DayBefore(day string) string {
	t, err := time.ParseInLocation(dayLayout, day, c.loc)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dayLayout)
}
