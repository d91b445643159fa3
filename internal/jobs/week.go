package jobs

import "time"

// YearWeek is one ISO-8601 calendar week, the time axis for all weekly series.
type YearWeek struct {
	Year int
	Week int
}

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) YearWeek {
	y, w := t.ISOWeek()
	return YearWeek{Year: y, Week: w}
}

// WeekStart returns the Monday of the ISO week, at midnight UTC. January 4th
// is always in week 1, which anchors the calculation.
func WeekStart(yw YearWeek) time.Time {
	jan4 := time.Date(yw.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (yw.Week-1)*7)
}

// WeekEnd returns the instant just before the following Monday.
func WeekEnd(yw YearWeek) time.Time {
	return WeekStart(yw).AddDate(0, 0, 7).Add(-time.Second)
}

// Previous returns the preceding ISO week, correct across year boundaries.
func (yw YearWeek) Previous() YearWeek {
	return WeekOf(WeekStart(yw).AddDate(0, 0, -7))
}

// WeeksInRange enumerates every ISO week touched by [from, to], inclusive.
func WeeksInRange(from, to time.Time) []YearWeek {
	if to.Before(from) {
		return nil
	}
	last := WeekOf(to)
	var weeks []YearWeek
	for cursor := WeekStart(WeekOf(from)); ; cursor = cursor.AddDate(0, 0, 7) {
		yw := WeekOf(cursor)
		weeks = append(weeks, yw)
		if yw == last {
			break
		}
	}
	return weeks
}
