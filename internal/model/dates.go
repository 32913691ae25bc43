package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for entry, invoice and project dates.
const DateLayout = "2006-01-02"

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD day at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// AddDays shifts a YYYY-MM-DD day by n days.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDate(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween counts the days in the closed interval [from, to]. It returns 0
// when to precedes from.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	if t.Before(f) {
		return 0, nil
	}
	return int(t.Sub(f).Hours()/24) + 1, nil
}

// WeekStart returns the first day of the week containing day. startDay is
// time.Monday or time.Sunday.
func WeekStart(day time.Time, startDay time.Weekday) time.Time {
	offset := (int(day.Weekday()) - int(startDay) + 7) % 7
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return d.AddDate(0, 0, -offset)
}
