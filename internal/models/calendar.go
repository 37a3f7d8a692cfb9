package models

import "time"

var monthLabels = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// CalendarDay returns midnight UTC of t's calendar date, read in t's own location
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from start to end (negative if end is earlier)
func DaysBetween(end, start time.Time) int {
	return int(CalendarDay(end).Sub(CalendarDay(start)).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar date
func SameDay(a, b time.Time) bool {
	return CalendarDay(a).Equal(CalendarDay(b))
}

// MonthLabel returns the display label of a month
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLabels[m-1]
}

// SetDate stamps the record's calendar fields from date
func (r *DailyReadingRecord) SetDate(date time.Time) {
	day := CalendarDay(date)
	r.Date = day
	r.Day = day.Day()
	r.MonthLabel = MonthLabel(day.Month())
}
