package civil

import "time"

// WeekStart returns the Sunday on or before d.
func WeekStart(d Date) Date {
	return d.AddDays(-int(d.Weekday() - time.Sunday))
}

// WeekEnd returns the Saturday closing the week that contains d.
func WeekEnd(d Date) Date {
	return WeekStart(d).AddDays(6)
}

// MonthStart returns the first day of d's month.
func MonthStart(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// PreviousMonthStart returns the first day of the month before d's month,
// rolling back into December of the prior year from January.
func PreviousMonthStart(d Date) Date {
	return MonthStart(LastDayOfPreviousMonth(d))
}

// LastDayOfPreviousMonth returns the day before MonthStart(d).
func LastDayOfPreviousMonth(d Date) Date {
	return MonthStart(d).AddDays(-1)
}
