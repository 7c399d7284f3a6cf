package civil

// Dated is one bucketable item: its local date and its duration in minutes.
type Dated struct {
	Date    Date
	Minutes int
}

// WeekTotal is the summed duration of one Sunday..Saturday week.
type WeekTotal struct {
	Start   Date
	End     Date
	Minutes int
}

// Totals is the result of WeeklyTotals.
type Totals struct {
	Weeks []WeekTotal // in first-seen order of the input
	// Overall spans the smallest to the largest input date.
	Overall WeekTotal
}

// WeeklyTotals groups items by WeekStart. Items with a zero date are
// skipped. Week order follows the first item seen for each week, so a
// caller passing newest-first rows gets newest-first weeks.
func WeeklyTotals(items []Dated) Totals {
	var out Totals
	index := make(map[Date]int)
	for _, it := range items {
		if it.Date.IsZero() {
			continue
		}
		ws := WeekStart(it.Date)
		i, ok := index[ws]
		if !ok {
			i = len(out.Weeks)
			index[ws] = i
			out.Weeks = append(out.Weeks, WeekTotal{Start: ws, End: ws.AddDays(6)})
		}
		out.Weeks[i].Minutes += it.Minutes

		if out.Overall.Start.IsZero() || it.Date.Before(out.Overall.Start) {
			out.Overall.Start = it.Date
		}
		if out.Overall.End.IsZero() || it.Date.After(out.Overall.End) {
			out.Overall.End = it.Date
		}
		out.Overall.Minutes += it.Minutes
	}
	return out
}
