package civil

import "fmt"

// Range is an inclusive [Begin, End] span of dates. A zero bound is open.
type Range struct {
	Begin Date
	End   Date
}

// Contains reports whether d lies inside r. The end bound is inclusive:
// d qualifies while it is before End+1.
func (r Range) Contains(d Date) bool {
	if !r.Begin.IsZero() && d.Before(r.Begin) {
		return false
	}
	if !r.End.IsZero() && !d.Before(r.End.AddDays(1)) {
		return false
	}
	return true
}

// Preset names a reporting window relative to "today".
type Preset string

const (
	PresetWTD        Preset = "wtd"
	PresetWTDPrev    Preset = "wtd_prev"
	PresetPrevWeek   Preset = "prev_week"
	PresetAllWeeks   Preset = "all_weeks"
	PresetMTD        Preset = "mtd"
	PresetMTDPrev    Preset = "mtd_prev"
	PresetPrevMonth  Preset = "prev_month"
	PresetAllMonths  Preset = "all_months"
	PresetAllRecords Preset = "all_records"
)

// DefaultPreset is used when a user has not picked one.
const DefaultPreset = PresetWTDPrev

// SearchPresets are the windows offered by the search screen.
var SearchPresets = []Preset{
	PresetWTD, PresetWTDPrev, PresetPrevWeek, PresetAllWeeks,
	PresetMTD, PresetMTDPrev, PresetPrevMonth, PresetAllMonths, PresetAllRecords,
}

// RecentScopes are the windows allowed for the recent-logs list.
var RecentScopes = []Preset{PresetWTD, PresetWTDPrev, PresetMTD, PresetMTDPrev}

// ParsePreset validates s against allowed.
func ParsePreset(s string, allowed []Preset) (Preset, error) {
	for _, p := range allowed {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("civil: unknown range preset %q", s)
}

// PresetRange resolves p against today. earliest and latest are the
// smallest and largest bucketed dates among the caller's entries; either
// may be zero when unknown. They only matter for the all_* presets.
func PresetRange(p Preset, today, earliest, latest Date) Range {
	ws := WeekStart(today)
	prevWeekBegin := ws.AddDays(-7)
	prevWeekEnd := ws.AddDays(-1)

	switch p {
	case PresetWTD:
		return Range{Begin: ws, End: today}
	case PresetWTDPrev:
		return Range{Begin: prevWeekBegin, End: today}
	case PresetPrevWeek:
		return Range{Begin: prevWeekBegin, End: prevWeekEnd}
	case PresetAllWeeks:
		begin := prevWeekBegin
		if !earliest.IsZero() {
			begin = WeekStart(earliest)
		}
		return Range{Begin: begin, End: prevWeekEnd}
	case PresetMTD:
		return Range{Begin: MonthStart(today), End: today}
	case PresetMTDPrev:
		return Range{Begin: PreviousMonthStart(today), End: today}
	case PresetPrevMonth:
		return Range{Begin: PreviousMonthStart(today), End: LastDayOfPreviousMonth(today)}
	case PresetAllMonths:
		begin := PreviousMonthStart(today)
		if !earliest.IsZero() {
			begin = MonthStart(earliest)
		}
		return Range{Begin: begin, End: LastDayOfPreviousMonth(today)}
	default:
		return Range{Begin: earliest, End: latest}
	}
}
