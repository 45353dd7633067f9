package core

import "sort"

type (
	// MonthGroup holds one month's records in input order.
	MonthGroup struct {
		Name    string // English month name, e.g. "January"
		Number  int    // 1-12
		Records []ExpenseRecord
	}

	// YearGroup holds the months of one year in first-seen order.
	YearGroup struct {
		Year   int
		Months []MonthGroup
	}

	// DayGroup holds one calendar day's records in input order.
	DayGroup struct {
		Date    Date
		Records []ExpenseRecord
	}

	// Grouping is the year -> month -> records view of a record list.
	// It is built once per call and is not modified afterwards; accessors
	// return copies.
	Grouping struct {
		years []YearGroup
		count int
	}
)

// GroupByYearAndMonth buckets records by calendar year, then by month name.
//
// Years are ordered ascending. Within a year, months appear in the order in
// which the input first mentions them, and records keep their input order.
// An empty input yields an empty Grouping.
func GroupByYearAndMonth(records []ExpenseRecord) Grouping {
	g := Grouping{count: len(records)}
	yearIdx := make(map[int]int)
	monthIdx := make(map[int]map[string]int)

	for _, r := range records {
		y := r.Date.Year()
		yi, ok := yearIdx[y]
		if !ok {
			yi = len(g.years)
			yearIdx[y] = yi
			monthIdx[y] = make(map[string]int)
			g.years = append(g.years, YearGroup{Year: y})
		}
		name := r.Date.MonthName()
		mi, ok := monthIdx[y][name]
		if !ok {
			mi = len(g.years[yi].Months)
			monthIdx[y][name] = mi
			g.years[yi].Months = append(g.years[yi].Months, MonthGroup{Name: name, Number: r.Date.Month()})
		}
		g.years[yi].Months[mi].Records = append(g.years[yi].Months[mi].Records, r)
	}

	sort.SliceStable(g.years, func(i, j int) bool { return g.years[i].Year < g.years[j].Year })
	return g
}

// Years returns the year buckets in ascending order.
func (g Grouping) Years() []YearGroup {
	out := make([]YearGroup, len(g.years))
	for i, y := range g.years {
		out[i] = y.clone()
	}
	return out
}

// Year looks up a single year.
func (g Grouping) Year(year int) (YearGroup, bool) {
	for _, y := range g.years {
		if y.Year == year {
			return y.clone(), true
		}
	}
	return YearGroup{}, false
}

// Month looks up a month bucket by year and English month name.
func (g Grouping) Month(year int, name string) (MonthGroup, bool) {
	y, ok := g.Year(year)
	if !ok {
		return MonthGroup{}, false
	}
	return y.Month(name)
}

// Len is the number of records grouped.
func (g Grouping) Len() int {
	return g.count
}

func (g Grouping) IsEmpty() bool {
	return g.count == 0
}

// Records flattens the grouping back to a list, year by year and month by month.
func (g Grouping) Records() []ExpenseRecord {
	out := make([]ExpenseRecord, 0, g.count)
	for _, y := range g.years {
		out = append(out, y.Records()...)
	}
	return out
}

// Total sums every grouped record.
func (g Grouping) Total() Money {
	return TotalAmount(g.Records())
}

// Month looks up a month of this year by English name.
func (y YearGroup) Month(name string) (MonthGroup, bool) {
	for _, m := range y.Months {
		if m.Name == name {
			return m.clone(), true
		}
	}
	return MonthGroup{}, false
}

// MonthNames lists the year's month keys in bucket order.
func (y YearGroup) MonthNames() []string {
	names := make([]string, len(y.Months))
	for i, m := range y.Months {
		names[i] = m.Name
	}
	return names
}

// Records is the union of the year's months.
func (y YearGroup) Records() []ExpenseRecord {
	var out []ExpenseRecord
	for _, m := range y.Months {
		out = append(out, m.Records...)
	}
	return out
}

// Total is the rounded sum of every record in the year.
func (y YearGroup) Total() Money {
	return TotalAmount(y.Records())
}

// Total is the rounded sum of the month's records.
func (m MonthGroup) Total() Money {
	return TotalAmount(m.Records)
}

// Total is the rounded sum of the day's records.
func (d DayGroup) Total() Money {
	return TotalAmount(d.Records)
}

func (y YearGroup) clone() YearGroup {
	months := make([]MonthGroup, len(y.Months))
	for i, m := range y.Months {
		months[i] = m.clone()
	}
	return YearGroup{Year: y.Year, Months: months}
}

func (m MonthGroup) clone() MonthGroup {
	return MonthGroup{Name: m.Name, Number: m.Number, Records: append([]ExpenseRecord(nil), m.Records...)}
}

// GroupByDay buckets records by calendar day, ascending, keeping input order
// within a day.
func GroupByDay(records []ExpenseRecord) []DayGroup {
	idx := make(map[Date]int)
	var days []DayGroup
	for _, r := range records {
		key := DateOf(r.Date.Time)
		i, ok := idx[key]
		if !ok {
			i = len(days)
			idx[key] = i
			days = append(days, DayGroup{Date: key})
		}
		days[i].Records = append(days[i].Records, r)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date.Time) })
	return days
}
