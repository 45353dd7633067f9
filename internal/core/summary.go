package core

import "time"

// MonthSummary is a compact view of one year+month: its total and its days.
type MonthSummary struct {
	Year  int
	Month int // 1-12
	Name  string
	Total Money
	Count int
	Days  []DayGroup
}

// SummarizeMonth totals the given records and buckets them by day.
// Records outside year/month are ignored.
func SummarizeMonth(year, month int, records []ExpenseRecord) MonthSummary {
	in := make([]ExpenseRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Year() == year && r.Date.Month() == month {
			in = append(in, r)
		}
	}
	return MonthSummary{
		Year:  year,
		Month: month,
		Name:  time.Month(month).String(),
		Total: TotalAmount(in),
		Count: len(in),
		Days:  GroupByDay(in),
	}
}
