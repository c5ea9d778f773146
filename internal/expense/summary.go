package expense

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Month identifies a calendar month independent of day or timezone.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Before reports whether m is earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}

	return m.Month < other.Month
}

// SummaryByCategory groups items by category, summing amounts with
// decimal arithmetic. Records with a zero amount still contribute their
// category to the result.
func SummaryByCategory(items []*Expense) map[Category]decimal.Decimal {
	totals := make(map[Category]decimal.Decimal)
	for _, e := range items {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}

	return totals
}

// SummaryByMonth groups items by (year, month) of their date.
func SummaryByMonth(items []*Expense) map[Month]decimal.Decimal {
	totals := make(map[Month]decimal.Decimal)
	for _, e := range items {
		m := MonthOf(e.Date)
		totals[m] = totals[m].Add(e.Amount)
	}

	return totals
}

// SummaryByDate groups items by calendar date, keyed YYYY-MM-DD.
func SummaryByDate(items []*Expense) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range items {
		k := e.Date.Format(time.DateOnly)
		totals[k] = totals[k].Add(e.Amount)
	}

	return totals
}

// Total sums all item amounts.
func Total(items []*Expense) decimal.Decimal {
	var sum decimal.Decimal
	for _, e := range items {
		sum = sum.Add(e.Amount)
	}

	return sum
}

// SortedMonths returns the keys of a monthly summary in ascending order.
func SortedMonths(totals map[Month]decimal.Decimal) []Month {
	months := make([]Month, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}

	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	return months
}
