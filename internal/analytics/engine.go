// Package analytics computes financial rollups over the transaction set.
// Every function here is pure: transactions plus a reference date in,
// derived summary out. Inputs are assumed already validated at the boundary.
package analytics

import (
	"time"

	"kharcha/internal/core"
)

// DefaultTrendWindow is the number of months a trend series covers when the
// caller does not ask for a specific window.
const DefaultTrendWindow = 6

// MonthlySummary rolls up the calendar month of ref: income and expense
// totals, net savings, and the savings rate (zero when there is no income).
// The dual-currency display strings ride along because the summary endpoint
// has always returned them.
func MonthlySummary(transactions []core.Transaction, ref time.Time) (core.MonthlySummary, error) {
	income, expenses := monthTotals(transactions, ref.Year(), ref.Month())

	s := core.MonthlySummary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetSavings:    income - expenses,
	}
	if income > 0 {
		s.SavingsRate = float64(s.NetSavings) / float64(income) * 100
	}

	s.TotalIncomeUSD = core.ConvertINRToUSD(s.TotalIncome)
	s.TotalExpensesUSD = core.ConvertINRToUSD(s.TotalExpenses)
	s.NetSavingsUSD = core.ConvertINRToUSD(s.NetSavings)

	var err error
	if s.FormattedTotalIncome, err = core.DisplayINR(s.TotalIncome); err != nil {
		return core.MonthlySummary{}, err
	}
	if s.FormattedTotalExpenses, err = core.DisplayINR(s.TotalExpenses); err != nil {
		return core.MonthlySummary{}, err
	}
	if s.FormattedNetSavings, err = core.DisplayINR(s.NetSavings); err != nil {
		return core.MonthlySummary{}, err
	}
	if s.FormattedTotalIncomeUSD, err = core.DisplayUSD(s.TotalIncomeUSD); err != nil {
		return core.MonthlySummary{}, err
	}
	if s.FormattedTotalExpensesUSD, err = core.DisplayUSD(s.TotalExpensesUSD); err != nil {
		return core.MonthlySummary{}, err
	}
	if s.FormattedNetSavingsUSD, err = core.DisplayUSD(s.NetSavingsUSD); err != nil {
		return core.MonthlySummary{}, err
	}
	return s, nil
}

// Overview is MonthlySummary plus per-category expense totals for the
// calendar month of ref. Only expense-type transactions contribute to
// categorySpending.
func Overview(transactions []core.Transaction, ref time.Time) core.Overview {
	year, month := ref.Year(), ref.Month()

	o := core.Overview{
		CategorySpending: make(map[string]core.Amount),
	}
	for _, t := range transactions {
		if !t.Date.SameMonth(year, month) {
			continue
		}
		switch t.Type {
		case core.Income:
			o.TotalIncome += t.Amount
		case core.Expense:
			o.TotalExpenses += t.Amount
			o.CategorySpending[t.Category] += t.Amount
		}
	}
	o.NetSavings = o.TotalIncome - o.TotalExpenses
	if o.TotalIncome > 0 {
		o.SavingsRate = float64(o.NetSavings) / float64(o.TotalIncome) * 100
	}
	return o
}

// Trends produces one point per month for the windowMonths-month window
// ending at ref's month, ordered chronologically oldest to newest. The
// ordering contract matters: consumers feed it straight into left-to-right
// time axes. Months with no transactions report zeros.
func Trends(transactions []core.Transaction, ref time.Time, windowMonths int) []core.TrendPoint {
	if windowMonths <= 0 {
		windowMonths = DefaultTrendWindow
	}

	points := make([]core.TrendPoint, 0, windowMonths)
	for i := windowMonths - 1; i >= 0; i-- {
		// time.Date normalizes out-of-range months, so year rollover is
		// plain month arithmetic.
		target := time.Date(ref.Year(), ref.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		income, expenses := monthTotals(transactions, target.Year(), target.Month())
		points = append(points, core.TrendPoint{
			// Label comes from the synthesized month, never from ref.
			Month:    target.Month().String()[:3],
			Income:   income,
			Expenses: expenses,
		})
	}
	return points
}

func monthTotals(transactions []core.Transaction, year int, month time.Month) (income, expenses core.Amount) {
	for _, t := range transactions {
		if !t.Date.SameMonth(year, month) {
			continue
		}
		switch t.Type {
		case core.Income:
			income += t.Amount
		case core.Expense:
			expenses += t.Amount
		}
	}
	return income, expenses
}
