package core

// MonthlySummary is the current-month rollup, including the dual-currency
// display strings the summary endpoint has always returned.
type MonthlySummary struct {
	TotalIncome   Amount  `json:"totalIncome"`
	TotalExpenses Amount  `json:"totalExpenses"`
	NetSavings    Amount  `json:"netSavings"`
	SavingsRate   float64 `json:"savingsRate"`

	FormattedTotalIncome   string `json:"formattedTotalIncome"`
	FormattedTotalExpenses string `json:"formattedTotalExpenses"`
	FormattedNetSavings    string `json:"formattedNetSavings"`

	TotalIncomeUSD   Amount `json:"totalIncomeUSD"`
	TotalExpensesUSD Amount `json:"totalExpensesUSD"`
	NetSavingsUSD    Amount `json:"netSavingsUSD"`

	FormattedTotalIncomeUSD   string `json:"formattedTotalIncomeUSD"`
	FormattedTotalExpensesUSD string `json:"formattedTotalExpensesUSD"`
	FormattedNetSavingsUSD    string `json:"formattedNetSavingsUSD"`
}

// Overview is the current-month rollup with per-category expense totals.
type Overview struct {
	TotalIncome      Amount            `json:"totalIncome"`
	TotalExpenses    Amount            `json:"totalExpenses"`
	NetSavings       Amount            `json:"netSavings"`
	CategorySpending map[string]Amount `json:"categorySpending"`
	SavingsRate      float64           `json:"savingsRate"`
}

// TrendPoint is one month of a trend series. Month is the short calendar
// name of the point's own month ("Jan"), not the reference month.
type TrendPoint struct {
	Month    string `json:"month"`
	Income   Amount `json:"income"`
	Expenses Amount `json:"expenses"`
}
