package domain

import "github.com/shopspring/decimal"

// CategorySum pairs a category name with an aggregated amount.
type CategorySum struct {
	CategoryName string          `json:"categoryName"`
	Amount       decimal.Decimal `json:"amount"`
}

// DailySum pairs a calendar day with its aggregated expense amount.
type DailySum struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryMonthlyAverage is the per-category monthly mean time series.
// TimeSeries keys are "YYYY-MM"; months with no data are omitted.
type CategoryMonthlyAverage struct {
	CategoryName string                     `json:"categoryName"`
	TimeSeries   map[string]decimal.Decimal `json:"timeSeries"`
}

// StatisticsReport is the aggregation over a user's transactions in the
// [StartDate, EndDate] window. Transfers are excluded from every figure.
type StatisticsReport struct {
	ExpensesByCategory    map[string]decimal.Decimal `json:"expensesByCategory"`
	IncomeByCategory      map[string]decimal.Decimal `json:"incomeByCategory"`
	MonthlyExpenses       map[string]decimal.Decimal `json:"monthlyExpenses"`
	MonthlyIncome         map[string]decimal.Decimal `json:"monthlyIncome"`
	AvgExpensesByCategory []CategoryMonthlyAverage   `json:"avgExpensesByCategory"`
	AvgIncomeByCategory   []CategoryMonthlyAverage   `json:"avgIncomeByCategory"`
	MaxExpensePerDay      *DailySum                  `json:"maxExpensePerDay"`
	MaxExpensePerCategory *CategorySum               `json:"maxExpensePerCategory"`
	AverageExpense        decimal.Decimal            `json:"averageExpense"`
	AverageIncome         decimal.Decimal            `json:"averageIncome"`
	StartDate             Date                       `json:"startDate"`
	EndDate               Date                       `json:"endDate"`
}
