package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spendsphere/spendsphere-go/internal/domain"
	"github.com/spendsphere/spendsphere-go/internal/port"
)

var statsTracer = otel.Tracer("service/statistics")

// StatisticsService aggregates a user's transactions over a trailing
// window. It never mutates state; transfers are excluded from every
// figure.
type StatisticsService struct {
	store  port.Store
	logger *zap.Logger
}

// NewStatisticsService creates the statistics service.
func NewStatisticsService(store port.Store, logger *zap.Logger) *StatisticsService {
	return &StatisticsService{store: store, logger: logger}
}

// Stats builds the report over [today-months, today].
// Allowed windows are 1, 3, 6 and 12 months.
func (s *StatisticsService) Stats(ctx context.Context, userID int64, months int) (*domain.StatisticsReport, error) {
	ctx, span := statsTracer.Start(ctx, "StatisticsService.Stats")
	defer span.End()
	span.SetAttributes(attribute.Int("months", months))

	switch months {
	case 1, 3, 6, 12:
	default:
		return nil, &domain.ErrValidation{Field: "months", Message: "must be 1, 3, 6 or 12"}
	}

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: strconv.FormatInt(userID, 10)}
	}

	end := domain.Today()
	start := end.AddMonths(-months)
	txs, err := s.store.Transactions().Filter(ctx, userID, domain.TransactionFilter{
		DateFrom: &start,
		DateTo:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	return buildReport(txs, start, end), nil
}

// buildReport is a pure function of the transaction slice.
func buildReport(txs []domain.Transaction, start, end domain.Date) *domain.StatisticsReport {
	expenses := partition(txs, domain.TransactionExpense)
	incomes := partition(txs, domain.TransactionIncome)

	expByCat := sumByCategory(expenses)

	return &domain.StatisticsReport{
		ExpensesByCategory:    expByCat,
		IncomeByCategory:      sumByCategory(incomes),
		MonthlyExpenses:       sumByMonth(expenses),
		MonthlyIncome:         sumByMonth(incomes),
		AvgExpensesByCategory: avgByCategoryMonth(expenses),
		AvgIncomeByCategory:   avgByCategoryMonth(incomes),
		MaxExpensePerDay:      maxExpenseDay(expenses),
		MaxExpensePerCategory: maxExpenseCategory(expByCat),
		AverageExpense:        meanAmount(expenses),
		AverageIncome:         meanAmount(incomes),
		StartDate:             start,
		EndDate:               end,
	}
}

func partition(txs []domain.Transaction, tt domain.TransactionType) []domain.Transaction {
	var out []domain.Transaction
	for _, t := range txs {
		if t.Type == tt {
			out = append(out, t)
		}
	}
	return out
}

// sumByCategory sums amounts per category name; uncategorised
// transactions are skipped.
func sumByCategory(txs []domain.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		name := t.CategoryName()
		if name == "" {
			continue
		}
		out[name] = out[name].Add(t.Amount)
	}
	return out
}

func sumByMonth(txs []domain.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		key := t.Date.MonthKey()
		out[key] = out[key].Add(t.Amount)
	}
	return out
}

// avgByCategoryMonth computes the per-category monthly mean time series,
// rounded half-up to 2 fractional digits. Months without data for a
// category are omitted. The list is ordered by category name.
func avgByCategoryMonth(txs []domain.Transaction) []domain.CategoryMonthlyAverage {
	type bucket struct {
		sum   decimal.Decimal
		count int64
	}
	buckets := make(map[string]map[string]*bucket)
	for _, t := range txs {
		name := t.CategoryName()
		if name == "" {
			continue
		}
		months, ok := buckets[name]
		if !ok {
			months = make(map[string]*bucket)
			buckets[name] = months
		}
		key := t.Date.MonthKey()
		b, ok := months[key]
		if !ok {
			b = &bucket{}
			months[key] = b
		}
		b.sum = b.sum.Add(t.Amount)
		b.count++
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]domain.CategoryMonthlyAverage, 0, len(names))
	for _, name := range names {
		series := make(map[string]decimal.Decimal, len(buckets[name]))
		for key, b := range buckets[name] {
			series[key] = roundHalfUp(b.sum.Div(decimal.NewFromInt(b.count)))
		}
		out = append(out, domain.CategoryMonthlyAverage{CategoryName: name, TimeSeries: series})
	}
	return out
}

// maxExpenseDay finds the day with the largest expense sum; ties go to
// the most recent date. Nil when there are no expenses.
func maxExpenseDay(expenses []domain.Transaction) *domain.DailySum {
	if len(expenses) == 0 {
		return nil
	}
	sums := make(map[domain.Date]decimal.Decimal)
	for _, t := range expenses {
		sums[t.Date] = sums[t.Date].Add(t.Amount)
	}

	var best *domain.DailySum
	for date, sum := range sums {
		switch {
		case best == nil,
			sum.GreaterThan(best.Amount),
			sum.Equal(best.Amount) && date.After(best.Date.Time):
			best = &domain.DailySum{Date: date, Amount: sum}
		}
	}
	return best
}

// maxExpenseCategory finds the category with the largest expense sum;
// ties go to the lexicographically smaller name for determinism.
func maxExpenseCategory(byCategory map[string]decimal.Decimal) *domain.CategorySum {
	var best *domain.CategorySum
	for name, sum := range byCategory {
		switch {
		case best == nil,
			sum.GreaterThan(best.Amount),
			sum.Equal(best.Amount) && name < best.CategoryName:
			best = &domain.CategorySum{CategoryName: name, Amount: sum}
		}
	}
	return best
}

// meanAmount is the mean over the slice, half-up to 2 fractional digits,
// zero on an empty slice.
func meanAmount(txs []domain.Transaction) decimal.Decimal {
	if len(txs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return roundHalfUp(sum.Div(decimal.NewFromInt(int64(len(txs)))))
}

// avgPerCategory is the single-window per-category mean, used for the
// advice task payload.
func avgPerCategory(txs []domain.Transaction) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, t := range txs {
		name := t.CategoryName()
		if name == "" {
			continue
		}
		sums[name] = sums[name].Add(t.Amount)
		counts[name]++
	}
	out := make(map[string]decimal.Decimal, len(sums))
	for name, sum := range sums {
		out[name] = roundHalfUp(sum.Div(decimal.NewFromInt(counts[name])))
	}
	return out
}

// roundHalfUp rounds to 2 fractional digits, half away from zero.
// Amounts are non-negative here, so this is exactly HALF_UP.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
