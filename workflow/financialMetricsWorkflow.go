package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("books-backend/workflow")

var oneHundred = decimal.NewFromInt(100)

// ComputeFinancialMetrics reduces a ledger snapshot into the period's
// financial metrics and per-category breakdown in a single linear scan.
// Pure: deterministic given the same entries, no storage access.
//
// Entries with a negative debit or credit are rejected. The upstream system
// performed no such validation; this is deliberate hardening, since a single
// malformed amount would otherwise silently poison every derived figure.
func ComputeFinancialMetrics(subjectId string, periodType models.PeriodType, periodStart, periodEnd time.Time, entries []models.LedgerEntry) (models.FinancialMetrics, []models.AccountCategoryMetrics, error) {
	metrics := models.FinancialMetrics{
		AccountingSubjectId: subjectId,
		PeriodType:          periodType,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
	}

	type categoryKey struct {
		accountType  models.FinancialAccountType
		categoryName string
	}
	breakdown := make(map[categoryKey]*models.AccountCategoryMetrics)

	for _, entry := range entries {
		if entry.Debit.IsNegative() || entry.Credit.IsNegative() {
			return models.FinancialMetrics{}, nil, utils.WrapCalculationError(
				"entry validation", errors.New("ledger entry has negative debit or credit"))
		}

		classification := ClassifyAccount(entry.AccountCode)
		netAmount := entry.Debit.Sub(entry.Credit)

		switch classification.AccountType {
		case models.AccountTypeIncome:
			metrics.TotalRevenue = metrics.TotalRevenue.Add(entry.Credit)
			metrics.OperatingCashFlow = metrics.OperatingCashFlow.Add(entry.Credit)
		case models.AccountTypeExpense:
			metrics.TotalExpenses = metrics.TotalExpenses.Add(entry.Debit)
			metrics.OperatingCashFlow = metrics.OperatingCashFlow.Sub(entry.Debit)
		case models.AccountTypeAssets:
			metrics.TotalAssets = metrics.TotalAssets.Add(netAmount)
			if CashFlowBucketForAsset(entry.AccountCode) == models.CashFlowOperating {
				metrics.OperatingCashFlow = metrics.OperatingCashFlow.Add(netAmount)
			} else {
				metrics.InvestingCashFlow = metrics.InvestingCashFlow.Add(netAmount)
			}
			// The chart of accounts keeps equity inside the "1"-prefix
			// capital-accounts range; those entries also count toward equity
			// and financing.
			if IsEquityCapitalAccount(entry.AccountCode) {
				metrics.TotalEquity = metrics.TotalEquity.Add(netAmount)
				metrics.FinancingCashFlow = metrics.FinancingCashFlow.Add(netAmount)
			}
		case models.AccountTypeLiabilities:
			metrics.TotalLiabilities = metrics.TotalLiabilities.Add(netAmount.Abs())
			metrics.FinancingCashFlow = metrics.FinancingCashFlow.Add(netAmount.Abs())
		}

		key := categoryKey{classification.AccountType, classification.CategoryName}
		row, ok := breakdown[key]
		if !ok {
			row = &models.AccountCategoryMetrics{
				AccountingSubjectId: subjectId,
				PeriodType:          periodType,
				PeriodStart:         periodStart,
				PeriodEnd:           periodEnd,
				AccountType:         classification.AccountType,
				CategoryName:        classification.CategoryName,
			}
			breakdown[key] = row
		}
		row.TotalDebit = row.TotalDebit.Add(entry.Debit)
		row.TotalCredit = row.TotalCredit.Add(entry.Credit)
		row.NetAmount = row.TotalDebit.Sub(row.TotalCredit)
	}

	metrics.GrossProfit = metrics.TotalRevenue.Sub(metrics.TotalExpenses)
	// No tax/interest adjustment layer exists upstream; net income equals
	// gross profit here.
	metrics.NetIncome = metrics.GrossProfit
	metrics.NetCashFlow = metrics.OperatingCashFlow.
		Add(metrics.InvestingCashFlow).
		Add(metrics.FinancingCashFlow)

	if metrics.TotalRevenue.IsPositive() {
		metrics.GrossProfitMargin = metrics.GrossProfit.Div(metrics.TotalRevenue).Mul(oneHundred)
		metrics.NetProfitMargin = metrics.GrossProfitMargin
	}
	if metrics.TotalLiabilities.IsPositive() {
		metrics.CurrentRatio = metrics.TotalAssets.Div(metrics.TotalLiabilities)
	}

	rows := make([]models.AccountCategoryMetrics, 0, len(breakdown))
	for _, row := range breakdown {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountType != rows[j].AccountType {
			return rows[i].AccountType < rows[j].AccountType
		}
		return rows[i].CategoryName < rows[j].CategoryName
	})

	return metrics, rows, nil
}

// CalculateFinancialMetrics runs the aggregation for one subject and period
// and persists the results. Safe to run arbitrarily many times for the same
// period: both the metrics row and every breakdown row are written via atomic
// keyed upserts, so recalculation replaces rather than duplicates.
func CalculateFinancialMetrics(ctx context.Context, subjectId string, periodType models.PeriodType, periodStart, periodEnd time.Time) (*models.FinancialMetrics, error) {
	ctx, span := tracer.Start(ctx, "CalculateFinancialMetrics")
	defer span.End()

	logger := config.GetLogger()

	entries, err := models.GetLedgerEntriesForPeriod(ctx, subjectId, periodStart, periodEnd)
	if err != nil {
		return nil, utils.WrapCalculationError("ledger scan", err)
	}

	metrics, breakdown, err := ComputeFinancialMetrics(subjectId, periodType, periodStart, periodEnd, entries)
	if err != nil {
		return nil, err
	}

	if err := models.UpsertFinancialMetrics(ctx, &metrics); err != nil {
		return nil, utils.WrapCalculationError("metrics upsert", err)
	}
	for i := range breakdown {
		if err := models.UpsertAccountCategoryMetrics(ctx, &breakdown[i]); err != nil {
			return nil, utils.WrapCalculationError("category upsert", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"module":      "financialMetricsWorkflow",
		"subject_id":  subjectId,
		"period_type": periodType,
		"period":      periodStart.Format("2006-01-02") + ".." + periodEnd.Format("2006-01-02"),
		"entries":     len(entries),
		"categories":  len(breakdown),
	}).Info("financial metrics calculated")

	return &metrics, nil
}

// GetDashboardMetrics returns the current calendar month's MONTHLY metrics,
// calculating them synchronously when no row exists yet. Callers should know
// this read can have write latency and write side effects (lazy
// materialization).
func GetDashboardMetrics(ctx context.Context, subjectId string) (*models.FinancialMetrics, error) {
	periodStart, periodEnd := PeriodBounds(models.PeriodTypeMonthly, time.Now().UTC())

	metrics, err := models.GetFinancialMetrics(ctx, subjectId, models.PeriodTypeMonthly, periodStart)
	if err == nil {
		return metrics, nil
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, err
	}
	return CalculateFinancialMetrics(ctx, subjectId, models.PeriodTypeMonthly, periodStart, periodEnd)
}

// PeriodBounds returns the inclusive [start, end] range of the period
// containing anchor, in anchor's location.
func PeriodBounds(periodType models.PeriodType, anchor time.Time) (time.Time, time.Time) {
	loc := anchor.Location()
	var start, nextStart time.Time
	switch periodType {
	case models.PeriodTypeDaily:
		start = time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
		nextStart = start.AddDate(0, 0, 1)
	case models.PeriodTypeQuarterly:
		quarterMonth := time.Month(((int(anchor.Month())-1)/3)*3 + 1)
		start = time.Date(anchor.Year(), quarterMonth, 1, 0, 0, 0, 0, loc)
		nextStart = start.AddDate(0, 3, 0)
	case models.PeriodTypeYearly:
		start = time.Date(anchor.Year(), 1, 1, 0, 0, 0, 0, loc)
		nextStart = start.AddDate(1, 0, 0)
	default: // MONTHLY
		start = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		nextStart = start.AddDate(0, 1, 0)
	}
	return start, nextStart.Add(-time.Second)
}
