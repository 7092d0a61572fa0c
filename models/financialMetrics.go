package models

import (
	"context"
	"errors"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinancialMetrics is the per-period aggregate produced by the ledger
// aggregation workflow.
//
// Grain: (accounting_subject_id, period_type, period_start) — this triple is a
// uniqueness invariant enforced by upsert. Recalculation for the same period
// overwrites in place, never duplicates.
//
// NOTE: derived data; can always be rebuilt from ledger_entries.
type FinancialMetrics struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	AccountingSubjectId string          `gorm:"size:64;not null;uniqueIndex:idx_fm_subject_period,priority:1" json:"accounting_subject_id"`
	PeriodType          PeriodType      `gorm:"size:16;not null;uniqueIndex:idx_fm_subject_period,priority:2" json:"period_type"`
	PeriodStart         time.Time       `gorm:"not null;uniqueIndex:idx_fm_subject_period,priority:3" json:"period_start"`
	PeriodEnd           time.Time       `gorm:"not null" json:"period_end"`
	TotalRevenue        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TotalExpenses       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_expenses"`
	GrossProfit         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_profit"`
	NetIncome           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_income"`
	TotalAssets         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_assets"`
	TotalLiabilities    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_liabilities"`
	TotalEquity         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_equity"`
	OperatingCashFlow   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"operating_cash_flow"`
	InvestingCashFlow   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"investing_cash_flow"`
	FinancingCashFlow   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"financing_cash_flow"`
	NetCashFlow         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_cash_flow"`
	GrossProfitMargin   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_profit_margin"`
	NetProfitMargin     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_profit_margin"`
	CurrentRatio        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_ratio"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountCategoryMetrics is the per-category side-output of the same ledger
// scan. Grain: (accounting_subject_id, period_type, period_start,
// account_type, category_name).
type AccountCategoryMetrics struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	AccountingSubjectId string               `gorm:"size:64;not null;uniqueIndex:idx_acm_subject_period_cat,priority:1" json:"accounting_subject_id"`
	PeriodType          PeriodType           `gorm:"size:16;not null;uniqueIndex:idx_acm_subject_period_cat,priority:2" json:"period_type"`
	PeriodStart         time.Time            `gorm:"not null;uniqueIndex:idx_acm_subject_period_cat,priority:3" json:"period_start"`
	AccountType         FinancialAccountType `gorm:"size:16;not null;uniqueIndex:idx_acm_subject_period_cat,priority:4" json:"account_type"`
	CategoryName        string               `gorm:"size:128;not null;uniqueIndex:idx_acm_subject_period_cat,priority:5" json:"category_name"`
	PeriodEnd           time.Time            `gorm:"not null" json:"period_end"`
	TotalDebit          decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_debit"`
	TotalCredit         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_credit"`
	NetAmount           decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"net_amount"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertFinancialMetrics writes the metrics row atomically keyed by
// (subject, period_type, period_start). Concurrent recalculations for the
// same period race benignly: the computation is deterministic, so
// last-writer-wins at the storage layer is correct.
func UpsertFinancialMetrics(ctx context.Context, m *FinancialMetrics) error {
	db := config.GetDB()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "accounting_subject_id"}, {Name: "period_type"}, {Name: "period_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"period_end", "total_revenue", "total_expenses", "gross_profit", "net_income",
			"total_assets", "total_liabilities", "total_equity",
			"operating_cash_flow", "investing_cash_flow", "financing_cash_flow", "net_cash_flow",
			"gross_profit_margin", "net_profit_margin", "current_ratio", "updated_at",
		}),
	}).Create(m).Error
}

// UpsertAccountCategoryMetrics writes one breakdown row atomically keyed by
// its uniqueness tuple.
func UpsertAccountCategoryMetrics(ctx context.Context, m *AccountCategoryMetrics) error {
	db := config.GetDB()
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "accounting_subject_id"}, {Name: "period_type"}, {Name: "period_start"},
			{Name: "account_type"}, {Name: "category_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"period_end", "total_debit", "total_credit", "net_amount", "updated_at",
		}),
	}).Create(m).Error
}

// GetFinancialMetrics returns the stored row for the exact period key, or
// utils.ErrorRecordNotFound.
func GetFinancialMetrics(ctx context.Context, subjectId string, periodType PeriodType, periodStart time.Time) (*FinancialMetrics, error) {
	db := config.GetDB()
	var m FinancialMetrics
	err := db.WithContext(ctx).
		Where("accounting_subject_id = ? AND period_type = ? AND period_start = ?", subjectId, periodType, periodStart).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetAccountCategoryMetrics returns the breakdown rows for a period key.
func GetAccountCategoryMetrics(ctx context.Context, subjectId string, periodType PeriodType, periodStart time.Time) ([]AccountCategoryMetrics, error) {
	db := config.GetDB()
	var rows []AccountCategoryMetrics
	err := db.WithContext(ctx).
		Where("accounting_subject_id = ? AND period_type = ? AND period_start = ?", subjectId, periodType, periodStart).
		Order("account_type, category_name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
