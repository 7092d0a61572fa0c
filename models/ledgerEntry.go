package models

import (
	"context"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/shopspring/decimal"
)

// LedgerEntry is a single debit/credit posting against an account code.
// Rows are produced by the document-processing and bank-import collaborators;
// this core only ever reads them.
//
// Account codes are hierarchical: "701" is a child of category "7". Exactly
// one of debit/credit is typically non-zero per entry, but both being set must
// be tolerated.
type LedgerEntry struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	AccountingSubjectId string          `gorm:"size:64;not null;index:idx_le_subject_date,priority:1" json:"accounting_subject_id"`
	AccountCode         string          `gorm:"size:32;not null;index" json:"account_code"`
	PostingDate         time.Time       `gorm:"not null;index:idx_le_subject_date,priority:2" json:"posting_date"`
	Debit               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// GetLedgerEntriesForPeriod returns the subject's entries with a posting date
// inside [periodStart, periodEnd], both bounds inclusive.
func GetLedgerEntriesForPeriod(ctx context.Context, subjectId string, periodStart, periodEnd time.Time) ([]LedgerEntry, error) {
	db := config.GetDB()
	var entries []LedgerEntry
	err := db.WithContext(ctx).
		Where("accounting_subject_id = ? AND posting_date >= ? AND posting_date <= ?", subjectId, periodStart, periodEnd).
		Order("posting_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
