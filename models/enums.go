package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type PeriodType string

const (
	PeriodTypeDaily     PeriodType = "DAILY"
	PeriodTypeMonthly   PeriodType = "MONTHLY"
	PeriodTypeQuarterly PeriodType = "QUARTERLY"
	PeriodTypeYearly    PeriodType = "YEARLY"
)

func ParsePeriodType(s string) (PeriodType, error) {
	switch PeriodType(s) {
	case PeriodTypeDaily, PeriodTypeMonthly, PeriodTypeQuarterly, PeriodTypeYearly:
		return PeriodType(s), nil
	}
	return "", fmt.Errorf("invalid period type %q", s)
}

func (t PeriodType) Value() (driver.Value, error) {
	if _, err := ParsePeriodType(string(t)); err != nil {
		return nil, err
	}
	return string(t), nil
}

func (t *PeriodType) Scan(value interface{}) error {
	s, err := scanString(value)
	if err != nil {
		return err
	}
	parsed, err := ParsePeriodType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// FinancialAccountType is the coarse classification an account code maps to.
type FinancialAccountType string

const (
	AccountTypeAssets      FinancialAccountType = "ASSETS"
	AccountTypeLiabilities FinancialAccountType = "LIABILITIES"
	AccountTypeIncome      FinancialAccountType = "INCOME"
	AccountTypeExpense     FinancialAccountType = "EXPENSE"
)

// CashFlowBucket is the finer-grained cash-flow classification layered on top
// of the account type.
type CashFlowBucket string

const (
	CashFlowOperating CashFlowBucket = "OPERATING"
	CashFlowInvesting CashFlowBucket = "INVESTING"
	CashFlowFinancing CashFlowBucket = "FINANCING"
)

type RpaActionStatus string

const (
	RpaActionStatusPending   RpaActionStatus = "PENDING"
	RpaActionStatusCompleted RpaActionStatus = "COMPLETED"
	RpaActionStatusFailed    RpaActionStatus = "FAILED"
)

// IsTerminal reports whether no further transitions may occur.
func (s RpaActionStatus) IsTerminal() bool {
	return s == RpaActionStatusCompleted || s == RpaActionStatusFailed
}

func (s RpaActionStatus) Value() (driver.Value, error) {
	switch s {
	case RpaActionStatusPending, RpaActionStatusCompleted, RpaActionStatusFailed:
		return string(s), nil
	}
	return nil, fmt.Errorf("invalid rpa action status %q", string(s))
}

func (s *RpaActionStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	if err != nil {
		return err
	}
	switch RpaActionStatus(str) {
	case RpaActionStatusPending, RpaActionStatusCompleted, RpaActionStatusFailed:
		*s = RpaActionStatus(str)
		return nil
	}
	return fmt.Errorf("invalid rpa action status %q", str)
}

func scanString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", errors.New("enum column must scan from string")
}
