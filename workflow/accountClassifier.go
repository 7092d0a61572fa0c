package workflow

import (
	"strings"

	"github.com/docuconta/books_backend/models"
)

// AccountClassification is the result of classifying one account code.
type AccountClassification struct {
	AccountType  models.FinancialAccountType
	CategoryName string
}

// accountPrefixTable maps the leading digit of a hierarchical chart-of-accounts
// code to its financial classification. Evaluated first-match-wins, pure data.
//
// The chart stores equity inside the "1"-prefix capital-accounts range; that
// quirk is handled in the cash-flow rules below, not here.
var accountPrefixTable = []struct {
	prefix       string
	accountType  models.FinancialAccountType
	categoryName string
}{
	{"1", models.AccountTypeAssets, "Capital accounts"},
	{"2", models.AccountTypeAssets, "Current assets"},
	{"3", models.AccountTypeAssets, "Inventory"},
	{"4", models.AccountTypeLiabilities, "Third-party liabilities"},
	{"5", models.AccountTypeAssets, "Cash and bank"},
	{"6", models.AccountTypeExpense, "Expenses"},
	{"7", models.AccountTypeIncome, "Revenues"},
	{"8", models.AccountTypeIncome, "Other income"},
}

// defaultClassification is the permissive fallback for unmapped prefixes.
// Unknown codes never fail classification.
var defaultClassification = AccountClassification{
	AccountType:  models.AccountTypeAssets,
	CategoryName: "Other assets",
}

// ClassifyAccount maps an account code to its financial category by
// first-character prefix.
func ClassifyAccount(accountCode string) AccountClassification {
	for _, row := range accountPrefixTable {
		if strings.HasPrefix(accountCode, row.prefix) {
			return AccountClassification{AccountType: row.accountType, CategoryName: row.categoryName}
		}
	}
	return defaultClassification
}

// CashFlowBucketForAsset sub-buckets an asset entry's cash-flow contribution:
// cash/bank ("5") and current assets/inventory ("2"/"3") are operating,
// everything else is treated as fixed assets and goes to investing.
func CashFlowBucketForAsset(accountCode string) models.CashFlowBucket {
	if strings.HasPrefix(accountCode, "5") ||
		strings.HasPrefix(accountCode, "2") ||
		strings.HasPrefix(accountCode, "3") {
		return models.CashFlowOperating
	}
	return models.CashFlowInvesting
}

// IsEquityCapitalAccount reports whether the code sits in the capital-accounts
// range ("1"-prefix, not "2"/"3"). Such entries additionally count toward
// equity and financing cash flow.
func IsEquityCapitalAccount(accountCode string) bool {
	return strings.HasPrefix(accountCode, "1") &&
		!strings.HasPrefix(accountCode, "2") &&
		!strings.HasPrefix(accountCode, "3")
}
