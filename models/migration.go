package models

import (
	"log"

	"github.com/docuconta/books_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&LedgerEntry{},
		&FinancialMetrics{}, &AccountCategoryMetrics{},
		&Document{}, &ExtractedInvoice{},
		&RpaAction{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
