package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
	"github.com/docuconta/books_backend/workflow"
)

// Recomputes financial metrics per period over a date range. Safe to rerun:
// every period write is an idempotent upsert.
func main() {
	subjectID := flag.String("subject-id", "", "Optional: backfill only one accounting subject. If empty, backfills all subjects with ledger entries.")
	from := flag.String("from", "", "Start date (YYYY-MM-DD). Required.")
	to := flag.String("to", "", "End date (YYYY-MM-DD). Defaults to today (UTC).")
	periodType := flag.String("period-type", "MONTHLY", "Period type: DAILY, MONTHLY, QUARTERLY or YEARLY")
	flag.Parse()

	pt, err := models.ParsePeriodType(strings.ToUpper(strings.TrimSpace(*periodType)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if strings.TrimSpace(*from) == "" {
		fmt.Fprintln(os.Stderr, "-from is required")
		os.Exit(1)
	}
	fromDate, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*from), time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		os.Exit(1)
	}
	toDate := time.Now().UTC()
	if strings.TrimSpace(*to) != "" {
		toDate, err = time.ParseInLocation("2006-01-02", strings.TrimSpace(*to), time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "BackfillMetrics")

	var subjects []string
	subjectQuery := db.WithContext(ctx).Model(&models.LedgerEntry{}).Distinct("accounting_subject_id")
	if strings.TrimSpace(*subjectID) != "" {
		subjectQuery = subjectQuery.Where("accounting_subject_id = ?", strings.TrimSpace(*subjectID))
	}
	if err := subjectQuery.Pluck("accounting_subject_id", &subjects).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list subjects: %v\n", err)
		os.Exit(1)
	}
	if len(subjects) == 0 {
		fmt.Fprintln(os.Stderr, "no subjects found to backfill")
		return
	}

	var periods, failures int
	for _, subject := range subjects {
		cursor := fromDate
		for !cursor.After(toDate) {
			periodStart, periodEnd := workflow.PeriodBounds(pt, cursor)
			if _, err := workflow.CalculateFinancialMetrics(ctx, subject, pt, periodStart, periodEnd); err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "subject=%s period=%s: %v\n", subject, periodStart.Format("2006-01-02"), err)
			} else {
				periods++
			}
			cursor = periodEnd.Add(time.Second)
		}
	}

	fmt.Printf("backfill complete: subjects=%d periods=%d failures=%d\n", len(subjects), periods, failures)
	if failures > 0 {
		os.Exit(1)
	}
}
