package models

import "testing"

func TestParsePeriodType(t *testing.T) {
	for _, valid := range []string{"DAILY", "MONTHLY", "QUARTERLY", "YEARLY"} {
		if _, err := ParsePeriodType(valid); err != nil {
			t.Fatalf("ParsePeriodType(%q) error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "monthly", "WEEKLY"} {
		if _, err := ParsePeriodType(invalid); err == nil {
			t.Fatalf("ParsePeriodType(%q) expected error", invalid)
		}
	}
}

func TestRpaActionStatusIsTerminal(t *testing.T) {
	if RpaActionStatusPending.IsTerminal() {
		t.Fatal("PENDING must not be terminal")
	}
	if !RpaActionStatusCompleted.IsTerminal() {
		t.Fatal("COMPLETED must be terminal")
	}
	if !RpaActionStatusFailed.IsTerminal() {
		t.Fatal("FAILED must be terminal")
	}
}

func TestInvoiceLineItemsScanRoundTrip(t *testing.T) {
	items := InvoiceLineItems{{Type: "service", Name: "consulting", Tva: "19", Um: "buc"}}
	v, err := items.Value()
	if err != nil {
		t.Fatalf("Value error: %v", err)
	}
	var scanned InvoiceLineItems
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(scanned) != 1 || scanned[0].Name != "consulting" {
		t.Fatalf("round trip mismatch: %+v", scanned)
	}
}
