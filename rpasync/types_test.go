package rpasync

import (
	"testing"

	"github.com/docuconta/books_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *models.ExtractedInvoice {
	return &models.ExtractedInvoice{
		DocumentId:     7,
		CreatedDate:    "2026-08-01",
		DueDate:        "2026-08-31",
		DocumentNumber: "INV-42",
		BuyerEin:       "RO111",
		SellerEin:      "RO222",
		LineItems: models.InvoiceLineItems{{
			Type:      "service",
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.NewFromInt(50),
			Name:      "consulting",
			Tva:       "19",
			Um:        "buc",
		}},
	}
}

func TestResolveDirection(t *testing.T) {
	// Subject is the extracted buyer: the invoice is incoming.
	require.Equal(t, DirectionIncoming, ResolveDirection("RO111", "RO111"))
	require.Equal(t, DirectionOutgoing, ResolveDirection("RO111", "RO999"))
}

func TestBuildJobPayload_IncomingCarriesSellerEin(t *testing.T) {
	payload := BuildJobPayload(sampleInvoice(), DirectionIncoming)

	require.Equal(t, "RO222", payload.SellerEin)
	require.Empty(t, payload.BuyerEin)
	require.Equal(t, "INV-42", payload.DocumentNumber)
	require.Len(t, payload.LineItems, 1)
}

func TestBuildJobPayload_OutgoingCarriesBuyerEin(t *testing.T) {
	payload := BuildJobPayload(sampleInvoice(), DirectionOutgoing)

	require.Equal(t, "RO111", payload.BuyerEin)
	require.Empty(t, payload.SellerEin)
}

func TestStatusForVendorState(t *testing.T) {
	cases := []struct {
		state    string
		expected models.RpaActionStatus
		terminal bool
	}{
		{"Successful", models.RpaActionStatusCompleted, true},
		{"Faulted", models.RpaActionStatusFailed, true},
		{"Stopped", models.RpaActionStatusFailed, true},
		{"Running", models.RpaActionStatusPending, false},
		{"Pending", models.RpaActionStatusPending, false},
		{"", models.RpaActionStatusPending, false},
	}
	for _, tc := range cases {
		status, terminal := statusForVendorState(tc.state)
		require.Equal(t, tc.expected, status, "state %q", tc.state)
		require.Equal(t, tc.terminal, terminal, "state %q", tc.state)
	}
}
