package rpasync

import (
	"encoding/json"

	"github.com/docuconta/books_backend/models"
)

// Direction says whether a document is an incoming or an outgoing invoice
// from the submitting subject's point of view. It decides which workflow
// template (release key) runs and which party identifier the payload carries.
type Direction string

const (
	DirectionIncoming Direction = "INCOMING"
	DirectionOutgoing Direction = "OUTGOING"
)

// ResolveDirection compares the extracted buyer identifier against the
// caller's subject identifier: a match means the subject is the buyer, so the
// invoice is incoming. This binary branch is the core business rule of the
// orchestrator.
func ResolveDirection(extractedBuyerEin, subjectEin string) Direction {
	if extractedBuyerEin == subjectEin {
		return DirectionIncoming
	}
	return DirectionOutgoing
}

// JobPayload is the vendor wire shape sent as in_JsonInput. Exactly one of
// SellerEin/BuyerEin is populated, depending on direction.
type JobPayload struct {
	CreatedDate    string                   `json:"createdDate"`
	DueDate        string                   `json:"dueDate"`
	DocumentNumber string                   `json:"documentNumber"`
	SellerEin      string                   `json:"sellerEin,omitempty"`
	BuyerEin       string                   `json:"buyerEin,omitempty"`
	LineItems      []models.InvoiceLineItem `json:"lineItems"`
}

// BuildJobPayload maps extracted invoice fields into the vendor payload.
// Incoming invoices carry the counterparty's (seller's) identifier; outgoing
// invoices carry the buyer's.
func BuildJobPayload(extracted *models.ExtractedInvoice, direction Direction) JobPayload {
	payload := JobPayload{
		CreatedDate:    extracted.CreatedDate,
		DueDate:        extracted.DueDate,
		DocumentNumber: extracted.DocumentNumber,
		LineItems:      extracted.LineItems,
	}
	if direction == DirectionIncoming {
		payload.SellerEin = extracted.SellerEin
	} else {
		payload.BuyerEin = extracted.BuyerEin
	}
	return payload
}

// StartJobResult captures the submission outcome needed to persist an action:
// the vendor-assigned job key, the raw response and the HTTP status the call
// returned.
type StartJobResult struct {
	JobKey     string
	HTTPStatus int
	Raw        json.RawMessage
}

// Vendor job states. Anything not listed here is still in progress.
const (
	jobStateSuccessful = "Successful"
	jobStateFaulted    = "Faulted"
	jobStateStopped    = "Stopped"
)

// statusForVendorState maps a vendor job state to a local action status.
// The second return is false while the job is still in progress.
func statusForVendorState(state string) (models.RpaActionStatus, bool) {
	switch state {
	case jobStateSuccessful:
		return models.RpaActionStatusCompleted, true
	case jobStateFaulted, jobStateStopped:
		return models.RpaActionStatusFailed, true
	}
	return models.RpaActionStatusPending, false
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type startJobsRequest struct {
	StartInfo startInfo `json:"startInfo"`
}

type startInfo struct {
	ReleaseKey     string `json:"ReleaseKey"`
	Strategy       string `json:"Strategy"`
	JobsCount      int    `json:"JobsCount"`
	InputArguments string `json:"InputArguments"`
}

type startJobsResponse struct {
	Value []struct {
		Key string `json:"Key"`
	} `json:"value"`
}

type jobStatusResponse struct {
	State string `json:"State"`
}
