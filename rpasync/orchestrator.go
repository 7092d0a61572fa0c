package rpasync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/utils"
	"github.com/sirupsen/logrus"
)

// Orchestrator submits processed documents to the automation vendor and
// exposes on-demand status lookup for the resulting jobs.
type Orchestrator struct {
	vendor  VendorClient
	docs    DocumentStore
	actions ActionStore
	logger  *logrus.Logger
}

func NewOrchestrator(vendor VendorClient, docs DocumentStore, actions ActionStore, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{vendor: vendor, docs: docs, actions: actions, logger: logger}
}

// SubmitDataEntry builds the direction-dependent payload from a document's
// extracted fields, starts a vendor job, and persists the resulting action.
//
// Status of the created row reflects the HTTP outcome of the submission call,
// not job completion: a 200 means the vendor already reports the job done,
// any other 2xx leaves the action PENDING for the status check / sweep to
// terminalize, and a failed call records FAILED with the error payload.
func (o *Orchestrator) SubmitDataEntry(ctx context.Context, documentId int, triggeredByUserId int, subjectEin string) (*models.RpaAction, error) {
	doc, extracted, err := o.docs.ProcessedWithExtraction(ctx, documentId)
	if err != nil {
		return nil, err
	}

	direction := ResolveDirection(extracted.BuyerEin, subjectEin)
	payload := BuildJobPayload(extracted, direction)
	releaseKey := o.vendor.ReleaseKey(direction)

	submitted, err := o.vendor.StartJob(ctx, releaseKey, payload)
	if err != nil {
		o.recordSubmissionFailure(ctx, doc, triggeredByUserId, err)
		// The audit write above must never mask the original error.
		return nil, fmt.Errorf("rpa data-entry submission failed: %w", err)
	}

	status := models.RpaActionStatusPending
	if submitted.HTTPStatus == http.StatusOK {
		status = models.RpaActionStatusCompleted
	}
	resultBlob, err := json.Marshal(models.RpaActionResult{
		JobKey:         submitted.JobKey,
		VendorResponse: submitted.Raw,
	})
	if err != nil {
		return nil, err
	}

	action := &models.RpaAction{
		DocumentId:          doc.ID,
		AccountingSubjectId: doc.AccountingSubjectId,
		ActionType:          models.RpaActionTypeDataEntry,
		Status:              status,
		Result:              resultBlob,
		TriggeredById:       triggeredByUserId,
	}
	if err := o.actions.Create(ctx, action); err != nil {
		return nil, fmt.Errorf("persist rpa action: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"module":      "rpasync",
		"document_id": doc.ID,
		"direction":   direction,
		"status":      status,
		"job_key":     submitted.JobKey,
	}).Info("rpa data-entry job submitted")

	return action, nil
}

// recordSubmissionFailure best-effort persists a FAILED action carrying the
// error message and, when present, the vendor's error payload. Its own
// failure is only logged so the original submission error propagates intact.
func (o *Orchestrator) recordSubmissionFailure(ctx context.Context, doc *models.Document, triggeredByUserId int, submitErr error) {
	result := models.RpaActionResult{Error: submitErr.Error()}
	var vendorErr *VendorError
	if errors.As(submitErr, &vendorErr) {
		result.VendorResponse = vendorErr.Body
	}
	blob, err := json.Marshal(result)
	if err != nil {
		o.logger.Warn("failed to encode rpa failure result: " + err.Error())
		blob = nil
	}

	action := &models.RpaAction{
		DocumentId:          doc.ID,
		AccountingSubjectId: doc.AccountingSubjectId,
		ActionType:          models.RpaActionTypeDataEntry,
		Status:              models.RpaActionStatusFailed,
		Result:              blob,
		TriggeredById:       triggeredByUserId,
	}
	if err := o.actions.Create(ctx, action); err != nil {
		o.logger.WithFields(logrus.Fields{
			"module":      "rpasync",
			"document_id": doc.ID,
		}).Warn("failed to persist FAILED rpa action: " + err.Error())
	}
}

// CheckActionStatus returns the latest data-entry action for a document,
// polling the vendor when the action is still PENDING. The update is only
// persisted when a terminal vendor state is observed, via a conditional
// only-if-PENDING write shared with the reconciliation sweep.
func (o *Orchestrator) CheckActionStatus(ctx context.Context, documentId int) (*models.RpaAction, error) {
	action, err := o.actions.LatestForDocument(ctx, documentId, models.RpaActionTypeDataEntry)
	if err != nil {
		return nil, err
	}
	if action.Status.IsTerminal() {
		return action, nil
	}

	result, err := action.DecodeResult()
	if err != nil {
		return nil, fmt.Errorf("decode rpa action result: %w", err)
	}
	if result.JobKey == "" {
		return nil, utils.ErrorJobKeyMissing
	}

	state, err := o.vendor.JobStatus(ctx, result.JobKey)
	if err != nil {
		return nil, fmt.Errorf("rpa job status poll failed: %w", err)
	}

	status, terminal := statusForVendorState(state)
	if !terminal {
		return action, nil
	}

	result.State = state
	if _, err := o.actions.TerminalizeIfPending(ctx, action.ID, status, result); err != nil {
		return nil, fmt.Errorf("persist rpa action status: %w", err)
	}
	action.Status = status
	if blob, merr := json.Marshal(result); merr == nil {
		action.Result = blob
	}
	return action, nil
}
